package session

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"mine-safety-bridge/internal/types"
)

// Provider resolves the current user identity and auth token. A nil user
// with a nil error means no active session.
type Provider interface {
	CurrentUser() (*types.User, error)
	Token() (string, error)
}

// sessionClaims are the JWT claims the auth backend issues on login
type sessionClaims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// FileProvider reads the session token the login flow drops on disk and
// derives the user identity from its claims. The token was issued to this
// device, so claims are read without signature verification; the intake
// service verifies the signature on every request.
type FileProvider struct {
	tokenPath string
	parser    *jwt.Parser

	mutex      sync.Mutex
	cachedRaw  string
	cachedUser *types.User
}

// NewFileProvider creates a session provider backed by a token file
func NewFileProvider(tokenPath string) *FileProvider {
	return &FileProvider{
		tokenPath: tokenPath,
		parser:    jwt.NewParser(),
	}
}

// CurrentUser returns the logged-in user, or nil if there is no session
func (p *FileProvider) CurrentUser() (*types.User, error) {
	raw, err := p.readToken()
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	if raw == p.cachedRaw && p.cachedUser != nil {
		return p.cachedUser, nil
	}

	claims := &sessionClaims{}
	if _, _, err := p.parser.ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("failed to parse session token: %w", err)
	}

	if claims.UserID == "" {
		return nil, fmt.Errorf("session token has no user_id claim")
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		// Expired session counts as logged out
		return nil, nil
	}

	user := &types.User{UserID: claims.UserID, Name: claims.Name}
	p.cachedRaw = raw
	p.cachedUser = user
	return user, nil
}

// Token returns the raw bearer token, or "" if there is no session
func (p *FileProvider) Token() (string, error) {
	return p.readToken()
}

func (p *FileProvider) readToken() (string, error) {
	data, err := os.ReadFile(p.tokenPath)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session token: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// StaticProvider serves a fixed session, used by tests and the CLI
// trigger path when a token is passed explicitly.
type StaticProvider struct {
	User *types.User
	Raw  string
}

// CurrentUser returns the configured user
func (p *StaticProvider) CurrentUser() (*types.User, error) {
	return p.User, nil
}

// Token returns the configured token
func (p *StaticProvider) Token() (string, error) {
	return p.Raw, nil
}
