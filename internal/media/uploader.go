package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// uploadResponse is what the media endpoint returns on success
type uploadResponse struct {
	URL string `json:"url"`
}

// Uploader pushes an emergency attachment to the media endpoint. Uploads
// are a single best-effort attempt with a longer timeout than alert
// sends, since media is larger. A failed upload never blocks delivery.
type Uploader struct {
	httpClient *http.Client
	baseURL    string
	logger     *logrus.Entry
}

// NewUploader creates a media uploader against the given intake base URL
func NewUploader(baseURL string, timeout time.Duration, logger *logrus.Entry) *Uploader {
	return &Uploader{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		logger:     logger,
	}
}

// Upload sends the file at mediaPath as a multipart request with bearer
// auth and returns the durable URL the server assigned.
func (u *Uploader) Upload(ctx context.Context, mediaPath, token string) (string, error) {
	file, err := os.Open(mediaPath)
	if err != nil {
		return "", fmt.Errorf("failed to open media file: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", uploadName(mediaPath))
	if err != nil {
		return "", fmt.Errorf("failed to create multipart field: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("failed to read media file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+"/v1/media", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	u.logger.WithField("media_path", mediaPath).Debug("Uploading emergency media")

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("media upload failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read upload response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("media upload rejected: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var parsed uploadResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse upload response: %w", err)
	}
	if parsed.URL == "" {
		return "", fmt.Errorf("media endpoint returned no URL")
	}

	u.logger.WithField("media_url", parsed.URL).Info("Media uploaded")
	return parsed.URL, nil
}

// uploadName derives the server-side file name. Videos keep their mp4
// extension; everything else is treated as a jpeg still.
func uploadName(mediaPath string) string {
	name := filepath.Base(mediaPath)
	if name == "" || name == "." || name == string(filepath.Separator) {
		ext := "jpg"
		if strings.HasSuffix(strings.ToLower(mediaPath), ".mp4") {
			ext = "mp4"
		}
		return fmt.Sprintf("emergency_%s.%s", uuid.NewString(), ext)
	}
	return name
}
