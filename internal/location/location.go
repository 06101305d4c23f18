package location

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"mine-safety-bridge/internal/types"
)

// Provider is the device location source. Implementations may block on
// hardware and are expected to honor context cancellation.
type Provider interface {
	// PermissionGranted reports whether the app may read device location
	PermissionGranted() bool

	// Location returns the current device coordinates
	Location(ctx context.Context) (types.Coordinates, error)
}

// Resolver wraps a location provider with a permission gate and a hard
// timeout. It never fails: any problem degrades to the (0, 0) sentinel so
// alert delivery is never blocked on positioning.
type Resolver struct {
	provider Provider
	timeout  time.Duration
	logger   *logrus.Entry
}

// NewResolver creates a resolver around the given provider
func NewResolver(provider Provider, timeout time.Duration, logger *logrus.Entry) *Resolver {
	return &Resolver{
		provider: provider,
		timeout:  timeout,
		logger:   logger,
	}
}

// Current returns the best-effort device coordinates
func (r *Resolver) Current(ctx context.Context) types.Coordinates {
	if r.provider == nil {
		return types.Coordinates{}
	}

	if !r.provider.PermissionGranted() {
		r.logger.Warn("Location permission not granted, using sentinel coordinates")
		return types.Coordinates{}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	coords, err := r.provider.Location(ctx)
	if err != nil {
		r.logger.WithError(err).Warn("Location lookup failed, using sentinel coordinates")
		return types.Coordinates{}
	}

	r.logger.WithFields(logrus.Fields{
		"latitude":  coords.Latitude,
		"longitude": coords.Longitude,
	}).Debug("Resolved device location")

	return coords
}
