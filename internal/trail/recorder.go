// Package trail records the per-ride location trail: append-only samples
// with server-assigned timestamps, read back ascending by time.
package trail

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/ride-hailing/internal/access"
	"github.com/example/ride-hailing/internal/models"
	"github.com/example/ride-hailing/internal/observability"
	"github.com/example/ride-hailing/internal/storage"
)

// Publisher forwards samples to the location pipeline. Publishing is
// best-effort; persistence is the source of truth.
type Publisher interface {
	PublishSample(s models.LocationSample, driverID string) error
}

type Recorder struct {
	Store     storage.Store
	Publisher Publisher // optional
}

// Append stores one sample for a ride the principal may access. The
// timestamp is assigned here, never taken from the client.
func (r *Recorder) Append(ctx context.Context, p *models.User, rideID string, lat, lon float64) (*models.LocationSample, error) {
	ride, err := r.Store.RideByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !access.CanAccessRide(p, ride) {
		return nil, fmt.Errorf("ride %s locations: %w", rideID, models.ErrForbidden)
	}
	sample := &models.LocationSample{
		ID:         uuid.NewString(),
		RideID:     rideID,
		Latitude:   lat,
		Longitude:  lon,
		RecordedAt: time.Now().UTC(),
	}
	if err := r.Store.AppendLocation(ctx, sample); err != nil {
		return nil, err
	}
	observability.LocationSamplesTotal.Inc()
	if r.Publisher != nil {
		_ = r.Publisher.PublishSample(*sample, ride.DriverID)
	}
	return sample, nil
}

// ListByRide returns the ride's samples ascending by recorded_at.
func (r *Recorder) ListByRide(ctx context.Context, p *models.User, rideID string) ([]*models.LocationSample, error) {
	ride, err := r.Store.RideByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !access.CanAccessRide(p, ride) {
		return nil, fmt.Errorf("ride %s locations: %w", rideID, models.ErrForbidden)
	}
	return r.Store.LocationsByRide(ctx, rideID)
}
