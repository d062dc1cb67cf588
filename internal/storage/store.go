package storage

import (
	"context"

	"github.com/example/ride-hailing/internal/models"
)

// RideFilter narrows ride listings. The zero value matches everything;
// the access package derives a filter from the requesting principal.
type RideFilter struct {
	RiderID  string
	DriverID string
}

func (f RideFilter) Match(r *models.Ride) bool {
	if f.RiderID != "" && r.RiderID != f.RiderID {
		return false
	}
	if f.DriverID != "" && r.DriverID != f.DriverID {
		return false
	}
	return true
}

// Store is the persistence interface consumed by the domain services.
// UpdateRide must be a compare-and-swap on Ride.Version: the write succeeds
// only if the stored version equals the version the caller read, otherwise
// models.ErrVersionConflict. DeleteRide removes the ride's location trail
// with it.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	UserByID(ctx context.Context, id string) (*models.User, error)
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	UserByPhone(ctx context.Context, phone string) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	AvailableDrivers(ctx context.Context) ([]*models.User, error)

	CreateRide(ctx context.Context, r *models.Ride) error
	RideByID(ctx context.Context, id string) (*models.Ride, error)
	UpdateRide(ctx context.Context, r *models.Ride) error
	ListRides(ctx context.Context, f RideFilter) ([]*models.Ride, error)
	DeleteRide(ctx context.Context, id string) error

	AppendLocation(ctx context.Context, s *models.LocationSample) error
	LocationsByRide(ctx context.Context, rideID string) ([]*models.LocationSample, error)

	AppendPayment(ctx context.Context, p *models.PaymentRecord) error
	ListPayments(ctx context.Context, f RideFilter) ([]*models.PaymentRecord, error)
}
