// Package rides implements the ride lifecycle state machine:
//
//	requested --accept--> accepted --start--> started --complete--> completed
//	requested/accepted/started --cancel--> cancelled
//
// Each transition is a read, precondition check, and compare-and-swap write
// on the ride's version counter. When the CAS loses a race the ride is
// reloaded and the precondition re-checked, so of two concurrent accepts on
// the same requested ride exactly one succeeds and the other gets
// ErrInvalidTransition.
package rides

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/ride-hailing/internal/access"
	"github.com/example/ride-hailing/internal/models"
	"github.com/example/ride-hailing/internal/observability"
	"github.com/example/ride-hailing/internal/storage"
)

// Notifier receives ride status-change events. Implementations must not
// block; delivery is best-effort.
type Notifier interface {
	RideUpdated(ride *models.Ride)
}

type Service struct {
	Store    storage.Store
	Notifier Notifier // optional
}

// CreateInput carries the client-supplied fields of a new ride. Fare,
// distance and duration are accepted as given; no bounds are enforced.
type CreateInput struct {
	Pickup         models.Coord `json:"pickup_location"`
	Dropoff        models.Coord `json:"dropoff_location"`
	PickupAddress  string       `json:"pickup_address"`
	DropoffAddress string       `json:"dropoff_address"`
	EstimatedFare  float64      `json:"estimated_fare"`
	DistanceKm     float64      `json:"distance"`
	DurationMin    int          `json:"duration"`
	PaymentMethod  string       `json:"payment_method"`
}

func (in CreateInput) validate() error {
	if in.PickupAddress == "" || in.DropoffAddress == "" {
		return fmt.Errorf("pickup and dropoff addresses are required: %w", models.ErrValidation)
	}
	if in.PaymentMethod == "" {
		return fmt.Errorf("payment_method is required: %w", models.ErrValidation)
	}
	return nil
}

// Create makes the principal the requester of a new ride in status
// requested with payment status pending and no driver.
func (s *Service) Create(ctx context.Context, p *models.User, in CreateInput) (*models.Ride, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	ride := &models.Ride{
		ID:             uuid.NewString(),
		RiderID:        p.ID,
		Pickup:         in.Pickup,
		Dropoff:        in.Dropoff,
		PickupAddress:  in.PickupAddress,
		DropoffAddress: in.DropoffAddress,
		Status:         models.StatusRequested,
		PaymentStatus:  models.PaymentPending,
		RequestedAt:    time.Now().UTC(),
		EstimatedFare:  in.EstimatedFare,
		DistanceKm:     in.DistanceKm,
		DurationMin:    in.DurationMin,
		PaymentMethod:  in.PaymentMethod,
	}
	if err := s.Store.CreateRide(ctx, ride); err != nil {
		return nil, err
	}
	observability.RidesCreatedTotal.Inc()
	return ride, nil
}

// Get loads a ride the principal may see. Out-of-scope rides read as not
// found rather than forbidden, so ride ids are not probeable.
func (s *Service) Get(ctx context.Context, p *models.User, rideID string) (*models.Ride, error) {
	ride, err := s.Store.RideByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !access.CanAccessRide(p, ride) {
		return nil, fmt.Errorf("ride %s: %w", rideID, models.ErrNotFound)
	}
	return ride, nil
}

// List returns the rides visible to the principal: all for admins, assigned
// rides for drivers, own rides for everyone else.
func (s *Service) List(ctx context.Context, p *models.User) ([]*models.Ride, error) {
	return s.Store.ListRides(ctx, access.RideScope(p))
}

// Delete removes a ride and its location trail. Admin only.
func (s *Service) Delete(ctx context.Context, p *models.User, rideID string) error {
	if !access.HasRole(p, models.RoleAdmin) {
		return fmt.Errorf("delete ride: %w", models.ErrForbidden)
	}
	return s.Store.DeleteRide(ctx, rideID)
}

// Accept assigns the calling driver to a requested ride. Unlike the other
// transitions it does not require prior visibility: any driver may claim
// any requested ride.
func (s *Service) Accept(ctx context.Context, p *models.User, rideID string) (*models.Ride, error) {
	if !access.HasRole(p, models.RoleDriver) {
		observability.RideTransitionsTotal.WithLabelValues("accept", "forbidden").Inc()
		return nil, fmt.Errorf("only drivers may accept rides: %w", models.ErrForbidden)
	}
	return s.transition(ctx, "accept", rideID, nil, func(r *models.Ride) error {
		if r.Status != models.StatusRequested {
			return fmt.Errorf("accept ride in status %s: %w", r.Status, models.ErrInvalidTransition)
		}
		r.DriverID = p.ID
		r.Status = models.StatusAccepted
		return nil
	})
}

// Start moves an accepted ride to started and stamps started_at.
func (s *Service) Start(ctx context.Context, p *models.User, rideID string) (*models.Ride, error) {
	return s.transition(ctx, "start", rideID, p, func(r *models.Ride) error {
		if r.Status != models.StatusAccepted {
			return fmt.Errorf("start ride in status %s: %w", r.Status, models.ErrInvalidTransition)
		}
		now := time.Now().UTC()
		r.Status = models.StatusStarted
		r.StartedAt = &now
		return nil
	})
}

// Complete moves a started ride to completed and stamps completed_at.
func (s *Service) Complete(ctx context.Context, p *models.User, rideID string) (*models.Ride, error) {
	return s.transition(ctx, "complete", rideID, p, func(r *models.Ride) error {
		if r.Status != models.StatusStarted {
			return fmt.Errorf("complete ride in status %s: %w", r.Status, models.ErrInvalidTransition)
		}
		now := time.Now().UTC()
		r.Status = models.StatusCompleted
		r.CompletedAt = &now
		return nil
	})
}

// Cancel moves any non-terminal ride to cancelled, recording the reason
// (empty if omitted).
func (s *Service) Cancel(ctx context.Context, p *models.User, rideID, reason string) (*models.Ride, error) {
	return s.transition(ctx, "cancel", rideID, p, func(r *models.Ride) error {
		if r.Status.Terminal() {
			return fmt.Errorf("cancel ride in status %s: %w", r.Status, models.ErrInvalidTransition)
		}
		r.Status = models.StatusCancelled
		r.CancellationReason = reason
		return nil
	})
}

// transition runs one guarded state change. scope, when non-nil, is the
// principal whose visibility gates the ride. apply checks the precondition
// against the freshly read ride and mutates it; the loop retries on version
// conflict so the precondition is always judged against committed state.
func (s *Service) transition(ctx context.Context, name, rideID string, scope *models.User, apply func(*models.Ride) error) (*models.Ride, error) {
	for {
		ride, err := s.Store.RideByID(ctx, rideID)
		if err != nil {
			observability.RideTransitionsTotal.WithLabelValues(name, "not_found").Inc()
			return nil, err
		}
		if scope != nil && !access.CanAccessRide(scope, ride) {
			observability.RideTransitionsTotal.WithLabelValues(name, "not_found").Inc()
			return nil, fmt.Errorf("ride %s: %w", rideID, models.ErrNotFound)
		}
		if err := apply(ride); err != nil {
			observability.RideTransitionsTotal.WithLabelValues(name, "rejected").Inc()
			return nil, err
		}
		if err := s.Store.UpdateRide(ctx, ride); err != nil {
			if errors.Is(err, models.ErrVersionConflict) {
				continue
			}
			observability.RideTransitionsTotal.WithLabelValues(name, "error").Inc()
			return nil, err
		}
		observability.RideTransitionsTotal.WithLabelValues(name, "ok").Inc()
		if s.Notifier != nil {
			s.Notifier.RideUpdated(ride)
		}
		return ride, nil
	}
}
