// Package payments keeps the append-only payment ledger. Record statuses
// are free-form strings from the payment flow; they are not reconciled
// with the ride's own payment_status.
package payments

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/example/ride-hailing/internal/access"
	"github.com/example/ride-hailing/internal/models"
	"github.com/example/ride-hailing/internal/observability"
	"github.com/example/ride-hailing/internal/storage"
)

// Processor creates a hold with an external payment provider and returns
// its transaction reference.
type Processor interface {
	Hold(ctx context.Context, amountCents int64, currency, customerID string) (string, error)
}

type Ledger struct {
	Store     storage.Store
	Processor Processor // optional
	Currency  string    // defaults to usd
}

type AppendInput struct {
	RideID         string  `json:"ride_id"`
	Amount         float64 `json:"amount"`
	Method         string  `json:"payment_method"`
	TransactionRef string  `json:"transaction_id"`
	Status         string  `json:"status"`
}

// Append records one payment attempt against a ride the principal may
// access. Card payments without a transaction reference go through the
// processor first; a processor failure fails the whole request.
func (l *Ledger) Append(ctx context.Context, p *models.User, in AppendInput) (*models.PaymentRecord, error) {
	if in.RideID == "" || in.Method == "" {
		return nil, fmt.Errorf("ride_id and payment_method are required: %w", models.ErrValidation)
	}
	ride, err := l.Store.RideByID(ctx, in.RideID)
	if err != nil {
		return nil, err
	}
	if !access.CanAccessRide(p, ride) {
		return nil, fmt.Errorf("ride %s payments: %w", in.RideID, models.ErrForbidden)
	}
	ref := in.TransactionRef
	if ref == "" && in.Method == "card" && l.Processor != nil {
		currency := l.Currency
		if currency == "" {
			currency = "usd"
		}
		ref, err = l.Processor.Hold(ctx, toCents(in.Amount), currency, p.ID)
		if err != nil {
			return nil, fmt.Errorf("payment hold: %w", err)
		}
	}
	rec := &models.PaymentRecord{
		ID:             uuid.NewString(),
		RideID:         in.RideID,
		Amount:         in.Amount,
		Method:         in.Method,
		TransactionRef: ref,
		Status:         in.Status,
		RecordedAt:     time.Now().UTC(),
	}
	if err := l.Store.AppendPayment(ctx, rec); err != nil {
		return nil, err
	}
	observability.PaymentsRecordedTotal.Inc()
	return rec, nil
}

// List returns the payment records visible to the principal, partitioned
// the same way as rides via the owning ride.
func (l *Ledger) List(ctx context.Context, p *models.User) ([]*models.PaymentRecord, error) {
	return l.Store.ListPayments(ctx, access.RideScope(p))
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
