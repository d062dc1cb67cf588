package trail

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/ride-hailing/internal/models"
	"github.com/example/ride-hailing/internal/storage"
)

type fakePublisher struct {
	samples []models.LocationSample
	drivers []string
}

func (f *fakePublisher) PublishSample(s models.LocationSample, driverID string) error {
	f.samples = append(f.samples, s)
	f.drivers = append(f.drivers, driverID)
	return nil
}

func setup(t *testing.T) (*Recorder, *storage.MemoryStore, *fakePublisher) {
	t.Helper()
	store := storage.NewMemoryStore()
	pub := &fakePublisher{}
	r := &Recorder{Store: store, Publisher: pub}

	ctx := context.Background()
	for _, u := range []*models.User{
		{ID: "u1", Username: "u1", Role: models.RoleUser},
		{ID: "d1", Username: "d1", Role: models.RoleDriver},
	} {
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatal(err)
		}
	}
	ride := &models.Ride{ID: "r1", RiderID: "u1", DriverID: "d1", Status: models.StatusStarted, RequestedAt: time.Now()}
	if err := store.CreateRide(ctx, ride); err != nil {
		t.Fatal(err)
	}
	return r, store, pub
}

func TestAppendAssignsTimestampAndPublishes(t *testing.T) {
	r, _, pub := setup(t)
	driver := &models.User{ID: "d1", Role: models.RoleDriver}

	before := time.Now()
	s, err := r.Append(context.Background(), driver, "r1", 40.71, -74.0)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if s.RecordedAt.Before(before) {
		t.Error("recorded_at must be server-assigned, not zero or past")
	}
	if len(pub.samples) != 1 || pub.drivers[0] != "d1" {
		t.Fatalf("publisher not invoked with driver id: %+v", pub.drivers)
	}
}

func TestAppendForbiddenForStrangers(t *testing.T) {
	r, _, _ := setup(t)
	stranger := &models.User{ID: "u9", Role: models.RoleUser}

	if _, err := r.Append(context.Background(), stranger, "r1", 0, 0); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	if _, err := r.ListByRide(context.Background(), stranger, "r1"); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("list err = %v, want ErrForbidden", err)
	}
}

func TestListAscending(t *testing.T) {
	r, _, _ := setup(t)
	rider := &models.User{ID: "u1", Role: models.RoleUser}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := r.Append(ctx, rider, "r1", float64(i), 0); err != nil {
			t.Fatal(err)
		}
	}
	samples, err := r.ListByRide(ctx, rider, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 3 {
		t.Fatalf("got %d samples", len(samples))
	}
	for i := 1; i < len(samples); i++ {
		if samples[i].RecordedAt.Before(samples[i-1].RecordedAt) {
			t.Fatal("samples not ascending")
		}
	}
}

func TestAppendUnknownRide(t *testing.T) {
	r, _, _ := setup(t)
	rider := &models.User{ID: "u1", Role: models.RoleUser}
	if _, err := r.Append(context.Background(), rider, "nope", 0, 0); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
