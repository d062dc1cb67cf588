package drivers

import (
	"context"
	"testing"

	"github.com/example/ride-hailing/internal/models"
)

func TestMemoryRegistry(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	if _, ok := r.Location(ctx, "d1"); ok {
		t.Fatal("unknown driver should have no location")
	}

	if err := r.UpdateLocation(ctx, "d1", models.Coord{Lat: 40.7, Lon: -74.0}); err != nil {
		t.Fatal(err)
	}
	loc, ok := r.Location(ctx, "d1")
	if !ok || loc.Lat != 40.7 || loc.Lon != -74.0 {
		t.Fatalf("location = %+v ok=%v", loc, ok)
	}

	// availability updates must not clobber the location
	if err := r.SetAvailability(ctx, "d1", false); err != nil {
		t.Fatal(err)
	}
	loc, ok = r.Location(ctx, "d1")
	if !ok || loc.Lat != 40.7 {
		t.Fatalf("location lost after availability update: %+v ok=%v", loc, ok)
	}
}
