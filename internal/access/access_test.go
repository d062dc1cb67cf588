package access

import (
	"testing"

	"github.com/example/ride-hailing/internal/models"
)

func TestCanAccessRide(t *testing.T) {
	admin := &models.User{ID: "a", Role: models.RoleAdmin}
	driver := &models.User{ID: "d", Role: models.RoleDriver}
	rider := &models.User{ID: "u", Role: models.RoleUser}

	assigned := &models.Ride{ID: "r1", RiderID: "u", DriverID: "d"}
	unassigned := &models.Ride{ID: "r2", RiderID: "u"}
	foreign := &models.Ride{ID: "r3", RiderID: "x", DriverID: "y"}

	tests := []struct {
		name string
		u    *models.User
		ride *models.Ride
		want bool
	}{
		{"admin any", admin, foreign, true},
		{"driver assigned", driver, assigned, true},
		{"driver foreign", driver, foreign, false},
		{"driver unassigned", driver, unassigned, false},
		{"rider own", rider, unassigned, true},
		{"rider own assigned", rider, assigned, true},
		{"rider foreign", rider, foreign, false},
		{"nil principal", nil, assigned, false},
	}
	for _, tc := range tests {
		if got := CanAccessRide(tc.u, tc.ride); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestRideScope(t *testing.T) {
	rides := []*models.Ride{
		{ID: "1", RiderID: "u1"},
		{ID: "2", RiderID: "u1", DriverID: "d1"},
		{ID: "3", RiderID: "u2", DriverID: "d1"},
		{ID: "4", RiderID: "u2", DriverID: "d2"},
	}
	count := func(u *models.User) int {
		f := RideScope(u)
		n := 0
		for _, r := range rides {
			if f.Match(r) {
				n++
			}
		}
		return n
	}

	if n := count(&models.User{ID: "x", Role: models.RoleAdmin}); n != 4 {
		t.Errorf("admin sees %d, want 4", n)
	}
	if n := count(&models.User{ID: "d1", Role: models.RoleDriver}); n != 2 {
		t.Errorf("driver d1 sees %d, want 2", n)
	}
	if n := count(&models.User{ID: "u1", Role: models.RoleUser}); n != 2 {
		t.Errorf("user u1 sees %d, want 2", n)
	}
	if n := count(&models.User{ID: "u3", Role: models.RoleUser}); n != 0 {
		t.Errorf("user u3 sees %d, want 0", n)
	}
}

func TestHasRole(t *testing.T) {
	d := &models.User{ID: "d", Role: models.RoleDriver}
	if !HasRole(d, models.RoleDriver) {
		t.Error("driver should have driver role")
	}
	if HasRole(d, models.RoleAdmin) {
		t.Error("driver should not have admin role")
	}
	if !HasRole(d, models.RoleAdmin, models.RoleDriver) {
		t.Error("any-of check failed")
	}
	if HasRole(nil, models.RoleUser) {
		t.Error("nil principal has no roles")
	}
}
