// Package access holds the role model and the read-scoping rules. Every
// function here is pure; the HTTP and service layers call these instead of
// comparing role strings inline.
package access

import (
	"github.com/example/ride-hailing/internal/models"
	"github.com/example/ride-hailing/internal/storage"
)

func HasRole(u *models.User, roles ...models.Role) bool {
	if u == nil {
		return false
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// CanAccessRide reports whether the principal may read or act on a ride:
// admins always, drivers only on rides assigned to them, riders only on
// rides they requested.
func CanAccessRide(u *models.User, ride *models.Ride) bool {
	if u == nil || ride == nil {
		return false
	}
	switch u.Role {
	case models.RoleAdmin:
		return true
	case models.RoleDriver:
		return ride.DriverID != "" && ride.DriverID == u.ID
	default:
		return ride.RiderID == u.ID
	}
}

// RideScope returns the listing filter for a principal: admins see all,
// drivers see rides assigned to them, riders see rides they requested.
// The same partition applies to payments via their owning ride.
func RideScope(u *models.User) storage.RideFilter {
	switch u.Role {
	case models.RoleAdmin:
		return storage.RideFilter{}
	case models.RoleDriver:
		return storage.RideFilter{DriverID: u.ID}
	default:
		return storage.RideFilter{RiderID: u.ID}
	}
}
