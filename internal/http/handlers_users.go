package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/ride-hailing/internal/access"
	"github.com/example/ride-hailing/internal/auth"
	"github.com/example/ride-hailing/internal/models"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleAvailableDrivers lists drivers flagged available, overlaying the
// live location from the presence registry when one is known.
func (s *Server) handleAvailableDrivers(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.principal(w, r); !ok {
		return
	}
	list, err := s.store.AvailableDrivers(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if s.drivers != nil {
		for _, d := range list {
			if loc, ok := s.drivers.Location(r.Context(), d.ID); ok {
				d.CurrentLocation = &loc
			}
		}
	}
	if list == nil {
		list = []*models.User{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateDriver(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	if !access.HasRole(p, models.RoleAdmin) {
		writeMessage(w, http.StatusForbidden, "only admins can create drivers")
		return
	}
	var in auth.RegisterInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, err)
		return
	}
	in.Role = models.RoleDriver
	u, _, err := s.auth.Register(r.Context(), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

type carDetailsInput struct {
	CarType         *string       `json:"car_type"`
	CarColor        *string       `json:"car_color"`
	LicensePlate    *string       `json:"license_plate"`
	IsAvailable     *bool         `json:"is_available"`
	CurrentLocation *models.Coord `json:"current_location"`
}

// handleUpdateCarDetails lets a driver patch their own car record.
// Pointer fields distinguish "absent" from zero values.
func (s *Server) handleUpdateCarDetails(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	if !access.HasRole(p, models.RoleDriver) {
		writeMessage(w, http.StatusForbidden, "only drivers can update car details")
		return
	}
	if mux.Vars(r)["id"] != p.ID {
		writeMessage(w, http.StatusForbidden, "you can only update your own details")
		return
	}
	var in carDetailsInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, err)
		return
	}
	u, err := s.store.UserByID(r.Context(), p.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if in.CarType != nil {
		u.CarType = *in.CarType
	}
	if in.CarColor != nil {
		u.CarColor = *in.CarColor
	}
	if in.LicensePlate != nil {
		u.LicensePlate = *in.LicensePlate
	}
	if in.IsAvailable != nil {
		u.IsAvailable = *in.IsAvailable
	}
	if in.CurrentLocation != nil {
		u.CurrentLocation = in.CurrentLocation
	}
	if err := s.store.UpdateUser(r.Context(), u); err != nil {
		s.writeError(w, err)
		return
	}
	if s.drivers != nil {
		if in.IsAvailable != nil {
			_ = s.drivers.SetAvailability(r.Context(), u.ID, *in.IsAvailable)
		}
		if in.CurrentLocation != nil {
			_ = s.drivers.UpdateLocation(r.Context(), u.ID, *in.CurrentLocation)
		}
	}
	writeJSON(w, http.StatusOK, u)
}
