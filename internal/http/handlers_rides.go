package httpapi

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/ride-hailing/internal/auth"
	"github.com/example/ride-hailing/internal/models"
	"github.com/example/ride-hailing/internal/rides"
)

func (s *Server) principal(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "unauthenticated")
	}
	return p, ok
}

func (s *Server) handleListRides(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	list, err := s.rides.List(r.Context(), p)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if list == nil {
		list = []*models.Ride{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateRide(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	var in rides.CreateInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, err)
		return
	}
	ride, err := s.rides.Create(r.Context(), p, in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ride)
}

func (s *Server) handleGetRide(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	ride, err := s.rides.Get(r.Context(), p, mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

func (s *Server) handleDeleteRide(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	if err := s.rides.Delete(r.Context(), p, mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAcceptRide(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.rides.Accept)
}

func (s *Server) handleStartRide(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.rides.Start)
}

func (s *Server) handleCompleteRide(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.rides.Complete)
}

func (s *Server) handleCancelRide(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	// reason is optional; an empty or absent body cancels with no reason
	var in struct {
		Reason string `json:"reason"`
	}
	_ = decode(r, &in)
	ride, err := s.rides.Cancel(r.Context(), p, mux.Vars(r)["id"], in.Reason)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request, op func(context.Context, *models.User, string) (*models.Ride, error)) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	ride, err := op(r.Context(), p, mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	samples, err := s.trail.ListByRide(r.Context(), p, mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	if samples == nil {
		samples = []*models.LocationSample{}
	}
	writeJSON(w, http.StatusOK, samples)
}

func (s *Server) handleAppendLocation(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	var in struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if err := decode(r, &in); err != nil {
		s.writeError(w, err)
		return
	}
	sample, err := s.trail.Append(r.Context(), p, mux.Vars(r)["id"], in.Latitude, in.Longitude)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sample)
}
