package httpapi

import (
	"net/http"

	"github.com/example/ride-hailing/internal/auth"
	"github.com/example/ride-hailing/internal/models"
)

type tokenResponse struct {
	Access  string       `json:"access"`
	Refresh string       `json:"refresh"`
	User    *models.User `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, err)
		return
	}
	u, pair, err := s.auth.Register(r.Context(), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{Access: pair.Access, Refresh: pair.Refresh, User: u})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username    string `json:"username"`
		PhoneNumber string `json:"phone_number"`
		Password    string `json:"password"`
	}
	if err := decode(r, &in); err != nil {
		s.writeError(w, err)
		return
	}
	identifier := in.Username
	if identifier == "" {
		identifier = in.PhoneNumber
	}
	u, pair, err := s.auth.Login(r.Context(), identifier, in.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Access: pair.Access, Refresh: pair.Refresh, User: u})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Refresh string `json:"refresh"`
	}
	if err := decode(r, &in); err != nil {
		s.writeError(w, err)
		return
	}
	access, err := s.auth.Refresh(r.Context(), in.Refresh)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": access})
}
