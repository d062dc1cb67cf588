package httpapi

import (
	"net/http"

	"github.com/example/ride-hailing/internal/models"
	"github.com/example/ride-hailing/internal/payments"
)

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	list, err := s.payments.List(r.Context(), p)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if list == nil {
		list = []*models.PaymentRecord{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleAppendPayment(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	var in payments.AppendInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, err)
		return
	}
	rec, err := s.payments.Append(r.Context(), p, in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}
