package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/ride-hailing/internal/auth"
	"github.com/example/ride-hailing/internal/dispatch"
	"github.com/example/ride-hailing/internal/drivers"
	"github.com/example/ride-hailing/internal/payments"
	"github.com/example/ride-hailing/internal/rides"
	"github.com/example/ride-hailing/internal/storage"
	"github.com/example/ride-hailing/internal/trail"
)

// Deps is everything the API surface needs. All fields except the
// optional registry and websocket registry must be set.
type Deps struct {
	Logger   *slog.Logger
	Store    storage.Store
	Tokens   *auth.TokenManager
	Auth     *auth.Service
	Rides    *rides.Service
	Trail    *trail.Recorder
	Payments *payments.Ledger
	Drivers  drivers.Registry     // optional
	WS       *dispatch.WSRegistry // optional
}

type Server struct {
	logger   *slog.Logger
	store    storage.Store
	tokens   *auth.TokenManager
	auth     *auth.Service
	rides    *rides.Service
	trail    *trail.Recorder
	payments *payments.Ledger
	drivers  drivers.Registry
	wsreg    *dispatch.WSRegistry
	mux      *mux.Router
}

func NewServer(d Deps) *Server {
	s := &Server{
		logger:   d.Logger,
		store:    d.Store,
		tokens:   d.Tokens,
		auth:     d.Auth,
		rides:    d.Rides,
		trail:    d.Trail,
		payments: d.Payments,
		drivers:  d.Drivers,
		wsreg:    d.WS,
		mux:      mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	s.mux.Handle("/metrics", promhttp.Handler())

	api := s.mux.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh", s.handleRefresh).Methods(http.MethodPost)

	priv := api.NewRoute().Subrouter()
	priv.Use(auth.Middleware(s.tokens, s.store, writeMessage))

	priv.HandleFunc("/rides", s.handleListRides).Methods(http.MethodGet)
	priv.HandleFunc("/rides", s.handleCreateRide).Methods(http.MethodPost)
	priv.HandleFunc("/rides/{id}", s.handleGetRide).Methods(http.MethodGet)
	priv.HandleFunc("/rides/{id}", s.handleDeleteRide).Methods(http.MethodDelete)
	priv.HandleFunc("/rides/{id}/accept_ride", s.handleAcceptRide).Methods(http.MethodPost)
	priv.HandleFunc("/rides/{id}/start_ride", s.handleStartRide).Methods(http.MethodPost)
	priv.HandleFunc("/rides/{id}/complete_ride", s.handleCompleteRide).Methods(http.MethodPost)
	priv.HandleFunc("/rides/{id}/cancel_ride", s.handleCancelRide).Methods(http.MethodPost)

	priv.HandleFunc("/rides/{id}/locations", s.handleListLocations).Methods(http.MethodGet)
	priv.HandleFunc("/rides/{id}/locations", s.handleAppendLocation).Methods(http.MethodPost)

	priv.HandleFunc("/payments", s.handleListPayments).Methods(http.MethodGet)
	priv.HandleFunc("/payments", s.handleAppendPayment).Methods(http.MethodPost)

	priv.HandleFunc("/users/me", s.handleMe).Methods(http.MethodGet)
	priv.HandleFunc("/users/available_drivers", s.handleAvailableDrivers).Methods(http.MethodGet)
	priv.HandleFunc("/users/create_driver", s.handleCreateDriver).Methods(http.MethodPost)
	priv.HandleFunc("/users/{id}/update_car_details", s.handleUpdateCarDetails).Methods(http.MethodPatch)

	priv.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)
}

var upgrader = websocket.Upgrader{}

// handleWS upgrades the connection and registers the principal for ride
// status events. The read loop exists only to observe the close.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.wsreg == nil {
		writeMessage(w, http.StatusNotFound, "websocket events disabled")
		return
	}
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return // Upgrade already replied
	}
	s.wsreg.Add(p.ID, conn)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.wsreg.Remove(p.ID)
				return
			}
		}
	}()
}
