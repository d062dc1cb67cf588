package dispatch

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/ride-hailing/internal/models"
)

// RideEvent is pushed to connected clients when a ride changes status.
type RideEvent struct {
	RideID   string            `json:"ride_id"`
	Status   models.RideStatus `json:"status"`
	DriverID string            `json:"driver_id,omitempty"`
	At       time.Time         `json:"at"`
}

// WSSession is one connected client socket.
type WSSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *WSSession) Send(ev RideEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(ev)
}

// WSRegistry tracks sockets by user id and fans ride events out to the
// rider and the assigned driver. Delivery is best-effort: a failed write
// drops the session and the transition itself is unaffected.
type WSRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*WSSession
	logger   *slog.Logger
}

func NewWSRegistry(logger *slog.Logger) *WSRegistry {
	return &WSRegistry{sessions: make(map[string]*WSSession), logger: logger}
}

func (r *WSRegistry) Add(userID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.sessions[userID]; ok {
		_ = old.conn.Close()
	}
	r.sessions[userID] = &WSSession{conn: conn}
}

func (r *WSRegistry) Remove(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[userID]; ok {
		_ = s.conn.Close()
		delete(r.sessions, userID)
	}
}

// RideUpdated notifies the parties of a ride about its new status.
func (r *WSRegistry) RideUpdated(ride *models.Ride) {
	ev := RideEvent{RideID: ride.ID, Status: ride.Status, DriverID: ride.DriverID, At: time.Now()}
	r.notify(ride.RiderID, ev)
	if ride.DriverID != "" {
		r.notify(ride.DriverID, ev)
	}
}

func (r *WSRegistry) notify(userID string, ev RideEvent) {
	r.mu.RLock()
	s, ok := r.sessions[userID]
	r.mu.RUnlock()
	if !ok {
		return
	}
	if err := s.Send(ev); err != nil {
		if r.logger != nil {
			r.logger.Warn("ws send failed, dropping session", "user_id", userID, "error", err)
		}
		r.Remove(userID)
	}
}
