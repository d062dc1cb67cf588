// Package drivers tracks live driver presence: last known location and an
// availability flag. The durable record lives in storage; this registry is
// the fast mirror fed by the location pipeline.
package drivers

import (
	"context"
	"sync"
	"time"

	"github.com/example/ride-hailing/internal/models"
)

type Registry interface {
	UpdateLocation(ctx context.Context, driverID string, c models.Coord) error
	SetAvailability(ctx context.Context, driverID string, available bool) error
	Location(ctx context.Context, driverID string) (models.Coord, bool)
}

type presence struct {
	loc       models.Coord
	available bool
	updated   time.Time
}

// MemoryRegistry is the single-process implementation used in tests and
// local runs without Redis.
type MemoryRegistry struct {
	mu      sync.RWMutex
	drivers map[string]presence
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{drivers: make(map[string]presence)}
}

func (m *MemoryRegistry) UpdateLocation(ctx context.Context, driverID string, c models.Coord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.drivers[driverID]
	p.loc = c
	p.updated = time.Now()
	m.drivers[driverID] = p
	return nil
}

func (m *MemoryRegistry) SetAvailability(ctx context.Context, driverID string, available bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.drivers[driverID]
	p.available = available
	p.updated = time.Now()
	m.drivers[driverID] = p
	return nil
}

func (m *MemoryRegistry) Location(ctx context.Context, driverID string) (models.Coord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.drivers[driverID]
	if !ok || p.updated.IsZero() {
		return models.Coord{}, false
	}
	return p.loc, true
}
