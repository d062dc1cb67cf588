package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/example/ride-hailing/internal/models"
)

// MemoryStore keeps everything in maps behind one RWMutex. It backs tests
// and local runs without Postgres, and provides the same CAS semantics on
// rides as the SQL store.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]*models.User
	rides     map[string]*models.Ride
	locations map[string][]*models.LocationSample // keyed by ride id
	payments  []*models.PaymentRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]*models.User),
		rides:     make(map[string]*models.Ride),
		locations: make(map[string][]*models.LocationSample),
	}
}

func (m *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return fmt.Errorf("username %q: %w", u.Username, models.ErrDuplicate)
		}
		if u.PhoneNumber != "" && existing.PhoneNumber == u.PhoneNumber {
			return fmt.Errorf("phone number %q: %w", u.PhoneNumber, models.ErrDuplicate)
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MemoryStore) UserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", username, models.ErrNotFound)
}

func (m *MemoryStore) UserByPhone(ctx context.Context, phone string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.PhoneNumber != "" && u.PhoneNumber == phone {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user with phone %q: %w", phone, models.ErrNotFound)
}

func (m *MemoryStore) UpdateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return fmt.Errorf("user %s: %w", u.ID, models.ErrNotFound)
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MemoryStore) AvailableDrivers(ctx context.Context) ([]*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.User
	for _, u := range m.users {
		if u.Role == models.RoleDriver && u.IsAvailable {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *MemoryStore) CreateRide(ctx context.Context, r *models.Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rides[r.ID]; ok {
		return fmt.Errorf("ride %s: %w", r.ID, models.ErrDuplicate)
	}
	cp := *r
	m.rides[r.ID] = &cp
	return nil
}

func (m *MemoryStore) RideByID(ctx context.Context, id string) (*models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rides[id]
	if !ok {
		return nil, fmt.Errorf("ride %s: %w", id, models.ErrNotFound)
	}
	cp := *r
	return &cp, nil
}

// UpdateRide applies a CAS write: the caller's Version must match the
// stored one. On success the stored version is bumped and the caller's
// copy is updated to match.
func (m *MemoryStore) UpdateRide(ctx context.Context, r *models.Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rides[r.ID]
	if !ok {
		return fmt.Errorf("ride %s: %w", r.ID, models.ErrNotFound)
	}
	if cur.Version != r.Version {
		return fmt.Errorf("ride %s at version %d, caller had %d: %w",
			r.ID, cur.Version, r.Version, models.ErrVersionConflict)
	}
	cp := *r
	cp.Version++
	m.rides[r.ID] = &cp
	r.Version = cp.Version
	return nil
}

func (m *MemoryStore) ListRides(ctx context.Context, f RideFilter) ([]*models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Ride
	for _, r := range m.rides {
		if f.Match(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	// newest first, matching the SQL store's ORDER BY requested_at DESC
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	return out, nil
}

func (m *MemoryStore) DeleteRide(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rides[id]; !ok {
		return fmt.Errorf("ride %s: %w", id, models.ErrNotFound)
	}
	delete(m.rides, id)
	delete(m.locations, id)
	return nil
}

func (m *MemoryStore) AppendLocation(ctx context.Context, s *models.LocationSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rides[s.RideID]; !ok {
		return fmt.Errorf("ride %s: %w", s.RideID, models.ErrNotFound)
	}
	cp := *s
	m.locations[s.RideID] = append(m.locations[s.RideID], &cp)
	return nil
}

func (m *MemoryStore) LocationsByRide(ctx context.Context, rideID string) ([]*models.LocationSample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	samples := m.locations[rideID]
	out := make([]*models.LocationSample, 0, len(samples))
	for _, s := range samples {
		cp := *s
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

func (m *MemoryStore) AppendPayment(ctx context.Context, p *models.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rides[p.RideID]; !ok {
		return fmt.Errorf("ride %s: %w", p.RideID, models.ErrNotFound)
	}
	cp := *p
	m.payments = append(m.payments, &cp)
	return nil
}

func (m *MemoryStore) ListPayments(ctx context.Context, f RideFilter) ([]*models.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.PaymentRecord
	for _, p := range m.payments {
		ride, ok := m.rides[p.RideID]
		if !ok || !f.Match(ride) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}
