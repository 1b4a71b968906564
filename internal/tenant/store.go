package tenant

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned when no tenant exists for a given id.
var ErrNotFound = errors.New("tenant not found")

// MemoryStore is a concurrency-safe in-memory tenant store. It stands in for
// the hosted document store; the health aggregator consumes only its
// connectivity probe.
type MemoryStore struct {
	mu        sync.RWMutex
	data      map[string]Tenant
	connected bool
}

// NewMemoryStore creates an empty, connected store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:      make(map[string]Tenant),
		connected: true,
	}
}

// Create inserts a new tenant.
func (s *MemoryStore) Create(t Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[t.ID] = t
}

// Get returns the tenant with the given id.
func (s *MemoryStore) Get(id string) (Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.data[id]
	if !ok {
		return Tenant{}, ErrNotFound
	}
	return t, nil
}

// List returns all tenants ordered by creation time.
func (s *MemoryStore) List() []Tenant {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenants := make([]Tenant, 0, len(s.data))
	for _, t := range s.data {
		tenants = append(tenants, t)
	}
	sort.Slice(tenants, func(i, j int) bool {
		return tenants[i].CreatedAt.Before(tenants[j].CreatedAt)
	})
	return tenants
}

// Update replaces an existing tenant.
func (s *MemoryStore) Update(t Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[t.ID]; !ok {
		return ErrNotFound
	}
	s.data[t.ID] = t
	return nil
}

// Delete removes the tenant with the given id.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[id]; !ok {
		return ErrNotFound
	}
	delete(s.data, id)
	return nil
}

// IsConnected is the lightweight connectivity probe consumed by the health
// aggregator.
func (s *MemoryStore) IsConnected(_ context.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// SetConnected toggles the simulated connection state (test hook).
func (s *MemoryStore) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = connected
}
