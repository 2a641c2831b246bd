// Package store keeps the latest enriched events of every provider in memory.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/berlin-events-service/internal/domain"
)

// ProviderStatus summarizes what the store holds for one provider.
type ProviderStatus struct {
	ProviderID string    `json:"provider_id"`
	Events     int       `json:"events"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type bucket struct {
	events    []domain.Event
	updatedAt time.Time
}

// EventStore replaces a provider's events wholesale on every Save.
type EventStore struct {
	mu      sync.RWMutex
	buckets map[string]bucket
	clock   clockwork.Clock
}

// New creates an empty EventStore.
func New(clock clockwork.Clock) *EventStore {
	return &EventStore{
		buckets: make(map[string]bucket),
		clock:   clock,
	}
}

// Save replaces the events stored for providerID.
func (s *EventStore) Save(providerID string, events []domain.Event) {
	cp := make([]domain.Event, len(events))
	copy(cp, events)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets[providerID] = bucket{events: cp, updatedAt: s.clock.Now()}
}

// LastUpdated reports when providerID was last saved.
func (s *EventStore) LastUpdated(providerID string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.buckets[providerID]
	return b.updatedAt, ok
}

// ByProvider returns the events of one provider, ordered by start date.
func (s *EventStore) ByProvider(providerID string) []domain.Event {
	s.mu.RLock()
	b := s.buckets[providerID]
	out := make([]domain.Event, len(b.events))
	copy(out, b.events)
	s.mu.RUnlock()

	sortByStart(out)
	return out
}

// All returns every stored event, ordered by start date.
func (s *EventStore) All() []domain.Event {
	s.mu.RLock()
	var out []domain.Event
	for _, b := range s.buckets {
		out = append(out, b.events...)
	}
	s.mu.RUnlock()

	sortByStart(out)
	return out
}

// Clear drops the events of providerID.
func (s *EventStore) Clear(providerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, providerID)
}

// Status lists one entry per provider, sorted by provider id.
func (s *EventStore) Status() []ProviderStatus {
	s.mu.RLock()
	out := make([]ProviderStatus, 0, len(s.buckets))
	for id, b := range s.buckets {
		out = append(out, ProviderStatus{ProviderID: id, Events: len(b.events), UpdatedAt: b.updatedAt})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ProviderID < out[j].ProviderID })
	return out
}

func sortByStart(events []domain.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].StartDate.Equal(events[j].StartDate) {
			return events[i].StartDate.Before(events[j].StartDate)
		}
		return events[i].ID < events[j].ID
	})
}
