package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/donovanmchenry/Chatify/internal/models"
	"github.com/donovanmchenry/Chatify/internal/shared"
)

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemorySessionStore implements [models.SessionStore] in process memory.
//
// Sessions are kept encoded so mutations made after Put are not visible until the next Put.
type MemorySessionStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemorySessionStore creates an empty store with the given TTL
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemorySessionStore{entries: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
}

// Get returns a copy of the live session stored under id
func (s *MemorySessionStore) Get(_ context.Context, id string) (*models.Session, error) {
	s.mu.Lock()
	entry, ok := s.entries[id]
	if ok && !s.now().Before(entry.expiresAt) {
		delete(s.entries, id)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	return decodeSession(entry.payload)
}

// Put stores the session and slides its expiry forward
func (s *MemorySessionStore) Put(_ context.Context, id string, session *models.Session) error {
	now := s.now()
	session.ID = id
	session.UpdatedAt = now
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	s.mu.Lock()
	s.entries[id] = memoryEntry{payload: payload, expiresAt: now.Add(s.ttl)}
	s.mu.Unlock()
	return nil
}

// Delete removes the session stored under id
func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

// Prune drops expired sessions and returns how many were removed
func (s *MemorySessionStore) Prune(_ context.Context) (int64, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed, nil
}

// Len reports how many sessions are held, expired ones included
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
