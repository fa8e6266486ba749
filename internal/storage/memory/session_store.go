package memory

import (
	"context"
	"sync"
	"time"

	"nft-storefront/internal/domain"
	"nft-storefront/internal/storage"
)

type sessionEntry struct {
	session   domain.Session
	expiresAt time.Time // zero means no expiry
}

// SessionStore is an in-memory implementation of storage.SessionStore.
// Expired sessions are dropped lazily on access.
type SessionStore struct {
	mu   sync.Mutex
	data map[string]sessionEntry
	now  func() time.Time
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return NewSessionStoreWithClock(time.Now)
}

// NewSessionStoreWithClock creates a session store that reads the time from now.
func NewSessionStoreWithClock(now func() time.Time) *SessionStore {
	return &SessionStore{
		data: make(map[string]sessionEntry),
		now:  now,
	}
}

var _ storage.SessionStore = (*SessionStore)(nil)

// Put stores a session. A ttl <= 0 keeps it until deleted.
func (s *SessionStore) Put(_ context.Context, sess *domain.Session, ttl time.Duration) error {
	if sess == nil || sess.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := sessionEntry{session: *sess}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.data[sess.ID] = entry
	return nil
}

// Get retrieves a session by ID. Returns ErrNotFound if not exists or expired.
func (s *SessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lookup(id)
	if !ok {
		return nil, storage.ErrNotFound
	}
	sess := entry.session
	return &sess, nil
}

// Delete removes a session. Returns ErrNotFound if not exists or expired.
func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookup(id); !ok {
		return storage.ErrNotFound
	}
	delete(s.data, id)
	return nil
}

// lookup must be called with mu held.
func (s *SessionStore) lookup(id string) (sessionEntry, bool) {
	entry, ok := s.data[id]
	if !ok {
		return sessionEntry{}, false
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		delete(s.data, id)
		return sessionEntry{}, false
	}
	return entry, true
}

// Purge deletes every expired session and returns how many were removed.
func (s *SessionStore) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, entry := range s.data {
		if !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired ones included.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
