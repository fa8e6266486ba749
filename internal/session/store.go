// Package session manages connected wallet sessions.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nft-storefront/internal/domain"
	"nft-storefront/internal/observability"
	"nft-storefront/internal/storage"
)

var (
	// ErrInvalidAddress is returned when an account address does not look like
	// a bech32 address with the configured prefix.
	ErrInvalidAddress = errors.New("invalid account address")

	// ErrNotConnected is returned for unknown or expired session ids.
	ErrNotConnected = errors.New("session not connected")
)

// bech32 data charset, excludes 1 b i o.
const bech32Charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// Store connects and disconnects wallet sessions on top of a storage.SessionStore.
type Store struct {
	backend storage.SessionStore
	prefix  string
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time

	mu   sync.Mutex
	live map[string]struct{} // sessions opened by this process and not yet ended
}

// purger is implemented by backends that do not expire entries on their own.
type purger interface {
	Purge() int
}

// NewStore creates a session store. prefix is the bech32 human readable part
// every address must carry, ttl <= 0 keeps sessions until disconnected.
func NewStore(backend storage.SessionStore, prefix string, ttl time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		backend: backend,
		prefix:  prefix,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
		live:    make(map[string]struct{}),
	}
}

// Connect opens a session for address.
func (s *Store) Connect(ctx context.Context, address string) (*domain.Session, error) {
	address = strings.TrimSpace(address)
	if err := ValidateAddress(address, s.prefix); err != nil {
		return nil, err
	}

	sess := &domain.Session{
		ID:             uuid.NewString(),
		AccountAddress: address,
		ConnectedAt:    s.now().UTC(),
	}
	if err := s.backend.Put(ctx, sess, s.ttl); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	s.mu.Lock()
	s.live[sess.ID] = struct{}{}
	s.mu.Unlock()

	observability.AddActiveSessions(1)
	s.logger.Info("wallet connected",
		zap.String("session_id", sess.ID),
		zap.String("address", domain.ShortAddress(address)),
	)
	return sess, nil
}

// Get returns the session for id. Unknown or expired ids yield ErrNotConnected.
func (s *Store) Get(ctx context.Context, id string) (*domain.Session, error) {
	if id == "" {
		return nil, ErrNotConnected
	}
	sess, err := s.backend.Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			if s.forget(id) {
				s.logger.Info("session expired", zap.String("session_id", id))
			}
			return nil, ErrNotConnected
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

// Disconnect ends the session. Disconnecting an unknown id is not an error.
func (s *Store) Disconnect(ctx context.Context, id string) error {
	err := s.backend.Delete(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		s.forget(id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	s.forget(id)
	s.logger.Info("wallet disconnected", zap.String("session_id", id))
	return nil
}

// Sweep removes expired sessions and returns the ids that ended since the
// last lookup.
func (s *Store) Sweep(ctx context.Context) ([]string, error) {
	if p, ok := s.backend.(purger); ok {
		p.Purge()
	}

	s.mu.Lock()
	ids := make([]string, 0, len(s.live))
	for id := range s.live {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	var expired []string
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		_, err := s.Get(ctx, id)
		switch {
		case errors.Is(err, ErrNotConnected):
			expired = append(expired, id)
		case err != nil:
			return expired, err
		}
	}
	return expired, nil
}

// Active returns the number of sessions this store opened that are still live.
func (s *Store) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// forget drops id from the live set and reports whether it was there.
func (s *Store) forget(id string) bool {
	s.mu.Lock()
	_, ok := s.live[id]
	delete(s.live, id)
	s.mu.Unlock()

	if ok {
		observability.AddActiveSessions(-1)
	}
	return ok
}

// ValidateAddress checks that address is a lowercase bech32 string with the
// given human readable prefix. The checksum is not verified.
func ValidateAddress(address, prefix string) error {
	hrp := prefix + "1"
	if !strings.HasPrefix(address, hrp) {
		return fmt.Errorf("%w: expected prefix %q", ErrInvalidAddress, hrp)
	}
	data := address[len(hrp):]
	// 6 checksum characters plus at least a 20 byte payload
	if len(data) < 38 || len(data) > 90 {
		return fmt.Errorf("%w: bad length", ErrInvalidAddress)
	}
	for _, r := range data {
		if !strings.ContainsRune(bech32Charset, r) {
			return fmt.Errorf("%w: invalid character %q", ErrInvalidAddress, r)
		}
	}
	return nil
}
