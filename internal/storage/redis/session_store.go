// Package redis stores wallet sessions in Redis so several storefront
// processes can share them.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"nft-storefront/internal/domain"
	"nft-storefront/internal/observability"
	"nft-storefront/internal/storage"
)

const keyPrefix = "storefront:session:"

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, addr string, db int) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// SessionStore implements storage.SessionStore on Redis string keys with TTL.
type SessionStore struct {
	rdb goredis.UniversalClient
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(rdb goredis.UniversalClient) *SessionStore {
	return &SessionStore{rdb: rdb}
}

// Compile-time interface check.
var _ storage.SessionStore = (*SessionStore)(nil)

// Put stores a session. A ttl <= 0 keeps it until deleted.
func (s *SessionStore) Put(ctx context.Context, sess *domain.Session, ttl time.Duration) (err error) {
	if sess == nil || sess.ID == "" {
		return storage.ErrInvalidInput
	}
	defer observe("put_session", time.Now(), &err)

	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := s.rdb.Set(ctx, keyPrefix+sess.ID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID. Returns ErrNotFound if not exists or expired.
func (s *SessionStore) Get(ctx context.Context, id string) (_ *domain.Session, err error) {
	defer observe("get_session", time.Now(), &err)

	raw, err := s.rdb.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &sess, nil
}

// Delete removes a session. Returns ErrNotFound if not exists.
func (s *SessionStore) Delete(ctx context.Context, id string) (err error) {
	defer observe("delete_session", time.Now(), &err)

	n, err := s.rdb.Del(ctx, keyPrefix+id).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func observe(operation string, start time.Time, errp *error) {
	err := *errp
	if errors.Is(err, storage.ErrNotFound) {
		err = nil
	}
	observability.RecordDBQuery("redis", operation, time.Since(start).Seconds(), err)
}
