package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PortfolioDash/internal/domain/models"
	"PortfolioDash/internal/domain/repository"
	"PortfolioDash/pkg/cache"
)

const sessionPrefix = "session"

// CacheSessionStore keeps sessions as JSON in a cache.Service (memory,
// Redis or both). Every Save slides the expiry forward. Deleted ids leave an
// "ended" marker behind for one TTL.
type CacheSessionStore struct {
	cache   cache.Service
	ttl     time.Duration
	lockTTL time.Duration
}

// NewCacheSessionStore creates a store. lockTTL bounds how long a crashed
// request can keep a session locked.
func NewCacheSessionStore(c cache.Service, ttl, lockTTL time.Duration) *CacheSessionStore {
	return &CacheSessionStore{cache: c, ttl: ttl, lockTTL: lockTTL}
}

func sessionKey(id string) string { return cache.GenerateKey(sessionPrefix, id) }

func lockKey(id string) string { return cache.GenerateKey(sessionPrefix, id+":lock") }

func endedKey(id string) string { return cache.GenerateKey(sessionPrefix, id+":ended") }

func (s *CacheSessionStore) ended(ctx context.Context, id string) (bool, error) {
	ok, err := s.cache.Exists(ctx, endedKey(id))
	if err != nil {
		return false, fmt.Errorf("check session: %w", err)
	}
	return ok, nil
}

// Load checks the ended marker after reading so a copy written back by a
// request that raced Delete is never returned.
func (s *CacheSessionStore) Load(ctx context.Context, id string) (*models.Session, error) {
	if id == "" {
		return nil, repository.ErrSessionNotFound
	}
	var sess models.Session
	getErr := s.cache.Get(ctx, sessionKey(id), &sess)
	if getErr != nil && !errors.Is(getErr, cache.ErrCacheMiss) {
		return nil, fmt.Errorf("load session: %w", getErr)
	}

	ended, err := s.ended(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case ended:
		return nil, repository.ErrSessionEnded
	case getErr != nil:
		return nil, repository.ErrSessionNotFound
	}
	return &sess, nil
}

// Save writes first and checks the marker second. Delete does the reverse,
// so one of the two always removes a racing copy.
func (s *CacheSessionStore) Save(ctx context.Context, sess *models.Session) error {
	if err := s.cache.Set(ctx, sessionKey(sess.ID), sess, s.ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	ended, err := s.ended(ctx, sess.ID)
	if err != nil {
		return err
	}
	if ended {
		if err := s.cache.Delete(ctx, sessionKey(sess.ID)); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		return repository.ErrSessionEnded
	}
	return nil
}

func (s *CacheSessionStore) Delete(ctx context.Context, id string) error {
	if err := s.cache.Set(ctx, endedKey(id), "1", s.ttl); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if err := s.cache.Delete(ctx, sessionKey(id)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *CacheSessionStore) Lock(ctx context.Context, id string) (func(), error) {
	ok, err := s.cache.TryLock(ctx, lockKey(id), s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("lock session: %w", err)
	}
	if !ok {
		return nil, repository.ErrSessionBusy
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.cache.Unlock(ctx, lockKey(id))
	}, nil
}

var _ repository.SessionStore = (*CacheSessionStore)(nil)
