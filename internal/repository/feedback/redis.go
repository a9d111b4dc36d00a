package feedback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/db"
	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/domain"
)

var feedbackKeyPrefix = domain.KeyPrefix + "feedback:"

// kv is the consumer interface for the Redis-backed feedback store.
type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisStore keeps feedback slots in a shared key-value store so
// verdicts survive process restarts. Each slot expires with the
// session TTL.
type RedisStore struct {
	store kv
	ttl   time.Duration
}

// NewRedisStore creates a store-backed feedback store.
func NewRedisStore(store kv, ttl time.Duration) *RedisStore {
	return &RedisStore{store: store, ttl: ttl}
}

// Put overwrites the feedback slot for a session.
func (s *RedisStore) Put(ctx context.Context, sessionID, text string) error {
	if err := s.store.SetWithTTL(ctx, feedbackKeyPrefix+sessionID, []byte(text), s.ttl); err != nil {
		return fmt.Errorf("store feedback: %w", err)
	}
	return nil
}

// Get returns the feedback slot for a session, reporting absence.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (string, bool, error) {
	data, err := s.store.Get(ctx, feedbackKeyPrefix+sessionID)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("load feedback: %w", err)
	}
	return string(data), true, nil
}
