// Package usage tracks per-template view and download counters (INCRBY +
// EXPIRE NX over the key/value client). Counters are local popularity
// signals, distinct from the source-provided usage field on the document.
package usage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/flowhub-cloud/flowdex/internal/db/valkey"
)

// Counter kinds.
const (
	KindView     = "views"
	KindDownload = "downloads"
)

// store is the consumer interface for counter operations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Store persists usage counters.
type Store struct {
	store store
	ttl   time.Duration
}

// New creates a usage store. ttl bounds counter lifetime (0 disables expiry).
func New(s store, ttl time.Duration) *Store {
	return &Store{store: s, ttl: ttl}
}

// Touch increments the counter of the given kind for a slug.
func (s *Store) Touch(ctx context.Context, slug, kind string) error {
	key := counterKey(slug, kind)
	if err := s.store.IncrBy(ctx, key, 1); err != nil {
		return fmt.Errorf("usage INCRBY %s: %w", key, err)
	}
	if s.ttl > 0 {
		if err := s.store.Expire(ctx, key, s.ttl, true); err != nil {
			return fmt.Errorf("usage EXPIRE %s: %w", key, err)
		}
	}
	return nil
}

// Get returns the current counter value, 0 when the key does not exist.
func (s *Store) Get(ctx context.Context, slug, kind string) (int64, error) {
	key := counterKey(slug, kind)
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, valkey.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("usage GET %s: %w", key, err)
	}

	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("usage GET %s parse: %w", key, err)
	}
	return val, nil
}

func counterKey(slug, kind string) string {
	return "flowdex:usage:" + slug + ":" + kind
}
