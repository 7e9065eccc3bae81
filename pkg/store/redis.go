// Package store wraps the shared Redis instance used for read-through
// caching and distributed coordination (semaphore, batch queue/lock).
// Grounded on the go-redis/v9 usage patterns shown in the feed-service
// Redis repository example (ZAdd/Pipeline/Expire, ZRevRangeWithScores):
// other_examples/…jupiterclapton-cenackle…redis_repo.go. No example repo
// in the corpus depends on Redis directly, so the library itself is an
// out-of-pack pick grounded on that reference file rather than a teacher.
package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Store is the single shared key-value coordination point described in
// SPEC_FULL.md's DATA MODEL ("Persisted state layout").
type Store struct {
	rdb *redis.Client
}

// New opens a connection to the given redis:// URL.
func New(redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid redis url %q", redisURL)
	}

	rdb := redis.NewClient(opts)
	return &Store{rdb: rdb}, nil
}

// Client exposes the underlying client for callers (duration batch
// queue, semaphore) that need commands this package doesn't wrap.
func (s *Store) Client() *redis.Client {
	return s.rdb
}

// Ping verifies connectivity at startup.
func (s *Store) Ping(ctx context.Context) error {
	return errors.Wrap(s.rdb.Ping(ctx).Err(), "redis ping failed")
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// GetCached performs a read-through cache lookup. ok is false on a miss
// or on any store error — per SPEC_FULL.md's error-handling design,
// cache-layer errors never shadow the underlying computation, so callers
// treat a false ok as "go compute it", logging the error for visibility.
func (s *Store) GetCached(ctx context.Context, key string) (value string, ok bool) {
	v, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		log.WithError(err).WithField("key", key).Warn("cache read failed, computing uncached")
		return "", false
	}
	return v, true
}

// SetCached writes a value with TTL, logging (not failing) on error.
func (s *Store) SetCached(ctx context.Context, key, value string, ttl time.Duration) {
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		log.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}
