package store

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// admission threshold and stale-entry sweep window, per SPEC_FULL.md §4.8.
const (
	semaphoreMaxRank    = 4
	semaphoreStaleAfter = 600 * time.Second
	semaphorePollEvery  = 1 * time.Second
)

// AcquireSemaphore blocks the caller until it is admitted into the
// sliding-window semaphore named name, identified by id. It sweeps
// stale members (older than semaphoreStaleAfter), adds itself, then
// polls its own rank until it is within the top semaphoreMaxRank+1
// holders. Mirrors original_source/src/provider/youtube.rs's
// acquire_semaphore: ZREMRANGEBYSCORE + ZADD in one pipeline, then a
// ZRANK poll loop.
func (s *Store) AcquireSemaphore(ctx context.Context, name, id string) error {
	now := time.Now().Unix()

	pipe := s.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, name, "-inf", strconv.FormatInt(now-int64(semaphoreStaleAfter.Seconds()), 10))
	pipe.ZAdd(ctx, name, redis.Z{Score: float64(now), Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "semaphore acquire: sweep/add failed")
	}

	for {
		rank, err := s.rdb.ZRank(ctx, name, id).Result()
		if err != nil {
			return errors.Wrap(err, "semaphore acquire: rank lookup failed")
		}
		if rank <= semaphoreMaxRank {
			log.WithFields(log.Fields{"semaphore": name, "id": id, "rank": rank}).Debug("semaphore admitted")
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(semaphorePollEvery):
		}
	}
}

// ReleaseSemaphore removes id's membership, freeing its slot for the
// next waiter's rank to improve.
func (s *Store) ReleaseSemaphore(ctx context.Context, name, id string) error {
	return errors.Wrap(s.rdb.ZRem(ctx, name, id).Err(), "semaphore release failed")
}
