package store

import (
	"context"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const versionKey = "version"

// FlushIfVersionChanged compares the running binary's version against
// the last version recorded in the store and issues FLUSHDB when they
// differ, then records the new version. This is a coarse correctness
// guarantee after a binary upgrade changes cache or wire formats —
// supplemented from original_source/src/main.rs, which is not in
// spec.md's distilled text but is load-bearing behavior of the system
// this spec was distilled from (see SPEC_FULL.md SUPPLEMENTED FEATURES).
func (s *Store) FlushIfVersionChanged(ctx context.Context, version string) error {
	cached, err := s.rdb.Get(ctx, versionKey).Result()
	if err != nil && err != redis.Nil {
		return err
	}

	if err != redis.Nil && cached != version {
		log.Infof("detected version change (%s != %s), flushing redis db", cached, version)
		if err := s.rdb.FlushDB(ctx).Err(); err != nil {
			return err
		}
	}

	return s.rdb.Set(ctx, versionKey, version, 0).Err()
}
