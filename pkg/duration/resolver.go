package duration

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	youtubeapi "google.golang.org/api/youtube/v3"

	"github.com/daleiii/vod2pod-go/pkg/store"
)

const (
	semaphoreName = "yt_duration_semaphore"

	lockKey  = "youtube_duration_lock"
	queueKey = "youtube_duration_queue"
	hashKey  = "youtube_duration_batch"

	lockTTL      = 10 * time.Second
	batchSize    = 50
	leaderSleep  = 300 * time.Millisecond
	pollAttempts = 100
	pollInterval = 150 * time.Millisecond
)

// CLIDurationFunc runs an external tool (yt-dlp) to resolve a single
// video's duration. NewCLIDurationFunc (cli.go) builds one from a
// pkg/ytdlp Runner; the Resolver only calls the injected function.
type CLIDurationFunc func(ctx context.Context, videoURL string) (time.Duration, error)

// Resolver resolves YouTube video durations either via the Data API
// (batched across concurrent callers) or a yt-dlp CLI fallback, per
// SPEC_FULL.md §4.7.
type Resolver struct {
	store  *store.Store
	apiKey string
	cli    CLIDurationFunc
}

func NewResolver(st *store.Store, apiKey string, cli CLIDurationFunc) *Resolver {
	return &Resolver{store: st, apiKey: apiKey, cli: cli}
}

// Resolve returns the duration of the video identified by videoID
// (the `v` query parameter of a youtube.com/watch URL) for API mode, or
// by videoURL for CLI mode.
func (r *Resolver) Resolve(ctx context.Context, videoURL, videoID string) (time.Duration, error) {
	if r.apiKey != "" {
		return r.resolveAPIMode(ctx, videoID)
	}
	return r.resolveCLIMode(ctx, videoURL)
}

func (r *Resolver) resolveCLIMode(ctx context.Context, videoURL string) (time.Duration, error) {
	if err := r.store.AcquireSemaphore(ctx, semaphoreName, videoURL); err != nil {
		return 0, errors.Wrap(err, "could not acquire duration semaphore")
	}
	defer func() {
		if err := r.store.ReleaseSemaphore(context.Background(), semaphoreName, videoURL); err != nil {
			log.WithError(err).Warn("failed to release duration semaphore")
		}
	}()

	return r.cli(ctx, videoURL)
}

// resolveAPIMode implements the batch-leader/follower protocol described
// in SPEC_FULL.md §4.7 and grounded on
// original_source/src/provider/youtube.rs::get_yotube_duration_with_apikey.
// The batch leader's lock deletion happens inside the post-batch pipeline
// write; if the queue is still non-empty afterward, the SAME leader loops
// again without re-acquiring the lock — losing that re-entrancy would
// deadlock under sustained load (see DESIGN NOTES in spec.md §9).
func (r *Resolver) resolveAPIMode(ctx context.Context, videoID string) (time.Duration, error) {
	rdb := r.store.Client()

	if err := rdb.RPush(ctx, queueKey, videoID).Err(); err != nil {
		return 0, errors.Wrap(err, "could not enqueue video id for duration batch")
	}

	acquired, err := rdb.SetNX(ctx, lockKey, "1", lockTTL).Result()
	if err != nil {
		return 0, errors.Wrap(err, "could not attempt batch leader lock")
	}

	if acquired {
		if err := r.runBatchLeader(ctx); err != nil {
			log.WithError(err).Warn("duration batch leader iteration failed")
		}
	}

	return r.pollForDuration(ctx, videoID)
}

func (r *Resolver) runBatchLeader(ctx context.Context) error {
	rdb := r.store.Client()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(leaderSleep):
	}

	for {
		queueLen, err := rdb.LLen(ctx, queueKey).Result()
		if err != nil {
			return err
		}
		if queueLen == 0 {
			return nil
		}

		// batchStart is deliberately left unclamped and possibly negative,
		// matching original_source/src/provider/youtube.rs's reliance on
		// Redis's native negative-index semantics: a negative index counts
		// from the tail and is clamped to the head only once it runs past
		// it. With 25 or fewer ids queued, LRANGE reads the whole queue and
		// LTRIM with the negative stop computed from batchStart-1 below
		// empties it; with 26 to 49 ids queued, both resolve to the same
		// tail slice of 50-len ids and the rest is drained on the next pass
		// of this loop. Clamping batchStart to 0 here would make that LTRIM
		// a no-op and the queue would never shrink.
		batchEnd := queueLen - 1
		batchStart := batchEnd - batchSize + 1

		ids, err := rdb.LRange(ctx, queueKey, batchStart, batchEnd).Result()
		if err != nil {
			return err
		}

		durations, err := r.fetchDurationsFromAPI(ctx, ids)
		if err != nil {
			return err
		}

		pipe := rdb.TxPipeline()
		for id, d := range durations {
			pipe.HSet(ctx, hashKey, id, int64(d.Seconds()))
		}
		pipe.LTrim(ctx, queueKey, 0, int64(batchStart-1))
		pipe.Del(ctx, lockKey)
		if _, err := pipe.Exec(ctx); err != nil {
			return errors.Wrap(err, "could not commit duration batch")
		}

		log.Debugf("resolved duration batch of %d videos", len(ids))
	}
}

func (r *Resolver) fetchDurationsFromAPI(ctx context.Context, ids []string) (map[string]time.Duration, error) {
	svc, err := youtubeapi.NewService(ctx, option.WithAPIKey(r.apiKey))
	if err != nil {
		return nil, errors.Wrap(err, "could not create youtube client")
	}

	resp, err := svc.Videos.List([]string{"contentDetails"}).Id(ids...).Do()
	if err != nil {
		return nil, errors.Wrap(err, "youtube videos.list failed")
	}

	out := make(map[string]time.Duration, len(resp.Items))
	for _, item := range resp.Items {
		d, err := ParseISO8601(item.ContentDetails.Duration)
		if err != nil {
			log.WithError(err).WithField("video_id", item.Id).Warn("could not parse youtube duration")
			continue
		}
		out[item.Id] = d
	}
	return out, nil
}

func (r *Resolver) pollForDuration(ctx context.Context, videoID string) (time.Duration, error) {
	rdb := r.store.Client()

	for i := 0; i < pollAttempts; i++ {
		raw, err := rdb.HGet(ctx, hashKey, videoID).Result()
		if err == nil {
			secs, convErr := strconv.ParseInt(raw, 10, 64)
			if convErr != nil {
				return 0, errors.Wrap(convErr, "corrupt cached duration value")
			}
			return time.Duration(secs) * time.Second, nil
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(pollInterval):
		}
	}

	return 0, errors.Errorf("duration for video %s did not appear within poll budget", videoID)
}
