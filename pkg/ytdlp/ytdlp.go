// Package ytdlp wraps yt-dlp invocations used across providers and the
// duration resolver: resolving a playable stream URL, resolving a
// vanity channel URL to a canonical channel id, and (CLI fallback mode)
// reading a video's duration. Adapted from
// daleiii-podsync-web/pkg/ytdl/ytdl.go's exec()/CombinedOutput pattern —
// the self-update, whole-file download and progress-parsing machinery
// of that file don't apply to this on-the-fly streaming domain and were
// dropped (see DESIGN.md).
package ytdlp

import (
	"context"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const defaultTimeout = 30 * time.Second

// Runner invokes the yt-dlp binary. A zero value uses "yt-dlp" from PATH.
type Runner struct {
	Binary  string
	Timeout time.Duration
}

func New() *Runner {
	return &Runner{Binary: "yt-dlp", Timeout: defaultTimeout}
}

func (r *Runner) binary() string {
	if r.Binary != "" {
		return r.Binary
	}
	return "yt-dlp"
}

func (r *Runner) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return defaultTimeout
}

func (r *Runner) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout())
	defer cancel()

	cmd := exec.CommandContext(ctx, r.binary(), args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), errors.Wrapf(err, "yt-dlp %v failed: %s", args, string(out))
	}
	return string(out), nil
}

// StreamURL resolves the direct, playable media URL for a video page,
// preferring the best available audio-only format.
func (r *Runner) StreamURL(ctx context.Context, mediaURL string, bestAudioFirst bool) (*url.URL, error) {
	format := "bestaudio"
	if bestAudioFirst {
		format = "bestaudio/best"
	}

	out, err := r.run(ctx, "-f", format, "--get-url", mediaURL)
	if err != nil {
		return nil, err
	}

	raw := strings.TrimSpace(out)
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse stream url from yt-dlp output %q", raw)
	}
	return parsed, nil
}

// Duration invokes `yt-dlp --get-duration` and returns the raw string
// output, which the caller parses with duration.Parse.
func (r *Runner) Duration(ctx context.Context, videoURL string) (string, error) {
	out, err := r.run(ctx, "--get-duration", videoURL)
	if err != nil {
		log.WithError(err).Warn("yt-dlp could not resolve video duration")
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ChannelURL resolves a vanity channel URL (/c/, /user/, /@handle) to
// its canonical /channel/<id> form, using yt-dlp's playlist metadata
// extraction without downloading any items.
func (r *Runner) ChannelURL(ctx context.Context, vanityURL string) (*url.URL, error) {
	out, err := r.run(ctx, "--playlist-items", "0", "-O", "playlist:channel_url", vanityURL)
	if err != nil {
		return nil, err
	}

	raw := strings.TrimSpace(out)
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse channel url from yt-dlp output %q", raw)
	}
	return parsed, nil
}
