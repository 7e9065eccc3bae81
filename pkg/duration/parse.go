// Package duration resolves YouTube video durations, either through a
// distributed, batched Data-API lookup or a CLI (yt-dlp) fallback.
// Grounded on original_source/src/provider/youtube.rs (get_youtube_video_duration,
// get_yotube_duration_with_apikey, parse_duration, acquire/release_semaphore),
// which is duplicated verbatim in rss_transcodizer/mod.rs — unified here into
// a single package instead of being implemented twice.
package duration

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Parse decodes a "[[HH:]MM:]SS" duration string, as emitted by
// `yt-dlp --get-duration`, into a time.Duration.
func Parse(raw string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) == 0 || parts[0] == "" {
		return 0, errors.New("Invalid format")
	}

	// reverse: seconds, minutes, hours
	var secs, mins, hours int64
	var err error

	rev := make([]string, len(parts))
	for i, p := range parts {
		rev[len(parts)-1-i] = p
	}

	if len(rev) > 0 {
		if secs, err = strconv.ParseInt(rev[0], 10, 64); err != nil {
			return 0, errors.New("Invalid format")
		}
	}
	if len(rev) > 1 {
		if mins, err = strconv.ParseInt(rev[1], 10, 64); err != nil {
			return 0, errors.New("Invalid format")
		}
	}
	if len(rev) > 2 {
		if hours, err = strconv.ParseInt(rev[2], 10, 64); err != nil {
			return 0, errors.New("Invalid format")
		}
	}

	total := hours*3600 + mins*60 + secs
	return time.Duration(total) * time.Second, nil
}
