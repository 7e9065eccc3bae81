package duration

import (
	"context"
	"time"

	"github.com/daleiii/vod2pod-go/pkg/ytdlp"
)

// NewCLIDurationFunc adapts a yt-dlp runner into the CLIDurationFunc the
// Resolver uses for its no-API-key fallback path.
func NewCLIDurationFunc(r *ytdlp.Runner) CLIDurationFunc {
	return func(ctx context.Context, videoURL string) (time.Duration, error) {
		raw, err := r.Duration(ctx, videoURL)
		if err != nil {
			return 0, err
		}
		return Parse(raw)
	}
}
