package transcode

import (
	"context"
	"io"
	"os/exec"
	"strconv"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/daleiii/vod2pod-go/pkg/config"
)

const (
	readChunkSize  = 1024
	maxReadRetries = 10
	retryBackoff   = time.Second
)

// Params holds everything needed to build and run one ffmpeg invocation.
type Params struct {
	SeekSeconds float64
	StreamURL   string
	Codec       config.AudioCodec
	BitrateKbit int
	MaxRateKbit int
}

// Transcoder shells out to ffmpeg to produce a seeked, re-encoded audio
// stream on stdout. Grounded on
// original_source/src/transcoder/mod.rs::Transcoder, using the same
// os/exec.CommandContext pattern as pkg/ytdlp/ytdlp.go, with stdout
// piped instead of collected.
type Transcoder struct {
	Binary string
}

func New() *Transcoder {
	return &Transcoder{Binary: "ffmpeg"}
}

func (t *Transcoder) binary() string {
	if t.Binary != "" {
		return t.Binary
	}
	return "ffmpeg"
}

func (t *Transcoder) command(ctx context.Context, p Params) *exec.Cmd {
	args := []string{
		"-ss", strconv.FormatFloat(p.SeekSeconds, 'f', -1, 64),
		"-i", p.StreamURL,
		"-acodec", p.Codec.FFmpegCodec(),
		"-ab", strconv.Itoa(p.BitrateKbit) + "k",
		"-f", p.Codec.Container(),
		"-bufsize", strconv.Itoa(p.BitrateKbit*30),
		"-maxrate", strconv.Itoa(p.MaxRateKbit) + "k",
		"pipe:stdout",
	}
	return exec.CommandContext(ctx, t.binary(), args...)
}

// Start launches ffmpeg and returns its stdout pipe, failing fast (before
// any response headers are committed) the way the original's
// Transcoder::new constructor does.
func (t *Transcoder) Start(ctx context.Context, p Params) (*exec.Cmd, io.Reader, error) {
	cmd := t.command(ctx, p)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not open ffmpeg stdout")
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, errors.Wrap(err, "could not start ffmpeg")
	}
	return cmd, stdout, nil
}

// Stream runs ffmpeg and copies its stdout to w in small chunks,
// retrying transient read interruptions up to maxReadRetries times
// before giving up. Grounded on
// original_source/src/transcoder/mod.rs::get_transcode_stream's
// read-retry loop.
func (t *Transcoder) Stream(ctx context.Context, p Params, w io.Writer) error {
	cmd, stdout, err := t.Start(ctx, p)
	if err != nil {
		return err
	}

	streamErr := copyWithRetry(ctx, w, stdout)

	waitErr := cmd.Wait()
	if streamErr != nil {
		return streamErr
	}
	if waitErr != nil && ctx.Err() == nil {
		log.WithError(waitErr).Debug("ffmpeg exited non-zero after stream completed")
	}
	return nil
}

// Consume drains an already-started ffmpeg process's stdout into w,
// used by callers that must start the process before deciding which
// HTTP status/headers to send.
func (t *Transcoder) Consume(ctx context.Context, cmd *exec.Cmd, stdout io.Reader, w io.Writer) error {
	streamErr := copyWithRetry(ctx, w, stdout)

	waitErr := cmd.Wait()
	if streamErr != nil {
		return streamErr
	}
	if waitErr != nil && ctx.Err() == nil {
		log.WithError(waitErr).Debug("ffmpeg exited non-zero after stream completed")
	}
	return nil
}

func copyWithRetry(ctx context.Context, w io.Writer, r io.Reader) error {
	buf := make([]byte, readChunkSize)
	retries := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				return errors.Wrap(writeErr, "could not write transcoded chunk to client")
			}
			retries = 0
		}

		if err != nil {
			if err == io.EOF {
				return nil
			}

			retries++
			if retries > maxReadRetries {
				return errors.Wrap(err, "read from ffmpeg was interrupted too many times")
			}
			log.WithError(err).Warn("read from ffmpeg was interrupted, retrying in 1s")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBackoff):
			}
		}
	}
}
