package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daleiii/vod2pod-go/pkg/config"
	"github.com/daleiii/vod2pod-go/pkg/duration"
	"github.com/daleiii/vod2pod-go/pkg/feed"
	"github.com/daleiii/vod2pod-go/pkg/provider"
	"github.com/daleiii/vod2pod-go/pkg/store"
	"github.com/daleiii/vod2pod-go/pkg/transcode"
)

type stubProvider struct {
	rss     string
	err     error
	regexes []*regexp.Regexp
}

func (s *stubProvider) GenerateRSS(context.Context, *url.URL) (string, error) { return s.rss, s.err }
func (s *stubProvider) GetStreamURL(_ context.Context, u *url.URL) (*url.URL, error) {
	return u, nil
}
func (s *stubProvider) DomainAllowRegexes() []*regexp.Regexp { return s.regexes }

func newStub(rss string, err error, pattern string) *stubProvider {
	return &stubProvider{rss: rss, err: err, regexes: []*regexp.Regexp{regexp.MustCompile(pattern)}}
}

const sampleRawRSS = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:media="http://search.yahoo.com/mrss/" xmlns="http://www.w3.org/2005/Atom">
 <title>Test Channel</title>
 <entry>
  <id>yt:video:abc123</id>
  <title>Test Video</title>
  <link href="https://www.youtube.com/watch?v=abc123"/>
  <published>2024-01-01T00:00:00+00:00</published>
  <media:group>
   <media:content url="https://example.com/abc123.mp4" type="video/mp4" duration="125"/>
   <media:community>
    <media:statistics views="42"/>
   </media:community>
  </media:group>
 </entry>
</feed>`

func newTestRouter(t *testing.T, matched provider.Provider) *Router {
	t.Helper()
	mr := miniredis.RunT(t)
	st, err := store.New("redis://" + mr.Addr())
	require.NoError(t, err)

	resolver := duration.NewResolver(st, "", func(context.Context, string) (time.Duration, error) {
		return 0, nil
	})

	generic := newStub("", nil, `$^`) // never matches, forcing a deliberate not-whitelisted case
	dispatcher := provider.NewDispatcher(matched, generic, generic, generic, generic)

	enricher := feed.NewEnricher(st, resolver, 192, ".mp3", "audio/mpeg")

	cfg := &config.Config{
		Transcode:  true,
		AudioCodec: config.CodecMP3,
		Mp3Bitrate: 192,
	}

	return NewRouter(cfg, dispatcher, enricher, transcode.New())
}

func TestTranscodizeRSSRejectsMissingURL(t *testing.T) {
	router := newTestRouter(t, newStub(sampleRawRSS, nil, `youtube\.com`))

	req := httptest.NewRequest(http.MethodGet, "/transcodize_rss", nil)
	rec := httptest.NewRecorder()
	router.transcodizeRSS(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTranscodizeRSSRejectsNotWhitelisted(t *testing.T) {
	router := newTestRouter(t, newStub(sampleRawRSS, nil, `youtube\.com`))

	req := httptest.NewRequest(http.MethodGet, "/transcodize_rss?url=http://169.254.169.254/meta-data", nil)
	rec := httptest.NewRecorder()
	router.transcodizeRSS(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "whitelist")
}

func TestTranscodizeRSSReturnsEnrichedFeed(t *testing.T) {
	router := newTestRouter(t, newStub(sampleRawRSS, nil, `youtube\.com`))

	req := httptest.NewRequest(http.MethodGet, "/transcodize_rss?url=https://www.youtube.com/channel/UCxxx", nil)
	rec := httptest.NewRecorder()
	router.transcodizeRSS(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Test Video")
}

func TestTranscodizeRSSReturnsConflictOnProviderError(t *testing.T) {
	router := newTestRouter(t, newStub("", assert.AnError, `youtube\.com`))

	req := httptest.NewRequest(http.MethodGet, "/transcodize_rss?url=https://www.youtube.com/channel/UCxxx", nil)
	rec := httptest.NewRecorder()
	router.transcodizeRSS(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTranscodeToMP3RejectsNotWhitelisted(t *testing.T) {
	router := newTestRouter(t, newStub(sampleRawRSS, nil, `youtube\.com`))

	req := httptest.NewRequest(http.MethodGet, "/transcode_media/to_mp3?url=http://169.254.169.254/x&bitrate=192&duration=60", nil)
	rec := httptest.NewRecorder()
	router.transcodeToMP3(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTranscodeToMP3RejectsWhenTranscodingDisabled(t *testing.T) {
	router := newTestRouter(t, newStub(sampleRawRSS, nil, `youtube\.com`))
	router.cfg.Transcode = false

	req := httptest.NewRequest(http.MethodGet, "/transcode_media/to_mp3?url=https://www.youtube.com/watch?v=abc&bitrate=192&duration=60", nil)
	rec := httptest.NewRecorder()
	router.transcodeToMP3(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHealthReturnsOK(t *testing.T) {
	router := newTestRouter(t, newStub(sampleRawRSS, nil, `youtube\.com`))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.health(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
