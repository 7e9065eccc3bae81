package feed

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/daleiii/vod2pod-go/pkg/duration"
	"github.com/daleiii/vod2pod-go/pkg/store"
)

const sampleYoutubeFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:media="http://search.yahoo.com/mrss/" xmlns="http://www.w3.org/2005/Atom">
 <title>Test Channel</title>
 <entry>
  <id>yt:video:abc123</id>
  <title>Test Video</title>
  <link href="https://www.youtube.com/watch?v=abc123"/>
  <published>2024-01-01T00:00:00+00:00</published>
  <media:group>
   <media:content url="https://example.com/abc123.mp4" type="video/mp4" duration="125"/>
   <media:thumbnail url="https://example.com/thumb.jpg"/>
   <media:description>a test video</media:description>
   <media:community>
    <media:statistics views="42"/>
   </media:community>
  </media:group>
 </entry>
</feed>`

const sampleNoDurationFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:media="http://search.yahoo.com/mrss/" xmlns="http://www.w3.org/2005/Atom">
 <title>Test Channel</title>
 <entry>
  <id>yt:video:nodur</id>
  <title>No Duration Video</title>
  <link href="https://example.com/watch/nodur"/>
  <published>2024-01-01T00:00:00+00:00</published>
  <media:group>
   <media:content url="https://example.com/nodur.mp3" type="audio/mpeg"/>
   <media:community>
    <media:statistics views="7"/>
   </media:community>
  </media:group>
 </entry>
</feed>`

const samplePreviewFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:media="http://search.yahoo.com/mrss/" xmlns="http://www.w3.org/2005/Atom">
 <title>Test Channel</title>
 <entry>
  <id>yt:video:preview</id>
  <title>Upcoming Premiere</title>
  <link href="https://www.youtube.com/watch?v=preview"/>
  <published>2024-01-01T00:00:00+00:00</published>
  <media:group>
   <media:content url="https://example.com/preview.mp4" type="video/mp4" duration="0"/>
   <media:community>
    <media:statistics views="0"/>
   </media:community>
  </media:group>
 </entry>
</feed>`

func newTestEnricher(t *testing.T) *Enricher {
	t.Helper()
	mr := miniredis.RunT(t)
	st, err := store.New("redis://" + mr.Addr())
	require.NoError(t, err)

	resolver := duration.NewResolver(st, "", func(context.Context, string) (time.Duration, error) {
		t.Fatal("cli duration resolver should not be called when media duration attr is present")
		return 0, nil
	})

	return NewEnricher(st, resolver, 192, ".mp3", "audio/mpeg")
}

func TestTranscodizeEnrichesYoutubeStyleFeed(t *testing.T) {
	e := newTestEnricher(t)
	channelURL, _ := url.Parse("https://www.youtube.com/feeds/videos.xml?channel_id=UCxxx")
	transcodeURL, _ := url.Parse("http://localhost:8080/transcode_media/to_mp3")

	out, err := e.Transcodize(context.Background(), channelURL, transcodeURL, sampleYoutubeFeed, true)
	require.NoError(t, err)

	require.Contains(t, out, "Test Video")
	require.Contains(t, out, "url=https%3A%2F%2Fwww.youtube.com%2Fwatch%3Fv%3Dabc123")
	require.Contains(t, out, "00:02:05")
	require.Contains(t, out, "<enclosure")
}

func TestTranscodizeDropsZeroViewPreviewItems(t *testing.T) {
	e := newTestEnricher(t)
	channelURL, _ := url.Parse("https://www.youtube.com/feeds/videos.xml?channel_id=UCxxx")
	transcodeURL, _ := url.Parse("http://localhost:8080/transcode_media/to_mp3")

	out, err := e.Transcodize(context.Background(), channelURL, transcodeURL, samplePreviewFeed, true)
	require.NoError(t, err)
	require.NotContains(t, out, "Upcoming Premiere")
}

func TestTranscodizeDropsItemsWithUnresolvedDuration(t *testing.T) {
	e := newTestEnricher(t)
	channelURL, _ := url.Parse("https://www.youtube.com/feeds/videos.xml?channel_id=UCxxx")
	transcodeURL, _ := url.Parse("http://localhost:8080/transcode_media/to_mp3")

	out, err := e.Transcodize(context.Background(), channelURL, transcodeURL, sampleNoDurationFeed, true)
	require.NoError(t, err)
	require.NotContains(t, out, "No Duration Video")
}

func TestGuidFromStringIsStable(t *testing.T) {
	a := guidFromString("yt:video:abc123")
	b := guidFromString("yt:video:abc123")
	require.Equal(t, a, b)
	require.NotEqual(t, a, guidFromString("yt:video:other"))
}
