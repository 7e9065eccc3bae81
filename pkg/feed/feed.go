// Package feed implements the enrichment stage (SPEC_FULL.md §4.6/§4.7):
// it re-parses whatever RSS/Atom text a provider produced, drops
// YouTube-preview placeholder items, resolves each item's canonical
// media URL and duration, and rewrites the feed into a podcast-ready
// RSS document whose enclosures point back at this service's own
// transcoding endpoint. Grounded on
// original_source/src/rss_transcodizer/mod.rs.
package feed

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/eduncan911/podcast"
	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/daleiii/vod2pod-go/pkg/duration"
	"github.com/daleiii/vod2pod-go/pkg/provider"
	"github.com/daleiii/vod2pod-go/pkg/store"
)

const enrichedFeedCacheTTL = 600 * time.Second

// Version is stamped into each feed's generator tag and item
// descriptions; set from the module's build version at startup.
var Version = "dev"

// Enricher transforms a provider's raw feed text into the final,
// transcode-aware podcast feed served to clients.
type Enricher struct {
	store       *store.Store
	resolver    *duration.Resolver
	bitrateKbit int
	extension   string
	mimeType    string
}

func NewEnricher(st *store.Store, resolver *duration.Resolver, bitrateKbit int, extension, mimeType string) *Enricher {
	return &Enricher{
		store:       st,
		resolver:    resolver,
		bitrateKbit: bitrateKbit,
		extension:   extension,
		mimeType:    mimeType,
	}
}

// Transcodize enriches rawRSS (as already produced by a provider's
// GenerateRSS) and returns the resulting podcast-ready RSS as a string.
// The output is cached under a composite key of (transcodeServiceURL,
// channelURL, shouldTranscode) for 10 minutes, since re-deriving every
// item's duration/guid/enclosure on every client poll would be
// wasteful. Grounded on
// original_source/src/rss_transcodizer/mod.rs::cached_transcodize,
// adapted to take already-fetched text rather than re-fetching feedURL
// itself (server/mod.rs's transcodize_rss handler already holds the
// provider's raw_rss in memory by the time this runs).
func (e *Enricher) Transcodize(ctx context.Context, channelURL, transcodeServiceURL *url.URL, rawRSS string, shouldTranscode bool) (string, error) {
	cacheKey := fmt.Sprintf("cached_transcodizer=%s_%s_%t", transcodeServiceURL, channelURL, shouldTranscode)
	if cached, ok := e.store.GetCached(ctx, cacheKey); ok {
		return cached, nil
	}

	out, err := e.transcodize(ctx, channelURL, transcodeServiceURL, rawRSS, shouldTranscode)
	if err != nil {
		return "", err
	}

	e.store.SetCached(ctx, cacheKey, out, enrichedFeedCacheTTL)
	return out, nil
}

func (e *Enricher) transcodize(ctx context.Context, channelURL, transcodeServiceURL *url.URL, rawRSS string, shouldTranscode bool) (string, error) {
	parsed, err := gofeed.NewParser().ParseString(rawRSS)
	if err != nil {
		return "", errors.Wrap(err, "could not parse feed")
	}

	now := time.Now()
	out := podcast.New(parsed.Title, channelURL.String(), parsed.Description, &now, &now)
	if parsed.Image != nil {
		out.AddImage(parsed.Image.URL)
	}
	out.Generator = "generated by vod2pod-go " + Version

	items := make([]podcast.Item, 0, len(parsed.Items))
	for _, upstream := range parsed.Items {
		item, ok := e.convertItem(ctx, upstream, transcodeServiceURL, shouldTranscode)
		if !ok {
			continue
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		return pubDateOrEpoch(items[i]).After(pubDateOrEpoch(items[j]))
	})

	for _, item := range items {
		if _, err := out.AddItem(item); err != nil {
			log.WithError(err).Warn("could not add enriched item to feed")
		}
	}

	return out.String(), nil
}

func pubDateOrEpoch(item podcast.Item) time.Time {
	if item.PubDate != nil {
		return *item.PubDate
	}
	return time.Time{}
}

// convertItem enriches a single upstream item, returning ok=false when
// the item should be dropped entirely (a YouTube-preview placeholder
// with zero views, or an item whose duration resolves to zero).
func (e *Enricher) convertItem(ctx context.Context, upstream *gofeed.Item, transcodeServiceURL *url.URL, shouldTranscode bool) (podcast.Item, bool) {
	media := mediaGroupChildren(upstream)

	if views, ok := communityViews(media); ok && views == 0 {
		log.Debugf("ignoring item with 0 views (probably youtube preview): %s", upstream.Title)
		return podcast.Item{}, false
	}

	item := podcast.Item{
		Title: upstream.Title,
		Link:  upstream.Link,
		GUID:  guidFromString(firstNonEmpty(upstream.GUID, upstream.Link)),
	}
	item.Description = buildDescription(media, upstream)

	mediaURL := findMediaURL(media, upstream)
	if mediaURL == "" {
		// No playable media found at all: still surface the item so the
		// feed isn't silently incomplete, matching the upstream's
		// "return Some(item_builder.build())" early-out.
		return item, true
	}

	if upstream.PublishedParsed != nil {
		pub := *upstream.PublishedParsed
		item.AddPubDate(&pub)
	}

	if thumb := mediaThumbnail(media); thumb != "" {
		item.AddImage(thumb)
	}

	durationSecs := e.resolveDuration(ctx, media, mediaURL)
	if durationSecs == 0 {
		log.Debugf("dropping item with unresolved duration: %s", upstream.Title)
		return podcast.Item{}, false
	}
	item.IDuration = formatDuration(durationSecs)

	enclosureURL := buildEnclosureURL(transcodeServiceURL, e.bitrateKbit, durationSecs, mediaURL, e.extension)
	if shouldTranscode {
		length := int64(e.bitrateKbit) * 1024 * durationSecs
		item.AddEnclosure(enclosureURL, enclosureTypeFor(e.mimeType), length)
	}

	return item, true
}

// enclosureTypeFor maps the configured codec's MIME type onto the
// closest podcast.EnclosureType constant. The podcast package's
// enclosure-type enum predates webm/opus podcasts and has no audio/webm
// or audio/ogg entry, so AUDIO_CODEC=OPUS/OGG_VORBIS enclosures fall
// back to M4A — still recognized as playable audio by podcast clients,
// unlike the MP3 default this used to hardcode regardless of codec.
func enclosureTypeFor(mimeType string) podcast.EnclosureType {
	switch mimeType {
	case "audio/mpeg":
		return podcast.MP3
	default:
		return podcast.M4A
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// findMediaURL prefers an audio/mpeg media:content entry, falling back
// to any item link matching the YouTube watch-page pattern. Grounded on
// rss_transcodizer/mod.rs::convert_item's found_url resolution.
func findMediaURL(media map[string][]gofeedExtension, upstream *gofeed.Item) string {
	for _, content := range media["content"] {
		if content.Attrs["type"] == "audio/mpeg" {
			return content.Attrs["url"]
		}
	}

	for _, link := range upstream.Links {
		if provider.MediaURLRegex.MatchString(link) {
			return link
		}
	}

	return ""
}

func buildDescription(media map[string][]gofeedExtension, upstream *gofeed.Item) string {
	const footer = `<br><br>generated by vod2pod-go ` // + Version, appended below

	var body string
	switch {
	case len(media["description"]) > 0:
		body = media["description"][0].Value
	case upstream.Content != "":
		body = upstream.Content
	default:
		body = upstream.Description
	}

	return body + footer + Version + ` made by the vod2pod-go maintainers. Check out the <a href="https://github.com/daleiii/vod2pod-go">GitHub repository</a>.`
}

func mediaThumbnail(media map[string][]gofeedExtension) string {
	if thumbs := media["thumbnail"]; len(thumbs) > 0 {
		return thumbs[0].Attrs["url"]
	}
	return ""
}

func communityViews(media map[string][]gofeedExtension) (int, bool) {
	communities := media["community"]
	if len(communities) == 0 {
		return 0, false
	}
	stats := communities[0].Children["statistics"]
	if len(stats) == 0 {
		return 0, false
	}
	raw, ok := stats[0].Attrs["views"]
	if !ok {
		return 0, false
	}
	views, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return views, true
}

func (e *Enricher) resolveDuration(ctx context.Context, media map[string][]gofeedExtension, mediaURL string) int64 {
	for _, content := range media["content"] {
		if raw, ok := content.Attrs["duration"]; ok {
			if secs, err := strconv.ParseFloat(raw, 64); err == nil {
				return int64(secs)
			}
		}
	}

	if !provider.MediaURLRegex.MatchString(mediaURL) {
		log.Debug("no duration found and media url is not a youtube link")
		return 0
	}

	videoID := ""
	if u, err := url.Parse(mediaURL); err == nil {
		videoID = u.Query().Get("v")
	}

	d, err := e.resolver.Resolve(ctx, mediaURL, videoID)
	if err != nil {
		log.WithError(err).Warn("could not resolve youtube video duration")
		return 0
	}
	return int64(d.Seconds())
}

func formatDuration(totalSecs int64) string {
	return fmt.Sprintf("%02d:%02d:%02d", totalSecs/3600, (totalSecs%3600)/60, totalSecs%60)
}

// buildEnclosureURL appends the bitrate/uuid/duration/url/ext query
// parameters, in this exact order — "ext" must be last because some
// podcast clients sniff the URL's trailing extension before fetching.
// url.Values.Encode sorts keys alphabetically, which would scramble
// that order, so the query string is assembled by hand instead.
func buildEnclosureURL(base *url.URL, bitrateKbit int, durationSecs int64, mediaURL, extension string) string {
	u := *base
	var params []string
	for _, kv := range [][2]string{
		{"bitrate", strconv.Itoa(bitrateKbit)},
		{"uuid", uuid.NewString()},
		{"duration", strconv.FormatInt(durationSecs, 10)},
		{"url", mediaURL},
		{"ext", extension},
	} {
		params = append(params, url.QueryEscape(kv[0])+"="+url.QueryEscape(kv[1]))
	}
	u.RawQuery = strings.Join(params, "&")
	return u.String()
}
