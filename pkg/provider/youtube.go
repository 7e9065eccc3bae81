package provider

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/daleiii/vod2pod-go/pkg/config"
	"github.com/daleiii/vod2pod-go/pkg/store"
	"github.com/daleiii/vod2pod-go/pkg/ytdlp"
)

const (
	streamURLCacheTTL  = 18000 * time.Second
	channelIDCacheTTL  = 9_999_999 * time.Second
)

var youtubeAllowRegexes = []*regexp.Regexp{
	regexp.MustCompile(`^(https://)?.*\.youtube\.com/`),
	regexp.MustCompile(`^(https://)?youtube\.com/`),
	regexp.MustCompile(`^(https://)?youtu\.be/`),
	regexp.MustCompile(`^(https://)?.*\.youtu\.be/`),
	regexp.MustCompile(`^(https://)?.*\.googlevideo\.com/`),
}

// MediaURLRegex matches an item's canonical watch-page URL, used by the
// feed-enrichment stage (C6) to decide whether to consult the duration
// resolver. Grounded on original_source/src/provider/youtube.rs's
// convert_item provider_regexes.
var MediaURLRegex = regexp.MustCompile(`^(https?://)?(www\.youtube\.com|youtu\.be)/.+$`)

// YoutubeProvider resolves channel/playlist/atom-passthrough URLs into
// YouTube's public Atom feed endpoint, and resolves playable stream
// URLs through yt-dlp. Grounded on
// original_source/src/provider/youtube.rs and the inline YoutubeProvider
// in original_source/src/provider/mod.rs.
type YoutubeProvider struct {
	cfg    *config.Config
	store  *store.Store
	client *http.Client
	ytdlp  *ytdlp.Runner
}

func NewYoutubeProvider(cfg *config.Config, st *store.Store, client *http.Client, yt *ytdlp.Runner) *YoutubeProvider {
	return &YoutubeProvider{cfg: cfg, store: st, client: client, ytdlp: yt}
}

func (p *YoutubeProvider) GenerateRSS(ctx context.Context, channelURL *url.URL) (string, error) {
	feedURL, err := p.resolveFeedURL(ctx, channelURL)
	if err != nil {
		return "", errors.Wrap(err, "could not resolve youtube feed url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL.String(), nil)
	if err != nil {
		return "", errors.Wrap(err, "could not build youtube feed request")
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "could not fetch youtube feed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "could not read youtube feed body")
	}
	return string(body), nil
}

func (p *YoutubeProvider) resolveFeedURL(ctx context.Context, channelURL *url.URL) (*url.URL, error) {
	path := channelURL.Path

	switch {
	case strings.HasPrefix(path, "/playlist"):
		return p.playlistFeedURL(channelURL)
	case strings.HasPrefix(path, "/feeds/"):
		return channelURL, nil
	case strings.HasPrefix(path, "/channel/"),
		strings.HasPrefix(path, "/user/"),
		strings.HasPrefix(path, "/c/"),
		strings.HasPrefix(path, "/@"):
		return p.channelFeedURL(ctx, channelURL)
	default:
		return nil, errors.Errorf("unsupported youtube url %s", channelURL)
	}
}

func (p *YoutubeProvider) playlistFeedURL(channelURL *url.URL) (*url.URL, error) {
	playlistID := channelURL.Query().Get("list")
	if playlistID == "" {
		return nil, errors.Errorf("failed to parse playlist id from url %s", channelURL)
	}

	// API mode + PodTube configured: redirect through the external
	// PodTube helper service instead of YouTube's own atom feed — see
	// SPEC_FULL.md end-to-end scenario 3.
	if p.cfg.YoutubeAPIKey != "" && p.cfg.PodTubeURL != "" {
		return url.Parse(strings.TrimRight(p.cfg.PodTubeURL, "/") + "/youtube/playlist/" + playlistID)
	}

	feedURL, _ := url.Parse("https://www.youtube.com/feeds/videos.xml")
	q := feedURL.Query()
	q.Set("playlist_id", playlistID)
	feedURL.RawQuery = q.Encode()
	return feedURL, nil
}

func (p *YoutubeProvider) channelFeedURL(ctx context.Context, channelURL *url.URL) (*url.URL, error) {
	if strings.Contains(channelURL.String(), "feeds/videos.xml") {
		return channelURL, nil
	}

	channelID, err := p.resolveChannelID(ctx, channelURL)
	if err != nil {
		return nil, err
	}

	feedURL, _ := url.Parse("https://www.youtube.com/feeds/videos.xml")
	q := feedURL.Query()
	q.Set("channel_id", channelID)
	feedURL.RawQuery = q.Encode()
	return feedURL, nil
}

// resolveChannelID extracts the canonical channel id directly from a
// /channel/<id> path, or resolves a vanity form (/user/, /c/, /@) via a
// cached yt-dlp lookup.
func (p *YoutubeProvider) resolveChannelID(ctx context.Context, channelURL *url.URL) (string, error) {
	path := strings.TrimSuffix(channelURL.Path, "/")
	if strings.HasPrefix(path, "/channel/") {
		return strings.TrimPrefix(path, "/channel/"), nil
	}

	cacheKey := "youtube_channel_username_to_id=" + channelURL.String()
	if cached, ok := p.store.GetCached(ctx, cacheKey); ok {
		return lastPathSegment(cached), nil
	}

	resolved, err := p.ytdlp.ChannelURL(ctx, channelURL.String())
	if err != nil {
		return "", errors.Wrap(err, "could not resolve youtube channel id")
	}

	p.store.SetCached(ctx, cacheKey, resolved.String(), channelIDCacheTTL)
	return lastPathSegment(resolved.Path), nil
}

func lastPathSegment(s string) string {
	s = strings.TrimRight(s, "/")
	idx := strings.LastIndex(s, "/")
	if idx == -1 {
		return s
	}
	return s[idx+1:]
}

func (p *YoutubeProvider) GetStreamURL(ctx context.Context, mediaURL *url.URL) (*url.URL, error) {
	cacheKey := "cached_yt_stream_url=" + mediaURL.String()
	if cached, ok := p.store.GetCached(ctx, cacheKey); ok {
		return url.Parse(cached)
	}

	resolved, err := p.ytdlp.StreamURL(ctx, mediaURL.String(), false)
	if err != nil {
		return nil, errors.Wrap(err, "could not resolve youtube stream url")
	}

	p.store.SetCached(ctx, cacheKey, resolved.String(), streamURLCacheTTL)
	return resolved, nil
}

func (p *YoutubeProvider) DomainAllowRegexes() []*regexp.Regexp {
	return youtubeAllowRegexes
}
