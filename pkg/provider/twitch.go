package provider

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/eduncan911/podcast"
	"github.com/nicklaw5/helix"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/daleiii/vod2pod-go/pkg/config"
	"github.com/daleiii/vod2pod-go/pkg/store"
)

var twitchAllowRegexes = []*regexp.Regexp{
	regexp.MustCompile(`^https?://(.*\.)?twitch\.tv/`),
	regexp.MustCompile(`^https?://(.*\.)?cloudfront\.net/`),
}

// twitchMediaURLRegex matches a VOD's resolved playable stream host.
// Unlike the exported YouTube MediaURLRegex, feed enrichment never
// consults this pattern directly (it only resolves YouTube media URLs
// via C5); kept for parity with original_source/src/provider/twitch.rs
// media_url_regexes. No code or test in this module reads it.
var twitchMediaURLRegex = regexp.MustCompile(`^https?://(.*\.)?cloudfront\.net/`)

const twitchOAuthCacheKey = "twitch_oauth_credentials"

// TwitchProvider implements the dual strategy resolved in
// SPEC_FULL.md's Open Question section: redirect through an external
// twitch-to-podcast-rss instance when TWITCH_TO_PODCAST_URL is set
// (grounded on the inline TwitchProvider in
// original_source/src/provider/mod.rs), otherwise build the feed
// directly from the Twitch Helix API (grounded on
// original_source/src/provider/twitch.rs).
type TwitchProvider struct {
	cfg    *config.Config
	store  *store.Store
	client *http.Client
}

func NewTwitchProvider(cfg *config.Config, st *store.Store, client *http.Client) *TwitchProvider {
	return &TwitchProvider{cfg: cfg, store: st, client: client}
}

func (p *TwitchProvider) GenerateRSS(ctx context.Context, channelURL *url.URL) (string, error) {
	if p.cfg.TwitchToPodcastURL != "" {
		return p.generateViaRedirect(ctx, channelURL)
	}
	return p.generateViaHelixAPI(ctx, channelURL)
}

// generateViaRedirect fetches the feed from an external
// twitch-to-podcast-rss instance instead of talking to Twitch directly.
func (p *TwitchProvider) generateViaRedirect(ctx context.Context, channelURL *url.URL) (string, error) {
	username, err := lastPathSegmentOf(channelURL)
	if err != nil {
		return "", err
	}

	base := p.cfg.TwitchToPodcastURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	feedURL, err := url.Parse(strings.TrimRight(base, "/") + "/vod")
	if err != nil {
		return "", errors.Wrap(err, "invalid TWITCH_TO_PODCAST_URL")
	}
	feedURL.Path = strings.TrimRight(feedURL.Path, "/") + "/" + username
	q := feedURL.Query()
	q.Set("transcode", "false")
	feedURL.RawQuery = q.Encode()

	log.Infof("redirecting twitch channel %s to %s", channelURL, feedURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL.String(), nil)
	if err != nil {
		return "", errors.Wrap(err, "could not build twitch redirect request")
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "could not fetch redirected twitch feed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "could not read redirected twitch feed body")
	}
	return string(body), nil
}

func (p *TwitchProvider) generateViaHelixAPI(ctx context.Context, channelURL *url.URL) (string, error) {
	username, err := lastPathSegmentOf(channelURL)
	if err != nil {
		return "", err
	}

	token, err := p.authorize(ctx)
	if err != nil {
		return "", errors.Wrap(err, "could not authorize against twitch")
	}

	client, err := helix.NewClient(&helix.Options{
		ClientID:        p.cfg.TwitchClientID,
		UserAccessToken: token,
	})
	if err != nil {
		return "", errors.Wrap(err, "could not build helix client")
	}

	usersResp, err := client.GetUsers(&helix.UsersParams{Logins: []string{username}})
	if err != nil {
		return "", errors.Wrap(err, "could not fetch twitch user")
	}
	if len(usersResp.Data.Users) == 0 {
		return "", errors.Errorf("no twitch user found for %s", username)
	}
	user := usersResp.Data.Users[0]

	videosResp, err := client.GetVideos(&helix.VideosParams{UserID: user.ID})
	if err != nil {
		return "", errors.Wrap(err, "could not fetch twitch vods")
	}

	now := time.Now()
	p1 := podcast.New(user.DisplayName, channelURL.String(), user.Description, &now, &now)
	p1.AddImage(user.ProfileImageURL)
	p1.AddAuthor(user.DisplayName, "")

	for _, vod := range videosResp.Data.Videos {
		item := vodToItem(vod)
		if _, err := p1.AddItem(item); err != nil {
			log.WithError(err).Warn("could not add twitch vod to feed")
		}
	}

	return p1.String(), nil
}

func vodToItem(vod helix.Video) podcast.Item {
	item := podcast.Item{
		Title:       vod.Title,
		Description: vod.Title,
		Link:        "https://www.twitch.tv/videos/" + vod.ID,
		GUID:        vod.ID,
		IDuration:   normalizeTwitchDuration(vod.Duration),
	}
	pubDate := vod.CreatedAt.Time
	item.AddPubDate(&pubDate)
	item.AddImage(strings.NewReplacer("%{width}", "512", "%{height}", "288").Replace(vod.ThumbnailURL))
	return item
}

// normalizeTwitchDuration converts Twitch's "1h2m3s"-style duration
// string into the HH:MM:SS form podcast clients expect. Grounded on
// original_source/src/provider/twitch.rs vod_to_rss_item_converter.
func normalizeTwitchDuration(raw string) string {
	normalized := strings.NewReplacer("h", ":", "m", ":", "s", "").Replace(raw)
	parts := strings.Split(normalized, ":")

	pad := func(s string) string {
		n, err := strconv.Atoi(s)
		if err != nil {
			return "00"
		}
		return padTwoDigits(n)
	}

	switch len(parts) {
	case 3:
		return pad(parts[0]) + ":" + pad(parts[1]) + ":" + pad(parts[2])
	case 2:
		return "00:" + pad(parts[0]) + ":" + pad(parts[1])
	case 1:
		return "00:00:" + pad(parts[0])
	default:
		log.Warnf("twitch vod has invalid duration %s", raw)
		return "00:00:00"
	}
}

func padTwoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func (p *TwitchProvider) GetStreamURL(_ context.Context, mediaURL *url.URL) (*url.URL, error) {
	return mediaURL, nil
}

func (p *TwitchProvider) DomainAllowRegexes() []*regexp.Regexp {
	return twitchAllowRegexes
}

// authorize performs the OAuth client-credentials flow against Twitch,
// caching the resulting bearer token under twitch_oauth_credentials
// until it expires. Grounded on
// original_source/src/provider/twitch.rs's authorize(), using
// golang.org/x/oauth2/clientcredentials in place of the original's
// hand-rolled retry loop.
func (p *TwitchProvider) authorize(ctx context.Context) (string, error) {
	if cached, ok := p.store.GetCached(ctx, twitchOAuthCacheKey); ok {
		return cached, nil
	}

	cc := clientcredentials.Config{
		ClientID:     p.cfg.TwitchClientID,
		ClientSecret: p.cfg.TwitchSecret,
		TokenURL:     "https://id.twitch.tv/oauth2/token",
	}

	token, err := cc.Token(ctx)
	if err != nil {
		return "", errors.Wrap(err, "could not fetch twitch oauth token")
	}

	ttl := time.Until(token.Expiry)
	if ttl <= 0 {
		ttl = time.Hour
	}
	p.store.SetCached(ctx, twitchOAuthCacheKey, token.AccessToken, ttl)

	return token.AccessToken, nil
}

func lastPathSegmentOf(u *url.URL) (string, error) {
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) == 0 || segments[len(segments)-1] == "" {
		return "", errors.Errorf("unable to get last path segment of %s", u)
	}
	return segments[len(segments)-1], nil
}
