package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/daleiii/vod2pod-go/pkg/config"
)

// PeerTubeProvider passes RSS channel URLs through unchanged (PeerTube
// channel URLs are already feeds) and resolves a video page URL's
// playable stream by hitting the instance's videos API. Grounded on
// original_source/src/provider/peertube.rs.
type PeerTubeProvider struct {
	client  *http.Client
	regexes []*regexp.Regexp
}

type peertubeStreamingPlaylist struct {
	PlaylistURL string `json:"playlistUrl"`
}

type peertubeVideo struct {
	StreamingPlaylists []peertubeStreamingPlaylist `json:"streamingPlaylists"`
}

func NewPeerTubeProvider(cfg *config.Config, client *http.Client) (*PeerTubeProvider, error) {
	regexes := make([]*regexp.Regexp, 0, len(cfg.PeerTubeValidHosts))
	for _, pattern := range cfg.PeerTubeValidHosts {
		re, err := config.DomainAllowRegex(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid PEERTUBE_VALID_HOSTS pattern %q", pattern)
		}
		regexes = append(regexes, re)
	}
	return &PeerTubeProvider{client: client, regexes: regexes}, nil
}

func (p *PeerTubeProvider) GenerateRSS(ctx context.Context, channelURL *url.URL) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, channelURL.String(), nil)
	if err != nil {
		return "", errors.Wrap(err, "could not build peertube feed request")
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "could not fetch peertube feed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "could not read peertube feed body")
	}
	return string(body), nil
}

func (p *PeerTubeProvider) GetStreamURL(ctx context.Context, mediaURL *url.URL) (*url.URL, error) {
	videoID, ok := findUUIDSegment(mediaURL)
	if !ok {
		return nil, errors.Errorf("no video uuid found in peertube url %s", mediaURL)
	}

	apiURL := *mediaURL
	apiURL.Path = "/api/v1/videos/" + videoID
	apiURL.RawQuery = ""

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "could not build peertube video api request")
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "could not fetch peertube video metadata")
	}
	defer resp.Body.Close()

	var video peertubeVideo
	if err := json.NewDecoder(resp.Body).Decode(&video); err != nil {
		return nil, errors.Wrap(err, "could not decode peertube video metadata")
	}
	if len(video.StreamingPlaylists) == 0 {
		return nil, errors.Errorf("peertube video %s has no streaming playlists", videoID)
	}

	return url.Parse(video.StreamingPlaylists[0].PlaylistURL)
}

func (p *PeerTubeProvider) DomainAllowRegexes() []*regexp.Regexp {
	return p.regexes
}

func findUUIDSegment(u *url.URL) (string, bool) {
	for _, seg := range strings.Split(u.Path, "/") {
		if seg == "" {
			continue
		}
		if _, err := uuid.Parse(seg); err == nil {
			return seg, true
		}
	}
	return "", false
}
