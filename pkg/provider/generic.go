package provider

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"

	"github.com/pkg/errors"

	"github.com/daleiii/vod2pod-go/pkg/config"
)

// extensionAllowRegex matches common media file suffixes, appended to
// every Generic whitelist regardless of VALID_URL_DOMAINS configuration.
var extensionAllowRegex = regexp.MustCompile(`^(https?://)?.+\.(mp3|mp4|wav|avi|mov|flv|wmv|mkv|aac|ogg|webm|3gp|3g2|asf|m4a|mpg|mpeg|ts|m3u|m3u8|pls)$`)

// GenericProvider treats the input URL as an already-valid RSS/Atom feed
// and its items' links as directly playable media. Grounded on
// original_source/src/provider/generic.rs.
type GenericProvider struct {
	client  *http.Client
	regexes []*regexp.Regexp
}

func NewGenericProvider(cfg *config.Config, client *http.Client) (*GenericProvider, error) {
	regexes := make([]*regexp.Regexp, 0, len(cfg.ValidURLDomains)+1)
	for _, pattern := range cfg.ValidURLDomains {
		re, err := config.DomainAllowRegex(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid VALID_URL_DOMAINS pattern %q", pattern)
		}
		regexes = append(regexes, re)
	}
	regexes = append(regexes, extensionAllowRegex)

	return &GenericProvider{client: client, regexes: regexes}, nil
}

func (p *GenericProvider) GenerateRSS(ctx context.Context, channelURL *url.URL) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, channelURL.String(), nil)
	if err != nil {
		return "", errors.Wrap(err, "could not build generic feed request")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "could not fetch generic feed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "could not read generic feed body")
	}
	return string(body), nil
}

func (p *GenericProvider) GetStreamURL(_ context.Context, mediaURL *url.URL) (*url.URL, error) {
	return mediaURL, nil
}

func (p *GenericProvider) DomainAllowRegexes() []*regexp.Regexp {
	return p.regexes
}
