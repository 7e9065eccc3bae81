package provider

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/eduncan911/podcast"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/daleiii/vod2pod-go/pkg/ytdlp"
)

var rumbleAllowRegexes = []*regexp.Regexp{
	regexp.MustCompile(`^https?://(www\.)?rumble\.com`),
	regexp.MustCompile(`^https?://sp\.rmbl\.ws`),
	regexp.MustCompile(`^https?://rmbl\.ws`),
}

var rumbleBaseURL, _ = url.Parse("https://rumble.com")

// RumbleProvider scrapes a channel page's HTML for its video listing,
// since Rumble has no public feed or API. Grounded on
// original_source/src/provider/rumble.rs; the `scraper` crate's
// CSS-selector usage maps directly onto goquery, whose grounding comes
// from other_examples/…golino-internal-ingest-rss.go.
type RumbleProvider struct {
	client *http.Client
	ytdlp  *ytdlp.Runner
}

func NewRumbleProvider(client *http.Client, yt *ytdlp.Runner) *RumbleProvider {
	return &RumbleProvider{client: client, ytdlp: yt}
}

func (p *RumbleProvider) GenerateRSS(ctx context.Context, channelURL *url.URL) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, channelURL.String(), nil)
	if err != nil {
		return "", errors.Wrap(err, "could not build rumble channel request")
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "could not fetch rumble channel page")
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "could not parse rumble channel page")
	}

	main := doc.Find("main").First()
	if main.Length() == 0 {
		return "", errors.New("rumble channel page has no <main> element")
	}

	title := strings.TrimSpace(main.Find("div.channel-header--title h1").First().Text())
	if title == "" {
		log.Warnf("rumble channel title not found, falling back to url %s", channelURL)
		title = channelURL.String()
	}

	thumbnail, _ := main.Find("img.channel-header--img").First().Attr("src")

	now := time.Now()
	p1 := podcast.New(title, channelURL.String(), "--", &now, &now)
	if thumbnail != "" {
		p1.AddImage(thumbnail)
	}
	p1.Language = "en"

	main.Find("ol.thumbnail__grid div.videostream").Each(func(_ int, card *goquery.Selection) {
		if isLiveOrUpcoming(card) || isPremiumOnly(card) {
			return
		}

		itemTitle := strings.TrimSpace(card.Find("h3.thumbnail__title").First().Text())
		if itemTitle == "" {
			log.Warn("rumble video card has no title")
			itemTitle = "N/A"
		}

		description := strings.TrimSpace(card.Find("div.videostream__description").First().Text())

		href, hasLink := card.Find("a.videostream__link").First().Attr("href")
		if !hasLink {
			log.Warn("rumble video card has no link, skipping")
			return
		}
		link, err := rumbleBaseURL.Parse(href)
		if err != nil {
			log.WithError(err).Warn("rumble video card link could not be resolved, skipping")
			return
		}

		durationText := strings.TrimSpace(card.Find("div.videostream__status--duration").First().Text())

		pubDate := now
		if datetime, ok := card.Find("time.videostream__time").First().Attr("datetime"); ok {
			if parsed, err := time.Parse(time.RFC3339, datetime); err == nil {
				pubDate = parsed.UTC()
			}
		}

		item := podcast.Item{
			Title:       itemTitle,
			Description: description,
			Link:        link.String(),
			GUID:        link.String(),
		}
		item.AddPubDate(&pubDate)
		if durationText != "" {
			item.IDuration = durationText
		}

		if _, err := p1.AddItem(item); err != nil {
			log.WithError(err).Warn("could not add rumble item to feed")
		}
	})

	return p1.String(), nil
}

func isLiveOrUpcoming(card *goquery.Selection) bool {
	selectors := []string{
		"span.video-item--live",
		"span.video-item--upcoming",
		"div.videostream__status--live",
		"div.videostream__footer--live",
	}
	for _, sel := range selectors {
		if card.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}

func isPremiumOnly(card *goquery.Selection) bool {
	found := false
	card.Find("span.text-link-green").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.TrimSpace(s.Text()) == "Premium only" {
			found = true
			return false
		}
		return true
	})
	return found
}

func (p *RumbleProvider) GetStreamURL(ctx context.Context, mediaURL *url.URL) (*url.URL, error) {
	return p.ytdlp.StreamURL(ctx, mediaURL.String(), true)
}

func (p *RumbleProvider) DomainAllowRegexes() []*regexp.Regexp {
	return rumbleAllowRegexes
}
