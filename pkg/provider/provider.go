// Package provider implements the source-specific strategies (YouTube,
// Twitch, Rumble, PeerTube, Generic) that turn a channel URL into an RSS
// channel, plus the regex-based dispatcher that selects among them.
// Grounded on original_source/src/provider/{mod,youtube,twitch,rumble,
// peertube,generic,macros}.rs: the Rust side models this as a
// dispatch_if_match! macro building a tagged enum; Go models the same
// "polymorphic providers over a shared capability set" (spec.md §9
// DESIGN NOTES) as a plain interface with one struct per source — no
// macro needed since Go has no generic sum-type sugar to imitate here.
package provider

import (
	"context"
	"net/url"
	"regexp"
)

// Provider is the capability set every source-specific strategy exposes,
// per SPEC_FULL.md §4.1.
type Provider interface {
	// GenerateRSS produces the raw (not-yet-enriched) RSS/Atom channel
	// text for the given channel URL.
	GenerateRSS(ctx context.Context, channelURL *url.URL) (string, error)

	// GetStreamURL resolves a playable media URL for an item's upstream
	// link. Identity for providers whose items already link directly to
	// playable media.
	GetStreamURL(ctx context.Context, mediaURL *url.URL) (*url.URL, error)

	// DomainAllowRegexes lists the patterns this provider accepts as
	// input, used both for dispatch selection and the SSRF allow-list.
	DomainAllowRegexes() []*regexp.Regexp
}

// Name identifies a provider; Dispatcher.Select and Dispatcher.Resolve
// return it alongside the selected provider.
type Name string

const (
	NameYouTube  Name = "youtube"
	NameTwitch   Name = "twitch"
	NamePeerTube Name = "peertube"
	NameRumble   Name = "rumble"
	NameGeneric  Name = "generic"
)

func matchesAny(regexes []*regexp.Regexp, s string) bool {
	for _, re := range regexes {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
