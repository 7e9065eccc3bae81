package provider

import (
	"net/url"

	"github.com/pkg/errors"
)

// Dispatcher selects the Provider strategy for a channel URL, in the
// fixed precedence order required by SPEC_FULL.md §4.1: YouTube,
// Twitch, PeerTube, Rumble, then Generic as a catch-all. Grounded on
// original_source/src/provider/mod.rs's dispatch_if_match! macro chain.
type Dispatcher struct {
	entries []dispatchEntry
	generic Provider
}

type dispatchEntry struct {
	name     Name
	provider Provider
}

func NewDispatcher(youtube, twitch, peertube, rumble, generic Provider) *Dispatcher {
	return &Dispatcher{
		entries: []dispatchEntry{
			{NameYouTube, youtube},
			{NameTwitch, twitch},
			{NamePeerTube, peertube},
			{NameRumble, rumble},
		},
		generic: generic,
	}
}

// Select returns the provider whose domain allow-list matches the
// given URL, in dispatch order, falling back to the Generic provider
// when none match.
func (d *Dispatcher) Select(u *url.URL) (Name, Provider) {
	for _, entry := range d.entries {
		if matchesAny(entry.provider.DomainAllowRegexes(), u.String()) {
			return entry.name, entry.provider
		}
	}
	return NameGeneric, d.generic
}

// IsAllowed reports whether u matches ANY provider's domain allow-list,
// including Generic's. Used to reject SSRF-risk URLs (those matching
// no provider) before any outbound request is made, per SPEC_FULL.md's
// "no provider matches" edge case.
func (d *Dispatcher) IsAllowed(u *url.URL) bool {
	_, p := d.Select(u)
	return matchesAny(p.DomainAllowRegexes(), u.String())
}

// Resolve dispatches a channel URL to its provider, erroring out if the
// URL matches no provider's allow-list at all. It does not generate the
// feed; callers call GenerateRSS on the returned provider.
func (d *Dispatcher) Resolve(u *url.URL) (Name, Provider, error) {
	name, p := d.Select(u)
	if !matchesAny(p.DomainAllowRegexes(), u.String()) {
		return "", nil, errors.Errorf("url %s is not in any provider's domain allow-list", u)
	}
	return name, p, nil
}
