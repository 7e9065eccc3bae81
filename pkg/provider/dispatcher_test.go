package provider

import (
	"context"
	"net/url"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name    Name
	regexes []*regexp.Regexp
}

func (f *fakeProvider) GenerateRSS(context.Context, *url.URL) (string, error) { return string(f.name), nil }
func (f *fakeProvider) GetStreamURL(_ context.Context, u *url.URL) (*url.URL, error) { return u, nil }
func (f *fakeProvider) DomainAllowRegexes() []*regexp.Regexp                 { return f.regexes }

func newFake(name Name, pattern string) *fakeProvider {
	return &fakeProvider{name: name, regexes: []*regexp.Regexp{regexp.MustCompile(pattern)}}
}

func newDispatcherForTest() *Dispatcher {
	youtube := newFake(NameYouTube, `youtube\.com`)
	twitch := newFake(NameTwitch, `twitch\.tv`)
	peertube := newFake(NamePeerTube, `peertube\.example`)
	rumble := newFake(NameRumble, `rumble\.com`)
	generic := newFake(NameGeneric, `\.mp3$`)
	return NewDispatcher(youtube, twitch, peertube, rumble, generic)
}

func TestDispatcherSelectsInOrder(t *testing.T) {
	d := newDispatcherForTest()

	cases := []struct {
		url  string
		want Name
	}{
		{"https://www.youtube.com/channel/UCxxx", NameYouTube},
		{"https://www.twitch.tv/someone", NameTwitch},
		{"https://peertube.example/video-channels/foo", NamePeerTube},
		{"https://rumble.com/c/SomeChannel", NameRumble},
		{"https://cdn.example.com/file.mp3", NameGeneric},
	}

	for _, c := range cases {
		u, err := url.Parse(c.url)
		require.NoError(t, err)
		name, _ := d.Select(u)
		assert.Equal(t, c.want, name, "url %s", c.url)
	}
}

func TestDispatcherIsAllowedRejectsUnknownHosts(t *testing.T) {
	d := newDispatcherForTest()

	allowed, err := url.Parse("https://www.youtube.com/channel/UCxxx")
	require.NoError(t, err)
	assert.True(t, d.IsAllowed(allowed))

	blocked, err := url.Parse("http://169.254.169.254/latest/meta-data")
	require.NoError(t, err)
	assert.False(t, d.IsAllowed(blocked))
}

func TestDispatcherResolveErrorsOnNoMatch(t *testing.T) {
	d := newDispatcherForTest()

	u, err := url.Parse("http://169.254.169.254/latest/meta-data")
	require.NoError(t, err)

	_, _, err = d.Resolve(u)
	assert.Error(t, err)
}
