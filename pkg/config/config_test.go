package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.RedisAddress)
	assert.Equal(t, "6379", cfg.RedisPort)
	assert.Equal(t, "redis://localhost:6379/", cfg.RedisURL)
	assert.Equal(t, 192, cfg.Mp3Bitrate)
	assert.True(t, cfg.Transcode)
	assert.Equal(t, CodecMP3, cfg.AudioCodec)
	assert.Equal(t, "", cfg.Subfolder)
	assert.NotEmpty(t, cfg.ValidURLDomains)
}

func TestNormalizeSubfolder(t *testing.T) {
	cases := map[string]string{
		"":          "",
		"sub":       "/sub",
		"/sub":      "/sub",
		"/sub/":     "/sub",
		"/sub///":   "/sub",
		"a/b/":      "/a/b",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeSubfolder(in), "input %q", in)
	}
}

func TestParseAudioCodecAliases(t *testing.T) {
	assert.Equal(t, CodecMP3, parseAudioCodec(""))
	assert.Equal(t, CodecMP3, parseAudioCodec("mp3"))
	assert.Equal(t, CodecOpus, parseAudioCodec("OPUS"))
	assert.Equal(t, CodecOggVorbis, parseAudioCodec("OGG"))
	assert.Equal(t, CodecOggVorbis, parseAudioCodec("VORBIS"))
	assert.Equal(t, CodecOggVorbis, parseAudioCodec("OGG_VORBIS"))
	assert.Equal(t, CodecMP3, parseAudioCodec("nonsense"))
}

func TestDomainAllowRegex(t *testing.T) {
	re, err := DomainAllowRegex("https://*.youtube.com/")
	require.NoError(t, err)
	assert.True(t, re.MatchString("https://www.youtube.com/watch?v=1"))
	assert.False(t, re.MatchString("https://evil.example/"))
}
