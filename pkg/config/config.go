// Package config resolves runtime configuration from the environment.
//
// Unlike the upstream podsync project, which loads a TOML file, this
// service is configured entirely through environment variables (see
// SPEC_FULL.md's EXTERNAL INTERFACES table) — the validate/applyDefaults
// shape is kept, the source is not.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
)

// AudioCodec is the transcode target codec.
type AudioCodec string

const (
	CodecMP3       AudioCodec = "MP3"
	CodecOpus      AudioCodec = "OPUS"
	CodecOggVorbis AudioCodec = "OGG_VORBIS"
)

// FFmpegCodec returns the -acodec argument value for this codec.
func (c AudioCodec) FFmpegCodec() string {
	switch c {
	case CodecOpus:
		return "libopus"
	case CodecOggVorbis:
		return "libvorbis"
	default:
		return "libmp3lame"
	}
}

// Container returns the ffmpeg -f / file extension for this codec.
func (c AudioCodec) Container() string {
	switch c {
	case CodecOpus, CodecOggVorbis:
		return "webm"
	default:
		return "mp3"
	}
}

// Extension is the enclosure URL's trailing &ext= value, dot-prefixed.
func (c AudioCodec) Extension() string {
	switch c {
	case CodecOpus, CodecOggVorbis:
		return ".webm"
	default:
		return ".mp3"
	}
}

// MimeType is the Content-Type of the transcoded stream.
func (c AudioCodec) MimeType() string {
	switch c {
	case CodecOpus, CodecOggVorbis:
		return "audio/webm"
	default:
		return "audio/mpeg"
	}
}

// SeekSupported reports whether byte-range seeking is time-accurate for
// this codec. Only MP3's CBR assumption holds — see SPEC_FULL.md's Open
// Question resolution #2.
func (c AudioCodec) SeekSupported() bool {
	return c == CodecMP3
}

// parseAudioCodec normalizes the raw AUDIO_CODEC env value, accepting the
// aliases OGG, VORBIS and OGG_VORBIS for CodecOggVorbis. Unknown values
// warn and fall back to MP3.
func parseAudioCodec(raw string) AudioCodec {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", "MP3":
		return CodecMP3
	case "OPUS":
		return CodecOpus
	case "OGG", "VORBIS", "OGG_VORBIS", "OGGVORBIS":
		return CodecOggVorbis
	default:
		log.Warnf("unrecognized AUDIO_CODEC %q, defaulting to MP3", raw)
		return CodecMP3
	}
}

// Config holds the fully-resolved runtime configuration.
type Config struct {
	RedisAddress string
	RedisPort    string
	RedisURL     string

	Mp3Bitrate int
	Transcode  bool
	AudioCodec AudioCodec

	Subfolder string

	ValidURLDomains     []string
	PeerTubeValidHosts  []string

	YoutubeAPIKey string

	TwitchClientID     string
	TwitchSecret       string
	TwitchToPodcastURL string
	PodTubeURL         string
}

var defaultValidURLDomains = []string{
	"https://*.youtube.com/",
	"https://youtube.com/",
	"https://youtu.be/",
	"https://*.youtu.be/",
	"https://*.twitch.tv/",
	"https://twitch.tv/",
	"https://*.googlevideo.com/",
	"https://*.cloudfront.net/",
}

func env(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Load reads and validates configuration from the process environment.
func Load() (*Config, error) {
	cfg := &Config{
		RedisAddress: env("REDIS_ADDRESS", "localhost"),
		RedisPort:    env("REDIS_PORT", "6379"),

		AudioCodec: parseAudioCodec(env("AUDIO_CODEC", "MP3")),

		Subfolder: normalizeSubfolder(env("SUBFOLDER", "")),

		YoutubeAPIKey: env("YT_API_KEY", ""),

		TwitchClientID:     env("TWITCH_CLIENT_ID", ""),
		TwitchSecret:       env("TWITCH_SECRET", ""),
		TwitchToPodcastURL: env("TWITCH_TO_PODCAST_URL", ""),
		PodTubeURL:         env("PODTUBE_URL", ""),
	}

	cfg.RedisURL = fmt.Sprintf("redis://%s:%s/", cfg.RedisAddress, cfg.RedisPort)

	var result *multierror.Error

	bitrate, err := strconv.Atoi(env("MP3_BITRATE", "192"))
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("MP3_BITRATE must be an integer: %w", err))
		bitrate = 192
	}
	cfg.Mp3Bitrate = bitrate

	transcode, err := strconv.ParseBool(env("TRANSCODE", "true"))
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("TRANSCODE must be a boolean: %w", err))
		transcode = true
	}
	cfg.Transcode = transcode

	if raw := env("VALID_URL_DOMAINS", ""); raw != "" {
		cfg.ValidURLDomains = splitCSV(raw)
	} else {
		cfg.ValidURLDomains = defaultValidURLDomains
	}

	cfg.PeerTubeValidHosts = splitCSV(env("PEERTUBE_VALID_HOSTS", ""))

	if err := validateDomainPatterns(cfg.ValidURLDomains); err != nil {
		result = multierror.Append(result, err)
	}

	if result != nil {
		return cfg, result.ErrorOrNil()
	}
	return cfg, nil
}

// normalizeSubfolder forces a leading slash and strips trailing slashes,
// matching the upstream Rust SubfolderPath behavior.
func normalizeSubfolder(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(s, "/") {
		s = "/" + s
	}
	return strings.TrimRight(s, "/")
}

// DomainAllowRegex compiles a whitelist pattern (CSV element) into a
// regular expression using the same substitution rules as the upstream
// provider whitelists: literal dots escaped, `*` becomes `.+`.
func DomainAllowRegex(pattern string) (*regexp.Regexp, error) {
	escaped := strings.ReplaceAll(pattern, ".", `\.`)
	escaped = strings.ReplaceAll(escaped, "*", ".+")
	return regexp.Compile(escaped)
}

func validateDomainPatterns(patterns []string) error {
	var result *multierror.Error
	for _, p := range patterns {
		if _, err := DomainAllowRegex(p); err != nil {
			result = multierror.Append(result, fmt.Errorf("invalid URL domain pattern %q: %w", p, err))
		}
	}
	return result.ErrorOrNil()
}
