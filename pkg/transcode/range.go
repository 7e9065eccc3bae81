// Package transcode computes the byte-range/time-offset arithmetic for
// seekable constant-bitrate audio streaming and drives ffmpeg to
// produce the transcoded bytes. Grounded on
// original_source/src/server/mod.rs's transcode_to_mp3 handler and
// original_source/src/transcoder/mod.rs's Transcoder.
package transcode

import (
	"regexp"
	"strconv"

	"github.com/pkg/errors"
)

var rangePattern = regexp.MustCompile(`(?P<start>[0-9]{1,20})-?(?P<end>[0-9]{1,20})?`)

// TotalStreamableBytes approximates the final transcoded stream's size
// under the constant-bitrate assumption documented in SPEC_FULL.md's
// Open Question resolution #1: duration_secs * bitrate_kbit * 1000 / 8.
func TotalStreamableBytes(durationSecs int64, bitrateKbit int) int64 {
	return durationSecs * int64(bitrateKbit) * 1000 / 8
}

// ParseRange parses an HTTP Range header value (with or without the
// "bytes=" prefix) against totalBytes, returning the inclusive
// start/end byte offsets and the expected response length. Grounded on
// original_source/src/server/mod.rs::parse_range_header.
func ParseRange(rangeHeader string, totalBytes int64) (start, end, expected int64, err error) {
	if rangeHeader == "" {
		rangeHeader = "0-"
	}

	match := rangePattern.FindStringSubmatch(rangeHeader)
	if match == nil {
		return 0, 0, 0, errors.Errorf("content range regex failed on %q", rangeHeader)
	}

	names := rangePattern.SubexpNames()
	startStr, endStr := "", ""
	for i, name := range names {
		switch name {
		case "start":
			startStr = match[i]
		case "end":
			endStr = match[i]
		}
	}

	start = 0
	if startStr != "" {
		start, err = strconv.ParseInt(startStr, 10, 64)
		if err != nil {
			return 0, 0, 0, errors.Wrap(err, "invalid range start")
		}
	}

	end = totalBytes - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return 0, 0, 0, errors.Wrap(err, "invalid range end")
		}
	}

	if end == start {
		return 0, 0, 0, errors.Errorf("the requested range header with a length of 0 is invalid: %s", rangeHeader)
	}

	expected = (end + 1) - start
	return start, end, expected, nil
}

// SeekSeconds converts a starting byte offset into the equivalent
// playback position, under the same constant-bitrate assumption as
// TotalStreamableBytes.
func SeekSeconds(startBytes, totalBytes int64, durationSecs int64) float64 {
	if totalBytes == 0 {
		return 0
	}
	return (float64(startBytes) / float64(totalBytes)) * float64(durationSecs)
}
