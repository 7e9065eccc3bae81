package duration

import (
	"regexp"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

var iso8601Pattern = regexp.MustCompile(`^P(?:(\d+)D)?T?(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// ParseISO8601 parses the subset of ISO-8601 durations the YouTube Data
// API returns in contentDetails.duration (e.g. "PT1H2M3S"). No corpus
// example depends on an ISO-8601 parsing library, so this small helper
// is hand-rolled against the stdlib regexp package — see DESIGN.md.
func ParseISO8601(raw string) (time.Duration, error) {
	m := iso8601Pattern.FindStringSubmatch(raw)
	if m == nil {
		return 0, errors.Errorf("could not parse iso8601 duration %q", raw)
	}

	var days, hours, mins, secs int64
	var err error
	if m[1] != "" {
		if days, err = strconv.ParseInt(m[1], 10, 64); err != nil {
			return 0, err
		}
	}
	if m[2] != "" {
		if hours, err = strconv.ParseInt(m[2], 10, 64); err != nil {
			return 0, err
		}
	}
	if m[3] != "" {
		if mins, err = strconv.ParseInt(m[3], 10, 64); err != nil {
			return 0, err
		}
	}
	if m[4] != "" {
		if secs, err = strconv.ParseInt(m[4], 10, 64); err != nil {
			return 0, err
		}
	}

	total := days*86400 + hours*3600 + mins*60 + secs
	return time.Duration(total) * time.Second, nil
}
