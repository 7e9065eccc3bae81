package transcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRangeStartToEnd(t *testing.T) {
	start, end, expected, err := ParseRange("bytes=0-99", 100)
	require.NoError(t, err)
	assert.Equal(t, int64(0), start)
	assert.Equal(t, int64(99), end)
	assert.Equal(t, int64(100), expected)
}

func TestParseRangeOpenEnded(t *testing.T) {
	start, end, expected, err := ParseRange("bytes=50-", 100)
	require.NoError(t, err)
	assert.Equal(t, int64(50), start)
	assert.Equal(t, int64(99), end)
	assert.Equal(t, int64(50), expected)
}

func TestParseRangeDefaultsToFullRange(t *testing.T) {
	start, end, expected, err := ParseRange("", 100)
	require.NoError(t, err)
	assert.Equal(t, int64(0), start)
	assert.Equal(t, int64(99), end)
	assert.Equal(t, int64(100), expected)
}

func TestParseRangeRejectsZeroLength(t *testing.T) {
	_, _, _, err := ParseRange("bytes=50-50", 100)
	assert.Error(t, err)
}

func TestTotalStreamableBytes(t *testing.T) {
	assert.Equal(t, int64(23040000), TotalStreamableBytes(960, 192))
}

func TestSeekSeconds(t *testing.T) {
	assert.InDelta(t, 480.0, SeekSeconds(11520000, 23040000, 960), 0.001)
	assert.Equal(t, 0.0, SeekSeconds(0, 0, 960))
}
