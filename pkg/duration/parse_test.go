package duration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHHMMSS(t *testing.T) {
	d, err := Parse("01:02:03")
	require.NoError(t, err)
	assert.Equal(t, 3723*time.Second, d)
}

func TestParseMMSS(t *testing.T) {
	d, err := Parse("30:45")
	require.NoError(t, err)
	assert.Equal(t, 1845*time.Second, d)
}

func TestParseSS(t *testing.T) {
	d, err := Parse("15")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, d)

	d, err = Parse("45")
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, d)
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse("invalid")
	require.Error(t, err)
	assert.Equal(t, "Invalid format", err.Error())
}
