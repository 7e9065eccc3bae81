package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	st, err := New("redis://" + mr.Addr())
	require.NoError(t, err)
	return st, mr
}

func TestGetSetCachedRoundTrip(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	_, ok := st.GetCached(ctx, "missing")
	require.False(t, ok)

	st.SetCached(ctx, "key", "value", time.Minute)

	v, ok := st.GetCached(ctx, "key")
	require.True(t, ok)
	require.Equal(t, "value", v)
}

func TestGetCachedExpires(t *testing.T) {
	st, mr := newTestStore(t)
	ctx := context.Background()

	st.SetCached(ctx, "key", "value", time.Second)
	mr.FastForward(2 * time.Second)

	_, ok := st.GetCached(ctx, "key")
	require.False(t, ok)
}

func TestPing(t *testing.T) {
	st, _ := newTestStore(t)
	require.NoError(t, st.Ping(context.Background()))
}
