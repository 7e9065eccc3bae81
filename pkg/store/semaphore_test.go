package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAcquireReleaseSemaphoreSingleCaller(t *testing.T) {
	st, _ := newTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, st.AcquireSemaphore(ctx, "sem", "a"))
	require.NoError(t, st.ReleaseSemaphore(ctx, "sem", "a"))
}

func TestAcquireSemaphoreAdmitsWithinRank(t *testing.T) {
	st, _ := newTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := 0; i < semaphoreMaxRank+1; i++ {
		require.NoError(t, st.AcquireSemaphore(ctx, "sem", string(rune('a'+i))))
	}
}
