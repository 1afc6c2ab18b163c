package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenPoolRoundRobin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool := NewTokenPool([]string{"token1", "token2"})

	token, err := pool.Acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token1", token)

	// Released tokens go to the back of the queue
	pool.Release(token)
	token, err = pool.Acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token2", token)
	token, err = pool.Acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token1", token)
}

func TestTokenPoolAcquireBlocksUntilRelease(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool := NewTokenPool([]string{"token1"})

	token, err := pool.Acquire(ctx)
	require.NoError(t, err)

	acquired := make(chan string)
	go func() {
		token, err := pool.Acquire(ctx)
		assert.NoError(t, err)
		acquired <- token
	}()

	select {
	case <-acquired:
		t.Fatal("acquire should block while the token is held")
	case <-time.After(50 * time.Millisecond):
	}

	pool.Release(token)
	select {
	case token := <-acquired:
		assert.Equal(t, "token1", token)
	case <-time.After(time.Second):
		t.Fatal("acquire should succeed once the token is released")
	}
}

func TestTokenPoolAcquireHonoursContext(t *testing.T) {
	t.Parallel()

	pool := NewTokenPool([]string{"token1"})
	_, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = pool.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
