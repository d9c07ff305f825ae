package web

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportLimiter(t *testing.T) {
	l := newImportLimiter(1, 20*time.Millisecond)
	require.NoError(t, l.acquire(context.Background()))
	assert.Equal(t, 1, l.activeCount())

	assert.ErrorIs(t, l.acquire(context.Background()), ErrTooManyImports)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l.maxWait = time.Minute
	assert.ErrorIs(t, l.acquire(ctx), context.Canceled)

	done := make(chan error, 1)
	go func() { done <- l.acquire(context.Background()) }()
	l.release()
	require.NoError(t, <-done)
	assert.Equal(t, 1, l.activeCount())
	l.release()
	assert.Equal(t, 0, l.activeCount())
}

func TestNewImportLimiter_Floor(t *testing.T) {
	l := newImportLimiter(0, 0)
	require.NoError(t, l.acquire(context.Background()))
	assert.ErrorIs(t, l.acquire(context.Background()), ErrTooManyImports)
}
