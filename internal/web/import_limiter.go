package web

// import_limiter.go bounds how many import uploads are parsed at once.
// Uploads are decoded before s.mu is taken.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManyImports is returned when every import slot stays busy for the
// whole wait time.
var ErrTooManyImports = errors.New("too many concurrent imports")

type importLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int32
}

func newImportLimiter(maxConcurrent int, maxWait time.Duration) *importLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &importLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// acquire takes a slot. The caller must release it.
func (l *importLimiter) acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	default:
	}

	if l.maxWait <= 0 {
		return ErrTooManyImports
	}
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-timer.C:
		return ErrTooManyImports
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *importLimiter) release() {
	l.active.Add(-1)
	<-l.slots
}

// activeCount returns how many imports hold a slot.
func (l *importLimiter) activeCount() int {
	return int(l.active.Load())
}
