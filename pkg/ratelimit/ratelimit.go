package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Lock serializes operations and enforces a minimum wait between them.
type Lock interface {
	Lock(ctx context.Context) func()
}

func New(wait time.Duration) Lock {
	return &lock{
		wait: wait,
	}
}

type lock struct {
	lck  sync.Mutex
	wait time.Duration
	last time.Time
}

func (l *lock) Lock(ctx context.Context) func() {
	l.lck.Lock()
	elapsed := time.Since(l.last)
	if wait := l.wait - elapsed; wait > 0 {
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
		case <-t.C:
		}
	}
	return func() {
		l.last = time.Now()
		l.lck.Unlock()
	}
}
