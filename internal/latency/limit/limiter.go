// Package limit bounds the number of probes in flight across a whole run.
package limit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Limiter is a counting semaphore with first-in, first-out waiters.
//
// Waiters are served in arrival order, so with many targets and large
// sample counts every target keeps making progress instead of one target's
// probes monopolising the slots.
//
// # Thread Safety
//
// Limiter is safe for concurrent use. The in-flight gauge and high-water
// mark are maintained with atomics and can be read at any time.
//
// # Example
//
//	lim, _ := limit.New(6)
//
//	token, err := lim.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	defer token.Release()
type Limiter struct {
	capacity int64
	sem      *semaphore.Weighted

	inFlight  atomic.Int64
	highWater atomic.Int64
	acquired  atomic.Int64
}

// New creates a limiter with capacity slots. capacity must be at least 1.
func New(capacity int) (*Limiter, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("limiter capacity must be at least 1, got %d", capacity)
	}
	return &Limiter{
		capacity: int64(capacity),
		sem:      semaphore.NewWeighted(int64(capacity)),
	}, nil
}

// Token represents one held slot. Releasing it more than once is a no-op.
type Token struct {
	limiter *Limiter
	once    sync.Once
}

// Acquire blocks until a slot is free and returns the token holding it.
//
// Acquisition itself has no timeout. It only fails when ctx is cancelled,
// in which case no slot is held.
func (l *Limiter) Acquire(ctx context.Context) (*Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	current := l.inFlight.Add(1)
	l.acquired.Add(1)
	for {
		high := l.highWater.Load()
		if current <= high || l.highWater.CompareAndSwap(high, current) {
			break
		}
	}

	return &Token{limiter: l}, nil
}

// Release frees the slot held by token.
func (l *Limiter) Release(token *Token) {
	if token == nil {
		return
	}
	token.Release()
}

// Release frees the slot and wakes the oldest waiter, if any.
func (t *Token) Release() {
	t.once.Do(func() {
		t.limiter.inFlight.Add(-1)
		t.limiter.sem.Release(1)
	})
}

// Capacity returns the configured number of slots.
func (l *Limiter) Capacity() int {
	return int(l.capacity)
}

// InFlight returns the number of slots currently held.
func (l *Limiter) InFlight() int {
	return int(l.inFlight.Load())
}

// HighWater returns the largest number of slots ever held at once.
func (l *Limiter) HighWater() int {
	return int(l.highWater.Load())
}

// Stats returns a snapshot of the limiter counters.
func (l *Limiter) Stats() Stats {
	return Stats{
		Capacity:  l.Capacity(),
		InFlight:  l.InFlight(),
		HighWater: l.HighWater(),
		Acquired:  l.acquired.Load(),
	}
}

// Stats contains statistics about the limiter.
type Stats struct {
	Capacity  int   `json:"capacity"`
	InFlight  int   `json:"inFlight"`
	HighWater int   `json:"highWater"`
	Acquired  int64 `json:"acquired"`
}
