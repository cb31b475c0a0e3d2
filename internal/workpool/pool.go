package workpool

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Default pool sizes.
const (
	DefaultSearchSize   = 4
	DefaultTransferSize = 10
)

// Pool limits the number of concurrent calls to Do.
type Pool struct {
	name     string
	size     int
	sem      *semaphore.Weighted
	inFlight atomic.Int64
}

// New returns a Pool that runs at most size functions at once.
// A size below 1 is treated as 1.
func New(name string, size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		name: name,
		size: size,
		sem:  semaphore.NewWeighted(int64(size)),
	}
}

// Do waits for a free slot and runs fn in the calling goroutine.
// It returns ctx's error without running fn if ctx is done while waiting.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%s pool: %w", p.name, err)
	}
	defer p.sem.Release(1)

	p.inFlight.Add(1)
	defer p.inFlight.Add(-1)

	return fn(ctx)
}

// Name returns the pool name.
func (p *Pool) Name() string {
	return p.name
}

// Size returns the maximum concurrency.
func (p *Pool) Size() int {
	return p.size
}

// InFlight returns the number of functions currently running.
func (p *Pool) InFlight() int {
	return int(p.inFlight.Load())
}
