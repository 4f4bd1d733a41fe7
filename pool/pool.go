// Package pool bounds concurrent attempts against one backend.
//
// A Pool admits callers immediately while capacity is free and parks
// the rest in a priority-ordered wait queue. Queued callers are served
// highest priority first, FIFO within a priority band. A waiter that
// gives up (wait timeout or context cancellation) never corrupts the
// active count: a slot granted concurrently with the give-up is passed
// on to the next waiter.
package pool

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"
)

// ErrExhausted is returned when the wait for an admission slot itself
// times out. It is distinct from any timeout of the admitted operation.
var ErrExhausted = errors.New("pool: wait for admission slot timed out")

// Config configures a Pool.
type Config struct {
	// MaxConcurrent is the maximum number of concurrently admitted
	// callers.
	// Default: 10
	MaxConcurrent int

	// MaxWait is the maximum time a caller may wait for a slot.
	// Zero or negative means fail immediately when saturated.
	// Default: 0 (no waiting)
	MaxWait time.Duration
}

// Pool is a per-backend concurrency limiter with a priority queue.
type Pool struct {
	config Config

	mu        sync.Mutex
	active    int
	maxActive int
	rejected  int64
	seq       uint64
	queue     waitQueue
}

// New creates a new admission pool.
func New(config Config) *Pool {
	// Apply defaults
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}

	return &Pool{config: config}
}

// Acquire admits the caller or parks it until a slot frees, the wait
// times out, or ctx is cancelled. Higher priority values are served
// first. A nil return must be balanced by exactly one Release call.
func (p *Pool) Acquire(ctx context.Context, priority int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	if p.active < p.config.MaxConcurrent {
		p.admitLocked()
		p.mu.Unlock()
		return nil
	}

	if p.config.MaxWait <= 0 {
		p.rejected++
		p.mu.Unlock()
		return ErrExhausted
	}

	w := &waiter{
		priority: priority,
		seq:      p.seq,
		enqueued: time.Now(),
		ready:    make(chan struct{}),
	}
	p.seq++
	heap.Push(&p.queue, w)
	p.mu.Unlock()

	timer := time.NewTimer(p.config.MaxWait)
	defer timer.Stop()

	select {
	case <-w.ready:
		return nil
	case <-timer.C:
		p.mu.Lock()
		defer p.mu.Unlock()
		if w.served {
			// Lost the race: a slot was granted while the timer fired.
			// Pass it on so the counter stays consistent.
			p.releaseLocked()
			return ErrExhausted
		}
		heap.Remove(&p.queue, w.index)
		p.rejected++
		return ErrExhausted
	case <-ctx.Done():
		p.mu.Lock()
		defer p.mu.Unlock()
		if w.served {
			p.releaseLocked()
			return ctx.Err()
		}
		heap.Remove(&p.queue, w.index)
		return ctx.Err()
	}
}

// Release frees a slot. If waiters are queued, the slot is handed to
// the highest-priority one; otherwise the active count drops.
func (p *Pool) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releaseLocked()
}

// Do runs op inside an admission slot.
func (p *Pool) Do(ctx context.Context, priority int, op func(context.Context) error) error {
	if err := p.Acquire(ctx, priority); err != nil {
		return err
	}
	defer p.Release()

	return op(ctx)
}

func (p *Pool) admitLocked() {
	p.active++
	if p.active > p.maxActive {
		p.maxActive = p.active
	}
}

func (p *Pool) releaseLocked() {
	if p.queue.Len() > 0 {
		w := heap.Pop(&p.queue).(*waiter)
		w.served = true
		close(w.ready)
		// The slot transfers to the waiter; active stays unchanged.
		return
	}
	if p.active > 0 {
		p.active--
	}
}

// Snapshot contains the pool's current occupancy statistics.
type Snapshot struct {
	Active        int
	MaxActive     int
	MaxConcurrent int
	Queued        int
	Rejected      int64
}

// Snapshot returns a point-in-time view of the pool.
func (p *Pool) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Snapshot{
		Active:        p.active,
		MaxActive:     p.maxActive,
		MaxConcurrent: p.config.MaxConcurrent,
		Queued:        p.queue.Len(),
		Rejected:      p.rejected,
	}
}

// waiter is one parked Acquire call.
type waiter struct {
	priority int
	seq      uint64
	enqueued time.Time
	ready    chan struct{}
	index    int
	served   bool
}

// waitQueue orders waiters by priority (highest first), then by
// enqueue sequence (FIFO within a band).
type waitQueue []*waiter

func (q waitQueue) Len() int { return len(q) }

func (q waitQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority > q[j].priority
	}
	return q[i].seq < q[j].seq
}

func (q waitQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *waitQueue) Push(x any) {
	w := x.(*waiter)
	w.index = len(*q)
	*q = append(*q, w)
}

func (q *waitQueue) Pop() any {
	old := *q
	n := len(old)
	w := old[n-1]
	old[n-1] = nil
	w.index = -1
	*q = old[:n-1]
	return w
}
