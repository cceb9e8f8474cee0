package services

import (
	"container/heap"
	"context"
	"sync"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

// waiter is a single pending request for the inference slot.
type waiter struct {
	priority domain.Priority
	seq      uint64
	granted  chan struct{}
	done     chan struct{}
	doneOnce sync.Once
}

// finish marks the waiter as finished or abandoned. Safe to call
// multiple times; only the first call has effect.
func (w *waiter) finish() {
	w.doneOnce.Do(func() {
		close(w.done)
	})
}

// waiterQueue is a min-heap ordered by priority, then arrival order.
type waiterQueue []*waiter

func (q waiterQueue) Len() int { return len(q) }

func (q waiterQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority < q[j].priority
	}
	return q[i].seq < q[j].seq
}

func (q waiterQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *waiterQueue) Push(x any) { *q = append(*q, x.(*waiter)) }

func (q *waiterQueue) Pop() any {
	old := *q
	n := len(old)
	w := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return w
}

// Scheduler serialises access to the inference backend. Exactly one
// holder owns the slot at a time; pending requests are granted in
// priority order, with arrival order breaking ties. Queries preempt
// queued embedding work, which preempts queued tagging work, but a
// request already holding the slot is never interrupted.
type Scheduler struct {
	mu      sync.Mutex
	queue   waiterQueue
	seq     uint64
	running bool

	wake   chan struct{}
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler. Call Start before use.
func NewScheduler() *Scheduler {
	return &Scheduler{
		wake: make(chan struct{}, 1),
	}
}

// Start launches the dispatch loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go s.dispatch()
}

// Stop shuts down the scheduler. Pending Acquire calls return
// ErrSchedulerStopped; the current slot holder is allowed to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
}

// Pending returns the number of queued requests not yet granted.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Acquire blocks until the caller is granted the inference slot, the
// context is cancelled, or the scheduler stops. On success the returned
// release function MUST be called exactly once to free the slot;
// deferring it immediately is the expected pattern.
func (s *Scheduler) Acquire(ctx context.Context, priority domain.Priority) (func(), error) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil, domain.ErrSchedulerStopped
	}
	w := &waiter{
		priority: priority,
		seq:      s.seq,
		granted:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.seq++
	heap.Push(&s.queue, w)
	stopCh := s.stopCh
	s.mu.Unlock()

	s.signal()

	select {
	case <-w.granted:
		return w.finish, nil
	case <-ctx.Done():
		// The dispatcher may have granted the slot concurrently.
		// Finishing the waiter covers both cases: a queued waiter is
		// skipped, a granted one releases the slot.
		w.finish()
		return nil, ctx.Err()
	case <-stopCh:
		w.finish()
		return nil, domain.ErrSchedulerStopped
	}
}

// Execute acquires the slot, runs fn, and releases the slot even if fn
// panics or returns an error.
func (s *Scheduler) Execute(ctx context.Context, priority domain.Priority, fn func(ctx context.Context) error) error {
	release, err := s.Acquire(ctx, priority)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}

// signal nudges the dispatch loop without blocking.
func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// dispatch grants the slot to one waiter at a time in queue order.
func (s *Scheduler) dispatch() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		case <-s.wake:
		}

		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			w := heap.Pop(&s.queue).(*waiter)
			s.mu.Unlock()

			// Skip waiters abandoned before they were granted.
			select {
			case <-w.done:
				continue
			default:
			}

			close(w.granted)

			select {
			case <-w.done:
			case <-s.stopCh:
				return
			}
		}
	}
}
