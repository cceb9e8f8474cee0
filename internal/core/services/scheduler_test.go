package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

func waitForPending(t *testing.T, s *Scheduler, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return s.Pending() == n
	}, 2*time.Second, 5*time.Millisecond, "expected %d pending waiters", n)
}

func TestScheduler_AcquireRelease(t *testing.T) {
	s := NewScheduler()
	s.Start()
	defer s.Stop()

	release, err := s.Acquire(context.Background(), domain.PriorityQuery)
	require.NoError(t, err)
	release()
}

func TestScheduler_SingleFlight(t *testing.T) {
	s := NewScheduler()
	s.Start()
	defer s.Stop()

	var mu sync.Mutex
	active := 0
	maxActive := 0

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Execute(context.Background(), domain.PriorityEmbedding, func(context.Context) error {
				mu.Lock()
				active++
				if active > maxActive {
					maxActive = active
				}
				mu.Unlock()

				time.Sleep(2 * time.Millisecond)

				mu.Lock()
				active--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive, "only one holder may own the slot at a time")
}

func TestScheduler_PriorityOrder(t *testing.T) {
	s := NewScheduler()
	s.Start()
	defer s.Stop()

	// Occupy the slot so everything below queues behind it.
	release, err := s.Acquire(context.Background(), domain.PriorityQuery)
	require.NoError(t, err)

	order := make(chan domain.Priority, 3)
	var wg sync.WaitGroup

	enqueue := func(p domain.Priority) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rel, acquireErr := s.Acquire(context.Background(), p)
			require.NoError(t, acquireErr)
			order <- p
			rel()
		}()
	}

	// Enqueue in reverse priority order, waiting for each to register
	// so arrival order is deterministic.
	enqueue(domain.PriorityTagging)
	waitForPending(t, s, 1)
	enqueue(domain.PriorityEmbedding)
	waitForPending(t, s, 2)
	enqueue(domain.PriorityQuery)
	waitForPending(t, s, 3)

	release()
	wg.Wait()
	close(order)

	var got []domain.Priority
	for p := range order {
		got = append(got, p)
	}
	assert.Equal(t, []domain.Priority{domain.PriorityQuery, domain.PriorityEmbedding, domain.PriorityTagging}, got)
}

func TestScheduler_FIFOWithinPriority(t *testing.T) {
	s := NewScheduler()
	s.Start()
	defer s.Stop()

	release, err := s.Acquire(context.Background(), domain.PriorityQuery)
	require.NoError(t, err)

	order := make(chan int, 3)
	var wg sync.WaitGroup

	for i := 0; i < 3; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			rel, acquireErr := s.Acquire(context.Background(), domain.PriorityEmbedding)
			require.NoError(t, acquireErr)
			order <- i
			rel()
		}()
		waitForPending(t, s, i+1)
	}

	release()
	wg.Wait()
	close(order)

	var got []int
	for i := range order {
		got = append(got, i)
	}
	assert.Equal(t, []int{0, 1, 2}, got, "equal priorities must be granted in arrival order")
}

func TestScheduler_ContextCancelledWhileQueued(t *testing.T) {
	s := NewScheduler()
	s.Start()
	defer s.Stop()

	release, err := s.Acquire(context.Background(), domain.PriorityQuery)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, acquireErr := s.Acquire(ctx, domain.PriorityQuery)
		errCh <- acquireErr
	}()
	waitForPending(t, s, 1)

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	// The abandoned waiter must not block later requests.
	release()

	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	rel2, err := s.Acquire(ctx2, domain.PriorityTagging)
	require.NoError(t, err)
	rel2()
}

func TestScheduler_ExecuteReleasesOnError(t *testing.T) {
	s := NewScheduler()
	s.Start()
	defer s.Stop()

	wantErr := errors.New("backend exploded")
	err := s.Execute(context.Background(), domain.PriorityEmbedding, func(context.Context) error {
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)

	// Slot must be free again.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	release, err := s.Acquire(ctx, domain.PriorityQuery)
	require.NoError(t, err)
	release()
}

func TestScheduler_Stopped(t *testing.T) {
	s := NewScheduler()
	s.Start()
	s.Stop()

	_, err := s.Acquire(context.Background(), domain.PriorityQuery)
	require.ErrorIs(t, err, domain.ErrSchedulerStopped)
}

func TestScheduler_StopWakesQueuedWaiters(t *testing.T) {
	s := NewScheduler()
	s.Start()

	release, err := s.Acquire(context.Background(), domain.PriorityQuery)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, acquireErr := s.Acquire(context.Background(), domain.PriorityEmbedding)
		errCh <- acquireErr
	}()
	waitForPending(t, s, 1)

	release()
	// The queued waiter may have been granted between release and stop,
	// so accept either outcome but require it to return promptly.
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			require.ErrorIs(t, err, domain.ErrSchedulerStopped)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("queued waiter did not return after Stop")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
