package crawl

import (
	"context"
	"errors"
	"sync"
)

var ErrFrontierClosed = errors.New("frontier is closed")

// Frontier is the FIFO queue of pending crawl tasks. Pop blocks while the
// frontier is empty and open, and honors cancellation without touching
// frontier state.
type Frontier struct {
	mu     sync.Mutex
	tasks  []*Task
	closed bool

	// wake carries at most one pending wakeup. Pop re-arms it whenever
	// tasks remain, so every blocked consumer eventually runs.
	wake chan struct{}
}

func NewFrontier() *Frontier {
	return &Frontier{wake: make(chan struct{}, 1)}
}

func (f *Frontier) Push(task *Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrFrontierClosed
	}

	f.tasks = append(f.tasks, task)
	f.signal()

	return nil
}

// Pop returns the oldest task, blocking until one is available. Queued
// tasks still drain after Close; only an empty closed frontier reports
// ErrFrontierClosed.
func (f *Frontier) Pop(ctx context.Context) (*Task, error) {
	for {
		f.mu.Lock()
		if len(f.tasks) > 0 {
			task := f.tasks[0]
			f.tasks = f.tasks[1:]
			if len(f.tasks) > 0 && !f.closed {
				f.signal()
			}
			f.mu.Unlock()
			return task, nil
		}
		if f.closed {
			f.mu.Unlock()
			return nil, ErrFrontierClosed
		}
		f.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-f.wake:
		}
	}
}

func (f *Frontier) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true

	// A closed channel wakes every blocked consumer, now and later.
	close(f.wake)
}

// signal re-arms the wakeup slot. Callers hold f.mu and have checked
// closed, so the send can never race the close.
func (f *Frontier) signal() {
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

// seenSet deduplicates URLs within a single crawl run so every discovered
// detail page is enqueued exactly once.
type seenSet struct {
	mu   sync.Mutex
	urls map[string]struct{}
}

func newSeenSet() *seenSet {
	return &seenSet{urls: make(map[string]struct{})}
}

// add reports whether the URL was not seen before.
func (s *seenSet) add(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.urls[url]; ok {
		return false
	}
	s.urls[url] = struct{}{}
	return true
}
