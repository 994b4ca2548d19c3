package crawl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrontierFIFO(t *testing.T) {
	f := NewFrontier()

	require.NoError(t, f.Push(&Task{URL: "a"}))
	require.NoError(t, f.Push(&Task{URL: "b"}))
	require.NoError(t, f.Push(&Task{URL: "c"}))

	ctx := context.Background()
	for _, want := range []string{"a", "b", "c"} {
		task, err := f.Pop(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, task.URL)
	}
}

func TestFrontierPopBlocksUntilPush(t *testing.T) {
	f := NewFrontier()

	got := make(chan *Task, 1)
	go func() {
		task, err := f.Pop(context.Background())
		if err == nil {
			got <- task
		}
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, f.Push(&Task{URL: "late"}))

	select {
	case task := <-got:
		assert.Equal(t, "late", task.URL)
	case <-time.After(2 * time.Second):
		t.Fatal("pop did not wake after push")
	}
}

func TestFrontierPopCancelled(t *testing.T) {
	f := NewFrontier()
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := f.Pop(ctx)
		errCh <- err
	}()

	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("pop did not return after cancellation")
	}
}

// Repeated cancellation of a blocked Pop must neither crash nor wedge the
// frontier for later consumers.
func TestFrontierPopCancelStress(t *testing.T) {
	f := NewFrontier()

	for i := 0; i < 2000; i++ {
		ctx, cancel := context.WithCancel(context.Background())

		errCh := make(chan error, 1)
		go func() {
			_, err := f.Pop(ctx)
			errCh <- err
		}()

		time.Sleep(50 * time.Microsecond)
		cancel()

		select {
		case err := <-errCh:
			require.ErrorIs(t, err, context.Canceled)
		case <-time.After(2 * time.Second):
			t.Fatal("pop did not return after cancellation")
		}
	}

	require.NoError(t, f.Push(&Task{URL: "after"}))
	task, err := f.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "after", task.URL)
}

// A push racing the cancellation either hands its task to the popper or
// leaves it queued; no task is ever lost.
func TestFrontierPopCancelPushRace(t *testing.T) {
	f := NewFrontier()

	const rounds = 500
	delivered := 0
	for i := 0; i < rounds; i++ {
		ctx, cancel := context.WithCancel(context.Background())

		errCh := make(chan error, 1)
		go func() {
			_, err := f.Pop(ctx)
			errCh <- err
		}()
		go func() {
			_ = f.Push(&Task{URL: "racer"})
		}()

		cancel()
		if err := <-errCh; err == nil {
			delivered++
		} else {
			require.ErrorIs(t, err, context.Canceled)
		}
	}

	queued := 0
	for f.Size() > 0 {
		_, err := f.Pop(context.Background())
		require.NoError(t, err)
		queued++
	}
	assert.Equal(t, rounds, delivered+queued)
}

func TestFrontierClose(t *testing.T) {
	f := NewFrontier()
	require.NoError(t, f.Push(&Task{URL: "a"}))

	f.Close()

	// Already-queued tasks still drain after close.
	task, err := f.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", task.URL)

	_, err = f.Pop(context.Background())
	assert.ErrorIs(t, err, ErrFrontierClosed)

	assert.ErrorIs(t, f.Push(&Task{URL: "b"}), ErrFrontierClosed)
}

func TestSeenSetAddOnce(t *testing.T) {
	s := newSeenSet()

	assert.True(t, s.add("https://x/bus/1"))
	assert.False(t, s.add("https://x/bus/1"))
	assert.True(t, s.add("https://x/bus/2"))
}
