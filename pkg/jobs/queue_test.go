package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesTasks(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[string]bool)

	q := New("test", func(_ context.Context, task Task) error {
		mu.Lock()
		seen[task.ID] = true
		mu.Unlock()
		return nil
	}, Options{Workers: 2})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Task{ID: "a", Kind: "noop"}))
	require.NoError(t, q.Enqueue(Task{ID: "b", Kind: "noop"}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen["a"] && seen["b"]
	}, 2*time.Second, 10*time.Millisecond)
}

func TestQueueRetriesFailedTasks(t *testing.T) {
	var mu sync.Mutex
	attempts := 0

	q := New("test", func(_ context.Context, _ Task) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	}, Options{Workers: 1, MaxRetries: 5, RetryDelay: 5 * time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Task{ID: "flaky", Kind: "noop"}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return attempts == 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEnqueueBeforeStartFails(t *testing.T) {
	q := New("test", func(_ context.Context, _ Task) error { return nil }, Options{})
	assert.Error(t, q.Enqueue(Task{ID: "early"}))
}

func TestEnqueueAfterStopFails(t *testing.T) {
	q := New("test", func(_ context.Context, _ Task) error { return nil }, Options{})
	q.Start(context.Background())
	q.Stop()
	assert.Error(t, q.Enqueue(Task{ID: "late"}))
}
