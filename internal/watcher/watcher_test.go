package watcher

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchRunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	w := New(5*time.Millisecond, func(ctx context.Context) error {
		if runs.Add(1) == 3 {
			cancel()
		}
		return nil
	})

	err := w.Watch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(3), runs.Load())
}

func TestWatchRunsImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	w := New(time.Hour, func(ctx context.Context) error {
		runs.Add(1)
		cancel()
		return nil
	})

	assert.ErrorIs(t, w.Watch(ctx), context.Canceled)
	assert.Equal(t, int32(1), runs.Load())
}

func TestWatchGivesUp(t *testing.T) {
	boom := errors.New("remote down")
	var runs atomic.Int32
	w := New(time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return boom
	}).WithMaxFailures(3)

	err := w.Watch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(3), runs.Load())
}

func TestWatchFailureCountResets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// fail, fail, succeed, fail, fail, then stop: never three in a row
	results := []error{errors.New("1"), errors.New("2"), nil, errors.New("3"), errors.New("4")}
	var runs atomic.Int32
	w := New(time.Millisecond, func(ctx context.Context) error {
		n := int(runs.Add(1))
		if n > len(results) {
			cancel()
			return nil
		}
		return results[n-1]
	}).WithMaxFailures(3)

	assert.ErrorIs(t, w.Watch(ctx), context.Canceled)
	assert.Equal(t, int32(len(results)+1), runs.Load())
}

func TestWatchRejectsZeroInterval(t *testing.T) {
	err := New(0, func(ctx context.Context) error { return nil }).Watch(context.Background())
	assert.Error(t, err)
}
