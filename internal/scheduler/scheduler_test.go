package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobpulse-engine/internal/logging"
)

func TestAddRunsTask(t *testing.T) {
	s := New(context.Background(), logging.NewNop())

	var runs atomic.Int32
	require.NoError(t, s.Add("tick", "@every 1s", func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("logged, not fatal")
	}))
	assert.Equal(t, 1, s.Len())

	s.Start()
	defer s.Stop(context.Background())

	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
}

func TestAddEmptySpecDisablesTask(t *testing.T) {
	s := New(context.Background(), logging.NewNop())
	require.NoError(t, s.Add("off", "", func(context.Context) error { return nil }))
	assert.Zero(t, s.Len())
}

func TestAddRejectsBadSpec(t *testing.T) {
	s := New(context.Background(), logging.NewNop())
	err := s.Add("bad", "whenever", func(context.Context) error { return nil })
	assert.ErrorContains(t, err, "bad")
}

func TestTasksSkipAfterContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New(ctx, logging.NewNop())

	var runs atomic.Int32
	require.NoError(t, s.Add("tick", "@every 1s", func(context.Context) error {
		runs.Add(1)
		return nil
	}))
	s.Start()
	time.Sleep(1500 * time.Millisecond)
	s.Stop(context.Background())
	assert.Zero(t, runs.Load())
}
