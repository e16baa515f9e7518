package pipeline

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageLifecycle(t *testing.T) {
	var ticks atomic.Uint64
	s := NewStage("test", -1, func() bool {
		ticks.Add(1)
		return true
	}, nil)

	require.False(t, s.Running())
	s.Start()
	require.True(t, s.Running())

	deadline := time.Now().Add(2 * time.Second)
	for ticks.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	require.Positive(t, ticks.Load())

	s.Stop()
	require.False(t, s.Running())

	settled := ticks.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, settled, ticks.Load(), "loop stopped ticking after Stop")
}

func TestStageStartIdempotent(t *testing.T) {
	var ticks atomic.Uint64
	s := NewStage("test", -1, func() bool {
		ticks.Add(1)
		time.Sleep(time.Millisecond)
		return true
	}, nil)

	s.Start()
	s.Start()
	s.Start()
	s.Stop()

	// a second runner would keep incrementing after the joined stop
	settled := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, settled, ticks.Load())
}

func TestStageStopWithoutStart(t *testing.T) {
	s := NewStage("test", -1, func() bool { return false }, nil)
	s.Stop() // must not hang or panic
	assert.False(t, s.Running())
}

func TestStageDrainRunsOnce(t *testing.T) {
	var drains atomic.Uint64
	s := NewStage("test", -1, func() bool { return false }, func() {
		drains.Add(1)
	})
	s.Start()
	s.Stop()
	assert.Equal(t, uint64(1), drains.Load())

	s.Start()
	s.Stop()
	assert.Equal(t, uint64(2), drains.Load(), "restart drains again")
}
