package pipeline

import (
	"runtime"
	"sync"
	"sync/atomic"

	"tachyon/infra/cpu"
)

// Stage states.
const (
	stateStopped uint32 = iota
	stateRunning
	stateStopping
)

// Stage hosts one pipeline thread: locked to an OS thread, pinned to
// its configured core, spinning in the supplied loop body until asked
// to stop. Start and Stop are idempotent through atomic state
// transitions, so racing callers cannot double-launch or double-join.
type Stage struct {
	name  string
	core  int
	state atomic.Uint32
	wg    sync.WaitGroup

	// body is called repeatedly while the stage runs; it returns false
	// to yield nothing-to-do back to the spin loop (the return value
	// exists for instrumentation, the loop never sleeps either way).
	body func() bool

	// drain, if set, runs once after the loop exits.
	drain func()
}

func NewStage(name string, core int, body func() bool, drain func()) *Stage {
	return &Stage{name: name, core: core, body: body, drain: drain}
}

func (s *Stage) Name() string { return s.name }

// Start launches the stage thread. A no-op unless the stage is
// currently stopped.
func (s *Stage) Start() {
	if !s.state.CompareAndSwap(stateStopped, stateRunning) {
		return
	}
	s.wg.Add(1)
	go s.run()
}

// Stop requests exit and joins the thread. A no-op unless running.
func (s *Stage) Stop() {
	if !s.state.CompareAndSwap(stateRunning, stateStopping) {
		return
	}
	s.wg.Wait()
	s.state.Store(stateStopped)
}

func (s *Stage) Running() bool {
	return s.state.Load() == stateRunning
}

// realtimePriority is the SCHED_FIFO priority requested for pinned
// stages; denied without CAP_SYS_NICE, which is fine.
const realtimePriority = 10

func (s *Stage) run() {
	defer s.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if s.core >= 0 {
		cpu.Pin(s.core)
		cpu.SetRealtime(realtimePriority)
	}

	for s.state.Load() == stateRunning {
		s.body()
	}
	if s.drain != nil {
		s.drain()
	}
}
