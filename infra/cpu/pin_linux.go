//go:build linux

package cpu

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Pin restricts the calling OS thread to a single logical CPU. The
// caller must hold runtime.LockOSThread for the pin to mean anything.
// Errors are swallowed: under cgroup or container restrictions the call
// may fail and the thread simply stays unpinned.
func Pin(core int) bool {
	if core < 0 {
		return false
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(core)
	return unix.SchedSetaffinity(0, &set) == nil
}

type schedParam struct {
	priority int32
}

// SetRealtime raises the calling thread to SCHED_FIFO at the given
// priority. Requires CAP_SYS_NICE; returns false when denied.
func SetRealtime(priority int) bool {
	param := schedParam{priority: int32(priority)}
	_, _, errno := unix.Syscall(
		unix.SYS_SCHED_SETSCHEDULER,
		0, // current thread
		uintptr(unix.SCHED_FIFO),
		uintptr(unsafe.Pointer(&param)),
	)
	return errno == 0
}
