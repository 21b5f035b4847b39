// Package pollring multiplexes the backend coordinator's poll-fd set. The
// default build waits on the set with unix.Poll; building with the
// "giouring" tag on Linux swaps in an io_uring-backed multiplexer that
// issues one IORING_OP_POLL_ADD per descriptor and waits on completions
// instead, avoiding a poll(2) syscall per event-loop tick.
package pollring

import "errors"

// ErrRingFull is returned when more descriptors are submitted in one Wait
// call than the ring has submission-queue capacity for.
var ErrRingFull = errors.New("pollring: submission queue full")

// Result reports one descriptor that became ready during a Wait call.
type Result struct {
	FD     int
	Events uint32
}

// Ring is the multiplexer contract the coordinator's event loop drives.
// A Ring is not safe for concurrent use; the coordinator owns it from a
// single goroutine, matching the single-threaded-cooperative model the
// rest of this module assumes.
type Ring interface {
	// Wait submits the given fds for readability polling (if not already
	// submitted) and blocks until at least one is ready or timeoutMs
	// elapses (a negative timeoutMs blocks indefinitely). It returns the
	// subset that became ready.
	Wait(fds []int, timeoutMs int) ([]Result, error)

	// Close releases ring resources. After Close, Wait must not be
	// called again.
	Close() error
}

// Features reports which multiplexer backend the build linked, so
// callers can log which one they ended up with.
type Features struct {
	Backend string // "io_uring" or "poll"
}
