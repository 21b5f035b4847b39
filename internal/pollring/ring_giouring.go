//go:build giouring && linux

package pollring

import (
	"fmt"
	"syscall"
	"time"

	"github.com/pawelgaczynski/giouring"
	"golang.org/x/sys/unix"
)

// ringEntries sizes the submission/completion queues generously relative
// to the poll set a compositor realistically holds (a handful of backend
// fds plus the idle fd), leaving headroom for bursts of invalidate-driven
// resubmission.
const ringEntries = 64

// NewRing constructs the io_uring-backed Ring. One poll-add SQE is
// submitted per descriptor passed to Wait that isn't already outstanding;
// completions are collected until at least one arrives or the timeout
// elapses.
func NewRing() (Ring, error) {
	ring, err := giouring.CreateRing(ringEntries)
	if err != nil {
		return nil, fmt.Errorf("pollring: create ring: %w", err)
	}
	return &uringRing{ring: ring, outstanding: make(map[int]bool)}, nil
}

// RingFeatures reports which multiplexer backend this build links.
func RingFeatures() Features {
	return Features{Backend: "io_uring"}
}

type uringRing struct {
	ring        *giouring.Ring
	outstanding map[int]bool
}

func (r *uringRing) Wait(fds []int, timeoutMs int) ([]Result, error) {
	submitted := false
	for _, fd := range fds {
		if r.outstanding[fd] {
			continue
		}
		sqe := r.ring.GetSQE()
		if sqe == nil {
			return nil, ErrRingFull
		}
		sqe.PreparePollAdd(fd, unix.POLLIN)
		sqe.UserData = uint64(fd)
		r.outstanding[fd] = true
		submitted = true
	}
	if submitted {
		if _, err := r.ring.Submit(); err != nil {
			return nil, fmt.Errorf("pollring: submit: %w", err)
		}
	}

	var cqe *giouring.CompletionQueueEvent
	var err error
	if timeoutMs < 0 {
		cqe, err = r.ring.WaitCQE()
	} else {
		ts := syscall.NsecToTimespec(int64(timeoutMs) * int64(time.Millisecond))
		cqe, err = r.ring.WaitCQETimeout(&ts)
	}
	if err != nil {
		// Timeout or interruption; the outstanding poll-adds stay queued.
		return nil, nil
	}

	ready := make([]Result, 0, 4)
	for cqe != nil {
		fd := int(cqe.UserData)
		delete(r.outstanding, fd)
		ready = append(ready, Result{FD: fd, Events: uint32(cqe.Res)})
		r.ring.CQESeen(cqe)
		cqe, _ = r.ring.PeekCQE()
	}
	return ready, nil
}

func (r *uringRing) Close() error {
	r.ring.QueueExit()
	return nil
}
