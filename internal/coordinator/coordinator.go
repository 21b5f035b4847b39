// Package coordinator aggregates backend implementations into a single
// event source: one cached, explicitly-invalidated poll set, one primary
// renderer selection, and the event-loop tick that drives everything else
// in this module.
package coordinator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/waycore/waycore/internal/backendiface"
	"github.com/waycore/waycore/internal/constants"
	"github.com/waycore/waycore/internal/pollring"
)

// Options configures a Coordinator.
type Options struct {
	Logger   backendiface.Logger
	Observer backendiface.Observer
}

// DefaultOptions returns an Options with a no-op observer and no logger.
func DefaultOptions() *Options {
	return &Options{Observer: backendiface.NoOpObserver{}}
}

// Coordinator aggregates N backend implementations behind one poll set.
//
// It is driven from a single goroutine (Run); every exported method other
// than Run is meant to be called from that same goroutine or before Run
// starts, matching the single-threaded-cooperative model the rest of this
// module assumes. No mutex guards the fields below.
type Coordinator struct {
	logger   backendiface.Logger
	observer backendiface.Observer

	implementations []backendiface.Implementation

	primaryRenderer    int
	hasPrimaryRenderer bool

	idleFD int
	ring   pollring.Ring

	pollCache  []backendiface.PollFD
	pollFDNums []int
	cacheValid bool

	fdCallbacks map[int]func() error

	onTopologyChange func()

	consecutiveFailures map[backendiface.Implementation]int
}

// Create builds a Coordinator over the given implementations in the order
// provided. Implementations are not started until Start is called.
func Create(opts *Options, implementations []backendiface.Implementation) (*Coordinator, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Observer == nil {
		opts.Observer = backendiface.NoOpObserver{}
	}

	ring, err := pollring.NewRing()
	if err != nil {
		return nil, fmt.Errorf("coordinator: create ring: %w", err)
	}

	idleFD, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err == unix.EMFILE || err == unix.ENFILE {
		// fd exhaustion is often transient (a client in the middle of
		// disconnecting); retry once before giving up.
		time.Sleep(10 * time.Millisecond)
		idleFD, err = unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	}
	if err != nil {
		ring.Close()
		return nil, fmt.Errorf("coordinator: create idle fd: %w", err)
	}

	return &Coordinator{
		logger:              opts.Logger,
		observer:            opts.Observer,
		implementations:     append([]backendiface.Implementation(nil), implementations...),
		idleFD:              idleFD,
		ring:                ring,
		fdCallbacks:         make(map[int]func() error),
		consecutiveFailures: make(map[backendiface.Implementation]int),
	}, nil
}

// Start starts every implementation in order. An implementation that fails
// to start is dropped from the list (invalidating the cache); Start
// returns false only if every implementation failed.
func (c *Coordinator) Start() bool {
	var survivors []backendiface.Implementation
	for _, impl := range c.implementations {
		if impl.Start() {
			survivors = append(survivors, impl)
		} else if c.logger != nil {
			c.logger.Warnf("backend %q failed to start", impl.BackendType())
		}
	}
	c.implementations = survivors
	c.InvalidatePollFDs()

	c.hasPrimaryRenderer = false
	for _, impl := range c.implementations {
		if fd, ok := impl.PrimaryRenderNode(); ok {
			c.primaryRenderer = fd
			c.hasPrimaryRenderer = true
			break
		}
	}

	return len(c.implementations) > 0
}

// PrimaryRenderer returns the render node fd chosen at Start, if any.
func (c *Coordinator) PrimaryRenderer() (int, bool) {
	return c.primaryRenderer, c.hasPrimaryRenderer
}

// Implementations returns the currently active implementation list.
func (c *Coordinator) Implementations() []backendiface.Implementation {
	return c.implementations
}

// InvalidatePollFDs drops the cached poll set; the next GetPollFDs call
// rebuilds it. Implementations must call this (indirectly, via the
// Coordinator they were registered with) whenever their own fd set or the
// coordinator's implementation list changes.
func (c *Coordinator) InvalidatePollFDs() {
	c.cacheValid = false
}

// GetPollFDs returns the cached poll set, rebuilding it first if the cache
// was invalidated. While the cache is valid, repeated calls return the
// same backing slice (pointer-equal), matching the hot-path contract the
// event loop depends on to avoid a per-tick allocation.
func (c *Coordinator) GetPollFDs() []backendiface.PollFD {
	if c.cacheValid {
		return c.pollCache
	}

	var fds []backendiface.PollFD
	c.fdCallbacks = make(map[int]func() error)
	for _, impl := range c.implementations {
		fds = append(fds, impl.PollFDs()...)
	}
	if c.idleFD >= 0 {
		fds = append(fds, backendiface.PollFD{FD: c.idleFD})
	}
	nums := make([]int, len(fds))
	for i, pfd := range fds {
		nums[i] = pfd.FD
		if pfd.Callback != nil {
			c.fdCallbacks[pfd.FD] = pfd.Callback
		}
	}

	c.pollCache = fds
	c.pollFDNums = nums
	c.cacheValid = true
	return c.pollCache
}

// SetTopologyCallback registers fn to run whenever an implementation
// reports an output/input topology change via NotifyTopologyChange.
// Typically wired by the compositor to reconcile its Output list against
// the implementations' current outputs.
func (c *Coordinator) SetTopologyCallback(fn func()) {
	c.onTopologyChange = fn
}

// NotifyTopologyChange is called by an implementation when its outputs,
// inputs, or fd set changed (output hotplug, device add/remove). It
// invalidates the poll cache and runs the registered topology callback.
func (c *Coordinator) NotifyTopologyChange() {
	c.InvalidatePollFDs()
	if c.onTopologyChange != nil {
		c.onTopologyChange()
	}
}

// InputCapabilities ORs together the capability bits of every input
// device across every implementation, producing the bitmask a wire layer
// advertises on the seat global.
func (c *Coordinator) InputCapabilities() backendiface.InputCapabilities {
	var caps backendiface.InputCapabilities
	for _, impl := range c.implementations {
		for _, in := range impl.Inputs() {
			caps |= in.Capabilities()
		}
	}
	return caps
}

// WakeIdle signals the idle fd, waking a blocked Run call without any
// implementation becoming ready. It touches only the idle fd, so code
// outside the event-loop goroutine may call it to nudge the loop into
// running idle work sooner.
func (c *Coordinator) WakeIdle() error {
	var buf [8]byte
	buf[7] = 1
	_, err := unix.Write(c.idleFD, buf[:])
	if err != nil && err != unix.EAGAIN {
		return err
	}
	return nil
}

func (c *Coordinator) drainIdle() {
	var buf [8]byte
	unix.Read(c.idleFD, buf[:])
}

// Run drives the event loop until ctx is cancelled. Each tick: obtain the
// poll set, wait on it with a bounded timeout so idle callbacks still run
// periodically even with no ready descriptor, dispatch ready callbacks,
// then call OnReady on every implementation.
func (c *Coordinator) Run(ctx context.Context) error {
	timeoutMs := int(constants.EventLoopTickTimeout / time.Millisecond)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		// GetPollFDs keeps pollFDNums in sync with the cache, so the hot
		// path below allocates nothing while the cache stays valid.
		c.GetPollFDs()

		results, err := c.ring.Wait(c.pollFDNums, timeoutMs)
		if err != nil {
			if c.logger != nil {
				c.logger.Errorf("poll wait failed: %v", err)
			}
			return err
		}

		for _, res := range results {
			if res.FD == c.idleFD {
				c.drainIdle()
				continue
			}
			cb, ok := c.fdCallbacks[res.FD]
			if !ok || cb == nil {
				continue
			}
			if err := cb(); err != nil && c.logger != nil {
				c.logger.Warnf("poll callback error on fd %d: %v", res.FD, err)
			}
		}

		for _, impl := range c.implementations {
			impl.OnReady()
		}

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

// Deinit stops every implementation in order and releases coordinator
// resources. Deinit is idempotent only in the sense that calling it twice
// on an already-deinited idle fd is a programmer error; callers are
// expected to call it exactly once during shutdown.
func (c *Coordinator) Deinit() {
	for _, impl := range c.implementations {
		impl.Deinit()
	}
	c.implementations = nil
	c.InvalidatePollFDs()

	if c.idleFD >= 0 {
		unix.Close(c.idleFD)
		c.idleFD = -1
	}
	if c.ring != nil {
		c.ring.Close()
	}
}

// RecordBackendFailure increments the consecutive-failure count for impl
// and reports whether it has crossed MaxConsecutiveBackendFailures, at
// which point the caller (typically waycore.Output.Render) should treat
// the backend as unusable.
func (c *Coordinator) RecordBackendFailure(impl backendiface.Implementation) bool {
	c.consecutiveFailures[impl]++
	if c.observer != nil {
		c.observer.RecordBackendError(impl.BackendType())
	}
	return c.consecutiveFailures[impl] >= constants.MaxConsecutiveBackendFailures
}

// RecordBackendSuccess resets the consecutive-failure count for impl.
func (c *Coordinator) RecordBackendSuccess(impl backendiface.Implementation) {
	c.consecutiveFailures[impl] = 0
}
