// Package backendiface defines the contract a backend implementation must
// satisfy to be aggregated by internal/coordinator. It lives in its own
// package, separate from both the root waycore package and the coordinator,
// so that concrete backends (backend/headless and out-of-tree drivers) can
// import it without pulling in the coordinator or the root package and
// without creating an import cycle back into either.
package backendiface

import "image"

// PollFD pairs a pollable descriptor with the callback the coordinator
// invokes when it becomes readable. Callback may be nil, in which case the
// descriptor is polled purely to wake the event loop (the idle fd uses this
// shape too, via the coordinator itself rather than an implementation).
type PollFD struct {
	FD       int
	Callback func() error
}

// OutputMode describes one display mode a backend output can run.
type OutputMode struct {
	Width, Height  int
	RefreshMilliHz int
	Preferred      bool
}

// OutputDescription carries the static properties a wire layer advertises
// on an output-global bind: manufacturer, model, physical dimensions in
// millimeters, and the output transform.
type OutputDescription struct {
	Make, Model      string
	PhysicalWidthMm  int
	PhysicalHeightMm int
	Transform        uint32
}

// OutputHandle is the backend-side handle for a single display surface the
// implementation exposes. The root waycore.Output wraps one of these.
type OutputHandle interface {
	// Name is a human-readable identifier, e.g. "HEADLESS-1" or "eDP-1".
	Name() string
	// Description returns the static advertisement properties for this
	// output.
	Description() OutputDescription
	// Modes lists the display modes this output supports; Modes()[0] is
	// the preferred mode when no entry has Preferred set.
	Modes() []OutputMode
	Scale() int

	// ScheduleFrame requests a future frame-ready notification. priority
	// is advisory; implementations that cannot distinguish priorities
	// treat every request identically.
	ScheduleFrame(priority int)

	// CommitFrame hands the composited result to the backend. bounds is
	// the damaged region, used by implementations that support partial
	// presentation; buf is the buffer to present, already imported via
	// internal/bufferimport.
	CommitFrame(bounds image.Rectangle, buf any) error

	// SetFrameReadyCallback registers the function the output handle calls
	// once it has finished draining its own frame-ready signal, so the
	// caller (waycore.Compositor.AttachBackend) can wire Output.Render to
	// fire without the implementation needing to know waycore exists.
	// Implementations call cb at most once per ScheduleFrame.
	SetFrameReadyCallback(cb func())
}

// InputHandle is a minimal input-device handle advertised by a backend
// implementation. Routing input events to surfaces is out of scope for
// this module; this exists only so capability bits can be aggregated for
// the seat global.
type InputHandle interface {
	Name() string
	Capabilities() InputCapabilities
}

// InputCapabilities is a bitmask of device classes a backend input exposes.
type InputCapabilities uint8

const (
	CapabilityPointer InputCapabilities = 1 << iota
	CapabilityKeyboard
	CapabilityTouch
)

// Implementation is the capability set every backend implementation (a
// direct-rendering driver, a nested/host-aware backend, or a headless
// backend) must satisfy. The coordinator treats every Implementation
// identically regardless of backend type.
type Implementation interface {
	// BackendType names the implementation, e.g. "drm", "headless",
	// "wayland-nested". Used for logging and for the --backend CLI flag.
	BackendType() string

	// Start brings the implementation up: opens devices, creates initial
	// outputs and inputs. A false return means the implementation could
	// not start at all; Start must leave no resources held in that case.
	Start() bool

	// PollFDs returns the descriptors the coordinator should multiplex on
	// behalf of this implementation. The returned slice is stable until
	// the implementation calls Coordinator.InvalidatePollFDs and must not
	// be mutated by the caller.
	PollFDs() []PollFD

	// PrimaryRenderNode returns an open fd to the render node this
	// implementation would prefer to be used as the primary renderer, or
	// ok=false if it has none (e.g. a headless backend with no GPU).
	PrimaryRenderNode() (fd int, ok bool)

	// SupportedFormats lists DMA buffer formats this implementation can
	// consume, as DRM fourcc codes.
	SupportedFormats() []uint32

	// OnReady is invoked once per event-loop tick after ready descriptors
	// have been dispatched, giving the implementation a chance to run any
	// per-tick bookkeeping that isn't tied to a specific fd.
	OnReady()

	// Deinit releases every resource Start acquired. Deinit is called at
	// most once, in coordinator order, during shutdown.
	Deinit()

	// Outputs and Inputs expose the implementation's current topology.
	// The coordinator reads these only after Start and after OnReady;
	// Implementations must call Coordinator.InvalidatePollFDs whenever
	// either list or the PollFDs set changes.
	Outputs() []OutputHandle
	Inputs() []InputHandle
}

// Logger is the printf-style logging contract a backend implementation may
// be handed at construction time, matching internal/logging.Logger.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Observer lets a caller plug a metrics sink into an implementation without
// the implementation depending on the waycore metrics package directly.
type Observer interface {
	RecordFrame(output string)
	RecordBackendError(output string)
}

// NoOpObserver discards every observation; it is the default when no
// Observer is supplied.
type NoOpObserver struct{}

func (NoOpObserver) RecordFrame(string)        {}
func (NoOpObserver) RecordBackendError(string) {}
