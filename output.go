package waycore

import (
	"image"
	"time"

	"golang.org/x/sys/unix"

	"github.com/waycore/waycore/internal/backendiface"
)

// Renderer blits a client buffer into a swapchain buffer the backend
// output owns (the multi-GPU / format-conversion path). When a Compositor
// has no Renderer attached, Output.Render takes the zero-copy passthrough
// path instead, handing the imported client buffer directly to the
// backend output.
type Renderer interface {
	Blit(buf *Buffer) (*Buffer, error)
}

// Output is one physical or virtual display: a backend output handle, a
// human name, and the frame_pending/needs_frame scheduling state machine.
type Output struct {
	id             uint32
	backendOutput  backendiface.OutputHandle
	implementation backendiface.Implementation
	name           string

	framePending bool
	needsFrame   bool

	compositor *Compositor

	unusable bool
}

func newOutput(id uint32, handle backendiface.OutputHandle, impl backendiface.Implementation, name string, compositor *Compositor) *Output {
	return &Output{
		id:             id,
		backendOutput:  handle,
		implementation: impl,
		name:           name,
		compositor:     compositor,
	}
}

// ID returns the output's compositor-assigned identifier.
func (o *Output) ID() uint32 { return o.id }

// Name returns the output's human-readable name.
func (o *Output) Name() string { return o.name }

// Unusable reports whether this output has been marked dead after
// exceeding the consecutive backend-failure threshold.
func (o *Output) Unusable() bool { return o.unusable }

// FramePending and NeedsFrame expose the scheduling state machine for
// tests and diagnostics.
func (o *Output) FramePending() bool { return o.framePending }
func (o *Output) NeedsFrame() bool   { return o.needsFrame }

// ScheduleFrame requests a future frame. If a frame is already pending it
// merely sets needsFrame so a second frame is scheduled once the first
// one lands, rather than issuing a redundant backend request. An output
// marked unusable is never scheduled again.
func (o *Output) ScheduleFrame() {
	if o.unusable {
		return
	}
	if o.framePending {
		o.needsFrame = true
		return
	}
	o.backendOutput.ScheduleFrame(0)
	o.framePending = true
	o.needsFrame = false
}

// Render is invoked by the backend's frame-ready callback. It clears
// framePending at entry (before doing anything else, so a panic or early
// return never leaves the output stuck thinking a frame is still
// outstanding), composites every mapped surface, commits the backend
// output, then dispatches frame callbacks. If needsFrame is still set when
// Render returns, a fresh frame is scheduled immediately.
func (o *Output) Render() error {
	o.framePending = false

	// A frame-ready signal may still arrive for a request issued before
	// the output was marked unusable; drop it.
	if o.unusable {
		return nil
	}

	start := time.Now()

	renderer := o.compositor.renderer
	mapped := o.compositor.mappedSurfaces()

	if len(mapped) == 0 {
		o.SendFrameCallbacks(mapped)
		o.rescheduleIfNeeded()
		return nil
	}

	// Blit takes a single source buffer, so with more than one mapped
	// surface only the last imported/blitted buffer reaches CommitFrame;
	// composition of multiple surfaces into one target belongs to the
	// renderer, which this loop does not model.
	var bounds image.Rectangle
	var present *Buffer
	for _, surf := range mapped {
		buf, err := ImportBuffer(surf.CurrentBuffer())
		if err != nil {
			return o.fail(err)
		}
		if o.compositor.metrics != nil {
			o.compositor.metrics.RecordBufferImport()
		}
		w, h := surf.CurrentSize()
		bounds = bounds.Union(image.Rect(0, 0, w, h))

		present = buf
		if renderer != nil {
			if buf.SHM != nil {
				// The source bytes are client-owned and must not be read
				// past EndAccess, so the blit consumes a staged copy.
				staging, err := StageSharedMemory(buf.SHM)
				if err != nil {
					return o.fail(WrapError("render", o.id, ErrCodeResource, err))
				}
				defer PutStagingBuffer(staging)
				buf = &Buffer{SHM: buf.SHM.WithStagedBytes(staging)}
			}
			blitted, err := renderer.Blit(buf)
			if err != nil {
				return o.fail(WrapError("render", o.id, ErrCodeBackend, err))
			}
			present = blitted
		}
	}

	// Every mapped surface has been imported (and, with a renderer
	// attached, blitted into the swapchain buffer it owns); the backend
	// output is committed exactly once per render, after the loop.
	if err := o.backendOutput.CommitFrame(bounds, present); err != nil {
		return o.fail(WrapError("render", o.id, ErrCodeBackend, err))
	}

	if o.compositor.coordinator != nil && o.implementation != nil {
		o.compositor.coordinator.RecordBackendSuccess(o.implementation)
	}
	if o.compositor.metrics != nil {
		o.compositor.metrics.RecordFrame(time.Since(start))
	}

	o.SendFrameCallbacks(mapped)
	o.rescheduleIfNeeded()
	return nil
}

func (o *Output) fail(err error) error {
	if o.compositor.coordinator != nil && o.implementation != nil {
		if o.compositor.coordinator.RecordBackendFailure(o.implementation) {
			o.unusable = true
		}
	}
	if o.compositor.metrics != nil {
		o.compositor.metrics.RecordBackendError()
	}
	// A backend error is non-fatal: the Output remains and the next
	// schedule_frame retries, per this module's error-handling design.
	o.rescheduleIfNeeded()
	return err
}

func (o *Output) rescheduleIfNeeded() {
	if o.needsFrame {
		o.needsFrame = false
		o.ScheduleFrame()
	}
}

// SendFrameCallbacks reads the current monotonic time as milliseconds
// truncated to 32 bits and fires every frame callback queued on every
// mapped surface with that timestamp, clearing each surface's callback
// list afterward. Exported so tests can drive callback dispatch directly
// without going through a full Render.
func (o *Output) SendFrameCallbacks(mapped []*Surface) {
	var ts unix.Timespec
	_ = unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts)
	now := uint32(ts.Nano() / int64(time.Millisecond))
	for _, surf := range mapped {
		callbacks := surf.current.frameCallbacks
		surf.current.frameCallbacks = nil
		for _, cb := range callbacks {
			if cb != nil {
				cb(now)
			}
		}
	}
}
