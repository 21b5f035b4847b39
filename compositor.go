package waycore

import (
	"fmt"
	"sync/atomic"

	"github.com/waycore/waycore/internal/backendiface"
	"github.com/waycore/waycore/internal/coordinator"
)

// DestroyReason records why a surface was torn down, for logging and for
// wire-layer error translation; it carries no behavior of its own.
type DestroyReason int

const (
	DestroyReasonClientRequest DestroyReason = iota
	DestroyReasonClientDisconnect
	DestroyReasonProtocolError
)

func (r DestroyReason) String() string {
	switch r {
	case DestroyReasonClientDisconnect:
		return "client_disconnect"
	case DestroyReasonProtocolError:
		return "protocol_error"
	default:
		return "client_request"
	}
}

// Compositor owns every Surface and Output in the process. It assigns
// dense, monotonic identifiers, exposes creation/destruction, and is the
// universal schedule_frame trigger path: Surface.Commit and any external
// repaint request both fan out through Compositor.ScheduleFrame.
type Compositor struct {
	surfaces []*Surface
	outputs  []*Output

	nextSurfaceID uint32
	nextOutputID  uint32
	serial        atomic.Uint32

	coordinator *coordinator.Coordinator
	renderer    Renderer
	metrics     *Metrics
	logger      backendiface.Logger

	onFatal func()
}

// CompositorOptions configures a new Compositor. A nil Metrics disables
// metrics recording entirely rather than substituting a no-op instance,
// so the hot path never touches an atomic it doesn't need to.
type CompositorOptions struct {
	Renderer Renderer
	Metrics  *Metrics
	Logger   backendiface.Logger
}

// NewCompositor constructs an empty Compositor with no surfaces, no
// outputs, and surface ids starting at 1.
func NewCompositor(opts CompositorOptions) *Compositor {
	return &Compositor{
		nextSurfaceID: 1,
		nextOutputID:  1,
		renderer:      opts.Renderer,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
	}
}

// CreateSurface allocates a new Surface with the next dense id and adds it
// to the compositor's ordered surface list.
func (c *Compositor) CreateSurface() *Surface {
	id := c.nextSurfaceID
	c.nextSurfaceID++
	s := newSurface(id, c)
	c.surfaces = append(c.surfaces, s)
	return s
}

// DestroySurface removes s from the compositor's surface list and clears
// its parent/child links so nothing still reachable from another surface
// keeps it alive. reason is logged but otherwise has no behavioral effect
// here; the wire layer is responsible for translating it into a client-
// visible disconnect or error where that differs by reason.
func (c *Compositor) DestroySurface(s *Surface, reason DestroyReason) {
	if s == nil {
		return
	}
	for i, existing := range c.surfaces {
		if existing == s {
			c.surfaces = append(c.surfaces[:i], c.surfaces[i+1:]...)
			break
		}
	}

	if s.parent != nil {
		s.parent.RemoveChild(s)
	}
	for _, child := range s.children {
		child.parent = nil
	}
	s.children = nil
	s.destroyed = true

	if c.logger != nil {
		c.logger.Debugf("surface %d destroyed: %s", s.id, reason)
	}
}

// Surfaces returns the compositor's current ordered surface list.
func (c *Compositor) Surfaces() []*Surface { return c.surfaces }

// Outputs returns the compositor's current ordered output list.
func (c *Compositor) Outputs() []*Output { return c.outputs }

// NextSerial returns a monotonically increasing 32-bit serial, used to
// correlate client/server configure-acknowledge handshakes. Wrap-around is
// not handled; serials are opaque to every consumer.
func (c *Compositor) NextSerial() uint32 {
	return c.serial.Add(1)
}

// SetRenderer installs the primary renderer used by every Output's render
// path. Passing nil switches every Output to the zero-copy passthrough
// path.
func (c *Compositor) SetRenderer(r Renderer) { c.renderer = r }

// Metrics returns the compositor's metrics instance, or nil if none was
// configured.
func (c *Compositor) Metrics() *Metrics { return c.metrics }

// CreateOutput wraps a backend output handle in a waycore.Output, assigns
// it the next dense id, and adds it to the compositor's ordered output
// list. impl is the backend implementation that owns handle; it is used
// to attribute consecutive-failure bookkeeping to the right backend.
func (c *Compositor) CreateOutput(handle backendiface.OutputHandle, name string, impl backendiface.Implementation) *Output {
	id := c.nextOutputID
	c.nextOutputID++
	o := newOutput(id, handle, impl, name, c)
	c.outputs = append(c.outputs, o)
	return o
}

// DestroyOutput removes o from the compositor's output list. Called when
// the backend reports the output removed, or at shutdown.
func (c *Compositor) DestroyOutput(o *Output) {
	if o == nil {
		return
	}
	for i, existing := range c.outputs {
		if existing == o {
			c.outputs = append(c.outputs[:i], c.outputs[i+1:]...)
			return
		}
	}
}

// ScheduleFrame is the universal repaint trigger: it calls ScheduleFrame
// on every output the compositor owns. With no outputs (the backend-less
// fallback) this is a no-op.
func (c *Compositor) ScheduleFrame() {
	for _, o := range c.outputs {
		o.ScheduleFrame()
	}
}

// mappedSurfaces returns every surface with a committed buffer, in
// compositor order, the render order frame callbacks depend on.
func (c *Compositor) mappedSurfaces() []*Surface {
	var mapped []*Surface
	for _, s := range c.surfaces {
		if s.mapped && s.current.buffer != nil {
			mapped = append(mapped, s)
		}
	}
	return mapped
}

// AttachBackend registers coord as the compositor's backend coordinator
// and, for every output already exposed by every one of coord's started
// implementations, creates a matching Output and wires the backend's
// frame-ready signal to that Output's Render. This is the "create
// resources, start them, handle partial failure" sequence described for
// the Compositor's backend-attach operation: implementations that failed
// to start are never seen here, since Coordinator.Start has already
// dropped them from its list by the time AttachBackend walks it.
func (c *Compositor) AttachBackend(coord *coordinator.Coordinator) error {
	if coord == nil {
		return fmt.Errorf("waycore: AttachBackend requires a non-nil coordinator")
	}
	c.coordinator = coord

	if r, ok := coord.PrimaryRenderer(); ok {
		if c.logger != nil {
			c.logger.Debugf("primary render node fd=%d", r)
		}
	}

	coord.SetTopologyCallback(c.reconcileOutputs)
	c.reconcileOutputs()
	return nil
}

// SetFatalHandler registers fn to run when the compositor loses its last
// output after having had at least one, the fatal condition that triggers
// graceful shutdown through the same path as signal cancellation.
func (c *Compositor) SetFatalHandler(fn func()) { c.onFatal = fn }

// reconcileOutputs brings the compositor's Output list in line with what
// the coordinator's implementations currently expose: unseen backend
// handles get a new Output (first implementation claiming a name wins),
// Outputs whose handle disappeared are destroyed. Runs once at
// AttachBackend and again on every backend topology change.
func (c *Compositor) reconcileOutputs() {
	if c.coordinator == nil {
		return
	}

	hadOutputs := len(c.outputs) > 0

	seenHandles := make(map[backendiface.OutputHandle]bool)
	seenNames := make(map[string]bool)
	for _, o := range c.outputs {
		seenNames[o.name] = true
	}
	for _, impl := range c.coordinator.Implementations() {
		for _, handle := range impl.Outputs() {
			seenHandles[handle] = true
			if c.outputForHandle(handle) != nil {
				continue
			}
			if seenNames[handle.Name()] {
				if c.logger != nil {
					c.logger.Warnf("output name %q already claimed, ignoring duplicate from backend %s", handle.Name(), impl.BackendType())
				}
				continue
			}
			seenNames[handle.Name()] = true
			c.attachOutput(handle, impl)
		}
	}

	stale := make([]*Output, 0)
	for _, o := range c.outputs {
		if !seenHandles[o.backendOutput] {
			stale = append(stale, o)
		}
	}
	for _, o := range stale {
		if c.logger != nil {
			c.logger.Infof("output %q removed by backend", o.name)
		}
		c.DestroyOutput(o)
	}

	if hadOutputs && len(c.outputs) == 0 && c.onFatal != nil {
		if c.logger != nil {
			c.logger.Errorf("all outputs lost")
		}
		c.onFatal()
	}
}

func (c *Compositor) outputForHandle(handle backendiface.OutputHandle) *Output {
	for _, o := range c.outputs {
		if o.backendOutput == handle {
			return o
		}
	}
	return nil
}

func (c *Compositor) attachOutput(handle backendiface.OutputHandle, impl backendiface.Implementation) *Output {
	out := c.CreateOutput(handle, handle.Name(), impl)
	handle.SetFrameReadyCallback(func() {
		if err := out.Render(); err != nil && c.logger != nil {
			c.logger.Warnf("output %q render failed: %v", out.Name(), err)
		}
	})
	if c.logger != nil {
		c.logger.Infof("output %q attached (backend=%s)", out.Name(), impl.BackendType())
	}
	return out
}
