package waycore

import "image"

// Role tags a Surface's presentation kind. Once set to a non-None value it
// is monotonic: Surface.SetRole rejects any later attempt to change it to
// a different non-None role.
type Role int

const (
	RoleNone Role = iota
	RoleToplevel
	RolePopup
	RoleSubsurface
	RoleCursor
)

func (r Role) String() string {
	switch r {
	case RoleToplevel:
		return "toplevel"
	case RolePopup:
		return "popup"
	case RoleSubsurface:
		return "subsurface"
	case RoleCursor:
		return "cursor"
	default:
		return "none"
	}
}

// FrameCallback is a single-shot notification fired once a surface's
// contents have been presented. It receives the presentation timestamp in
// milliseconds, truncated to 32 bits.
type FrameCallback func(timestampMs uint32)

// pendingState holds every mutation a client has made since the last
// commit. Every Surface method other than Commit writes only here.
type pendingState struct {
	// bufferAttached distinguishes "no attach since the last commit" from
	// an explicit Attach(nil) detach: the committed buffer is sticky and
	// only a new attach (or detach) replaces it.
	bufferAttached bool
	buffer         BufferHandle
	dx, dy         int
	scale          int
	transform      uint32

	surfaceDamage []image.Rectangle
	bufferDamage  []image.Rectangle
	opaqueRegion  []image.Rectangle
	inputRegion   []image.Rectangle

	frameCallbacks []FrameCallback
}

func newPendingState() pendingState {
	return pendingState{scale: 1}
}

// currentState holds the surface's committed state, as last produced by
// Commit. Nothing outside Commit ever writes to it.
type currentState struct {
	buffer    BufferHandle
	dx, dy    int
	scale     int
	transform uint32
	width     int
	height    int

	surfaceDamage []image.Rectangle
	bufferDamage  []image.Rectangle

	frameCallbacks []FrameCallback
}

// Surface is a client's double-buffered compositor object: pending
// mutations accumulate, Commit atomically promotes them to current state.
type Surface struct {
	id uint32

	role     Role
	roleData any

	pending pendingState
	current currentState

	mapped bool

	destroyed bool

	parent   *Surface
	children []*Surface

	// synchronized is plumbed through for the subsurface synchronized/
	// desynchronized distinction; the base commit algorithm ignores it and
	// always commits children unconditionally (see DESIGN.md).
	synchronized bool

	compositor *Compositor
}

func newSurface(id uint32, compositor *Compositor) *Surface {
	return &Surface{
		id:         id,
		pending:    newPendingState(),
		current:    currentState{scale: 1},
		compositor: compositor,
	}
}

// ID returns the surface's compositor-assigned identifier.
func (s *Surface) ID() uint32 { return s.id }

// Role returns the surface's current role.
func (s *Surface) Role() Role { return s.role }

// Mapped reports whether the surface has a committed buffer.
func (s *Surface) Mapped() bool { return s.mapped }

// CurrentBuffer exposes the committed state's buffer handle to the render
// path; it is read-only from the caller's perspective.
func (s *Surface) CurrentBuffer() BufferHandle { return s.current.buffer }

// CurrentSize returns the committed buffer's width and height, as captured
// at the last Commit. Both are 0 when the surface has no current buffer.
func (s *Surface) CurrentSize() (width, height int) {
	return s.current.width, s.current.height
}

// Attach stores a pending buffer attachment and surface-local offset.
// buffer may be nil (a detach), per Wayland's wl_surface.attach semantics.
func (s *Surface) Attach(buffer BufferHandle, dx, dy int) {
	s.pending.bufferAttached = true
	s.pending.buffer = buffer
	s.pending.dx = dx
	s.pending.dy = dy
}

// DamageSurface appends a surface-coordinate damage box to the pending
// state. Boxes are stored verbatim; no merging or clipping happens here.
func (s *Surface) DamageSurface(box image.Rectangle) {
	s.pending.surfaceDamage = append(s.pending.surfaceDamage, box)
}

// DamageBuffer appends a buffer-coordinate damage box to the pending
// state.
func (s *Surface) DamageBuffer(box image.Rectangle) {
	s.pending.bufferDamage = append(s.pending.bufferDamage, box)
}

// SetScale sets the pending buffer scale. Scale must be >= 1; a smaller
// value is a protocol error.
func (s *Surface) SetScale(scale int) error {
	if scale < 1 {
		return WrapError("set_scale", s.id, ErrCodeProtocol, nil)
	}
	s.pending.scale = scale
	return nil
}

// SetTransform sets the pending buffer transform (one of the eight
// wl_output.transform values; validated by the wire layer, not here).
func (s *Surface) SetTransform(transform uint32) {
	s.pending.transform = transform
}

// SetOpaqueRegion replaces the pending opaque region. A nil region clears
// it, matching wl_surface.set_opaque_region(NULL).
func (s *Surface) SetOpaqueRegion(region []image.Rectangle) {
	s.pending.opaqueRegion = region
}

// SetInputRegion replaces the pending input region.
func (s *Surface) SetInputRegion(region []image.Rectangle) {
	s.pending.inputRegion = region
}

// Frame appends a frame callback to the pending state, to be fired the
// first time the surface's pending contents (once committed) are
// presented. Returns a resource error if the pending list is already at
// capacity, surfaced to the caller per this module's resource-error
// policy rather than growing unbounded.
func (s *Surface) Frame(cb FrameCallback) error {
	if len(s.pending.frameCallbacks) >= MaxPendingFrameCallbacks {
		return WrapError("frame", s.id, ErrCodeResource, nil)
	}
	s.pending.frameCallbacks = append(s.pending.frameCallbacks, cb)
	return nil
}

// SetRole assigns a role to the surface. Re-assigning the same non-None
// role is idempotent success (see DESIGN.md's Open Question resolution);
// assigning a different non-None role once one is already set is a
// protocol error.
func (s *Surface) SetRole(role Role, data any) error {
	if s.role != RoleNone && s.role != role {
		if s.compositor != nil && s.compositor.metrics != nil {
			s.compositor.metrics.RecordRoleConflict()
		}
		return ErrRoleConflict
	}
	s.role = role
	s.roleData = data
	return nil
}

// AddChild establishes c as a subsurface child of s, setting c's parent
// back-link and appending c to s's ordered children list.
func (s *Surface) AddChild(c *Surface) {
	c.parent = s
	s.children = append(s.children, c)
}

// RemoveChild clears c's parent back-link and swap-removes it from s's
// children list. A no-op if c is not currently a child of s.
func (s *Surface) RemoveChild(c *Surface) {
	for i, child := range s.children {
		if child == c {
			last := len(s.children) - 1
			s.children[i] = s.children[last]
			s.children = s.children[:last]
			c.parent = nil
			return
		}
	}
}

// Children returns the surface's current ordered child list.
func (s *Surface) Children() []*Surface { return s.children }

// Parent returns the surface's parent, or nil if it has none.
func (s *Surface) Parent() *Surface { return s.parent }

// Commit atomically promotes pending state to current state. It performs,
// in order: buffer/geometry move, damage replace, frame-callback replace
// (destroying any callback still in current unfired), mapped recompute,
// conditional schedule_frame, and a recursive commit of every child in
// declaration order.
func (s *Surface) Commit() error {
	if s.destroyed {
		return ErrSurfaceDestroyed
	}

	// Step 1: move buffer/dx/dy/scale/transform; reset pending buffer.
	// The committed buffer is sticky: it only changes when an attach (or
	// an explicit detach) happened since the last commit.
	if s.pending.bufferAttached {
		s.current.buffer = s.pending.buffer
		s.current.dx = s.pending.dx
		s.current.dy = s.pending.dy
		if s.current.buffer != nil {
			s.current.width = s.current.buffer.Width()
			s.current.height = s.current.buffer.Height()
		} else {
			s.current.width = 0
			s.current.height = 0
		}
		s.pending.buffer = nil
		s.pending.bufferAttached = false
	}
	s.current.scale = s.pending.scale
	s.current.transform = s.pending.transform

	// Step 2: replace damage lists; reinitialize pending empty.
	s.current.surfaceDamage = s.pending.surfaceDamage
	s.current.bufferDamage = s.pending.bufferDamage
	s.pending.surfaceDamage = nil
	s.pending.bufferDamage = nil

	// Step 3: replace frame callbacks. Anything left in current from a
	// prior commit that never fired is destroyed here, not carried
	// forward and not fired; callbacks are replaced, never appended.
	s.current.frameCallbacks = s.pending.frameCallbacks
	s.pending.frameCallbacks = nil

	// Step 4: recompute mapped from the new current buffer.
	s.mapped = s.current.buffer != nil

	// Step 5: schedule a frame iff there's something to present and a
	// callback waiting on it.
	if s.current.buffer != nil && len(s.current.frameCallbacks) > 0 && s.compositor != nil {
		s.compositor.ScheduleFrame()
	}

	if s.compositor != nil && s.compositor.metrics != nil {
		s.compositor.metrics.RecordCommit()
	}

	// Step 6: commit children unconditionally, in declaration order.
	for _, child := range s.children {
		if err := child.Commit(); err != nil {
			return err
		}
	}

	return nil
}
