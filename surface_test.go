package waycore

import (
	"image"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAttachCommitMapsSurface(t *testing.T) {
	c := NewCompositor(CompositorOptions{})
	s := c.CreateSurface()
	buf := &MockBufferHandle{W: 4, H: 4, S: 16}

	s.Attach(buf, 0, 0)
	require.False(t, s.Mapped())

	require.NoError(t, s.Commit())
	require.True(t, s.Mapped())
	require.Equal(t, BufferHandle(buf), s.CurrentBuffer())
}

func TestCommitPopulatesCurrentSizeFromBuffer(t *testing.T) {
	c := NewCompositor(CompositorOptions{})
	s := c.CreateSurface()
	buf := &MockBufferHandle{W: 7, H: 9, S: 28}

	s.Attach(buf, 0, 0)
	require.NoError(t, s.Commit())

	width, height := s.CurrentSize()
	require.Equal(t, 7, width)
	require.Equal(t, 9, height)

	// Detaching (attach nil, commit) must clear the committed size rather
	// than leave the previous buffer's dimensions behind.
	s.Attach(nil, 0, 0)
	require.NoError(t, s.Commit())

	width, height = s.CurrentSize()
	require.Equal(t, 0, width)
	require.Equal(t, 0, height)
}

func TestCommitTwiceKeepsSurfaceMapped(t *testing.T) {
	c := NewCompositor(CompositorOptions{})
	s := c.CreateSurface()
	buf := &MockBufferHandle{W: 4, H: 4, S: 16}

	s.Attach(buf, 0, 0)
	require.NoError(t, s.Commit())
	require.True(t, s.Mapped())

	// A second commit with no intervening attach must leave the committed
	// buffer in place: the buffer is sticky, only attach re-arms it.
	require.NoError(t, s.Commit())
	require.True(t, s.Mapped())
	require.Equal(t, BufferHandle(buf), s.CurrentBuffer())

	width, height := s.CurrentSize()
	require.Equal(t, 4, width)
	require.Equal(t, 4, height)
}

func TestCommitClearsPendingState(t *testing.T) {
	c := NewCompositor(CompositorOptions{})
	s := c.CreateSurface()
	buf := &MockBufferHandle{W: 4, H: 4, S: 16}

	s.Attach(buf, 3, 4)
	s.DamageSurface(image.Rect(0, 0, 10, 10))
	s.DamageBuffer(image.Rect(0, 0, 10, 10))
	require.NoError(t, s.Frame(func(uint32) {}))

	require.NoError(t, s.Commit())

	require.Nil(t, s.pending.buffer)
	require.Empty(t, s.pending.surfaceDamage)
	require.Empty(t, s.pending.bufferDamage)
	require.Empty(t, s.pending.frameCallbacks)
}

func TestFrameCallbackDispatchedOnRender(t *testing.T) {
	c := NewCompositor(CompositorOptions{})
	s := c.CreateSurface()
	buf := &MockBufferHandle{W: 4, H: 4, S: 16}
	s.Attach(buf, 0, 0)

	var fired bool
	var gotTS uint32
	require.NoError(t, s.Frame(func(ts uint32) {
		fired = true
		gotTS = ts
	}))
	require.NoError(t, s.Commit())

	require.Len(t, s.current.frameCallbacks, 1)

	out := newOutput(1, NewMockOutputHandle("OUT-1"), nil, "OUT-1", c)
	c.outputs = append(c.outputs, out)
	require.NoError(t, out.Render())

	require.True(t, fired)
	require.NotZero(t, gotTS)
	require.Empty(t, s.current.frameCallbacks)
}

func TestFrameThenDestroyNeverFires(t *testing.T) {
	c := NewCompositor(CompositorOptions{})
	s := c.CreateSurface()

	var fired bool
	require.NoError(t, s.Frame(func(uint32) { fired = true }))

	c.DestroySurface(s, DestroyReasonClientDisconnect)

	require.False(t, fired)
}

func TestCommitReplacesUnfiredFrameCallbacksWithoutFiring(t *testing.T) {
	c := NewCompositor(CompositorOptions{})
	s := c.CreateSurface()
	buf := &MockBufferHandle{W: 4, H: 4, S: 16}
	s.Attach(buf, 0, 0)

	var firstFired bool
	require.NoError(t, s.Frame(func(uint32) { firstFired = true }))
	require.NoError(t, s.Commit())
	require.Len(t, s.current.frameCallbacks, 1)

	// A second commit with no new frame request replaces (empties) the
	// callback list; the stale callback from the first commit must never
	// fire since it was never dispatched via render.
	s.Attach(buf, 0, 0)
	require.NoError(t, s.Commit())

	require.Empty(t, s.current.frameCallbacks)
	require.False(t, firstFired)
}

func TestSetRoleConflict(t *testing.T) {
	c := NewCompositor(CompositorOptions{})
	s := c.CreateSurface()

	require.NoError(t, s.SetRole(RoleToplevel, nil))
	err := s.SetRole(RolePopup, nil)
	require.ErrorIs(t, err, ErrRoleConflict)
	require.NoError(t, s.SetRole(RoleToplevel, nil))
}

func TestSetRoleSameRoleTwiceIsIdempotent(t *testing.T) {
	c := NewCompositor(CompositorOptions{})
	s := c.CreateSurface()

	require.NoError(t, s.SetRole(RoleCursor, nil))
	require.NoError(t, s.SetRole(RoleCursor, nil))
	require.Equal(t, RoleCursor, s.Role())
}

func TestSetScaleRejectsNonPositive(t *testing.T) {
	c := NewCompositor(CompositorOptions{})
	s := c.CreateSurface()

	require.Error(t, s.SetScale(0))
	require.Error(t, s.SetScale(-1))
	require.NoError(t, s.SetScale(2))
}

func TestSetScaleCommitIdempotence(t *testing.T) {
	c := NewCompositor(CompositorOptions{})
	s := c.CreateSurface()
	buf := &MockBufferHandle{W: 4, H: 4, S: 16}
	s.Attach(buf, 0, 0)
	require.NoError(t, s.Commit())

	require.NoError(t, s.SetScale(3))
	require.NoError(t, s.Commit())
	first := s.current.scale

	require.NoError(t, s.SetScale(3))
	require.NoError(t, s.Commit())
	require.Equal(t, first, s.current.scale)
	require.Equal(t, 3, s.current.scale)
}

func TestAddRemoveChild(t *testing.T) {
	c := NewCompositor(CompositorOptions{})
	parent := c.CreateSurface()
	child := c.CreateSurface()

	parent.AddChild(child)
	require.Equal(t, parent, child.Parent())
	require.Len(t, parent.Children(), 1)

	parent.RemoveChild(child)
	require.Nil(t, child.Parent())
	require.Empty(t, parent.Children())
}

func TestCommitRecursesIntoChildren(t *testing.T) {
	c := NewCompositor(CompositorOptions{})
	parent := c.CreateSurface()
	child := c.CreateSurface()
	parent.AddChild(child)

	buf := &MockBufferHandle{W: 4, H: 4, S: 16}
	child.Attach(buf, 0, 0)

	require.NoError(t, parent.Commit())
	require.True(t, child.Mapped())
}

func TestUnmappedSurfaceNeverImportedByRender(t *testing.T) {
	c := NewCompositor(CompositorOptions{})
	c.CreateSurface() // never attaches a buffer

	out := newOutput(1, NewMockOutputHandle("OUT-1"), nil, "OUT-1", c)
	c.outputs = append(c.outputs, out)

	// Render must treat the zero-mapped-surface case as the early-return
	// path, never attempting ImportBuffer on a nil handle.
	require.NoError(t, out.Render())
}

func TestFrameCallbackOrderWithinCommit(t *testing.T) {
	c := NewCompositor(CompositorOptions{})
	s := c.CreateSurface()
	buf := &MockBufferHandle{W: 4, H: 4, S: 16}
	s.Attach(buf, 0, 0)

	var order []int
	require.NoError(t, s.Frame(func(uint32) { order = append(order, 1) }))
	require.NoError(t, s.Frame(func(uint32) { order = append(order, 2) }))
	require.NoError(t, s.Commit())

	out := newOutput(1, NewMockOutputHandle("OUT-1"), nil, "OUT-1", c)
	c.outputs = append(c.outputs, out)
	require.NoError(t, out.Render())

	require.Equal(t, []int{1, 2}, order)
}
