package waycore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScheduleFrameStateMachine(t *testing.T) {
	c := NewCompositor(CompositorOptions{})
	handle := NewMockOutputHandle("OUT-1")
	out := newOutput(1, handle, nil, "OUT-1", c)

	require.False(t, out.FramePending())
	require.False(t, out.NeedsFrame())

	out.ScheduleFrame()
	require.True(t, out.FramePending())
	require.False(t, out.NeedsFrame())
	require.Equal(t, 1, handle.ScheduleCalls())

	// A second schedule_frame while one is pending only sets needsFrame;
	// it must not issue a second backend call.
	out.ScheduleFrame()
	require.True(t, out.FramePending())
	require.True(t, out.NeedsFrame())
	require.Equal(t, 1, handle.ScheduleCalls())

	require.NoError(t, out.Render())
	require.False(t, out.NeedsFrame())
	// needsFrame was set, so Render must have scheduled a fresh frame.
	require.True(t, out.FramePending())
	require.Equal(t, 2, handle.ScheduleCalls())
}

func TestRenderClearsFramePendingAtEntry(t *testing.T) {
	c := NewCompositor(CompositorOptions{})
	handle := NewMockOutputHandle("OUT-1")
	out := newOutput(1, handle, nil, "OUT-1", c)

	out.ScheduleFrame()
	require.True(t, out.FramePending())

	require.NoError(t, out.Render())
	require.False(t, out.FramePending())
}

func TestRenderZeroCopyPassthroughWithNoRenderer(t *testing.T) {
	c := NewCompositor(CompositorOptions{})
	s := c.CreateSurface()
	buf := &MockBufferHandle{W: 4, H: 4, S: 16}
	s.Attach(buf, 0, 0)
	require.NoError(t, s.Commit())

	handle := NewMockOutputHandle("OUT-1")
	out := newOutput(1, handle, nil, "OUT-1", c)
	c.outputs = append(c.outputs, out)

	require.NoError(t, out.Render())
	require.Equal(t, 1, handle.CommitCalls())
}

func TestRenderUsesRendererWhenPresent(t *testing.T) {
	renderer := &MockRenderer{}
	c := NewCompositor(CompositorOptions{Renderer: renderer})
	s := c.CreateSurface()
	buf := &MockBufferHandle{W: 4, H: 4, S: 16}
	s.Attach(buf, 0, 0)
	require.NoError(t, s.Commit())

	handle := NewMockOutputHandle("OUT-1")
	out := newOutput(1, handle, nil, "OUT-1", c)
	c.outputs = append(c.outputs, out)

	require.NoError(t, out.Render())
	require.Equal(t, 1, renderer.BlitCalls())
	require.Equal(t, 1, handle.CommitCalls())
}

func TestRenderBackendFailureIsNonFatal(t *testing.T) {
	c := NewCompositor(CompositorOptions{})
	s := c.CreateSurface()
	buf := &MockBufferHandle{W: 4, H: 4, S: 16}
	s.Attach(buf, 0, 0)
	require.NoError(t, s.Commit())

	handle := NewMockOutputHandle("OUT-1")
	handle.SetCommitError(errors.New("backend commit failed"))
	out := newOutput(1, handle, nil, "OUT-1", c)
	c.outputs = append(c.outputs, out)

	err := out.Render()
	require.Error(t, err)
	require.True(t, IsCode(err, ErrCodeBackend))
	// The output stays alive (not removed from the compositor) after a
	// single backend failure.
	require.Contains(t, c.Outputs(), out)
}

func TestRenderMarksOutputUnusableAfterConsecutiveFailures(t *testing.T) {
	c := NewCompositor(CompositorOptions{})
	s := c.CreateSurface()
	buf := &MockBufferHandle{W: 4, H: 4, S: 16}
	s.Attach(buf, 0, 0)
	require.NoError(t, s.Commit())

	handle := NewMockOutputHandle("OUT-1")
	handle.SetCommitError(errors.New("backend commit failed"))

	impl := NewMockBackendImplementation("mock")
	coord := newTestCoordinator(t, impl)
	require.True(t, coord.Start())

	out := newOutput(1, handle, impl, "OUT-1", c)
	c.coordinator = coord
	c.outputs = append(c.outputs, out)

	for i := 0; i < MaxConsecutiveBackendFailures; i++ {
		_ = out.Render()
	}
	require.True(t, out.Unusable())

	// Once unusable, the output drops out of the schedule/render cycle:
	// no further backend requests, no further commit attempts.
	scheduleCalls := handle.ScheduleCalls()
	commitCalls := handle.CommitCalls()

	out.ScheduleFrame()
	require.False(t, out.FramePending())
	require.Equal(t, scheduleCalls, handle.ScheduleCalls())

	c.ScheduleFrame()
	require.Equal(t, scheduleCalls, handle.ScheduleCalls())

	require.NoError(t, out.Render())
	require.Equal(t, commitCalls, handle.CommitCalls())
}

func TestSendFrameCallbacksClearsEveryMappedSurface(t *testing.T) {
	c := NewCompositor(CompositorOptions{})
	s1 := c.CreateSurface()
	s2 := c.CreateSurface()
	buf := &MockBufferHandle{W: 4, H: 4, S: 16}
	s1.Attach(buf, 0, 0)
	s2.Attach(buf, 0, 0)

	var fired1, fired2 bool
	require.NoError(t, s1.Frame(func(uint32) { fired1 = true }))
	require.NoError(t, s2.Frame(func(uint32) { fired2 = true }))
	require.NoError(t, s1.Commit())
	require.NoError(t, s2.Commit())

	handle := NewMockOutputHandle("OUT-1")
	out := newOutput(1, handle, nil, "OUT-1", c)
	c.outputs = append(c.outputs, out)
	require.NoError(t, out.Render())

	require.True(t, fired1)
	require.True(t, fired2)
	// Two mapped surfaces must still produce exactly one backend commit:
	// Output.Render commits once after compositing every mapped surface,
	// not once per surface.
	require.Equal(t, 1, handle.CommitCalls())
}
