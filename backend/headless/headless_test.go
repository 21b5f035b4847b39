package headless

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func pollOnce(fd int) (bool, error) {
	pfds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	n, err := unix.Poll(pfds, 0)
	if err != nil {
		return false, err
	}
	return n > 0 && pfds[0].Revents&unix.POLLIN != 0, nil
}

func TestHeadlessStartCreatesConfiguredOutputs(t *testing.T) {
	h := New(Config{NumOutputs: 2, FrameInterval: 5 * time.Millisecond}, nil)
	require.True(t, h.Start())
	defer h.Deinit()

	require.Len(t, h.Outputs(), 2)
	require.Len(t, h.PollFDs(), 2)
}

func TestHeadlessDefaultConfig(t *testing.T) {
	h := New(Config{}, nil)
	require.True(t, h.Start())
	defer h.Deinit()

	require.Len(t, h.Outputs(), 1)
}

func TestHeadlessScheduleFrameFiresDrainCallback(t *testing.T) {
	h := New(Config{NumOutputs: 1, FrameInterval: 2 * time.Millisecond}, nil)
	require.True(t, h.Start())
	defer h.Deinit()

	out := h.Outputs()[0]
	out.ScheduleFrame(0)

	fds := h.PollFDs()
	require.Len(t, fds, 1)

	// Give the background ticker a chance to observe the scheduled flag
	// and write to the pipe.
	deadline := time.After(200 * time.Millisecond)
	for {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for simulated frame-ready signal")
		default:
		}
		ready, err := pollOnce(fds[0].FD)
		if err == nil && ready {
			require.NoError(t, fds[0].Callback())
			return
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHeadlessBackendType(t *testing.T) {
	h := New(Config{}, nil)
	require.Equal(t, "headless", h.BackendType())
}

func TestHeadlessSupportedFormatsNonEmpty(t *testing.T) {
	h := New(Config{}, nil)
	require.NotEmpty(t, h.SupportedFormats())
}

func TestHeadlessPrimaryRenderNodeAbsent(t *testing.T) {
	h := New(Config{}, nil)
	_, ok := h.PrimaryRenderNode()
	require.False(t, ok)
}
