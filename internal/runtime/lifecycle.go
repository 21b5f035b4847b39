// Package runtime owns the process-wide state a compositor core is allowed
// to have: the shutdown-requested flag set from a signal handler, and the
// environment-driven startup checks (XDG_RUNTIME_DIR, WAYLAND_DISPLAY
// socket naming) that only make sense once per process.
package runtime

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"github.com/waycore/waycore/internal/backendiface"
	"github.com/waycore/waycore/internal/constants"
)

// Lifecycle tracks the single legitimate piece of process-wide state: a
// shutdown-requested flag. The signal-handling goroutine only ever sets
// the flag; it never calls back into compositor state directly, matching
// the event loop polling it on its own schedule instead.
type Lifecycle struct {
	shuttingDown atomic.Bool
	logger       backendiface.Logger
	stopSignals  chan os.Signal
}

// NewLifecycle constructs a Lifecycle. Call WatchSignals to begin
// forwarding SIGINT/SIGTERM into the shutdown flag.
func NewLifecycle(logger backendiface.Logger) *Lifecycle {
	return &Lifecycle{logger: logger}
}

// WatchSignals installs a signal handler that sets the shutdown flag on
// SIGINT or SIGTERM. It returns a function to stop watching and release
// the signal channel.
func (l *Lifecycle) WatchSignals() (stop func()) {
	l.stopSignals = make(chan os.Signal, 1)
	signal.Notify(l.stopSignals, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-l.stopSignals:
			l.shuttingDown.Store(true)
			if l.logger != nil {
				l.logger.Infof("received %v, shutting down", sig)
			}
		case <-done:
		}
	}()

	return func() {
		close(done)
		signal.Stop(l.stopSignals)
	}
}

// ShuttingDown reports whether a shutdown signal has been observed.
// cmd/waycored polls this from a watcher goroutine and cancels the event
// loop's context, which the loop checks between ticks; cancellation never
// interrupts an in-progress commit or render.
func (l *Lifecycle) ShuttingDown() bool {
	return l.shuttingDown.Load()
}

// RequestShutdown sets the shutdown flag programmatically, e.g. from the
// compositor's fatal handler when the last output is lost.
func (l *Lifecycle) RequestShutdown() {
	l.shuttingDown.Store(true)
}

// RuntimeDir validates XDG_RUNTIME_DIR and returns it. Startup fails if the
// variable is unset, per this module's environment contract.
func RuntimeDir() (string, error) {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		return "", fmt.Errorf("runtime: XDG_RUNTIME_DIR is required but unset")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("runtime: XDG_RUNTIME_DIR %q: %w", dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("runtime: XDG_RUNTIME_DIR %q is not a directory", dir)
	}
	return dir, nil
}

// ChooseSocketName picks the lowest free wayland-N socket name inside
// runtimeDir, by checking for the absence of both the socket path itself
// and its lock file, mirroring the naming convention a Wayland client
// library expects when it reads WAYLAND_DISPLAY.
func ChooseSocketName(runtimeDir string) (string, error) {
	for i := constants.MinSocketIndex; i < constants.MaxSocketIndex; i++ {
		name := fmt.Sprintf("wayland-%d", i)
		socketPath := filepath.Join(runtimeDir, name)
		lockPath := socketPath + ".lock"

		if _, err := os.Stat(socketPath); err == nil {
			continue
		}
		if _, err := os.Stat(lockPath); err == nil {
			continue
		}
		return name, nil
	}
	return "", fmt.Errorf("runtime: no free wayland-N socket name in range [%d,%d)", constants.MinSocketIndex, constants.MaxSocketIndex)
}
