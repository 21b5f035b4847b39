// Command waycored exercises the compositor core end-to-end against the
// headless backend. It exists to drive the render/commit loop under real
// wall-clock signals (SIGINT/SIGTERM, a ticking backend) without requiring
// a wire-protocol demultiplexer, which remains an external collaborator per
// this module's scope.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/waycore/waycore"
	"github.com/waycore/waycore/backend/headless"
	"github.com/waycore/waycore/internal/backendiface"
	"github.com/waycore/waycore/internal/constants"
	"github.com/waycore/waycore/internal/coordinator"
	"github.com/waycore/waycore/internal/logging"
	"github.com/waycore/waycore/internal/runtime"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		verbose    = flag.Bool("verbose", false, "enable debug-level logging")
		backendArg = flag.String("backend", "headless", "backend implementation to start (only \"headless\" is built in)")
		numOutputs = flag.Int("output", 1, "number of simulated outputs for the headless backend")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	if *backendArg != "headless" {
		logger.Error("unknown backend", "backend", *backendArg)
		return 1
	}

	runtimeDir, err := runtime.RuntimeDir()
	if err != nil {
		logger.Error("startup failed", "error", err)
		return 1
	}
	socketName, err := runtime.ChooseSocketName(runtimeDir)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return 1
	}
	os.Setenv("WAYLAND_DISPLAY", socketName)
	logger.Info("display socket chosen", "name", socketName)

	metrics := waycore.NewMetrics()
	compositor := waycore.NewCompositor(waycore.CompositorOptions{
		Metrics: metrics,
		Logger:  logger,
	})

	hl := headless.New(headless.Config{NumOutputs: *numOutputs}, logger)

	return runLoop(compositor, hl, logger)
}

// runLoop finishes the startup sequence run began: create and start the
// coordinator, attach the backend's outputs to the compositor, install the
// signal-driven shutdown path, and drive the event loop until a shutdown
// signal or a fatal error. It returns the process exit code: 0 on clean
// shutdown, 1 on startup failure, 2 on an unrecoverable loop error.
func runLoop(compositor *waycore.Compositor, hl *headless.Headless, logger *logging.Logger) int {
	coord, err := coordinator.Create(&coordinator.Options{
		Logger:   logger,
		Observer: waycore.MetricsObserver{Metrics: compositor.Metrics()},
	}, []backendiface.Implementation{hl})
	if err != nil {
		logger.Error("failed to create coordinator", "error", err)
		return 1
	}

	if !coord.Start() {
		logger.Error("no backend implementation started")
		return 1
	}
	defer coord.Deinit()

	if err := compositor.AttachBackend(coord); err != nil {
		logger.Error("failed to attach backend", "error", err)
		return 1
	}

	lifecycle := runtime.NewLifecycle(logger)
	stopWatching := lifecycle.WatchSignals()
	defer stopWatching()

	compositor.SetFatalHandler(lifecycle.RequestShutdown)
	logger.Info("seat capabilities", "mask", coord.InputCapabilities())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		for !lifecycle.ShuttingDown() {
			time.Sleep(50 * time.Millisecond)
		}
		cancel()
		// Watchdog: if the event loop never observes the cancellation,
		// force the unrecoverable-loop-error exit code instead of hanging.
		time.Sleep(constants.ShutdownGracePeriod)
		logger.Error("event loop did not stop within the grace period")
		os.Exit(2)
	}()

	logger.Info("compositor running", "outputs", len(compositor.Outputs()))
	compositor.ScheduleFrame()

	if err := coord.Run(ctx); err != nil {
		logger.Error("event loop error", "error", err)
		return 2
	}

	// Destroy walks snapshots: DestroyOutput/DestroySurface shift-remove
	// from the live lists, so ranging those directly would skip entries.
	outputs := append([]*waycore.Output(nil), compositor.Outputs()...)
	for _, out := range outputs {
		compositor.DestroyOutput(out)
	}
	surfaces := append([]*waycore.Surface(nil), compositor.Surfaces()...)
	for _, surf := range surfaces {
		compositor.DestroySurface(surf, waycore.DestroyReasonClientDisconnect)
	}

	fmt.Println("waycored: clean shutdown")
	return 0
}
