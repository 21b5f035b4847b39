package constants

import "time"

// Default configuration constants
const (
	// DefaultScale is the output scale factor applied when a backend does
	// not report one of its own.
	DefaultScale = 1

	// DefaultRefreshMilliHz is the refresh rate assumed for an output that
	// has not yet reported a mode, expressed in mHz (60000 == 60Hz).
	DefaultRefreshMilliHz = 60000

	// MaxPendingFrameCallbacks bounds how many frame callbacks a single
	// surface commit may queue before Frame starts rejecting new ones.
	// Clients that never process frame events should not be able to grow
	// this list without bound.
	MaxPendingFrameCallbacks = 64

	// MaxConsecutiveBackendFailures is the count of consecutive render
	// failures, tallied per backend implementation by the coordinator, at
	// which the Output whose render failed marks itself unusable and stops
	// being scheduled.
	MaxConsecutiveBackendFailures = 8

	// MinSocketIndex and MaxSocketIndex bound the search for a free
	// wayland-N display socket name.
	MinSocketIndex = 0
	MaxSocketIndex = 32
)

// Timing constants for the event loop and shutdown.
const (
	// EventLoopTickTimeout bounds how long the coordinator's event loop
	// blocks waiting for a ready descriptor. A backend that stops
	// signaling (headless with no frame scheduled, an unplugged monitor)
	// must not park the loop forever, since cancellation and per-tick
	// bookkeeping are only observed between waits.
	EventLoopTickTimeout = 1 * time.Second

	// ShutdownGracePeriod is how long the process waits for the event
	// loop to observe a shutdown signal and return before giving up on a
	// clean exit.
	ShutdownGracePeriod = 2 * time.Second
)

// Buffer import constants.
const (
	// StagingBufferSmall, StagingBufferMedium and StagingBufferLarge are the
	// size classes used by the buffer import pool, matching the bucket
	// sizes a compositor typically needs for SHM staging copies: small UI
	// chrome, a single output's worth of damage, and a full-output copy.
	StagingBufferSmall  = 128 * 1024
	StagingBufferMedium = 1 << 20
	StagingBufferLarge  = 4 << 20
)
