package waycore

import "github.com/waycore/waycore/internal/constants"

// Re-exported tunables so callers of the root package don't need to import
// internal/constants directly; the values themselves live there as the one
// place every such constant is defined, per this module's ambient-stack
// conventions.
const (
	DefaultScale                  = constants.DefaultScale
	DefaultRefreshMilliHz         = constants.DefaultRefreshMilliHz
	MaxPendingFrameCallbacks      = constants.MaxPendingFrameCallbacks
	MaxConsecutiveBackendFailures = constants.MaxConsecutiveBackendFailures
)
