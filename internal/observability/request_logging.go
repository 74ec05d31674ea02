package observability

import "sync/atomic"

// requestLoggingEnabled controls whether per-request HTTP logging is emitted.
// Enabled by default; non-error requests are skipped when disabled.
var requestLoggingEnabled atomic.Bool

func init() {
	requestLoggingEnabled.Store(true)
}

// IsRequestLoggingEnabled reports whether per-request HTTP logging is enabled.
func IsRequestLoggingEnabled() bool {
	return requestLoggingEnabled.Load()
}

// SetRequestLogging enables or disables per-request HTTP logging.
func SetRequestLogging(enabled bool) {
	requestLoggingEnabled.Store(enabled)
}
