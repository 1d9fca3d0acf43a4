package gpuimage

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// loggerPtr stores the active logger. Accessed atomically so that SetLogger
// can be called concurrently with logging from any context goroutine.
var loggerPtr atomic.Pointer[zap.Logger]

func init() {
	loggerPtr.Store(zap.NewNop())
}

// SetLogger configures the logger used by the pipeline. By default nothing is
// logged. Pass nil to restore the silent default.
//
// Levels used:
//   - Debug: uniform writes skipped, texture and program traffic
//   - Info: surface and renderer lifecycle
//   - Warn: shader compile failures, calls rejected for a non-current context
//   - Error: draw failures inside a frame
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger.
func Logger() *zap.Logger {
	return loggerPtr.Load()
}
