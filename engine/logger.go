package engine

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	logger     atomic.Pointer[zap.Logger]
	nopLogger  *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the engine's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	loggerOnce.Do(func() {
		nopLogger = zap.NewNop()
	})
	return nopLogger
}

// SetLogger replaces the engine logger. Passing nil restores the no-op logger.
func SetLogger(l *zap.Logger) {
	logger.Store(l)
}
