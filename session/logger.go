package session

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

// Logger returns the package logger used by sessions created without
// WithLogger. It uses a no-op logger by default.
func Logger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	loggerOnce.Do(func() {
		nopLogger = zap.NewNop()
	})
	return nopLogger
}

// SetLogger replaces the package logger. Passing nil restores the no-op logger.
func SetLogger(l *zap.Logger) {
	logger.Store(l)
}
