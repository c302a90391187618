package common

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards every record. Enabled reports false so callers skip formatting.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger sets the logger shared by every package in this module.
// Logging is silent until SetLogger is called. Passing nil restores the silent logger.
//
// Levels used:
//   - slog.LevelDebug: buffer allocation, resize and flush details
//   - slog.LevelInfo: device and window lifecycle
//   - slog.LevelWarn: failed transfers that will be retried, dropped resources
//
// Parameters:
//   - l: the logger to use, or nil
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the current shared logger. It is safe for concurrent use.
//
// Returns:
//   - *slog.Logger: the current logger, never nil
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
