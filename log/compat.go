// Package log re-exports the structured logger the whole runtime writes
// through, under go-ethereum-style names: leveled, key/value context,
// never format strings.
package log

import (
	"context"
	"io"
	"log/slog"

	luxlog "github.com/luxfi/log"
)

// Logger is the structured logger handle.
type Logger = luxlog.Logger

const (
	LevelTrace slog.Level = -8
	LevelDebug            = slog.LevelDebug
	LevelInfo             = slog.LevelInfo
	LevelWarn             = slog.LevelWarn
	LevelError            = slog.LevelError
	LevelCrit  slog.Level = 12
)

// New returns a logger with the given context attached; Root is the
// process-wide logger.
var (
	New  = luxlog.New
	Root = luxlog.Root
)

func Trace(msg string, ctx ...interface{}) { luxlog.Root().Trace(msg, ctx...) }
func Debug(msg string, ctx ...interface{}) { luxlog.Root().Debug(msg, ctx...) }
func Info(msg string, ctx ...interface{})  { luxlog.Root().Info(msg, ctx...) }
func Warn(msg string, ctx ...interface{})  { luxlog.Root().Warn(msg, ctx...) }
func Error(msg string, ctx ...interface{}) { luxlog.Root().Error(msg, ctx...) }
func Crit(msg string, ctx ...interface{})  { luxlog.Root().Crit(msg, ctx...) }

// Enabled reports whether the root logger emits at the given level.
func Enabled(ctx context.Context, level slog.Level) bool {
	return luxlog.Root().Enabled(ctx, level)
}

// SetDefault replaces the process-wide logger.
func SetDefault(l Logger) {
	luxlog.SetDefault(l)
}

// LvlFromString resolves a level name.
func LvlFromString(lvlString string) (slog.Level, error) {
	level, err := luxlog.ToLevel(lvlString)
	return slog.Level(level), err
}

// DiscardHandler returns a handler that drops every record.
func DiscardHandler() slog.Handler {
	return slog.NewTextHandler(io.Discard, nil)
}
