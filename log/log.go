// Package log is the leveled logger shared by the NSS module and its tools.
//
// Every call takes a context first so that handlers can attach call scoped
// information. The default handlers forward to [log/slog].
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

type (
	// Level is the log level for the logs.
	Level = slog.Level

	// Handler is the log handler function.
	Handler = func(_ context.Context, _ Level, format string, args ...interface{})
)

const (
	// ErrorLevel level. Used for errors that should definitely be noted.
	ErrorLevel = slog.LevelError
	// WarnLevel level. Non-critical entries that deserve eyes.
	WarnLevel = slog.LevelWarn
	// NoticeLevel level. Normal but significant conditions. slog doesn't have a Notice level,
	// so we use the average between Info and Warn.
	NoticeLevel = (slog.LevelInfo + slog.LevelWarn) / 2
	// InfoLevel level. General operational entries about what's going on inside the module.
	InfoLevel = slog.LevelInfo
	// DebugLevel level. Usually only enabled when debugging. Very verbose logging.
	DebugLevel = slog.LevelDebug
)

var (
	levelMu sync.RWMutex
	level   = NoticeLevel

	output atomic.Pointer[io.Writer]
)

var allLevels = []Level{DebugLevel, InfoLevel, NoticeLevel, WarnLevel, ErrorLevel}

func slogHandler(ctx context.Context, l Level, format string, args ...interface{}) {
	slog.Default().Log(ctx, l, fmt.Sprintf(format, args...))
}

var defaultHandlers = map[Level]Handler{
	DebugLevel:  slogHandler,
	InfoLevel:   slogHandler,
	NoticeLevel: slogHandler,
	WarnLevel:   slogHandler,
	ErrorLevel:  slogHandler,
}

var (
	handlersMu sync.RWMutex
	handlers   = maps.Clone(defaultHandlers)
)

func init() {
	SetOutput(os.Stderr)
}

// GetLevel returns the current log level.
func GetLevel() Level {
	levelMu.RLock()
	defer levelMu.RUnlock()
	return level
}

// SetLevel sets the log level and returns the previous one.
func SetLevel(l Level) (oldLevel Level) {
	levelMu.Lock()
	oldLevel = level
	level = l
	levelMu.Unlock()

	slog.SetLogLoggerLevel(l)
	if out := output.Load(); out != nil {
		SetOutput(*out)
	}
	return oldLevel
}

// ParseLevel converts a level name as found in configuration files to a [Level].
// The empty string maps to the default level.
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return NoticeLevel, nil
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "notice":
		return NoticeLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	}
	return NoticeLevel, fmt.Errorf("unknown log level %q", name)
}

// IsLevelEnabled checks if messages of the given level would be printed.
func IsLevelEnabled(l Level) bool {
	return isLevelEnabled(context.Background(), l)
}

func isLevelEnabled(ctx context.Context, l Level) bool {
	return l >= GetLevel() && slog.Default().Enabled(ctx, l)
}

// SetOutput sets the writer used by the default handlers.
func SetOutput(out io.Writer) {
	output.Store(&out)
	slog.SetDefault(slog.New(NewSimpleHandler(out, GetLevel())))
}

// SetLevelHandler overrides the handler of a given level. A nil handler restores the default one.
func SetLevelHandler(l Level, handler Handler) {
	handlersMu.Lock()
	defer handlersMu.Unlock()

	if handler == nil {
		h, ok := defaultHandlers[l]
		if !ok {
			return
		}
		handler = h
	}
	handlers[l] = handler
}

// SetHandler overrides the handler of all levels. A nil handler restores the defaults.
func SetHandler(handler Handler) {
	handlersMu.Lock()
	defer handlersMu.Unlock()

	if handler == nil {
		handlers = maps.Clone(defaultHandlers)
		return
	}
	for _, l := range allLevels {
		handlers[l] = handler
	}
}

func log(ctx context.Context, l Level, args ...interface{}) {
	if !isLevelEnabled(ctx, l) {
		return
	}
	logf(ctx, l, "%s", fmt.Sprint(args...))
}

func logf(ctx context.Context, l Level, format string, args ...interface{}) {
	if !isLevelEnabled(ctx, l) {
		return
	}

	handlersMu.RLock()
	handler := handlers[l]
	handlersMu.RUnlock()

	handler(ctx, l, format, args...)
}

// Debug outputs messages with the level [DebugLevel].
func Debug(ctx context.Context, args ...interface{}) {
	log(ctx, DebugLevel, args...)
}

// Debugf outputs messages with the level [DebugLevel].
func Debugf(ctx context.Context, format string, args ...interface{}) {
	logf(ctx, DebugLevel, format, args...)
}

// Info outputs messages with the level [InfoLevel].
func Info(ctx context.Context, args ...interface{}) {
	log(ctx, InfoLevel, args...)
}

// Infof outputs messages with the level [InfoLevel].
func Infof(ctx context.Context, format string, args ...interface{}) {
	logf(ctx, InfoLevel, format, args...)
}

// Notice outputs messages with the level [NoticeLevel].
func Notice(ctx context.Context, args ...interface{}) {
	log(ctx, NoticeLevel, args...)
}

// Noticef outputs messages with the level [NoticeLevel].
func Noticef(ctx context.Context, format string, args ...interface{}) {
	logf(ctx, NoticeLevel, format, args...)
}

// Warning outputs messages with the level [WarnLevel].
func Warning(ctx context.Context, args ...interface{}) {
	log(ctx, WarnLevel, args...)
}

// Warningf outputs messages with the level [WarnLevel].
func Warningf(ctx context.Context, format string, args ...interface{}) {
	logf(ctx, WarnLevel, format, args...)
}

// Error outputs messages with the level [ErrorLevel].
func Error(ctx context.Context, args ...interface{}) {
	log(ctx, ErrorLevel, args...)
}

// Errorf outputs messages with the level [ErrorLevel].
func Errorf(ctx context.Context, format string, args ...interface{}) {
	logf(ctx, ErrorLevel, format, args...)
}
