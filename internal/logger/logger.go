// Package logger provides a simple leveled logger for the application.
// It supports three levels: off (no output), normal (info/warn/error),
// and verbose (includes debug). The logger is safe for concurrent use.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Level controls the verbosity of the logger.
type Level int

const (
	// LevelOff disables all log output.
	LevelOff Level = iota
	// LevelNormal enables info, warn, and error output.
	LevelNormal
	// LevelVerbose enables all output including debug.
	LevelVerbose
)

// String returns the flag/config spelling of the level.
func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelVerbose:
		return "verbose"
	default:
		return "normal"
	}
}

// ParseLevel maps a config value to a Level. Unknown names yield
// LevelNormal and false.
func ParseLevel(name string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "off", "quiet", "none":
		return LevelOff, true
	case "normal", "info", "":
		return LevelNormal, true
	case "verbose", "debug":
		return LevelVerbose, true
	}
	return LevelNormal, false
}

// levels is shared between a logger and the children made by Named, so
// SetLevel on any of them affects all.
type levels struct {
	mu    sync.RWMutex
	level Level
}

// Logger is a leveled logger. All methods are safe for concurrent use.
type Logger struct {
	lv     *levels
	prefix string
	debug  *log.Logger
	info   *log.Logger
	warn   *log.Logger
	errLog *log.Logger
}

// New creates a logger with the given level, writing to the given output.
// If out is nil, os.Stderr is used.
func New(level Level, out io.Writer) *Logger {
	if out == nil {
		out = os.Stderr
	}

	flags := log.Ltime

	return &Logger{
		lv:     &levels{level: level},
		debug:  log.New(out, "[DBG] ", flags),
		info:   log.New(out, "[INF] ", flags),
		warn:   log.New(out, "[WRN] ", flags),
		errLog: log.New(out, "[ERR] ", flags),
	}
}

// Named returns a child logger that prefixes every message with
// "component: ". Children share the parent's output and level.
func (l *Logger) Named(component string) *Logger {
	child := *l
	if l.prefix != "" {
		child.prefix = l.prefix + component + ": "
	} else {
		child.prefix = component + ": "
	}
	return &child
}

// SetLevel changes the log level at runtime.
func (l *Logger) SetLevel(level Level) {
	l.lv.mu.Lock()
	defer l.lv.mu.Unlock()
	l.lv.level = level
}

// GetLevel returns the current log level.
func (l *Logger) GetLevel() Level {
	l.lv.mu.RLock()
	defer l.lv.mu.RUnlock()
	return l.lv.level
}

func (l *Logger) enabled(min Level) bool {
	l.lv.mu.RLock()
	defer l.lv.mu.RUnlock()
	return l.lv.level >= min
}

// Debug logs a message at debug level (only visible in verbose mode).
func (l *Logger) Debug(format string, args ...any) {
	if l.enabled(LevelVerbose) {
		l.debug.Output(2, l.prefix+fmt.Sprintf(format, args...))
	}
}

// Info logs a message at info level.
func (l *Logger) Info(format string, args ...any) {
	if l.enabled(LevelNormal) {
		l.info.Output(2, l.prefix+fmt.Sprintf(format, args...))
	}
}

// Warn logs a message at warn level.
func (l *Logger) Warn(format string, args ...any) {
	if l.enabled(LevelNormal) {
		l.warn.Output(2, l.prefix+fmt.Sprintf(format, args...))
	}
}

// Error logs a message at error level.
func (l *Logger) Error(format string, args ...any) {
	if l.enabled(LevelNormal) {
		l.errLog.Output(2, l.prefix+fmt.Sprintf(format, args...))
	}
}
