// SPDX-License-Identifier: MIT
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync/atomic"
)

// LogLevel defines the severity of a log message.
type LogLevel uint32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string (case-insensitive) to a LogLevel.
// Returns LevelInfo and false if the string is not recognized.
func ParseLevel(levelStr string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO", "":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

// --- Global Logger State ---

var currentLevel atomic.Uint32

// logger shows date and time with microseconds, frame timings are sub-millisecond.
var logger = stdlog.New(os.Stderr, "", stdlog.Ldate|stdlog.Ltime|stdlog.Lmicroseconds)

func init() {
	SetLevel(LevelInfo)
}

// SetLevel sets the global logging level atomically.
func SetLevel(level LogLevel) {
	currentLevel.Store(uint32(level))
}

// GetLevel gets the current global logging level atomically.
func GetLevel() LogLevel {
	return LogLevel(currentLevel.Load())
}

// SetOutput redirects all log output. Tests use it to capture lines.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

func shouldLog(level LogLevel) bool {
	return level >= GetLevel()
}

func emit(level LogLevel, scope, msg string) {
	if scope != "" {
		logger.Printf("[%-5s] %s: %s", level, scope, msg)
		return
	}
	logger.Printf("[%-5s] %s", level, msg)
}

// --- Package-level functions ---

func Debugf(format string, v ...any) { Scope("").Debugf(format, v...) }
func Infof(format string, v ...any)  { Scope("").Infof(format, v...) }
func Warnf(format string, v ...any)  { Scope("").Warnf(format, v...) }
func Errorf(format string, v ...any) { Scope("").Errorf(format, v...) }

// Fatalf logs a formatted fatal message and exits the application.
// Fatal messages are always logged regardless of the current level.
func Fatalf(format string, v ...any) {
	logger.Fatalf("[%-5s] %s", LevelFatal, fmt.Sprintf(format, v...))
}

// Scope is a logger that prefixes every line with a component name, e.g.
// "pipeline" or "display/ws".
type Scope string

func (s Scope) Debugf(format string, v ...any) {
	if shouldLog(LevelDebug) {
		emit(LevelDebug, string(s), fmt.Sprintf(format, v...))
	}
}

func (s Scope) Infof(format string, v ...any) {
	if shouldLog(LevelInfo) {
		emit(LevelInfo, string(s), fmt.Sprintf(format, v...))
	}
}

func (s Scope) Warnf(format string, v ...any) {
	if shouldLog(LevelWarn) {
		emit(LevelWarn, string(s), fmt.Sprintf(format, v...))
	}
}

func (s Scope) Errorf(format string, v ...any) {
	if shouldLog(LevelError) {
		emit(LevelError, string(s), fmt.Sprintf(format, v...))
	}
}
