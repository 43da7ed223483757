// Package logging provides the leveled console logger used by the call executor
// and the CLI, plus capturing and null implementations for tests.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

const timestampFormat = "2006-01-02 15:04:05.000"

// Level identifies the severity of a log line.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "INFO"
	case LevelSuccess:
		return "SUCCESS"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is the leveled logging contract the executor writes to.
type Logger interface {
	Info(format string, args ...interface{})
	Success(format string, args ...interface{})
	Warning(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// ConsoleLogger writes colorized, timestamped lines to a writer. When keepLogs is
// false, Info and Success lines are dropped; warnings and errors are always written.
type ConsoleLogger struct {
	out      io.Writer
	keepLogs bool
	mu       sync.Mutex
	palette  map[Level]*color.Color
	now      func() time.Time
}

// NewConsoleLogger creates a ConsoleLogger. A nil writer means os.Stderr.
func NewConsoleLogger(out io.Writer, keepLogs bool) *ConsoleLogger {
	if out == nil {
		out = os.Stderr
	}
	return &ConsoleLogger{
		out:      out,
		keepLogs: keepLogs,
		palette: map[Level]*color.Color{
			LevelInfo:    color.New(color.FgCyan),
			LevelSuccess: color.New(color.FgGreen),
			LevelWarning: color.New(color.FgYellow),
			LevelError:   color.New(color.FgRed, color.Bold),
		},
		now: time.Now,
	}
}

// KeepLogs reports whether informational lines are written.
func (l *ConsoleLogger) KeepLogs() bool {
	return l.keepLogs
}

func (l *ConsoleLogger) Info(format string, args ...interface{}) {
	l.write(LevelInfo, format, args...)
}

func (l *ConsoleLogger) Success(format string, args ...interface{}) {
	l.write(LevelSuccess, format, args...)
}

func (l *ConsoleLogger) Warning(format string, args ...interface{}) {
	l.write(LevelWarning, format, args...)
}

func (l *ConsoleLogger) Error(format string, args ...interface{}) {
	l.write(LevelError, format, args...)
}

func (l *ConsoleLogger) write(level Level, format string, args ...interface{}) {
	if !l.keepLogs && level < LevelWarning {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.mu.Lock()
	defer l.mu.Unlock()
	tag := l.palette[level].Sprintf("%-7s", level)
	fmt.Fprintf(l.out, "[%s] %s %s\n", l.now().Format(timestampFormat), tag, msg)
}

type nullLogger struct{}

func (nullLogger) Info(string, ...interface{})    {}
func (nullLogger) Success(string, ...interface{}) {}
func (nullLogger) Warning(string, ...interface{}) {}
func (nullLogger) Error(string, ...interface{})   {}

// NullLogger returns a Logger that discards everything.
func NullLogger() Logger { return nullLogger{} }

type gatedLogger struct {
	Logger
}

func (gatedLogger) Info(string, ...interface{})    {}
func (gatedLogger) Success(string, ...interface{}) {}

// Gate returns l unchanged when keepLogs is true. Otherwise the result drops
// Info and Success lines and passes warnings and errors through.
func Gate(l Logger, keepLogs bool) Logger {
	if l == nil {
		return NullLogger()
	}
	if keepLogs {
		return l
	}
	return gatedLogger{Logger: l}
}
