package logging

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

type CapturedMessage struct {
	Time    time.Time
	Level   Level
	Message string
}

type CapturedOutput []CapturedMessage

// CapturingLogger records every line in memory regardless of level.
type CapturingLogger struct {
	output []CapturedMessage
	lock   sync.Mutex
}

func (l *CapturingLogger) Info(format string, args ...interface{}) {
	l.record(LevelInfo, format, args...)
}

func (l *CapturingLogger) Success(format string, args ...interface{}) {
	l.record(LevelSuccess, format, args...)
}

func (l *CapturingLogger) Warning(format string, args ...interface{}) {
	l.record(LevelWarning, format, args...)
}

func (l *CapturingLogger) Error(format string, args ...interface{}) {
	l.record(LevelError, format, args...)
}

func (l *CapturingLogger) record(level Level, format string, args ...interface{}) {
	l.lock.Lock()
	l.output = append(l.output, CapturedMessage{Time: time.Now(), Level: level, Message: fmt.Sprintf(format, args...)})
	l.lock.Unlock()
}

func (l *CapturingLogger) Output() CapturedOutput {
	l.lock.Lock()
	ret := append([]CapturedMessage(nil), l.output...)
	l.lock.Unlock()
	return ret
}

// AtLevel returns the messages logged at the given level.
func (output CapturedOutput) AtLevel(level Level) []string {
	var ret []string
	for _, m := range output {
		if m.Level == level {
			ret = append(ret, m.Message)
		}
	}
	return ret
}

// Contains reports whether any message contains substr.
func (output CapturedOutput) Contains(substr string) bool {
	for _, m := range output {
		if strings.Contains(m.Message, substr) {
			return true
		}
	}
	return false
}

func (output CapturedOutput) Dump(dest io.Writer, prefix string) {
	for _, m := range output {
		fmt.Fprintf(dest, "%s[%s] %s %s\n",
			prefix,
			m.Time.Format(timestampFormat),
			m.Level,
			m.Message,
		)
	}
}
