package logger

import (
	"fmt"
	"strings"
	"sync"
)

// TestLogger captures log messages for assertions in tests. Views derived
// with WithField/WithFields/WithError record into the same sink as their
// parent.
type TestLogger struct {
	sink     *testSink
	bound    map[string]interface{}
	boundErr error
}

type testSink struct {
	mu       sync.Mutex
	messages []LogMessage
}

// LogMessage represents a captured log message
type LogMessage struct {
	Level   string
	Message string
	Fields  map[string]interface{}
	Error   error
}

// NewTestLogger creates a new test logger
func NewTestLogger() *TestLogger {
	return &TestLogger{sink: &testSink{}}
}

func (l *TestLogger) Debug(msg string) { l.log("DEBUG", msg, nil) }
func (l *TestLogger) Info(msg string)  { l.log("INFO", msg, nil) }
func (l *TestLogger) Warn(msg string)  { l.log("WARN", msg, nil) }
func (l *TestLogger) Error(msg string) { l.log("ERROR", msg, nil) }
func (l *TestLogger) Fatal(msg string) { l.log("FATAL", msg, nil) }

func (l *TestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	l.log("DEBUG", msg, fields)
}

func (l *TestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	l.log("INFO", msg, fields)
}

func (l *TestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	l.log("WARN", msg, fields)
}

func (l *TestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	l.log("ERROR", msg, fields)
}

func (l *TestLogger) WithField(key string, value interface{}) Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

func (l *TestLogger) WithFields(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.bound)+len(fields))
	for k, v := range l.bound {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &TestLogger{sink: l.sink, bound: merged, boundErr: l.boundErr}
}

func (l *TestLogger) WithError(err error) Logger {
	return &TestLogger{sink: l.sink, bound: l.bound, boundErr: err}
}

func (l *TestLogger) log(level, msg string, fields map[string]interface{}) {
	merged := fields
	if len(l.bound) > 0 {
		merged = make(map[string]interface{}, len(l.bound)+len(fields))
		for k, v := range l.bound {
			merged[k] = v
		}
		for k, v := range fields {
			merged[k] = v
		}
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.messages = append(l.sink.messages, LogMessage{
		Level:   level,
		Message: msg,
		Fields:  merged,
		Error:   l.boundErr,
	})
}

// GetMessages returns a copy of all captured log messages
func (l *TestLogger) GetMessages() []LogMessage {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	messages := make([]LogMessage, len(l.sink.messages))
	copy(messages, l.sink.messages)
	return messages
}

// GetMessagesByLevel returns all messages of a specific level
func (l *TestLogger) GetMessagesByLevel(level string) []LogMessage {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	var filtered []LogMessage
	for _, msg := range l.sink.messages {
		if msg.Level == level {
			filtered = append(filtered, msg)
		}
	}
	return filtered
}

// HasMessage checks if a message containing the given text was logged
func (l *TestLogger) HasMessage(text string) bool {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	for _, msg := range l.sink.messages {
		if strings.Contains(msg.Message, text) {
			return true
		}
	}
	return false
}

// Clear discards all captured messages
func (l *TestLogger) Clear() {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.messages = l.sink.messages[:0]
}

// String renders all captured messages, for test failure output
func (l *TestLogger) String() string {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	var b strings.Builder
	for _, msg := range l.sink.messages {
		fmt.Fprintf(&b, "[%s] %s", msg.Level, msg.Message)
		if len(msg.Fields) > 0 {
			fmt.Fprintf(&b, " fields=%v", msg.Fields)
		}
		b.WriteString("\n")
	}
	return b.String()
}
