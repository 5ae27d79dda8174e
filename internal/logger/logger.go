package logger

import (
	"sync"
)

// Log levels used across the application.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

// Log outputs. Anything else is treated as a file path.
const (
	OutputStdout = "stdout"
	OutputStderr = "stderr"
)

var (
	// globalLogger holds the singleton logger instance.
	globalLogger *Logger
	once         sync.Once
)

// Get returns a singleton logger writing to stderr at the given level.
// The first call initializes the logger; later calls return the same instance.
func Get(level string) *Logger {
	once.Do(func() {
		globalLogger = newZapLogger(level, lockedStderr())
	})
	return globalLogger
}

// Init replaces the singleton with a logger for the given level and output.
// The dashboard owns stdout, so main calls this once config is known.
func Init(level, output string) (*Logger, error) {
	l, err := New(level, output)
	if err != nil {
		return nil, err
	}
	once.Do(func() {})
	globalLogger = l
	return l, nil
}
