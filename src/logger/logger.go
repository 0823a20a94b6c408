// Package logger defines the logging sink passed to every decent-ci component.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

// Logger defines the interface for logging throughout the application.
// Components receive one at construction; Default is only a convenience.
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

var (
	infoLabel  = color.New(color.FgGreen, color.Bold)
	warnLabel  = color.New(color.FgYellow, color.Bold)
	errorLabel = color.New(color.FgRed, color.Bold)
	debugLabel = color.New(color.FgCyan)
)

// ConsoleLogger writes human-readable logs to stdout/stderr.
type ConsoleLogger struct {
	mu      sync.Mutex
	out     io.Writer
	errOut  io.Writer
	verbose bool
}

// NewConsoleLogger creates a console logger. Debug lines are only written
// when verbose is set.
func NewConsoleLogger(verbose bool) *ConsoleLogger {
	return &ConsoleLogger{
		out:     os.Stdout,
		errOut:  os.Stderr,
		verbose: verbose,
	}
}

// NewWriterLogger creates a console logger writing both streams to w.
func NewWriterLogger(w io.Writer, verbose bool) *ConsoleLogger {
	return &ConsoleLogger{out: w, errOut: w, verbose: verbose}
}

func (c *ConsoleLogger) Info(msg string, args ...interface{}) {
	c.write(c.out, infoLabel, "[INFO]", msg, args...)
}

func (c *ConsoleLogger) Warn(msg string, args ...interface{}) {
	c.write(c.out, warnLabel, "[WARN]", msg, args...)
}

func (c *ConsoleLogger) Error(msg string, args ...interface{}) {
	c.write(c.errOut, errorLabel, "[ERROR]", msg, args...)
}

func (c *ConsoleLogger) Debug(msg string, args ...interface{}) {
	if !c.verbose {
		return
	}
	c.write(c.out, debugLabel, "[DEBUG]", msg, args...)
}

func (c *ConsoleLogger) write(w io.Writer, label *color.Color, prefix, msg string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(w, "%s %s\n", label.Sprint(prefix), fmt.Sprintf(msg, args...))
}

// SilentLogger discards all log messages.
// Used when running the TUI or the MCP stdio server.
type SilentLogger struct{}

func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

func (s *SilentLogger) Info(msg string, args ...interface{})  {}
func (s *SilentLogger) Warn(msg string, args ...interface{})  {}
func (s *SilentLogger) Error(msg string, args ...interface{}) {}
func (s *SilentLogger) Debug(msg string, args ...interface{}) {}

var (
	defaultMu     sync.RWMutex
	defaultLogger Logger = NewConsoleLogger(false)
)

// Default returns the process-wide logger.
func Default() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault replaces the process-wide logger. A nil logger is ignored.
func SetDefault(l Logger) {
	if l == nil {
		return
	}
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// OrDefault returns l, or the process-wide logger when l is nil.
func OrDefault(l Logger) Logger {
	if l == nil {
		return Default()
	}
	return l
}
