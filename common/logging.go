/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// Logger is the interface the crypt core and its callers log through. It is
// deliberately narrow (leveled, printf-style, no structured fields) so that
// wiring up a third-party logger is a thin adapter rather than a rewrite.
type Logger interface {
	Error(format string, args ...interface{})
	Warning(format string, args ...interface{})
	Notice(format string, args ...interface{})
	Info(format string, args ...interface{})
	Debug(format string, args ...interface{})
	Trace(format string, args ...interface{})
	IsLogLevel(level LogLevel) bool
}

// DummyLogger discards everything. It is the default so that importing this
// module never produces output a host application didn't ask for.
type DummyLogger struct{}

func (DummyLogger) Error(format string, args ...interface{})   {}
func (DummyLogger) Warning(format string, args ...interface{}) {}
func (DummyLogger) Notice(format string, args ...interface{})  {}
func (DummyLogger) Info(format string, args ...interface{})    {}
func (DummyLogger) Debug(format string, args ...interface{})   {}
func (DummyLogger) Trace(format string, args ...interface{})   {}

// IsLogLevel always reports true for DummyLogger so that callers which skip
// expensive argument construction behind an IsLogLevel guard still run it --
// there's no log level DummyLogger wouldn't happily discard.
func (DummyLogger) IsLogLevel(level LogLevel) bool { return true }

// LogLevel is the verbosity threshold for ConsoleLogger and WriterLogger.
// Lower numbers are more severe, so that the zero value is the quietest
// "errors only" setting rather than silence.
type LogLevel int

const (
	LogLevelError   LogLevel = iota // 0
	LogLevelWarning                 // 1
	LogLevelNotice                  // 2
	LogLevelInfo                    // 3
	LogLevelDebug                   // 4
	LogLevelTrace                   // 5
)

var levelPrefix = map[LogLevel]string{
	LogLevelError:   "[ERROR] ",
	LogLevelWarning: "[WARNING] ",
	LogLevelNotice:  "[NOTICE] ",
	LogLevelInfo:    "[INFO] ",
	LogLevelDebug:   "[DEBUG] ",
	LogLevelTrace:   "[TRACE] ",
}

// leveledLogger holds the one piece of logic ConsoleLogger and WriterLogger
// share -- "is this level enabled, and if so where does it go" -- so that
// the six Logger methods on each concrete type are one-line dispatchers
// instead of six copies of the same threshold check.
type leveledLogger struct {
	level  LogLevel
	output io.Writer
}

func (l leveledLogger) IsLogLevel(level LogLevel) bool { return l.level >= level }

func (l leveledLogger) log(level LogLevel, format string, args ...interface{}) {
	if l.level < level {
		return
	}
	// Caller depth: log -> {Error,Warning,...} -> the logger's own caller.
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		file, line = "???", 0
	} else {
		file = filepath.Base(file)
	}
	fmt.Fprintf(l.output, levelPrefix[level]+"%s:%d "+format+"\n", append([]interface{}{file, line}, args...)...)
}

// ConsoleLogger writes to os.Stdout, filtering by LogLevel.
type ConsoleLogger struct {
	leveledLogger
}

// NewConsoleLogger creates a logger that writes to os.Stdout at the given
// level.
func NewConsoleLogger(logLevel LogLevel) *ConsoleLogger {
	return &ConsoleLogger{leveledLogger{level: logLevel, output: os.Stdout}}
}

func (l ConsoleLogger) Error(format string, args ...interface{}) {
	l.log(LogLevelError, format, args...)
}
func (l ConsoleLogger) Warning(format string, args ...interface{}) {
	l.log(LogLevelWarning, format, args...)
}
func (l ConsoleLogger) Notice(format string, args ...interface{}) {
	l.log(LogLevelNotice, format, args...)
}
func (l ConsoleLogger) Info(format string, args ...interface{}) {
	l.log(LogLevelInfo, format, args...)
}
func (l ConsoleLogger) Debug(format string, args ...interface{}) {
	l.log(LogLevelDebug, format, args...)
}
func (l ConsoleLogger) Trace(format string, args ...interface{}) {
	l.log(LogLevelTrace, format, args...)
}

// WriterLogger is a ConsoleLogger that writes to an arbitrary io.Writer
// instead of os.Stdout -- useful for routing crypt-core diagnostics into a
// host application's own log file or test harness buffer.
type WriterLogger struct {
	leveledLogger
}

// NewWriterLogger creates a logger that writes to writer at the given level.
func NewWriterLogger(logLevel LogLevel, writer io.Writer) *WriterLogger {
	return &WriterLogger{leveledLogger{level: logLevel, output: writer}}
}

func (l WriterLogger) Error(format string, args ...interface{}) {
	l.log(LogLevelError, format, args...)
}
func (l WriterLogger) Warning(format string, args ...interface{}) {
	l.log(LogLevelWarning, format, args...)
}
func (l WriterLogger) Notice(format string, args ...interface{}) {
	l.log(LogLevelNotice, format, args...)
}
func (l WriterLogger) Info(format string, args ...interface{}) {
	l.log(LogLevelInfo, format, args...)
}
func (l WriterLogger) Debug(format string, args ...interface{}) {
	l.log(LogLevelDebug, format, args...)
}
func (l WriterLogger) Trace(format string, args ...interface{}) {
	l.log(LogLevelTrace, format, args...)
}

// Log is the package-wide logger every crypt-core component writes through.
var Log Logger = DummyLogger{}

// SetLogger installs logger as the package-wide Log, letting a host
// application redirect crypt-core diagnostics into its own logging stack.
func SetLogger(logger Logger) {
	Log = logger
}
