// Package logging provides structured logging using bolt.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/felixgeelhaar/bolt/v3"
	"golang.org/x/term"
)

// Config configures the logger.
type Config struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string

	// Format is the output format (json, console or auto). Auto picks
	// console when Output is a terminal.
	Format string

	// Output is the output destination. Defaults to stderr so that stdout
	// only carries command output.
	Output io.Writer
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Level:  "warn",
		Format: "auto",
		Output: os.Stderr,
	}
}

// parseLevel converts a string level to bolt.Level.
func parseLevel(s string) bolt.Level {
	switch strings.ToLower(s) {
	case "trace":
		return bolt.TRACE
	case "debug":
		return bolt.DEBUG
	case "info":
		return bolt.INFO
	case "warn":
		return bolt.WARN
	case "error":
		return bolt.ERROR
	default:
		return bolt.INFO
	}
}

// ValidLevel reports whether s names a log level.
func ValidLevel(s string) bool {
	switch strings.ToLower(s) {
	case "trace", "debug", "info", "warn", "error":
		return true
	}
	return false
}

// ValidFormat reports whether s names an output format.
func ValidFormat(s string) bool {
	switch strings.ToLower(s) {
	case "json", "console", "auto":
		return true
	}
	return false
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// New creates a logger for config.
func New(config Config) *bolt.Logger {
	output := config.Output
	if output == nil {
		output = os.Stderr
	}

	var handler bolt.Handler
	switch strings.ToLower(config.Format) {
	case "json":
		handler = bolt.NewJSONHandler(output)
	case "console":
		handler = bolt.NewConsoleHandler(output)
	default:
		if isTerminal(output) {
			handler = bolt.NewConsoleHandler(output)
		} else {
			handler = bolt.NewJSONHandler(output)
		}
	}

	return bolt.New(handler).SetLevel(parseLevel(config.Level))
}

// Discard returns a logger that drops everything.
func Discard() *bolt.Logger {
	return bolt.New(bolt.NewJSONHandler(io.Discard)).SetLevel(bolt.ERROR)
}

// LogEvent is a wrapper that allows adding Fields to a bolt.Event.
type LogEvent struct {
	event *bolt.Event
}

// NewEvent wraps a bolt.Event and applies fields to it.
func NewEvent(e *bolt.Event, fields ...Field) *LogEvent {
	l := &LogEvent{event: e}
	for _, f := range fields {
		l.Add(f)
	}
	return l
}

// Add applies a field to the event and returns the wrapper for chaining.
func (l *LogEvent) Add(f Field) *LogEvent {
	if l.event != nil {
		l.event = f(l.event)
	}
	return l
}

// Msg sends the log event with a message.
func (l *LogEvent) Msg(msg string) {
	if l.event != nil {
		l.event.Msg(msg)
	}
}
