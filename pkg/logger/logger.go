// Package logger builds the process-wide zerolog logger.
//
// Call Init once from the command entry point; library code receives a
// zerolog.Logger through its constructor and tags it with Component.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options controls how the logger is built.
type Options struct {
	// Level is trace, debug, info, warn or error. Unknown values mean info.
	Level string
	// Console switches from JSON lines to coloured human-readable output.
	Console bool
	// Output defaults to os.Stderr so command output on stdout stays clean.
	Output io.Writer
	// Service, when set, is attached to every entry.
	Service string
}

var (
	mu       sync.Mutex
	instance *zerolog.Logger
)

// New builds a logger from opts without touching the process-wide one.
func New(opts Options) zerolog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if opts.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	lctx := zerolog.New(out).Level(ParseLevel(opts.Level)).With().Timestamp()
	if opts.Service != "" {
		lctx = lctx.Str("service", opts.Service)
	}
	if !opts.Console {
		lctx = lctx.Caller()
	}
	return lctx.Logger()
}

// Init builds the process-wide logger on first use and returns it. Later
// calls return the existing logger and ignore opts.
func Init(opts Options) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if instance != nil {
		return *instance
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	l := New(opts)
	instance = &l
	return l
}

// Get returns the logger built by Init. It panics when Init was never called.
func Get() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if instance == nil {
		panic("logger: Get called before Init")
	}
	return *instance
}

// Reset drops the process-wide logger. Tests only.
func Reset() {
	mu.Lock()
	instance = nil
	mu.Unlock()
}

// Component tags log with the subsystem that writes through it.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || s == "" || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
