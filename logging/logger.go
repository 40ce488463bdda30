// Package logging provides the leveled console logger used
// by the CLI, with optional ANSI colors and a file sink.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	red    = "\033[1;91m"
	green  = "\033[1;92m"
	yellow = "\033[1;93m"
	blue   = "\033[1;94m"
	cyan   = "\033[1;96m"
	reset  = "\033[0m"
)

type Options struct {
	// Verbose enables DEBUG lines.
	Verbose bool

	// NoColor disables ANSI colors even on a terminal.
	NoColor bool

	// LogFile, if set, receives an uncolored copy of every
	// line. The file is appended to.
	LogFile string
}

// Logger writes timestamped, leveled lines. ERROR lines go
// to stderr and everything else to stdout.
type Logger struct {
	mu      sync.Mutex
	stdout  io.Writer
	stderr  io.Writer
	color   bool
	verbose bool
	file    *os.File
}

// New creates a Logger on os.Stdout and os.Stderr.
// Call Close when done if opts.LogFile was set.
func New(opts Options) (*Logger, error) {
	color := !opts.NoColor && isTerminal(os.Stdout) && os.Getenv("NO_COLOR") == "" &&
		strings.ToLower(os.Getenv("TERM")) != "dumb"
	l := NewWriters(os.Stdout, os.Stderr, opts.Verbose)
	l.color = color
	if opts.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(opts.LogFile), 0755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		l.file = f
	}
	return l, nil
}

// NewWriters creates an uncolored Logger on the given
// writers.
func NewWriters(stdout, stderr io.Writer, verbose bool) *Logger {
	return &Logger{stdout: stdout, stderr: stderr, verbose: verbose}
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Plain writes text to stdout without a timestamp or level.
// It is used for banners and blank separator lines.
func (l *Logger) Plain(format string, args ...interface{}) {
	text := fmt.Sprintf(format, args...)
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.stdout, text+"\n")
	if l.file != nil {
		_, _ = io.WriteString(l.file, text+"\n")
	}
}

func (l *Logger) line(level, color, text string) {
	ts := time.Now().Format("2006-01-02 15:04:05")
	l.mu.Lock()
	defer l.mu.Unlock()
	plain := ts + " [" + level + "] " + text + "\n"
	out := l.stdout
	if level == "ERROR" {
		out = l.stderr
	}
	if l.color {
		_, _ = io.WriteString(out, ts+" "+color+"["+level+"]"+reset+" "+text+"\n")
	} else {
		_, _ = io.WriteString(out, plain)
	}
	if l.file != nil {
		_, _ = io.WriteString(l.file, plain)
	}
}

// Info logs at INFO level.
func (l *Logger) Info(format string, args ...interface{}) {
	l.line("INFO", blue, fmt.Sprintf(format, args...))
}

// Success logs at SUCCESS level.
func (l *Logger) Success(format string, args ...interface{}) {
	l.line("SUCCESS", green, fmt.Sprintf(format, args...))
}

// Warn logs at WARN level.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.line("WARN", yellow, fmt.Sprintf(format, args...))
}

// Error logs at ERROR level, to stderr.
func (l *Logger) Error(format string, args ...interface{}) {
	l.line("ERROR", red, fmt.Sprintf(format, args...))
}

// Debug logs at DEBUG level when the logger is verbose.
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.verbose {
		return
	}
	l.line("DEBUG", cyan, fmt.Sprintf(format, args...))
}
