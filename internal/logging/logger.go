// Package logging is a thin leveled wrapper around the standard logger.
package logging

import (
	"io"
	"log"
	"os"
)

// Logger writes timestamped lines. Debug lines are dropped unless enabled.
type Logger struct {
	l     *log.Logger
	debug bool
}

// New returns a logger writing to w.
func New(w io.Writer, debug bool) *Logger {
	return &Logger{l: log.New(w, "", log.Ltime|log.Lmicroseconds), debug: debug}
}

var std = New(os.Stderr, false)

// Default returns the logger writing to stderr.
func Default() *Logger { return std }

// Discard returns a logger that writes nothing.
func Discard() *Logger { return New(io.Discard, false) }

func (l *Logger) Infof(format string, v ...interface{}) {
	l.l.Printf(format, v...)
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	if l.debug {
		l.l.Printf("DEBUG "+format, v...)
	}
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	l.l.Printf("ERROR "+format, v...)
}
