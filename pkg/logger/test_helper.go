package logger

import (
	"io"

	"github.com/rs/zerolog"
)

// NewTestLogger discards every event.
func NewTestLogger() Logger {
	return Nop()
}

// NewBufferedTestLogger writes debug and higher events to w as one JSON
// object per line, without timestamps. It leaves the global level alone so
// parallel tests do not interfere.
func NewBufferedTestLogger(w io.Writer) Logger {
	return Logger{Logger: zerolog.New(w).Level(zerolog.DebugLevel)}
}
