// Package applog builds the run's structured logger: a console sink at
// INFO and above, and a file sink at DEBUG and above, so a quiet terminal
// still leaves a full trace on disk for post-mortem.
package applog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New opens logFile (created/appended) and returns a zerolog.Logger writing
// human-readable output to stderr at INFO+ and JSON lines to the file at
// DEBUG+. Callers own the returned *os.File and must close it when the run
// ends.
func New(logFile string) (zerolog.Logger, *os.File, error) {
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return zerolog.Logger{}, nil, err
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}

	multi := zerolog.MultiLevelWriter(
		levelFilter{w: console, min: zerolog.InfoLevel},
		levelFilter{w: f, min: zerolog.DebugLevel},
	)

	logger := zerolog.New(multi).With().Timestamp().Logger()
	return logger, f, nil
}

// levelFilter drops events below min before they reach w, letting two sinks
// with different thresholds share one zerolog.Logger.
type levelFilter struct {
	w   io.Writer
	min zerolog.Level
}

func (l levelFilter) Write(p []byte) (int, error) {
	return l.w.Write(p)
}

func (l levelFilter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < l.min {
		return len(p), nil
	}
	if lw, ok := l.w.(zerolog.LevelWriter); ok {
		return lw.WriteLevel(level, p)
	}
	return l.w.Write(p)
}
