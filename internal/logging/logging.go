package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process logger writing human-readable lines to stderr.
// verbose switches on debug-level output (per-invocation ffmpeg args,
// analyzer payload summaries).
func New(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.TimeOnly,
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
