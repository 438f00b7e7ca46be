package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a zerolog Logger.
// APP_ENV=dev (or development) uses a human-friendly console writer.
func NewLogger(env string) zerolog.Logger {
	return newLogger(env, os.Stdout)
}

// NewCLILogger is NewLogger for command-line tools: logs go to stderr so
// rendered output on stdout stays clean.
func NewCLILogger(env string) zerolog.Logger {
	return newLogger(env, os.Stderr)
}

func newLogger(env string, w io.Writer) zerolog.Logger {
	l := zerolog.New(w).With().Timestamp().Logger()
	if env == "dev" || env == "development" {
		l = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	}
	return l
}
