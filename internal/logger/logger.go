// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init sets the global level and replaces the global logger. Verbose forces
// debug level and adds caller information.
func Init(level string, pretty, verbose bool) zerolog.Logger {
	return InitWriter(os.Stderr, level, pretty, verbose)
}

// InitWriter is Init with an explicit output, used by tests.
func InitWriter(out io.Writer, level string, pretty, verbose bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	if pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "2006-01-02 15:04:05"}
	}

	ctx := zerolog.New(out).With().Timestamp()
	if verbose {
		ctx = ctx.Caller()
	}
	l := ctx.Logger()

	log.Logger = l
	zerolog.DefaultContextLogger = &l
	return l
}
