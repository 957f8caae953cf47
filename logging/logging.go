// Package logging provides the shared logger for all nulltree components.
//
// The root logger uses github.com/rs/zerolog with a console writer; service
// deployments can switch to JSON output.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

var logger zerolog.Logger

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	logger = zerolog.New(output).With().Timestamp().Logger()

	if strings.HasSuffix(os.Args[0], ".test") {
		logger = zerolog.Nop()
	}
}

// Logger returns the root logger; callers derive component sub-loggers
// from it.
func Logger() zerolog.Logger {
	return logger
}

// SetJSONOutput switches to structured JSON on the given writer.
func SetJSONOutput(w io.Writer) {
	logger = zerolog.New(w).With().Timestamp().Logger()
}

// SetLevel adjusts the root logger's level.
func SetLevel(level zerolog.Level) {
	logger = logger.Level(level)
}
