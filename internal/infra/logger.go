package infra

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger aliases zerolog.Logger so packages can take a logger without
// importing the module directly.
type Logger = zerolog.Logger

// NewLogger writes JSON to stdout, or console output in development. level,
// when set, overrides the environment default.
func NewLogger(appEnv, level string) zerolog.Logger {
	var out io.Writer = os.Stdout
	if appEnv == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return newLogger(out, appEnv, level)
}

func newLogger(out io.Writer, appEnv, level string) zerolog.Logger {
	return zerolog.New(out).
		Level(logLevel(appEnv, level)).
		With().
		Timestamp().
		Str("service", "feedplanner").
		Str("env", appEnv).
		Logger()
}

func logLevel(appEnv, level string) zerolog.Level {
	if level = strings.ToLower(strings.TrimSpace(level)); level != "" {
		if parsed, err := zerolog.ParseLevel(level); err == nil {
			return parsed
		}
	}
	if appEnv == "development" {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}
