package infra

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger aliases zerolog.Logger so packages can accept a logger without
// importing zerolog themselves.
type Logger = zerolog.Logger

// NewLogger writes to stdout. LOG_LEVEL overrides the environment default.
func NewLogger(appEnv string) zerolog.Logger {
	return NewLoggerTo(os.Stdout, appEnv, os.Getenv("LOG_LEVEL"))
}

// NewLoggerTo builds a logger on w. Development and CLI environments get
// the console format, everything else JSON. An empty or unknown level keeps
// the environment default: debug in development, info otherwise.
func NewLoggerTo(w io.Writer, appEnv, level string) zerolog.Logger {
	lvl := zerolog.InfoLevel
	if appEnv == "development" {
		lvl = zerolog.DebugLevel
	}
	if level = strings.ToLower(strings.TrimSpace(level)); level != "" {
		if parsed, err := zerolog.ParseLevel(level); err == nil {
			lvl = parsed
		}
	}

	var out io.Writer = w
	switch appEnv {
	case "development", "cli":
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(out).Level(lvl).With().Timestamp()
	if appEnv != "cli" {
		ctx = ctx.Str("service", "descriptai")
	}
	return ctx.Logger()
}
