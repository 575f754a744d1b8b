// Package logging configures the process-wide structured logger.
package logging

import (
	"log"
	"log/slog"
	"os"
	"strings"
)

// Setup returns the process logger: JSON on stderr, tagged with the service
// name and, when set, the deployment environment. The minimum level comes
// from MAPCHAIN_LOG_LEVEL; unrecognised values fall back to info. The
// standard library logger is redirected onto the same handler so packages
// calling log.Printf land in the same stream.
func Setup(service, env string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: levelFromEnv()})

	logger := slog.New(handler).With(slog.String("service", strings.TrimSpace(service)))
	if env = strings.TrimSpace(env); env != "" {
		logger = logger.With(slog.String("env", env))
	}
	slog.SetDefault(logger)

	bridge := slog.NewLogLogger(handler, slog.LevelInfo)
	log.SetFlags(0)
	log.SetPrefix("")
	log.SetOutput(bridge.Writer())

	return logger
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("MAPCHAIN_LOG_LEVEL"))) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
