package logger

import (
	"log/slog"
	"os"
)

// New builds the process logger: JSON at info level in production, text at
// debug level everywhere else. Callers should slog.SetDefault the result.
func New(env string) *slog.Logger {
	var h slog.Handler
	if env == "prod" || env == "production" {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return slog.New(h).With("service", "goldvault")
}
