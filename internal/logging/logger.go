package logging

import (
	"log/slog"
	"os"
)

// Setup installs a JSON stdout logger as the default and returns its handler
// so it can later be combined with the database handler.
func Setup() slog.Handler {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	return handler
}
