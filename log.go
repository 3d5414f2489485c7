package josh

import (
	"log/slog"
	"os"
)

// logger is the package-wide structured logger. Transforms are otherwise
// free of side effects; this is the one exception, and it never affects
// behavior, only observability.
var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
	Level: slog.LevelWarn,
}))

// SetLogger replaces the package logger, e.g. to raise the level or route
// it through a different handler.
func SetLogger(l *slog.Logger) {
	if l == nil {
		return
	}
	logger = l
}
