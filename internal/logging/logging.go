package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup builds the process logger: JSON to stderr, and to logFile as well
// when one is configured. The logger becomes the slog default. The returned
// close func releases the log file and must be deferred by the caller.
func Setup(level, logFile string) (*slog.Logger, func(), error) {
	var out io.Writer = os.Stderr
	closeFn := func() {}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, err
		}
		out = io.MultiWriter(os.Stderr, f)
		closeFn = func() { _ = f.Close() }
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
	slog.SetDefault(logger)
	return logger, closeFn, nil
}

// ParseLevel maps a config string to a slog level, defaulting to info for
// anything unrecognised.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
