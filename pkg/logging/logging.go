// Package logging builds the session loggers shared by the CLI commands.
// The terminal sink prints readable text gated by a configured level; an
// optional file sink keeps everything as JSON for later inspection.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// New builds a logger writing text to stderr at the given level, plus JSON
// to a file when path is non-empty. The returned closer releases the file
// sink and is safe to call when no file was opened.
func New(level, path string) (*slog.Logger, func(), error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}
	return build(os.Stderr, lvl, path)
}

func build(terminal io.Writer, lvl slog.Level, path string) (*slog.Logger, func(), error) {
	handlers := []slog.Handler{
		slog.NewTextHandler(terminal, &slog.HandlerOptions{Level: lvl}),
	}
	closer := func() {}

	if path != "" {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		// the file keeps everything; the level only gates the terminal
		handlers = append(handlers, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug}))
		closer = func() { file.Close() }
	}

	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}

// ParseLevel maps a config string to a level. The empty string means
// warnings only, keeping the terminal quiet unless asked.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "":
		return slog.LevelWarn, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", level)
	}
}
