package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"yamdb/internal/config"
)

// New builds the process logger. Output goes to stdout unless LOG_FILE is
// set, in which case a rotating file is used.
func New(cfg *config.Config) *slog.Logger {
	var output io.Writer = os.Stdout
	if cfg.LogFile != "" {
		output = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100,
			MaxAge:     30,
			MaxBackups: 3,
			Compress:   true,
			LocalTime:  true,
		}
	}
	return NewWithWriter(output, cfg.LogLevel, cfg.LogFormat)
}

func NewWithWriter(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
