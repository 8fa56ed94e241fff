// Package logger holds the process-wide slog logger used by the search
// commands and the engine server.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options select the handler. Zero values give info-level text on stderr.
type Options struct {
	Format string
	Level  string
	Output io.Writer
	// Source adds the calling file and line to every record.
	Source bool
}

// Default receives every package-level call.
var Default = New(Options{})

// ParseLevel maps a level name to a slog level. Unknown names fall back to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// New builds a logger for o.
func New(o Options) *slog.Logger {
	out := o.Output
	if out == nil {
		out = os.Stderr
	}
	ho := &slog.HandlerOptions{Level: ParseLevel(o.Level), AddSource: o.Source}
	if strings.EqualFold(o.Format, FormatJSON) {
		return slog.New(slog.NewJSONHandler(out, ho))
	}
	return slog.New(slog.NewTextHandler(out, ho))
}

// SetDefault installs l for this package and for log/slog.
func SetDefault(l *slog.Logger) {
	Default = l
	slog.SetDefault(l)
}

func Debug(msg string, args ...any) { Default.Debug(msg, args...) }
func Info(msg string, args ...any)  { Default.Info(msg, args...) }
func Warn(msg string, args ...any)  { Default.Warn(msg, args...) }
func Error(msg string, args ...any) { Default.Error(msg, args...) }

// ForExperiment tags records with the experiment they belong to.
func ForExperiment(id, kind string) *slog.Logger {
	return Default.With(slog.Group("experiment", "id", id, "kind", kind))
}
