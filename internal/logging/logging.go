// Package logging configures the global slog logger for sharecast binaries.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/pwntr/tinter"
)

// Format selects the log output format.
type Format string

const (
	FormatAuto Format = "auto"
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat converts a string to a Format, returning FormatAuto for unknown values.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "tint", "human":
		return FormatText
	case "json":
		return FormatJSON
	default:
		return FormatAuto
	}
}

// ParseLevel converts a string to a slog.Level, defaulting to Info.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// level backs the global logger so SetLevel can change it at runtime.
var level = new(slog.LevelVar)

// NewHandler builds the handler Setup installs. Auto picks coloured text on
// a terminal and JSON everywhere else, so a daemon under a supervisor logs
// machine-readable lines. Starting at debug level adds source locations.
func NewHandler(w io.Writer, format Format, lvl slog.Leveler) slog.Handler {
	addSource := lvl.Level() <= slog.LevelDebug
	if format == FormatText || (format == FormatAuto && IsTTY(w)) {
		return tinter.NewHandler(w, &tinter.Options{
			Level:      lvl,
			TimeFormat: "15:04:05.000",
			AddSource:  addSource,
			NoColor:    !IsTTY(w),
		})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: addSource,
	})
}

// Setup configures the global slog logger. Call once after flag/viper parsing.
func Setup(format Format, lvl slog.Level) {
	level.Set(lvl)
	slog.SetDefault(slog.New(NewHandler(os.Stderr, format, level)))
}

// SetLevel changes the level of the logger installed by Setup.
func SetLevel(lvl slog.Level) {
	if level.Level() != lvl {
		level.Set(lvl)
		slog.Info("log level changed", "level", lvl)
	}
}
