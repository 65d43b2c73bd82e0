// Package logging builds the process-wide slog logger from configuration.
package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/ssargent/folio/pkg/config"
)

// Logger pairs a logger with the level variable behind it, so a config
// reload can change verbosity without rebuilding handlers.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
}

// New returns a logger writing to w in the configured format.
func New(w io.Writer, cfg config.Logging) (*Logger, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	lv := new(slog.LevelVar)
	lv.Set(level)

	opts := &slog.HandlerOptions{Level: lv}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &Logger{Logger: slog.New(handler), level: lv}, nil
}

// SetLevel changes the level of every logger derived from l.
func (l *Logger) SetLevel(level string) error {
	parsed, err := config.ParseLevel(level)
	if err != nil {
		return err
	}
	l.level.Set(parsed)
	return nil
}

// Level reports the current level.
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}
