package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/mossy-p/meeting-relay/config"
)

// New builds the root logger. Development gets a console writer, production
// gets JSON lines on stdout.
func New(cfg *config.Config) zerolog.Logger {
	var w io.Writer = os.Stdout
	if !cfg.IsProduction() {
		w = zerolog.ConsoleWriter{Out: os.Stdout}
	}
	return NewWithWriter(w, cfg.LogLevel)
}

func NewWithWriter(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
