package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config represents logger configuration
type Config struct {
	Level       string // debug, info, warn, error, fatal
	Environment string // development, production, test
}

// Init configures the global zerolog logger.
func Init(cfg Config) {
	zerolog.TimeFieldFormat = time.RFC3339

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Logger = New(os.Stdout, cfg.Environment)
}

// New builds a logger writing to w: a console writer in development, JSON
// with timestamp and caller otherwise.
func New(w io.Writer, environment string) zerolog.Logger {
	if environment == "development" || environment == "dev" {
		return zerolog.New(zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: "15:04:05",
		}).With().Timestamp().Caller().Logger()
	}
	return zerolog.New(w).With().Timestamp().Caller().Logger()
}
