package app

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"aquamon/internal/config"
)

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	var log zerolog.Logger
	if strings.EqualFold(cfg.Format, "console") {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		log = zerolog.New(os.Stderr)
	}
	log = log.With().Timestamp().Logger()
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	return log
}

func parseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
