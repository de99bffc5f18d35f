package logger

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/odypool/pooler/config"
)

// New returns a configured zerolog.Logger. Development mode logs at
// debug (so expire's per-transition debug lines are visible); every
// other environment logs at info, which hides those debug lines but
// keeps the "stats" lines log_stats enables, expire's warn-level close
// failures, and the startup and admin-request info lines.
func New(cfg *config.Config) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: os.Stderr}
	lvl := zerolog.InfoLevel
	if cfg.IsDevelopment() {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)
	return zerolog.New(out).With().Timestamp().Logger()
}
