package main

import (
	"errors"
	"flag"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"

	"github.com/noah-isme/backend-invoice/internal/config"
	"github.com/noah-isme/backend-invoice/internal/db"
	"github.com/noah-isme/backend-invoice/internal/obs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "migrate").Logger()

	flag.Parse()
	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "up"
	}

	m, err := db.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("open migrator")
	}
	defer m.Close()

	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		steps := 1
		if raw := flag.Arg(1); raw != "" {
			if steps, err = strconv.Atoi(raw); err != nil || steps <= 0 {
				logger.Fatal().Str("steps", raw).Msg("steps must be a positive integer")
			}
		}
		err = m.Steps(-steps)
	case "force":
		v, convErr := strconv.Atoi(flag.Arg(1))
		if convErr != nil {
			logger.Fatal().Err(convErr).Msg("force requires a version")
		}
		err = m.Force(v)
	case "version":
		version, dirty, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			logger.Fatal().Err(verr).Msg("read version")
		}
		logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("schema version")
		return
	default:
		logger.Error().Str("command", cmd).Msg("usage: migrate [up|down [n]|force <version>|version]")
		os.Exit(2)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info().Str("command", cmd).Msg("no change")
		return
	}
	if err != nil {
		logger.Fatal().Err(err).Str("command", cmd).Msg("migration failed")
	}
	logger.Info().Str("command", cmd).Msg("migration complete")
}
