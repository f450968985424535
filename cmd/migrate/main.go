package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"marketplace-checkout/internal/config"
	"marketplace-checkout/internal/db"
	"marketplace-checkout/internal/logging"
	"marketplace-checkout/internal/migrate"
)

func main() {
	steps := flag.Int("steps", 1, "number of versions to roll back with down")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-steps N] up|down|version\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cmd := "up"
	if flag.NArg() > 0 {
		cmd = flag.Arg(0)
	}

	cfg := config.FromEnv()
	logger := logging.New("checkout-migrate", cfg.LogLevel)

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, 2)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect db")
	}
	defer pool.Close()

	switch cmd {
	case "up":
		if err := migrate.Apply(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
		logger.Info().Msg("migrations applied")
	case "down":
		if err := migrate.Rollback(ctx, pool, *steps); err != nil {
			logger.Fatal().Err(err).Int("steps", *steps).Msg("rollback migrations")
		}
		logger.Info().Int("steps", *steps).Msg("migrations rolled back")
	case "version":
		version, dirty, ok, err := migrate.Version(ctx, pool)
		if err != nil {
			logger.Fatal().Err(err).Msg("read version")
		}
		if !ok {
			logger.Info().Msg("no migrations applied")
			return
		}
		logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("schema version")
	default:
		flag.Usage()
		os.Exit(2)
	}
}
