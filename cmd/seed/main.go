package main

import (
	"context"

	"marketplace-checkout/internal/config"
	"marketplace-checkout/internal/db"
	"marketplace-checkout/internal/logging"
	cartrepo "marketplace-checkout/internal/repository/cart"
	referencerepo "marketplace-checkout/internal/repository/reference"
	"marketplace-checkout/internal/seed"
)

func main() {
	cfg := config.FromEnv()
	logger := logging.New("checkout-seed", cfg.LogLevel)

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, 2)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect db")
	}
	defer pool.Close()

	snap, err := seed.Apply(ctx, referencerepo.NewPostgres(pool), cartrepo.NewPostgres(pool), cfg.CurrencyCode, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed apply")
	}

	logger.Info().Str("cart_id", snap.ID).Msg("seed applied")
}
