package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"marketplace-checkout/internal/cache"
	"marketplace-checkout/internal/config"
	"marketplace-checkout/internal/db"
	"marketplace-checkout/internal/importer"
	"marketplace-checkout/internal/logging"
	referencerepo "marketplace-checkout/internal/repository/reference"
	referencesvc "marketplace-checkout/internal/service/reference"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to delivery city CSV (id,name,region_name,icon)")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.FromEnv()
	logger := logging.New("checkout-importer", cfg.LogLevel)
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DBConnString, 2)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect db")
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open file")
	}
	defer f.Close()

	repo := referencerepo.NewPostgres(pool)
	start := time.Now()
	res, err := importer.NewCSVImporter(f, repo).Run(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("import failed")
	}

	if cfg.RedisAddr != "" && res.Changed > 0 {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		svc := referencesvc.New(repo, referencesvc.WithCache(cache.NewRedisCache(client, cfg.ReferenceCacheTTL)))
		if err := svc.Invalidate(ctx); err != nil {
			logger.Warn().Err(err).Msg("invalidate reference cache")
		}
	}

	fmt.Printf("Imported %d delivery cities (%d changed) in %s\n", res.Read, res.Changed, time.Since(start).Truncate(time.Millisecond))
}
