package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"marketplace-checkout/internal/cache"
	"marketplace-checkout/internal/checkout"
	"marketplace-checkout/internal/config"
	"marketplace-checkout/internal/db"
	"marketplace-checkout/internal/events"
	"marketplace-checkout/internal/httpserver"
	"marketplace-checkout/internal/logging"
	"marketplace-checkout/internal/metrics"
	"marketplace-checkout/internal/money"
	"marketplace-checkout/internal/notify"
	cartrepo "marketplace-checkout/internal/repository/cart"
	customerrepo "marketplace-checkout/internal/repository/customer"
	orderrepo "marketplace-checkout/internal/repository/order"
	referencerepo "marketplace-checkout/internal/repository/reference"
	tokenrepo "marketplace-checkout/internal/repository/token"
	cartsvc "marketplace-checkout/internal/service/cart"
	customersvc "marketplace-checkout/internal/service/customer"
	referencesvc "marketplace-checkout/internal/service/reference"
	"marketplace-checkout/internal/service/submission"
	"marketplace-checkout/internal/zone"
)

const (
	notificationCapacity = 20
	sessionMaxAge        = 2 * time.Hour
	cartMaxIdle          = 2 * time.Hour
	queueMaxIdle         = 2 * time.Hour
	janitorInterval      = time.Minute
)

func main() {
	cfg := config.FromEnv()
	logger := logging.New("checkout-api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to db")
	}
	defer dbpool.Close()

	m := metrics.New()
	queues := notify.NewQueues(notificationCapacity)

	refOpts := []referencesvc.Option{
		referencesvc.WithDomesticCountry(cfg.DomesticCountryID),
		referencesvc.WithLookupObserver(m.CacheLookup),
		referencesvc.WithLogger(logger),
	}
	if cfg.DeliveryCitiesFile != "" {
		registry, err := zone.LoadFile(cfg.DeliveryCitiesFile)
		if err != nil {
			logger.Fatal().Err(err).Str("file", cfg.DeliveryCitiesFile).Msg("load delivery cities")
		}
		refOpts = append(refOpts, referencesvc.WithFallbackRegistry(registry))
	}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		rc := cache.NewRedisCache(client, cfg.ReferenceCacheTTL)
		if err := rc.Ping(ctx); err != nil {
			// lists are read from postgres until redis comes back
			logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable")
		}
		refOpts = append(refOpts, referencesvc.WithCache(rc))
	}

	cartRepo := cartrepo.NewPostgres(dbpool)
	orderRepo := orderrepo.NewPostgres(dbpool)
	referenceService := referencesvc.New(referencerepo.NewPostgres(dbpool), refOpts...)
	cartService := cartsvc.New(cartRepo,
		cartsvc.WithNotifier(func(cartID string) notify.Sink { return queues.For(cartID) }),
		cartsvc.WithObserver(m.CartMutation),
	)
	customerService := customersvc.New(customerrepo.NewPostgres(dbpool, &logger), tokenrepo.NewPostgres(dbpool))
	gateway := submission.New(cartRepo, orderRepo, referenceService, submission.WithLogger(logger))
	sessions := checkout.NewManager()

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Carts:         cartService,
		Sessions:      sessions,
		Reference:     referenceService,
		Gateway:       gateway,
		Customers:     customerService,
		Notifications: queues,
		Metrics:       m,
		Currency: money.Currency{
			Code:           cfg.CurrencyCode,
			Symbol:         cfg.CurrencySymbol,
			FractionDigits: cfg.CurrencyFractionDigits,
		},
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		GeolocationTimeout:    cfg.GeolocationTimeout,
		AllowedOrigins:        cfg.CORSAllowedOrigins,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("init server")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		janitor(gctx, sessions, cartService, queues, customerService, logger)
		return nil
	})
	if len(cfg.KafkaBrokers) > 0 {
		pub := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic)
		defer pub.Close()
		poller := events.NewPoller(orderRepo, pub, logger, events.WithPublishObserver(m.OutboxEvent))
		g.Go(func() error {
			poller.Run(gctx)
			return nil
		})
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaOrderTopic).Msg("outbox publisher enabled")
	} else {
		logger.Warn().Msg("KAFKA_BROKERS not set; order events stay in the outbox")
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}

// janitor drops abandoned checkout sessions, idle cart aggregates and
// notification queues, and expired tokens.
func janitor(ctx context.Context, sessions *checkout.Manager, carts *cartsvc.Service, queues *notify.Queues, customers *customersvc.Service, logger zerolog.Logger) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Sweep(sessionMaxAge); n > 0 {
				logger.Debug().Int("sessions", n).Msg("janitor: swept sessions")
			}
			if n := carts.Sweep(cartMaxIdle); n > 0 {
				logger.Debug().Int("carts", n).Msg("janitor: swept carts")
			}
			if n := queues.Sweep(queueMaxIdle); n > 0 {
				logger.Debug().Int("queues", n).Msg("janitor: swept notification queues")
			}
			n, err := customers.PurgeExpiredTokens(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("janitor: purge tokens")
				continue
			}
			if n > 0 {
				logger.Debug().Int64("tokens", n).Msg("janitor: purged tokens")
			}
		}
	}
}
