// Package reference loads the lookup lists a checkout session validates
// against: countries, payment gateways and delivery cities.
package reference

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"marketplace-checkout/internal/cache"
	"marketplace-checkout/internal/checkout"
	"marketplace-checkout/internal/domain"
	"marketplace-checkout/internal/zone"
)

const (
	ListCountries       = "countries"
	ListPaymentGateways = "payment_gateways"
	ListDeliveryCities  = "delivery_cities"
)

type referenceRepo interface {
	ListCountries(ctx context.Context) ([]domain.Country, error)
	ListPaymentGateways(ctx context.Context) ([]domain.PaymentGateway, error)
	ListDeliveryCities(ctx context.Context) ([]domain.DeliveryCity, error)
}

type Service struct {
	repo     referenceRepo
	cache    cache.Cache
	fallback *zone.Registry
	domestic string
	observe  func(list string, hit bool)
	logger   zerolog.Logger
	loads    singleflight.Group
}

type Option func(*Service)

func WithCache(c cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithFallbackRegistry is used when the delivery_cities table is empty.
func WithFallbackRegistry(r *zone.Registry) Option {
	return func(s *Service) { s.fallback = r }
}

func WithDomesticCountry(id string) Option {
	return func(s *Service) { s.domestic = id }
}

// WithLookupObserver is told about every cache hit or miss.
func WithLookupObserver(fn func(list string, hit bool)) Option {
	return func(s *Service) { s.observe = fn }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func New(repo referenceRepo, opts ...Option) *Service {
	s := &Service{repo: repo, domestic: "MW", logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.fallback == nil {
		s.fallback = zone.Default()
	}
	return s
}

// Load returns the reference data for a new checkout session. Concurrent
// callers share one load.
func (s *Service) Load(ctx context.Context) (checkout.ReferenceData, error) {
	v, err, _ := s.loads.Do("reference", func() (any, error) {
		return s.load(ctx)
	})
	if err != nil {
		return checkout.ReferenceData{}, err
	}
	return v.(checkout.ReferenceData), nil
}

func (s *Service) load(ctx context.Context) (checkout.ReferenceData, error) {
	var (
		countries []domain.Country
		gateways  []domain.PaymentGateway
		cities    []domain.DeliveryCity
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		countries, err = cachedList(gctx, s, ListCountries, s.repo.ListCountries)
		return err
	})
	g.Go(func() (err error) {
		gateways, err = cachedList(gctx, s, ListPaymentGateways, s.repo.ListPaymentGateways)
		return err
	})
	g.Go(func() (err error) {
		cities, err = cachedList(gctx, s, ListDeliveryCities, s.repo.ListDeliveryCities)
		return err
	})
	if err := g.Wait(); err != nil {
		return checkout.ReferenceData{}, err
	}

	registry := s.fallback
	if len(cities) > 0 {
		r, err := zone.New(cities)
		if err != nil {
			return checkout.ReferenceData{}, fmt.Errorf("build delivery zone registry: %w", err)
		}
		registry = r
	}
	return checkout.ReferenceData{
		Countries:         countries,
		PaymentGateways:   gateways,
		DomesticCountryID: s.domestic,
		Registry:          registry,
	}, nil
}

// Invalidate drops the cached lists, e.g. after an import.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, ListCountries, ListPaymentGateways, ListDeliveryCities)
}

// cachedList reads list from the cache and falls through to fetch on a miss.
// Cache errors are logged and never fail the load.
func cachedList[T any](ctx context.Context, s *Service, list string, fetch func(context.Context) ([]T, error)) ([]T, error) {
	if s.cache != nil {
		var items []T
		err := s.cache.Get(ctx, list, &items)
		if err == nil {
			s.lookup(list, true)
			return items, nil
		}
		s.lookup(list, false)
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn().Err(err).Str("list", list).Msg("reference: cache get failed")
		}
	}

	items, err := fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", list, err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, list, items); err != nil {
			s.logger.Warn().Err(err).Str("list", list).Msg("reference: cache set failed")
		}
	}
	return items, nil
}

func (s *Service) lookup(list string, hit bool) {
	if s.observe != nil {
		s.observe(list, hit)
	}
}
