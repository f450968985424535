package reference

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-checkout/internal/cache"
	"marketplace-checkout/internal/domain"
	"marketplace-checkout/internal/zone"
)

type stubRepo struct {
	calls  atomic.Int32
	delay  time.Duration
	cities []domain.DeliveryCity
	gwErr  error
}

func (r *stubRepo) ListCountries(context.Context) ([]domain.Country, error) {
	r.calls.Add(1)
	time.Sleep(r.delay)
	return []domain.Country{{ID: "MW", Name: "Malawi"}, {ID: "ZA", Name: "South Africa"}}, nil
}

func (r *stubRepo) ListPaymentGateways(context.Context) ([]domain.PaymentGateway, error) {
	r.calls.Add(1)
	if r.gwErr != nil {
		return nil, r.gwErr
	}
	return []domain.PaymentGateway{{ID: "airtel-money", Code: "airtel", DisplayName: "Airtel Money"}}, nil
}

func (r *stubRepo) ListDeliveryCities(context.Context) ([]domain.DeliveryCity, error) {
	r.calls.Add(1)
	return r.cities, nil
}

func newRedisCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewRedisCache(client, time.Minute), mr
}

func TestLoadFromRepository(t *testing.T) {
	repo := &stubRepo{cities: []domain.DeliveryCity{{ID: "mzuzu", Name: "Mzuzu", RegionName: "Northern"}}}
	svc := New(repo, WithDomesticCountry("MW"))

	ref, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, ref.Countries, 2)
	assert.Len(t, ref.PaymentGateways, 1)
	assert.Equal(t, "MW", ref.DomesticCountryID)
	assert.True(t, ref.Registry.Contains("mzuzu"))
	assert.Equal(t, 1, ref.Registry.Len())
}

func TestLoadFallsBackToDefaultRegistry(t *testing.T) {
	svc := New(&stubRepo{})

	ref, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, zone.Default().Len(), ref.Registry.Len())
}

func TestLoadUsesCache(t *testing.T) {
	c, _ := newRedisCache(t)
	repo := &stubRepo{cities: []domain.DeliveryCity{{ID: "blantyre", Name: "Blantyre"}}}
	var (
		mu     sync.Mutex
		hits   int
		misses int
	)
	svc := New(repo, WithCache(c), WithLookupObserver(func(_ string, hit bool) {
		mu.Lock()
		defer mu.Unlock()
		if hit {
			hits++
		} else {
			misses++
		}
	}))
	ctx := context.Background()

	_, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, repo.calls.Load())

	ref, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, repo.calls.Load(), "second load is served from redis")
	assert.True(t, ref.Registry.Contains("blantyre"))
	assert.Equal(t, 3, hits)
	assert.Equal(t, 3, misses)

	require.NoError(t, svc.Invalidate(ctx))
	_, err = svc.Load(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 6, repo.calls.Load())
}

func TestLoadSurvivesCacheOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()
	repo := &stubRepo{}
	svc := New(repo, WithCache(cache.NewRedisCache(client, time.Minute)))

	ref, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, ref.Countries, 2)
}

func TestLoadRepositoryError(t *testing.T) {
	svc := New(&stubRepo{gwErr: errors.New("connection refused")})

	_, err := svc.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list payment_gateways")
}

func TestConcurrentLoadsShareOneFetch(t *testing.T) {
	repo := &stubRepo{delay: 30 * time.Millisecond}
	svc := New(repo)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Load(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 3, repo.calls.Load())
}
