// Package cart owns the live cart aggregates of the shoppers currently on the
// site, loading each from the cart repository on first use.
package cart

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"marketplace-checkout/internal/cart"
	"marketplace-checkout/internal/domain"
	"marketplace-checkout/internal/notify"
	cartrepo "marketplace-checkout/internal/repository/cart"
)

var (
	ErrCurrencyRequired = errors.New("currency required")
	ErrLinesRequired    = errors.New("at least one line required")
	ErrInvalidLine      = errors.New("line requires product_ref, name and a positive quantity")
)

type Service struct {
	repo    cartrepo.Repository
	sinkFor func(cartID string) notify.Sink
	observe func(op, outcome string)

	mu    sync.Mutex
	carts map[string]*liveCart
	loads singleflight.Group
	now   func() time.Time
}

type liveCart struct {
	cart *cart.Cart
	used time.Time
}

type Option func(*Service)

// WithNotifier picks the notification sink of each cart.
func WithNotifier(fn func(cartID string) notify.Sink) Option {
	return func(s *Service) { s.sinkFor = fn }
}

func WithObserver(fn func(op, outcome string)) Option {
	return func(s *Service) { s.observe = fn }
}

func New(repo cartrepo.Repository, opts ...Option) *Service {
	s := &Service{repo: repo, carts: make(map[string]*liveCart), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type LineInput struct {
	ProductRef string  `json:"product_ref"`
	VariantRef *string `json:"variant_ref,omitempty"`
	Name       string  `json:"name"`
	SellerName string  `json:"seller_name,omitempty"`
	UnitPrice  int64   `json:"unit_price"`
	Quantity   int     `json:"quantity"`
	InStock    *bool   `json:"in_stock,omitempty"`
}

type CreateInput struct {
	CustomerID *string     `json:"customer_id,omitempty"`
	Currency   string      `json:"currency"`
	Shipping   int64       `json:"shipping"`
	Lines      []LineInput `json:"lines"`
}

// Create stores a new cart and returns its live aggregate.
func (s *Service) Create(ctx context.Context, in CreateInput) (*cart.Cart, error) {
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		return nil, ErrCurrencyRequired
	}
	if len(in.Lines) == 0 {
		return nil, ErrLinesRequired
	}
	lines := make([]cartrepo.LineInput, 0, len(in.Lines))
	for _, l := range in.Lines {
		if strings.TrimSpace(l.ProductRef) == "" || strings.TrimSpace(l.Name) == "" || l.Quantity <= 0 || l.UnitPrice < 0 {
			return nil, ErrInvalidLine
		}
		inStock := true
		if l.InStock != nil {
			inStock = *l.InStock
		}
		lines = append(lines, cartrepo.LineInput{
			ProductRef: strings.TrimSpace(l.ProductRef),
			VariantRef: l.VariantRef,
			Name:       strings.TrimSpace(l.Name),
			SellerName: strings.TrimSpace(l.SellerName),
			UnitPrice:  l.UnitPrice,
			Quantity:   l.Quantity,
			InStock:    inStock,
		})
	}
	snap, err := s.repo.Create(ctx, cartrepo.CreateCartInput{
		CustomerID: in.CustomerID,
		Currency:   currency,
		Shipping:   in.Shipping,
		Lines:      lines,
	})
	if err != nil {
		return nil, err
	}
	c := s.build(*snap)
	s.mu.Lock()
	s.carts[c.ID()] = &liveCart{cart: c, used: s.now()}
	s.mu.Unlock()
	return c, nil
}

// Get returns the live aggregate for cartID, loading it on first use.
// Concurrent first calls share one load.
func (s *Service) Get(ctx context.Context, cartID string) (*cart.Cart, error) {
	if c, ok := s.cached(cartID); ok {
		return c, nil
	}

	v, err, _ := s.loads.Do(cartID, func() (any, error) {
		if c, ok := s.cached(cartID); ok {
			return c, nil
		}
		snap, err := s.repo.GetSnapshot(ctx, cartID)
		if err != nil {
			return nil, err
		}
		c := s.build(*snap)
		s.mu.Lock()
		s.carts[cartID] = &liveCart{cart: c, used: s.now()}
		s.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*cart.Cart), nil
}

// Snapshot returns the backend-confirmed cart, which is what checkout orders.
func (s *Service) Snapshot(ctx context.Context, cartID string) (domain.CartSnapshot, error) {
	snap, err := s.repo.GetSnapshot(ctx, cartID)
	if err != nil {
		return domain.CartSnapshot{}, err
	}
	return *snap, nil
}

// Evict forgets the live aggregate; the next Get reloads it.
func (s *Service) Evict(cartID string) {
	s.mu.Lock()
	delete(s.carts, cartID)
	s.mu.Unlock()
}

// Sweep drops aggregates unused for longer than maxIdle and returns how many
// were removed. Carts with a mutation awaiting the backend are kept.
func (s *Service) Sweep(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, lc := range s.carts {
		if lc.used.Before(cutoff) && !lc.cart.Busy() {
			delete(s.carts, id)
			n++
		}
	}
	return n
}

func (s *Service) cached(cartID string) (*cart.Cart, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lc, ok := s.carts[cartID]
	if !ok {
		return nil, false
	}
	lc.used = s.now()
	return lc.cart, true
}

func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.carts)
}

func (s *Service) build(snap domain.CartSnapshot) *cart.Cart {
	backend := cartrepo.NewBackend(s.repo, snap.ID)
	opts := []cart.Option{cart.WithCouponPricer(backend)}
	if s.sinkFor != nil {
		opts = append(opts, cart.WithNotifier(s.sinkFor(snap.ID)))
	}
	if s.observe != nil {
		opts = append(opts, cart.WithObserver(s.observe))
	}
	return cart.New(snap, backend, opts...)
}
