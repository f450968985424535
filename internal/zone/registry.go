// Package zone holds the closed set of cities the marketplace delivers to.
package zone

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"marketplace-checkout/internal/domain"

	"gopkg.in/yaml.v3"
)

//go:embed cities.yaml
var defaultCities []byte

var ErrEmptyRegistry = errors.New("delivery zone registry is empty")

// Registry is an immutable lookup of delivery cities by id. Safe for concurrent use.
type Registry struct {
	byID  map[string]domain.DeliveryCity
	order []domain.DeliveryCity
}

// New builds a registry. Ids must be non-empty and unique.
func New(cities []domain.DeliveryCity) (*Registry, error) {
	if len(cities) == 0 {
		return nil, ErrEmptyRegistry
	}
	r := &Registry{
		byID:  make(map[string]domain.DeliveryCity, len(cities)),
		order: make([]domain.DeliveryCity, 0, len(cities)),
	}
	for _, c := range cities {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			return nil, fmt.Errorf("delivery city %q: id required", c.Name)
		}
		if _, dup := r.byID[id]; dup {
			return nil, fmt.Errorf("delivery city %q: duplicate id", id)
		}
		c.ID = id
		r.byID[id] = c
		r.order = append(r.order, c)
	}
	return r, nil
}

// FindByID returns the city with the given id.
func (r *Registry) FindByID(id string) (domain.DeliveryCity, bool) {
	if r == nil {
		return domain.DeliveryCity{}, false
	}
	c, ok := r.byID[strings.TrimSpace(id)]
	return c, ok
}

func (r *Registry) Contains(id string) bool {
	_, ok := r.FindByID(id)
	return ok
}

// List returns the cities in load order.
func (r *Registry) List() []domain.DeliveryCity {
	if r == nil {
		return nil
	}
	out := make([]domain.DeliveryCity, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

type file struct {
	Cities []domain.DeliveryCity `yaml:"cities"`
}

// LoadYAML reads a registry from a YAML document with a top-level "cities" list.
func LoadYAML(rd io.Reader) (*Registry, error) {
	var f file
	dec := yaml.NewDecoder(rd)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode delivery cities: %w", err)
	}
	return New(f.Cities)
}

// LoadFile reads a registry from path.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open delivery cities: %w", err)
	}
	defer f.Close()
	return LoadYAML(f)
}

// Default returns the built-in registry.
func Default() *Registry {
	r, err := LoadYAML(bytes.NewReader(defaultCities))
	if err != nil {
		panic(fmt.Sprintf("zone: embedded cities invalid: %v", err))
	}
	return r
}
