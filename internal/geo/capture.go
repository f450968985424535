// Package geo captures an optional device location for the shipping destination.
package geo

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// DefaultTimeout matches the browser request {enableHighAccuracy: true, timeout: 10000}.
const DefaultTimeout = 10 * time.Second

var (
	ErrPermissionDenied = errors.New("location permission denied")
	ErrTimeout          = errors.New("location request timed out")
	ErrUnavailable      = errors.New("location unavailable")
	ErrUnsupported      = errors.New("location not supported")
	ErrRequestInFlight  = errors.New("location request already in progress")
)

// Options mirror the platform position request options.
type Options struct {
	EnableHighAccuracy bool
	Timeout            time.Duration
}

// Locator is the platform location service.
type Locator interface {
	Locate(ctx context.Context, opts Options) (Coordinate, error)
}

type LocatorFunc func(ctx context.Context, opts Options) (Coordinate, error)

func (f LocatorFunc) Locate(ctx context.Context, opts Options) (Coordinate, error) {
	return f(ctx, opts)
}

type State string

const (
	StateIdle       State = "idle"
	StateRequesting State = "requesting"
	StateCaptured   State = "captured"
	StateFailed     State = "failed"
)

const (
	msgUnsupported = "Location is not supported on this device. Describe your location in the delivery note instead."
	msgUnavailable = "We could not get your location (permission denied or timed out). Describe your location in the delivery note instead."
)

// Snapshot is a point-in-time view of a Capture.
type Snapshot struct {
	State      State       `json:"state"`
	Coordinate *Coordinate `json:"coordinate,omitempty"`
	Message    string      `json:"message,omitempty"`
}

// Capture runs one location request at a time and remembers its outcome.
type Capture struct {
	locator Locator
	timeout time.Duration
	onDone  func(outcome string)

	mu    sync.Mutex
	state State
	coord *Coordinate
	err   error
}

type Option func(*Capture)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Capture) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithObserver registers a callback receiving "captured", "denied", "timeout",
// "unavailable" or "unsupported" after every request.
func WithObserver(fn func(outcome string)) Option {
	return func(c *Capture) { c.onDone = fn }
}

func NewCapture(locator Locator, opts ...Option) *Capture {
	c := &Capture{locator: locator, timeout: DefaultTimeout, state: StateIdle}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request asks the locator for the current position, bounded by the capture
// timeout. Failures are returned and recorded; they never clear a previous capture
// partially: the coordinate is either replaced whole or unset.
func (c *Capture) Request(ctx context.Context) (Coordinate, error) {
	c.mu.Lock()
	if c.state == StateRequesting {
		c.mu.Unlock()
		return Coordinate{}, ErrRequestInFlight
	}
	c.state = StateRequesting
	c.coord = nil
	c.err = nil
	c.mu.Unlock()

	coord, err := c.locate(ctx)

	c.mu.Lock()
	if err != nil {
		c.state = StateFailed
		c.err = err
	} else {
		c.state = StateCaptured
		c.coord = &coord
	}
	c.mu.Unlock()

	if c.onDone != nil {
		c.onDone(Outcome(err))
	}
	return coord, err
}

func (c *Capture) locate(ctx context.Context) (Coordinate, error) {
	if c.locator == nil {
		return Coordinate{}, ErrUnsupported
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type result struct {
		coord Coordinate
		err   error
	}
	done := make(chan result, 1)
	go func() {
		coord, err := c.locator.Locate(ctx, Options{EnableHighAccuracy: true, Timeout: c.timeout})
		done <- result{coord, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return Coordinate{}, normalize(res.err)
		}
		if _, err := NewCoordinate(res.coord.Lat, res.coord.Lng); err != nil {
			return Coordinate{}, ErrUnavailable
		}
		return res.coord, nil
	case <-ctx.Done():
		return Coordinate{}, ErrTimeout
	}
}

func normalize(err error) error {
	switch {
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrTimeout),
		errors.Is(err, ErrUnsupported), errors.Is(err, ErrUnavailable):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrTimeout
	default:
		return ErrUnavailable
	}
}

// Clear discards any captured coordinate and returns to Idle.
func (c *Capture) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateRequesting {
		return
	}
	c.state = StateIdle
	c.coord = nil
	c.err = nil
}

// Coordinate returns the captured coordinate, if any.
func (c *Capture) Coordinate() *Coordinate {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.coord == nil {
		return nil
	}
	cp := *c.coord
	return &cp
}

func (c *Capture) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{State: c.state}
	if c.coord != nil {
		cp := *c.coord
		s.Coordinate = &cp
	}
	if c.state == StateFailed {
		s.Message = Message(c.err)
	}
	return s
}

// Message is the user-facing text for a failed request.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrUnsupported) {
		return msgUnsupported
	}
	return msgUnavailable
}

// Outcome labels a request result for metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "captured"
	case errors.Is(err, ErrPermissionDenied):
		return "denied"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrUnsupported):
		return "unsupported"
	default:
		return "unavailable"
	}
}

// ParseReason maps a client-reported failure to an error. Accepts the names
// "denied", "timeout", "unavailable", "unsupported" and the W3C
// GeolocationPositionError codes 1, 2 and 3.
func ParseReason(reason string) error {
	switch strings.ToLower(strings.TrimSpace(reason)) {
	case "denied", "permission_denied", "1":
		return ErrPermissionDenied
	case "unavailable", "position_unavailable", "2":
		return ErrUnavailable
	case "timeout", "3":
		return ErrTimeout
	case "unsupported":
		return ErrUnsupported
	default:
		return ErrUnavailable
	}
}

// Reported is a Locator answering with a result the client already obtained.
type Reported struct {
	Coord Coordinate
	Err   error
}

func (r Reported) Locate(context.Context, Options) (Coordinate, error) {
	return r.Coord, r.Err
}
