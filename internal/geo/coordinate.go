package geo

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Coordinate is a WGS84 point. A Coordinate value is always complete; code that
// may lack one holds a *Coordinate.
type Coordinate struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

// NewCoordinate validates latitude in [-90,90] and longitude in [-180,180].
func NewCoordinate(lat, lng float64) (Coordinate, error) {
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return Coordinate{}, fmt.Errorf("%w: lat=%v lng=%v", ErrInvalidCoordinate, lat, lng)
	}
	return Coordinate{Lat: lat, Lng: lng}, nil
}

// FromPair builds an optional coordinate from two optional components. Both or
// neither must be present.
func FromPair(lat, lng *float64) (*Coordinate, error) {
	switch {
	case lat == nil && lng == nil:
		return nil, nil
	case lat == nil || lng == nil:
		return nil, fmt.Errorf("%w: latitude and longitude must be set together", ErrInvalidCoordinate)
	}
	c, err := NewCoordinate(*lat, *lng)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
