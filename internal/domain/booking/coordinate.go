package booking

import (
	"fmt"
	"math"
	"strconv"
)

const earthRadiusKm = 6371.0

// Coordinate is an immutable WGS84 point in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NewCoordinate validates lat/lng and returns a Coordinate.
func NewCoordinate(lat, lng float64) (Coordinate, error) {
	c := Coordinate{Lat: lat, Lng: lng}
	if !c.Valid() {
		return Coordinate{}, NewValidationError(fmt.Sprintf("invalid coordinate: %v,%v", lat, lng))
	}
	return c, nil
}

// Valid returns true if the coordinate is finite and within WGS84 ranges.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// String formats the coordinate as "lat,lng".
func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lng, 'f', -1, 64)
}

// Bounds is an axis-aligned rectangle describing the serviceable region.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Validate checks that the rectangle is well-formed.
func (b Bounds) Validate() error {
	for _, v := range []float64{b.North, b.South, b.East, b.West} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewValidationError("service area bounds must be finite")
		}
	}
	if b.North < b.South {
		return NewValidationError("service area north must not be below south")
	}
	if b.East < b.West {
		return NewValidationError("service area east must not be west of west")
	}
	return nil
}

// Contains reports whether c lies inside the bounds.
func (b Bounds) Contains(c Coordinate) bool {
	return IsWithinBounds(c, b)
}

// Center returns the midpoint of the bounds, used as the default search bias.
func (b Bounds) Center() Coordinate {
	return Coordinate{Lat: (b.North + b.South) / 2, Lng: (b.East + b.West) / 2}
}

// IsWithinBounds is inclusive on all four edges. NaN never matches.
func IsWithinBounds(c Coordinate, b Bounds) bool {
	return c.Lat >= b.South && c.Lat <= b.North &&
		c.Lng >= b.West && c.Lng <= b.East
}

// HaversineKm returns the great-circle distance between a and b in kilometres.
func HaversineKm(a, b Coordinate) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	lat1 := degreesToRadians(a.Lat)
	lat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLng/2)*math.Sin(dLng/2)*math.Cos(lat1)*math.Cos(lat2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
