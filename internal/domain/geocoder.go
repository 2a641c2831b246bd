package domain

import (
	"context"
	"errors"
)

var (
	// ErrNotFound means the geocoding service answered but has no match for
	// the query. It is permanent and safe to cache.
	ErrNotFound = errors.New("address not found")

	// ErrServiceUnavailable covers timeouts, transport failures and upstream
	// errors. It is transient and must never be cached.
	ErrServiceUnavailable = errors.New("geocoding service unavailable")
)

// Coordinate is a WGS-84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// CacheState is the outcome of a coordinate cache lookup.
type CacheState int

const (
	// CacheMiss means the query was never attempted.
	CacheMiss CacheState = iota
	// CacheHit means the query resolved to a coordinate.
	CacheHit
	// CacheNegative means the query was attempted and is unresolvable.
	CacheNegative
)

func (s CacheState) String() string {
	switch s {
	case CacheHit:
		return "hit"
	case CacheNegative:
		return "negative"
	default:
		return "miss"
	}
}

// Geocoder resolves a free-text query to a single best-match coordinate.
// Implementations return an error wrapping ErrNotFound or
// ErrServiceUnavailable.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (Coordinate, error)
}

// CoordinateCache is a persistent query → coordinate-or-negative map.
type CoordinateCache interface {
	Get(query string) (Coordinate, CacheState)

	// Put stores coord under query; a nil coord records a negative entry.
	Put(query string, coord *Coordinate) error
}

// CoordinateResolver turns a location query into coordinates, reporting
// false when none could be found.
type CoordinateResolver interface {
	GetCoordinates(ctx context.Context, query string) (Coordinate, bool)
}
