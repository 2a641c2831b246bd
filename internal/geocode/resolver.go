// Package geocode resolves event locations to coordinates through a
// persistent cache, retrying failed lookups with a cleaned address.
package geocode

import (
	"context"
	"errors"
	"log/slog"

	"github.com/couchcryptid/berlin-events-service/internal/domain"
	"github.com/couchcryptid/berlin-events-service/internal/observability"
)

// Resolver implements domain.CoordinateResolver.
//
// Permanent failures (domain.ErrNotFound) are cached as negative entries;
// transient failures are never written to the cache so the next refresh
// cycle retries them. A success of the cleaned query is also stored under
// the raw query.
type Resolver struct {
	cache     domain.CoordinateCache
	geocoder  domain.Geocoder
	normalize func(string) string
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithNormalizer replaces domain.CleanAddress as the fallback query builder.
func WithNormalizer(fn func(string) string) Option {
	return func(r *Resolver) { r.normalize = fn }
}

// NewResolver creates a Resolver over the given cache and geocoder.
func NewResolver(cache domain.CoordinateCache, geocoder domain.Geocoder, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Resolver {
	r := &Resolver{
		cache:     cache,
		geocoder:  geocoder,
		normalize: domain.CleanAddress,
		logger:    logger,
		metrics:   metrics,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type lookupOutcome int

const (
	outcomeFound lookupOutcome = iota
	outcomeNotFound
	outcomeUnavailable
)

// GetCoordinates returns the coordinates for query, or false when the query
// is empty, unresolvable, or the geocoding service is unavailable.
func (r *Resolver) GetCoordinates(ctx context.Context, query string) (domain.Coordinate, bool) {
	if query == "" {
		return domain.Coordinate{}, false
	}

	coord, state := r.lookup("raw", query)
	switch state {
	case domain.CacheHit:
		return coord, true
	case domain.CacheMiss:
		coord, outcome := r.geocode(ctx, query)
		switch outcome {
		case outcomeFound:
			r.put(query, &coord)
			return coord, true
		case outcomeUnavailable:
			return domain.Coordinate{}, false
		}
		r.put(query, nil)
	case domain.CacheNegative:
	}

	cleaned := r.normalize(query)
	if cleaned == query {
		return domain.Coordinate{}, false
	}

	coord, state = r.lookup("cleaned", cleaned)
	switch state {
	case domain.CacheHit:
		r.put(query, &coord)
		return coord, true
	case domain.CacheNegative:
		return domain.Coordinate{}, false
	}

	coord, outcome := r.geocode(ctx, cleaned)
	switch outcome {
	case outcomeFound:
		r.put(cleaned, &coord)
		r.put(query, &coord)
		return coord, true
	case outcomeNotFound:
		r.logger.Warn("address not found even after cleaning", "query", query, "cleaned", cleaned)
		r.put(cleaned, nil)
	}
	return domain.Coordinate{}, false
}

func (r *Resolver) lookup(kind, query string) (domain.Coordinate, domain.CacheState) {
	coord, state := r.cache.Get(query)
	r.metrics.GeocodeCache.WithLabelValues(kind, state.String()).Inc()
	return coord, state
}

func (r *Resolver) geocode(ctx context.Context, query string) (domain.Coordinate, lookupOutcome) {
	r.logger.Info("geocoding", "query", query)

	coord, err := r.geocoder.Geocode(ctx, query)
	switch {
	case err == nil:
		return coord, outcomeFound
	case errors.Is(err, domain.ErrNotFound):
		r.logger.Debug("address not found", "query", query)
		return domain.Coordinate{}, outcomeNotFound
	default:
		r.logger.Error("geocoding service error", "query", query, "error", err)
		return domain.Coordinate{}, outcomeUnavailable
	}
}

// put writes through to the cache. Persistence failures are already logged
// by the cache and the in-memory entry is kept, so they are not fatal here.
func (r *Resolver) put(query string, coord *domain.Coordinate) {
	if err := r.cache.Put(query, coord); err != nil {
		r.logger.Debug("cache entry kept in memory only", "query", query, "error", err)
	}
}
