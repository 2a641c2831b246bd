package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/berlin-events-service/internal/domain"
	"github.com/couchcryptid/berlin-events-service/internal/observability"
)

// EnrichAll enriches each event independently. A panic while enriching one
// event is recovered and that event is kept as fetched.
func EnrichAll(ctx context.Context, events []domain.Event, defaults domain.ProviderDefault, resolver domain.CoordinateResolver, logger *slog.Logger, metrics *observability.Metrics) []domain.Event {
	out := make([]domain.Event, len(events))
	for i, ev := range events {
		enriched, src := enrichOne(ctx, ev, defaults, resolver, logger, metrics)
		out[i] = enriched
		metrics.EventsEnriched.WithLabelValues(string(src)).Inc()
	}
	return out
}

func enrichOne(ctx context.Context, ev domain.Event, defaults domain.ProviderDefault, resolver domain.CoordinateResolver, logger *slog.Logger, metrics *observability.Metrics) (out domain.Event, src domain.GeoSource) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("event enrichment panicked, keeping original",
				"event_id", ev.ID,
				"provider", ev.ProviderID,
				"panic", rec,
			)
			metrics.EnrichPanics.Inc()
			out, src = ev, domain.GeoSourceNone
		}
	}()
	return domain.EnrichEvent(ctx, ev, defaults, resolver)
}
