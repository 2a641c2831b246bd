// Command eventsvc runs the event aggregation service: a periodic refresh of
// every configured provider, geocoding enrichment and the HTTP query API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/berlin-events-service/internal/adapter/geocache"
	httpadapter "github.com/couchcryptid/berlin-events-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/berlin-events-service/internal/adapter/kafka"
	"github.com/couchcryptid/berlin-events-service/internal/adapter/nominatim"
	"github.com/couchcryptid/berlin-events-service/internal/config"
	"github.com/couchcryptid/berlin-events-service/internal/geocode"
	"github.com/couchcryptid/berlin-events-service/internal/observability"
	"github.com/couchcryptid/berlin-events-service/internal/pipeline"
	"github.com/couchcryptid/berlin-events-service/internal/provider"
	"github.com/couchcryptid/berlin-events-service/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers := config.ProvidersFile(cfg.ProvidersFile)
	registry := provider.Builtin(&http.Client{Timeout: 30 * time.Second}, clock)
	events := store.New(clock)

	opts := []pipeline.Option{pipeline.WithClock(clock)}
	backend := httpadapter.Backend{Events: events, Providers: providers}

	// Geocoding is feature-flagged via GEOCODING_ENABLED.
	var cache *geocache.Cache
	if cfg.GeocodingEnabled {
		cache = geocache.Open(cfg.GeocacheFile, logger, metrics)
		client := nominatim.NewClient(cfg.GeocoderUserAgent, cfg.GeocoderTimeout, logger, metrics,
			nominatim.WithBaseURL(cfg.GeocoderURL),
			nominatim.WithLanguage(cfg.GeocoderLanguage),
		)
		opts = append(opts, pipeline.WithResolver(geocode.NewResolver(cache, client, logger, metrics)))
		backend.Cache = cache
		metrics.GeocodeEnabled.Set(1)
		logger.Info("geocoding enabled", "cache_file", cfg.GeocacheFile, "entries", cache.Len(), "timeout", cfg.GeocoderTimeout)
	} else {
		logger.Info("geocoding disabled")
	}

	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger, clock)
		opts = append(opts, pipeline.WithSink(writer))
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	refresher := pipeline.New(providers, registry, events, logger, metrics, cfg.RefreshInterval, opts...)
	backend.Refresher = refresher
	backend.Ready = refresher

	srv := httpadapter.NewServer(ctx, cfg.HTTPAddr, backend, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start refresh loop.
	go func() {
		if err := refresher.Run(ctx); err != nil {
			logger.Error("refresher error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if cache != nil {
		if err := cache.Flush(); err != nil {
			logger.Error("geocache flush error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
