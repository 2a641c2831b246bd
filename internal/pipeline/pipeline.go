package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	sharedretry "github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"
	"github.com/rs/xid"

	"github.com/couchcryptid/berlin-events-service/internal/domain"
	"github.com/couchcryptid/berlin-events-service/internal/observability"
	"github.com/couchcryptid/berlin-events-service/internal/provider"
)

// ProviderSource returns the current provider configuration. It is called
// once per cycle so configuration edits apply without a restart.
type ProviderSource interface {
	Providers() ([]domain.ProviderConfig, error)
}

// AdapterLookup resolves a configured module name to its adapter.
type AdapterLookup interface {
	Lookup(module string) (provider.Adapter, error)
}

// EventSaver stores the enriched events of one provider.
type EventSaver interface {
	Save(providerID string, events []domain.Event)
	LastUpdated(providerID string) (time.Time, bool)
}

// BatchLoader writes enriched events to a downstream sink.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.Event) error
}

// CycleResult summarizes one refresh cycle.
type CycleResult struct {
	CycleID   string   `json:"cycle_id"`
	Refreshed []string `json:"refreshed"`
	Skipped   []string `json:"skipped"`
	Failed    []string `json:"failed"`
}

// Refresher fetches, enriches and stores the events of every enabled provider.
type Refresher struct {
	providers ProviderSource
	adapters  AdapterLookup
	resolver  domain.CoordinateResolver
	store     EventSaver
	sink      BatchLoader
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
	interval  time.Duration
	backoff   time.Duration
	ready     atomic.Bool
}

const (
	publishAttempts   = 3
	maxPublishBackoff = 5 * time.Second
)

// Option configures a Refresher.
type Option func(*Refresher)

// WithResolver enables geocoding. Without it only provider default
// coordinates are applied.
func WithResolver(r domain.CoordinateResolver) Option {
	return func(rf *Refresher) { rf.resolver = r }
}

// WithSink publishes every refreshed batch to l.
func WithSink(l BatchLoader) Option {
	return func(rf *Refresher) { rf.sink = l }
}

// WithPublishBackoff sets the initial wait between sink retries.
func WithPublishBackoff(d time.Duration) Option {
	return func(rf *Refresher) { rf.backoff = d }
}

// WithClock replaces the wall clock.
func WithClock(c clockwork.Clock) Option {
	return func(rf *Refresher) { rf.clock = c }
}

// New creates a Refresher that runs a cycle every interval.
func New(providers ProviderSource, adapters AdapterLookup, store EventSaver, logger *slog.Logger, metrics *observability.Metrics, interval time.Duration, opts ...Option) *Refresher {
	r := &Refresher{
		providers: providers,
		adapters:  adapters,
		store:     store,
		logger:    logger,
		metrics:   metrics,
		clock:     clockwork.NewRealClock(),
		interval:  interval,
		backoff:   200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CheckReadiness returns nil once the first refresh cycle has completed.
func (r *Refresher) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no refresh cycle has completed yet")
	}
	return nil
}

// Run executes a cycle immediately and then on every tick until the context
// is cancelled.
func (r *Refresher) Run(ctx context.Context) error {
	r.logger.Info("refresher started", "interval", r.interval)
	r.metrics.RefreshRunning.Set(1)
	defer r.metrics.RefreshRunning.Set(0)

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	r.RunCycle(ctx, false)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresher stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			r.RunCycle(ctx, false)
		}
	}
}

// RunCycle refreshes every enabled provider whose update interval has
// elapsed. With force set the interval check is skipped. Failures are
// logged per provider and never abort the cycle.
func (r *Refresher) RunCycle(ctx context.Context, force bool) CycleResult {
	start := r.clock.Now()
	res := CycleResult{CycleID: xid.New().String()}
	logger := r.logger.With("cycle_id", res.CycleID)
	logger.Info("refresh cycle started", "force", force)

	configs, err := r.providers.Providers()
	if err != nil {
		logger.Warn("provider configuration problems", "error", err)
	}

	for _, cfg := range configs {
		if ctx.Err() != nil {
			break
		}
		if !cfg.Enabled {
			continue
		}
		if !force && !r.due(cfg) {
			res.Skipped = append(res.Skipped, cfg.ID)
			continue
		}
		if err := r.refreshProvider(ctx, logger, cfg); err != nil {
			logger.Error("provider refresh failed", "provider", cfg.ID, "error", err)
			r.metrics.ProviderFetchErrors.WithLabelValues(cfg.ID).Inc()
			res.Failed = append(res.Failed, cfg.ID)
			continue
		}
		res.Refreshed = append(res.Refreshed, cfg.ID)
	}

	r.metrics.RefreshCycles.Inc()
	r.metrics.RefreshDuration.Observe(r.clock.Since(start).Seconds())
	r.ready.Store(true)
	logger.Info("refresh cycle finished",
		"refreshed", len(res.Refreshed),
		"skipped", len(res.Skipped),
		"failed", len(res.Failed),
	)
	return res
}

func (r *Refresher) due(cfg domain.ProviderConfig) bool {
	if cfg.UpdateInterval <= 0 {
		return true
	}
	last, ok := r.store.LastUpdated(cfg.ID)
	if !ok {
		return true
	}
	return r.clock.Since(last) >= cfg.UpdateInterval
}

func (r *Refresher) refreshProvider(ctx context.Context, logger *slog.Logger, cfg domain.ProviderConfig) error {
	adapter, err := r.adapters.Lookup(cfg.Module)
	if err != nil {
		return err
	}

	events, err := adapter.FetchEvents(ctx, cfg)
	if err != nil {
		return fmt.Errorf("fetch events: %w", err)
	}
	r.metrics.EventsFetched.WithLabelValues(cfg.ID).Add(float64(len(events)))

	enriched := EnrichAll(ctx, events, cfg.Default(), r.resolver, logger, r.metrics)
	r.store.Save(cfg.ID, enriched)
	logger.Info("provider refreshed", "provider", cfg.ID, "events", len(enriched))

	r.publish(ctx, logger, cfg.ID, enriched)
	return nil
}

// publish forwards events to the sink, retrying with exponential backoff.
// Sink errors do not fail the provider refresh since the store already
// holds the events.
func (r *Refresher) publish(ctx context.Context, logger *slog.Logger, providerID string, events []domain.Event) {
	if r.sink == nil || len(events) == 0 {
		return
	}

	backoff := r.backoff
	for attempt := 1; ; attempt++ {
		err := r.sink.LoadBatch(ctx, events)
		if err == nil {
			r.metrics.EventsPublished.Add(float64(len(events)))
			return
		}
		if attempt == publishAttempts || ctx.Err() != nil {
			logger.Error("publish events failed", "provider", providerID, "attempts", attempt, "error", err)
			r.metrics.PublishErrors.Inc()
			return
		}
		logger.Warn("publish events failed, retrying", "provider", providerID, "attempt", attempt, "error", err)
		if !sharedretry.SleepWithContext(ctx, backoff) {
			r.metrics.PublishErrors.Inc()
			return
		}
		backoff = sharedretry.NextBackoff(backoff, maxPublishBackoff)
	}
}
