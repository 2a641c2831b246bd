package provider

import (
	"context"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/berlin-events-service/internal/domain"
)

// ExampleAdapter returns two fixed events starting now. It is used for local
// runs and smoke tests of the refresh loop.
type ExampleAdapter struct {
	clock clockwork.Clock
}

// NewExampleAdapter creates an ExampleAdapter.
func NewExampleAdapter(clock clockwork.Clock) *ExampleAdapter {
	return &ExampleAdapter{clock: clock}
}

func (a *ExampleAdapter) FetchEvents(_ context.Context, cfg domain.ProviderConfig) ([]domain.Event, error) {
	now := a.clock.Now()
	return []domain.Event{
		{
			ID:          "1",
			Title:       "Example Event 1",
			Description: "This is a test event.",
			StartDate:   now,
			ProviderID:  cfg.ID,
			SourceURL:   "http://example.com/event1",
			Cost:        "Free",
			Location:    "Berlin",
			Region:      cfg.Region,
		},
		{
			ID:          "2",
			Title:       "Example Event 2",
			Description: "Another test event.",
			StartDate:   now,
			ProviderID:  cfg.ID,
			SourceURL:   "http://example.com/event2",
			Cost:        "10 EUR",
			Location:    "Berlin",
			Region:      cfg.Region,
		},
	}, nil
}
