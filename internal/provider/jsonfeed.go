package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/couchcryptid/berlin-events-service/internal/domain"
)

// JSONFeedAdapter reads events from a JSON array published at the
// provider's "url" param. Items without id, title or start_date are dropped.
type JSONFeedAdapter struct {
	httpClient *http.Client
}

// NewJSONFeedAdapter creates a JSONFeedAdapter.
func NewJSONFeedAdapter(httpClient *http.Client) *JSONFeedAdapter {
	return &JSONFeedAdapter{httpClient: httpClient}
}

type feedItem struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Cost        string     `json:"cost"`
	Location    string     `json:"location"`
	URL         string     `json:"url"`
	Latitude    *float64   `json:"latitude"`
	Longitude   *float64   `json:"longitude"`
}

func (a *JSONFeedAdapter) FetchEvents(ctx context.Context, cfg domain.ProviderConfig) ([]domain.Event, error) {
	feedURL := cfg.Params["url"]
	if feedURL == "" {
		return nil, errors.New("jsonfeed: params.url is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("feed status %d: %s", resp.StatusCode, body)
	}

	var items []feedItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	events := make([]domain.Event, 0, len(items))
	for _, it := range items {
		if it.ID == "" || it.Title == "" || it.StartDate.IsZero() {
			continue
		}
		sourceURL := it.URL
		if sourceURL == "" {
			sourceURL = feedURL
		}
		events = append(events, domain.Event{
			ID:          cfg.ID + "_" + it.ID,
			Title:       it.Title,
			Description: it.Description,
			StartDate:   it.StartDate,
			EndDate:     it.EndDate,
			Cost:        it.Cost,
			Location:    it.Location,
			ProviderID:  cfg.ID,
			SourceURL:   sourceURL,
			Region:      cfg.Region,
			Latitude:    it.Latitude,
			Longitude:   it.Longitude,
		})
	}
	return events, nil
}
