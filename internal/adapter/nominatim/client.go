package nominatim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/berlin-events-service/internal/domain"
	"github.com/couchcryptid/berlin-events-service/internal/observability"
)

// DefaultBaseURL is the public OpenStreetMap Nominatim search endpoint.
const DefaultBaseURL = "https://nominatim.openstreetmap.org/search"

// Client implements domain.Geocoder using the Nominatim search API.
// Each Geocode call makes exactly one request.
type Client struct {
	userAgent  string
	language   string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a different Nominatim instance.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithLanguage sets the accept-language parameter for result names.
func WithLanguage(lang string) Option {
	return func(c *Client) { c.language = lang }
}

// NewClient creates a Nominatim client. userAgent identifies the service to
// the upstream as its usage policy requires; timeout bounds every request.
func NewClient(userAgent string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Client {
	c := &Client{
		userAgent: userAgent,
		language:  "de",
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: DefaultBaseURL,
		metrics: metrics,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Geocode resolves query to its best match. A valid response without results
// returns an error wrapping domain.ErrNotFound; timeouts, transport failures,
// non-200 responses and undecodable bodies wrap domain.ErrServiceUnavailable.
func (c *Client) Geocode(ctx context.Context, query string) (domain.Coordinate, error) {
	start := time.Now()
	coord, err := c.doRequest(ctx, query)
	c.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	case errors.Is(err, domain.ErrNotFound):
		c.metrics.GeocodeRequests.WithLabelValues("not_found").Inc()
	default:
		c.metrics.GeocodeRequests.WithLabelValues("unavailable").Inc()
	}
	return coord, err
}

func (c *Client) doRequest(ctx context.Context, query string) (domain.Coordinate, error) {
	params := url.Values{
		"q":               {query},
		"format":          {"jsonv2"},
		"limit":           {"1"},
		"accept-language": {c.language},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("%w: geocode request: %w", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Coordinate{}, fmt.Errorf("%w: nominatim status %d: %s", domain.ErrServiceUnavailable, resp.StatusCode, body)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return domain.Coordinate{}, fmt.Errorf("%w: decode response: %w", domain.ErrServiceUnavailable, err)
	}

	if len(places) == 0 {
		return domain.Coordinate{}, fmt.Errorf("%w: %q", domain.ErrNotFound, query)
	}

	p := places[0]
	c.logger.Debug("geocoded", "query", query, "display_name", p.DisplayName, "lat", p.Lat, "lon", p.Lon)
	return domain.Coordinate{Lat: p.Lat, Lon: p.Lon}, nil
}

// Nominatim jsonv2 response types.

type place struct {
	PlaceID     int64   `json:"place_id"`
	Lat         float64 `json:"lat,string"`
	Lon         float64 `json:"lon,string"`
	DisplayName string  `json:"display_name"`
	Category    string  `json:"category"`
	Type        string  `json:"type"`
}
