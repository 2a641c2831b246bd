package domain

import (
	"time"
)

// Event is a single calendar entry fetched from a provider.
// An empty Location means the source did not report one. Latitude and
// Longitude are pointers because 0 is a valid coordinate.
type Event struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Cost        string     `json:"cost,omitempty"`
	Location    string     `json:"location,omitempty"`
	ProviderID  string     `json:"provider_id"`
	SourceURL   string     `json:"source_url"`
	Region      string     `json:"region,omitempty"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are set.
func (e Event) HasCoordinates() bool {
	return e.Latitude != nil && e.Longitude != nil
}

// SetCoordinates overwrites both coordinates.
func (e *Event) SetCoordinates(c Coordinate) {
	lat, lon := c.Lat, c.Lon
	e.Latitude = &lat
	e.Longitude = &lon
}

// ProviderDefault is the per-source fallback location.
type ProviderDefault struct {
	Address   string
	Latitude  *float64
	Longitude *float64
}

// Coordinates returns the default coordinate pair, if both halves are set.
func (d ProviderDefault) Coordinates() (Coordinate, bool) {
	if d.Latitude == nil || d.Longitude == nil {
		return Coordinate{}, false
	}
	return Coordinate{Lat: *d.Latitude, Lon: *d.Longitude}, true
}

// ProviderConfig describes one configured event source.
type ProviderConfig struct {
	ID             string            `json:"id" yaml:"id"`
	Enabled        bool              `json:"enabled" yaml:"enabled"`
	Module         string            `json:"module" yaml:"module"`
	UpdateInterval time.Duration     `json:"update_interval" yaml:"-"`
	Region         string            `json:"region,omitempty" yaml:"region"`
	Params         map[string]string `json:"params,omitempty" yaml:"params"`
	Address        string            `json:"address,omitempty" yaml:"address"`
	Latitude       *float64          `json:"latitude,omitempty" yaml:"latitude"`
	Longitude      *float64          `json:"longitude,omitempty" yaml:"longitude"`
}

// Default returns the provider's fallback location.
func (p ProviderConfig) Default() ProviderDefault {
	return ProviderDefault{
		Address:   p.Address,
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
	}
}
