package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/berlin-events-service/internal/domain"
)

// ErrProvidersFileMissing is returned when the providers file does not exist.
var ErrProvidersFileMissing = errors.New("providers file not found")

type providersDocument struct {
	Providers []providerEntry `yaml:"providers"`
}

type providerEntry struct {
	ID             string            `yaml:"id"`
	Enabled        bool              `yaml:"enabled"`
	Module         string            `yaml:"module"`
	UpdateInterval string            `yaml:"update_interval"`
	Region         string            `yaml:"region"`
	Params         map[string]string `yaml:"params"`
	Address        string            `yaml:"address"`
	Latitude       *float64          `yaml:"latitude"`
	Longitude      *float64          `yaml:"longitude"`
}

// ProvidersFile is a providers YAML path that is re-read on every call, so
// edits take effect on the next refresh cycle.
type ProvidersFile string

// Providers loads the provider list from disk.
func (f ProvidersFile) Providers() ([]domain.ProviderConfig, error) {
	return LoadProviders(string(f))
}

// LoadProviders reads and validates the providers file. Invalid entries are
// skipped; their problems are joined into the returned error alongside the
// valid providers. A missing file returns ErrProvidersFileMissing.
func LoadProviders(path string) ([]domain.ProviderConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrProvidersFileMissing, path)
		}
		return nil, fmt.Errorf("read providers file: %w", err)
	}

	var doc providersDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse providers file: %w", err)
	}

	providers := make([]domain.ProviderConfig, 0, len(doc.Providers))
	var errs []error
	seen := make(map[string]bool, len(doc.Providers))
	for i, entry := range doc.Providers {
		p, err := entry.toProviderConfig()
		if err != nil {
			errs = append(errs, fmt.Errorf("provider #%d: %w", i, err))
			continue
		}
		if seen[p.ID] {
			errs = append(errs, fmt.Errorf("provider #%d: duplicate id %q", i, p.ID))
			continue
		}
		seen[p.ID] = true
		providers = append(providers, p)
	}

	return providers, errors.Join(errs...)
}

func (e providerEntry) toProviderConfig() (domain.ProviderConfig, error) {
	if e.ID == "" {
		return domain.ProviderConfig{}, errors.New("id is required")
	}
	if e.Module == "" {
		return domain.ProviderConfig{}, fmt.Errorf("%s: module is required", e.ID)
	}
	if (e.Latitude == nil) != (e.Longitude == nil) {
		return domain.ProviderConfig{}, fmt.Errorf("%s: latitude and longitude must be set together", e.ID)
	}

	var interval time.Duration
	if e.UpdateInterval != "" {
		d, err := time.ParseDuration(e.UpdateInterval)
		if err != nil || d < 0 {
			return domain.ProviderConfig{}, fmt.Errorf("%s: invalid update_interval %q", e.ID, e.UpdateInterval)
		}
		interval = d
	}

	return domain.ProviderConfig{
		ID:             e.ID,
		Enabled:        e.Enabled,
		Module:         e.Module,
		UpdateInterval: interval,
		Region:         e.Region,
		Params:         e.Params,
		Address:        e.Address,
		Latitude:       e.Latitude,
		Longitude:      e.Longitude,
	}, nil
}
