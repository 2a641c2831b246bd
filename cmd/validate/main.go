// Command validate checks the deployment files of the event service before a
// rollout: the providers YAML and the coordinate cache file.
//
// Usage:
//
//	go run ./cmd/validate -providers config.yaml -geocache geocache.json
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/berlin-events-service/internal/config"
	"github.com/couchcryptid/berlin-events-service/internal/domain"
	"github.com/couchcryptid/berlin-events-service/internal/provider"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	providersPath := flag.String("providers", "config.yaml", "path to the providers YAML file")
	geocachePath := flag.String("geocache", "", "path to the coordinate cache file (optional)")
	flag.Parse()

	os.Exit(run(*providersPath, *geocachePath, os.Stdout))
}

func run(providersPath, geocachePath string, out io.Writer) int {
	fmt.Fprintln(out, "=== Event Service Configuration Validation ===")
	fmt.Fprintln(out)

	providers, loadPhase := validateProvidersFile(providersPath)
	phases := []*phase{
		loadPhase,
		validateModules(providers, provider.Builtin(nil, clockwork.NewRealClock())),
		validateDefaults(providers),
	}
	if geocachePath != "" {
		phases = append(phases, validateGeocache(geocachePath))
	}

	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-32s %s\n", p.name, status)
	}
	fmt.Fprintf(out, "\nProviders: %d loaded\n", len(providers))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

func validateProvidersFile(path string) ([]domain.ProviderConfig, *phase) {
	p := &phase{name: "Providers file"}
	providers, err := config.LoadProviders(path)
	if err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			p.errorf("%s", line)
		}
	}
	return providers, p
}

func validateModules(providers []domain.ProviderConfig, reg *provider.Registry) *phase {
	p := &phase{name: "Provider modules"}
	for _, cfg := range providers {
		if !cfg.Enabled {
			continue
		}
		if _, err := reg.Lookup(cfg.Module); err != nil {
			p.errorf("provider %s: %v (known: %s)", cfg.ID, err, strings.Join(reg.Modules(), ", "))
			continue
		}
		if cfg.Module == "jsonfeed" && cfg.Params["url"] == "" {
			p.errorf("provider %s: jsonfeed needs params.url", cfg.ID)
		}
	}
	return p
}

func validateDefaults(providers []domain.ProviderConfig) *phase {
	p := &phase{name: "Provider default locations"}
	for _, cfg := range providers {
		if coord, ok := cfg.Default().Coordinates(); ok {
			checkCoordinate(p, "provider "+cfg.ID, coord)
		}
	}
	return p
}

func validateGeocache(path string) *phase {
	p := &phase{name: "Coordinate cache"}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return p
		}
		p.errorf("read: %v", err)
		return p
	}

	var entries map[string]*domain.Coordinate
	if err := json.Unmarshal(data, &entries); err != nil {
		p.errorf("malformed, the service would start with an empty cache: %v", err)
		return p
	}
	for query, coord := range entries {
		if query == "" {
			p.errorf("empty query key")
		}
		if coord != nil {
			checkCoordinate(p, fmt.Sprintf("entry %q", query), *coord)
		}
	}
	return p
}

func checkCoordinate(p *phase, label string, c domain.Coordinate) {
	if c.Lat < -90 || c.Lat > 90 {
		p.errorf("%s: latitude %v out of range", label, c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		p.errorf("%s: longitude %v out of range", label, c.Lon)
	}
}
