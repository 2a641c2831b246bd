// Command geocache inspects and edits the coordinate cache file used by
// eventsvc. Negative entries never expire on their own; -forget re-arms a
// query so the next refresh looks it up again.
//
// Usage:
//
//	go run ./cmd/geocache -file geocache.json -list
//	go run ./cmd/geocache -get "Kino Toni, Antonplatz 1"
//	go run ./cmd/geocache -forget "Cafe Test (Randnotiz) Berlin Mitte"
//	go run ./cmd/geocache -resolve "Velodrom Berlin"
//
// Stop the service before editing the file; concurrent writers are not supported.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	_ "github.com/joho/godotenv/autoload"

	"github.com/couchcryptid/berlin-events-service/internal/adapter/geocache"
	"github.com/couchcryptid/berlin-events-service/internal/adapter/nominatim"
	"github.com/couchcryptid/berlin-events-service/internal/domain"
	"github.com/couchcryptid/berlin-events-service/internal/geocode"
	"github.com/couchcryptid/berlin-events-service/internal/observability"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("geocache", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("file", sharedcfg.EnvOrDefault("GEOCACHE_FILE", "geocache.json"), "path to the cache file")
	list := fs.Bool("list", false, "print every entry")
	get := fs.String("get", "", "print the entry for an exact query")
	forget := fs.String("forget", "", "delete the entry for an exact query")
	resolve := fs.String("resolve", "", "resolve a query through the cache and the geocoding service")
	url := fs.String("url", sharedcfg.EnvOrDefault("GEOCODER_URL", nominatim.DefaultBaseURL), "geocoding service search URL")
	userAgent := fs.String("user-agent", sharedcfg.EnvOrDefault("GEOCODER_USER_AGENT", "salon_der_gedanken_service"), "User-Agent sent to the geocoding service")
	timeout := fs.Duration("timeout", 10*time.Second, "geocoding request timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	metrics := observability.NewMetricsForTesting()
	cache := geocache.Open(*file, logger, metrics)

	switch {
	case *list:
		for _, e := range cache.Entries() {
			fmt.Fprintf(stdout, "%s\t%s\n", formatCoord(e.Coord), e.Query)
		}
		fmt.Fprintf(stdout, "%d entries\n", cache.Len())
		return 0

	case *get != "":
		coord, state := cache.Get(*get)
		switch state {
		case domain.CacheHit:
			fmt.Fprintln(stdout, formatCoord(&coord))
		default:
			fmt.Fprintln(stdout, state)
		}
		return 0

	case *forget != "":
		deleted, err := cache.Delete(*forget)
		if err != nil {
			fmt.Fprintf(stderr, "forget: %v\n", err)
			return 1
		}
		if !deleted {
			fmt.Fprintf(stdout, "no entry for %q\n", *forget)
			return 0
		}
		fmt.Fprintf(stdout, "forgot %q\n", *forget)
		return 0

	case *resolve != "":
		client := nominatim.NewClient(*userAgent, *timeout, logger, metrics, nominatim.WithBaseURL(*url))
		resolver := geocode.NewResolver(cache, client, logger, metrics)
		coord, ok := resolver.GetCoordinates(context.Background(), *resolve)
		if !ok {
			fmt.Fprintln(stdout, "unresolved")
			return 1
		}
		fmt.Fprintln(stdout, formatCoord(&coord))
		return 0
	}

	fs.Usage()
	return 2
}

func formatCoord(c *domain.Coordinate) string {
	if c == nil {
		return "negative"
	}
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}
