// Command genmock writes a JSON event feed fixture for local runs of the
// "jsonfeed" provider module. Venue strings deliberately include the messy
// shapes seen on real Berlin venue pages (annotations in parentheses,
// district suffixes, multi-line addresses) so the fixture exercises address
// cleaning.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock/feed.json -count 24
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

var baseDate = time.Date(2026, time.January, 26, 19, 0, 0, 0, time.FixedZone("CET", 3600))

type venue struct {
	location string
	cost     string
}

var venues = []venue{
	{location: "Kino Toni\nAntonplatz 1\n13086 Berlin", cost: "9 EUR"},
	{location: "Velodrom, Paul-Heyse-Straße 26, 10407 Berlin", cost: "ab 25 EUR"},
	{location: "Brotfabrik (Bühne) Caligariplatz 1 Berlin Weißensee", cost: "12 EUR"},
	{location: "Zeiss-Großplanetarium, Prenzlauer Allee 80, 10405 Berlin", cost: "11 EUR"},
	{location: "Theater im Delphi (Eingang Gustav-Adolf-Str.) Berlin Weißensee", cost: "Spende"},
	{location: "", cost: "Free"},
}

type feedItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Cost        string    `json:"cost,omitempty"`
	Location    string    `json:"location,omitempty"`
	URL         string    `json:"url,omitempty"`
}

func main() {
	out := flag.String("out", "data/mock/feed.json", "output path for the feed fixture")
	count := flag.Int("count", 12, "number of events to generate")
	flag.Parse()

	if *count < 1 {
		log.Fatal("count must be positive")
	}
	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		log.Fatalf("create output dir: %v", err)
	}
	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("create %s: %v", *out, err)
	}
	defer f.Close()

	if err := writeFeed(f, *count); err != nil {
		log.Fatalf("write feed: %v", err)
	}
	fmt.Printf("wrote %d events to %s\n", *count, *out)
}

// generate returns count events, one per day, cycling through the venues.
func generate(count int) []feedItem {
	items := make([]feedItem, 0, count)
	for i := 0; i < count; i++ {
		v := venues[i%len(venues)]
		start := baseDate.AddDate(0, 0, i)
		items = append(items, feedItem{
			ID:          fmt.Sprintf("mock-%03d", i+1),
			Title:       fmt.Sprintf("Salonabend #%d", i+1),
			Description: "Generated fixture event.",
			StartDate:   start,
			EndDate:     start.Add(2 * time.Hour),
			Cost:        v.cost,
			Location:    v.location,
			URL:         fmt.Sprintf("https://example.com/events/mock-%03d", i+1),
		})
	}
	return items
}

func writeFeed(w io.Writer, count int) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(generate(count))
}
