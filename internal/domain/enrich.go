package domain

import (
	"context"
)

// GeoSource records where an event's coordinates came from.
type GeoSource string

const (
	GeoSourceOriginal        GeoSource = "original"
	GeoSourceResolved        GeoSource = "resolved"
	GeoSourceProviderDefault GeoSource = "provider_default"
	GeoSourceNone            GeoSource = "none"
)

// EnrichEvent fills in an event's location and coordinates from the
// provider defaults and the resolver. Coordinates already reported by the
// source are left untouched. A nil resolver disables geocoding; provider
// default coordinates are still applied.
func EnrichEvent(ctx context.Context, event Event, defaults ProviderDefault, resolver CoordinateResolver) (Event, GeoSource) {
	if event.Location == "" && defaults.Address != "" {
		event.Location = defaults.Address
	}

	if event.HasCoordinates() {
		return event, GeoSourceOriginal
	}
	if event.Location == "" {
		return event, GeoSourceNone
	}

	if resolver != nil {
		if coord, ok := resolver.GetCoordinates(ctx, LocationQuery(event.Location)); ok {
			event.SetCoordinates(coord)
			return event, GeoSourceResolved
		}
	}

	if coord, ok := defaults.Coordinates(); ok {
		event.SetCoordinates(coord)
		return event, GeoSourceProviderDefault
	}
	return event, GeoSourceNone
}
