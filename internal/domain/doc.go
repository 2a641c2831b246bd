// Package domain models calendar events aggregated from independent venue
// sources and the rules used to attach coordinates to them.
//
// # Locations
//
// Venue sites publish free-text locations. They are noisy: parenthetical
// asides ("Cafe Test (HH links)"), district suffixes after the city name
// ("Berlin Mitte", "Berlin-Pankow") and multi-line postal addresses are common.
// [CleanAddress] strips the first two so a failed lookup can be retried with a
// simpler query; [EnrichEvent] collapses line breaks before querying.
//
// # Precedence
//
// Coordinates on an event come from, in order:
//
//  1. the source itself, when it reports both latitude and longitude;
//  2. the geocoded event location (or the provider's default address when the
//     event has no location of its own);
//  3. the provider's default coordinates.
//
// Coordinates reported by the source are never overwritten.
//
// # Cache states
//
// A coordinate cache distinguishes three states for a query: never attempted
// ([CacheMiss]), resolved ([CacheHit]) and known to be unresolvable
// ([CacheNegative]). Negative entries are permanent; an operator removes them
// with the geocache command when an address becomes resolvable.
package domain
