package config

import (
	"fmt"
	"os"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	ProvidersFile   string
	RefreshInterval time.Duration

	// Geocoding configuration.
	GeocodingEnabled  bool
	GeocacheFile      string
	GeocoderURL       string
	GeocoderUserAgent string
	GeocoderTimeout   time.Duration
	GeocoderLanguage  string

	// Optional Kafka sink for enriched events; disabled when no brokers are set.
	KafkaBrokers []string
	KafkaTopic   string
}

// KafkaEnabled reports whether enriched events should be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	refreshInterval, err := parsePositiveDuration("REFRESH_INTERVAL", "15m")
	if err != nil {
		return nil, err
	}

	geocoderTimeout, err := parsePositiveDuration("GEOCODER_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	geocodingEnabled := true
	if v := os.Getenv("GEOCODING_ENABLED"); v != "" {
		geocodingEnabled = v == "true"
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	return &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8000"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ProvidersFile:   sharedcfg.EnvOrDefault("PROVIDERS_FILE", "config.yaml"),
		RefreshInterval: refreshInterval,

		GeocodingEnabled:  geocodingEnabled,
		GeocacheFile:      sharedcfg.EnvOrDefault("GEOCACHE_FILE", "geocache.json"),
		GeocoderURL:       sharedcfg.EnvOrDefault("GEOCODER_URL", "https://nominatim.openstreetmap.org/search"),
		GeocoderUserAgent: sharedcfg.EnvOrDefault("GEOCODER_USER_AGENT", "salon_der_gedanken_service"),
		GeocoderTimeout:   geocoderTimeout,
		GeocoderLanguage:  sharedcfg.EnvOrDefault("GEOCODER_LANGUAGE", "de"),

		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "enriched-events"),
	}, nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}
