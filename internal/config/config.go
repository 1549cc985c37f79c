// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends selectable with STORAGE_BACKEND.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// StorageBackend is "postgres" (default) or "memory".
	StorageBackend string

	// DatabaseURL is the Postgres connection string. Required for the postgres backend.
	DatabaseURL string

	// MigrateOnStart applies pending goose migrations before serving. Defaults to true.
	MigrateOnStart bool

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64

	Redis  Redis
	Places Places

	// RoutingAvgSpeedMPH and RoutingRoadFactor tune the straight-line leg estimator.
	RoutingAvgSpeedMPH float64
	RoutingRoadFactor  float64
}

// Redis configures the optional ephemeral cache. An empty Addr disables it.
type Redis struct {
	Addr     string
	Password string
	DB       int
}

// Places configures the places provider and the cache in front of it.
type Places struct {
	APIKey           string
	BaseURL          string
	Timeout          time.Duration
	PlaceTTL         time.Duration
	SearchTTL        time.Duration
	NearbyTTL        time.Duration
	GeohashPrecision uint
}

func defaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("STORAGE_BACKEND", StoragePostgres)
	v.SetDefault("MIGRATE_ON_START", true)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("MAX_BODY_BYTES", 1<<20)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("GOOGLE_PLACES_BASE_URL", "https://maps.googleapis.com/maps/api/place")
	v.SetDefault("PLACES_TIMEOUT", 10*time.Second)
	v.SetDefault("PLACES_PLACE_TTL", 7*24*time.Hour)
	v.SetDefault("PLACES_SEARCH_TTL", time.Hour)
	v.SetDefault("PLACES_NEARBY_TTL", 30*time.Minute)
	v.SetDefault("PLACES_GEOHASH_PRECISION", 9)
	v.SetDefault("ROUTING_AVG_SPEED_MPH", 55.0)
	v.SetDefault("ROUTING_ROAD_FACTOR", 1.2)
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set, or
// describing the first invalid value.
func Load() (Config, error) {
	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	cfg := Config{
		Port:           v.GetString("PORT"),
		StorageBackend: strings.ToLower(v.GetString("STORAGE_BACKEND")),
		DatabaseURL:    v.GetString("DATABASE_URL"),
		MigrateOnStart: v.GetBool("MIGRATE_ON_START"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		CORSOrigins:    splitCSV(v.GetString("CORS_ORIGINS")),
		MaxBodyBytes:   v.GetInt64("MAX_BODY_BYTES"),
		Redis: Redis{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Places: Places{
			APIKey:           v.GetString("GOOGLE_PLACES_API_KEY"),
			BaseURL:          v.GetString("GOOGLE_PLACES_BASE_URL"),
			Timeout:          v.GetDuration("PLACES_TIMEOUT"),
			PlaceTTL:         v.GetDuration("PLACES_PLACE_TTL"),
			SearchTTL:        v.GetDuration("PLACES_SEARCH_TTL"),
			NearbyTTL:        v.GetDuration("PLACES_NEARBY_TTL"),
			GeohashPrecision: v.GetUint("PLACES_GEOHASH_PRECISION"),
		},
		RoutingAvgSpeedMPH: v.GetFloat64("ROUTING_AVG_SPEED_MPH"),
		RoutingRoadFactor:  v.GetFloat64("ROUTING_ROAD_FACTOR"),
	}

	switch cfg.StorageBackend {
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("required environment variables not set: %s", "DATABASE_URL")
		}
	case StorageMemory:
	default:
		return Config{}, fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", StoragePostgres, StorageMemory, cfg.StorageBackend)
	}
	if cfg.Places.GeohashPrecision < 1 || cfg.Places.GeohashPrecision > 12 {
		return Config{}, fmt.Errorf("PLACES_GEOHASH_PRECISION must be between 1 and 12")
	}
	if cfg.Places.Timeout <= 0 {
		return Config{}, fmt.Errorf("PLACES_TIMEOUT must be positive")
	}
	if cfg.MaxBodyBytes <= 0 {
		return Config{}, fmt.Errorf("MAX_BODY_BYTES must be positive")
	}

	return cfg, nil
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
