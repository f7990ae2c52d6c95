package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the dispatch server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Maps     MapsConfig
	Dispatch DispatchConfig
}

type ServerConfig struct {
	Port            int
	Env             string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	URL string
}

// Redis backs the shared geocode cache tier. An empty URL disables the
// tier; the in-process cache still applies.
type RedisConfig struct {
	URL string
}

type MapsConfig struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerSecond int
}

type DispatchConfig struct {
	// Concurrent geocode lookups per batch.
	GeocodeWorkers int
	// Default service-area centroid, the deterministic fallback for
	// addresses that cannot be geocoded.
	ServiceAreaLat float64
	ServiceAreaLng float64
	// Assumed travel speed when the directions provider is unreachable
	// and legs are estimated from straight-line distance.
	DegradedSpeedKMH float64
}

// Load reads configuration from environment variables and returns a
// validated Config.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            envInt("DISPATCH_PORT", 8080),
			Env:             envString("APP_ENV", "production"),
			ShutdownTimeout: envDuration("DISPATCH_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Maps: MapsConfig{
			BaseURL:           envString("MAPS_BASE_URL", "https://maps.googleapis.com"),
			APIKey:            os.Getenv("MAPS_API_KEY"),
			Timeout:           envDuration("MAPS_TIMEOUT", 10*time.Second),
			MaxRetries:        envInt("MAPS_MAX_RETRIES", 3),
			RequestsPerSecond: envInt("MAPS_REQUESTS_PER_SECOND", 40),
		},
		Dispatch: DispatchConfig{
			GeocodeWorkers:   envInt("GEOCODE_WORKERS", 8),
			ServiceAreaLat:   envFloat("SERVICE_AREA_LAT", 0),
			ServiceAreaLng:   envFloat("SERVICE_AREA_LNG", 0),
			DegradedSpeedKMH: envFloat("DEGRADED_SPEED_KMH", 35),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("DISPATCH_PORT must be in 1..65535, got %d", c.Server.Port)
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Maps.APIKey == "" {
		return fmt.Errorf("MAPS_API_KEY is required")
	}
	if !strings.HasPrefix(c.Maps.BaseURL, "http://") && !strings.HasPrefix(c.Maps.BaseURL, "https://") {
		return fmt.Errorf("MAPS_BASE_URL must start with http:// or https://, got %q", c.Maps.BaseURL)
	}

	if c.Dispatch.GeocodeWorkers < 1 {
		return fmt.Errorf("GEOCODE_WORKERS must be at least 1, got %d", c.Dispatch.GeocodeWorkers)
	}
	if os.Getenv("SERVICE_AREA_LAT") == "" || os.Getenv("SERVICE_AREA_LNG") == "" {
		return fmt.Errorf("SERVICE_AREA_LAT and SERVICE_AREA_LNG are required")
	}
	if c.Dispatch.DegradedSpeedKMH <= 0 {
		return fmt.Errorf("DEGRADED_SPEED_KMH must be positive, got %v", c.Dispatch.DegradedSpeedKMH)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
