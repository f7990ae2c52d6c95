package googlemaps

import (
	"errors"
	"net/http"

	"golang.org/x/time/rate"

	"fieldservice-dispatch/internal/config"
)

// Provider implements GeocodeProvider and DirectionsProvider against the
// Google Maps web services (Geocoding and Distance Matrix APIs).
//
// It coordinates:
//   - External API calls with retry/backoff
//   - Client-side rate limiting to stay under the per-key QPS quota
//
// The provider is safe for concurrent use.
type Provider struct {
	session    *http.Client
	apiKey     string
	baseURL    string
	limiter    *rate.Limiter
	maxRetries int
}

func NewProvider(cfg config.MapsConfig) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("maps api key is empty")
	}

	rps := cfg.RequestsPerSecond
	if rps < 1 {
		rps = 1
	}
	retries := cfg.MaxRetries
	if retries < 1 {
		retries = 1
	}

	return &Provider{
		session:    &http.Client{Timeout: cfg.Timeout},
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		limiter:    rate.NewLimiter(rate.Limit(rps), rps),
		maxRetries: retries,
	}, nil
}
