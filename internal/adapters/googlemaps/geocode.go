package googlemaps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"fieldservice-dispatch/internal/domain"
	"fieldservice-dispatch/internal/metrics"
	"fieldservice-dispatch/internal/platform/obs"
	"fieldservice-dispatch/internal/ports"
)

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
			LocationType string `json:"location_type"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode resolves one address via the Geocoding API. Unresolvable
// addresses come back as *ports.GeocodeFailure so the caller can pick a
// fallback per reason.
func (p *Provider) Geocode(ctx context.Context, address string) (_ ports.GeocodeResult, err error) {
	defer obs.Time(ctx, "maps.geocode")(&err)

	if address == "" {
		return ports.GeocodeResult{}, errors.New("geocode: address must be non-empty")
	}

	resp, err := p.doWithRetry(ctx, func() (*http.Request, error) {
		q := url.Values{}
		q.Set("address", address)
		return p.newRequest(ctx, "/maps/api/geocode/json", q)
	})
	if err != nil {
		metrics.MapsRequests.WithLabelValues("geocode", "error").Inc()
		reason := ports.GeocodeProviderError
		if rateLimited(err) {
			reason = ports.GeocodeRateLimited
		}
		return ports.GeocodeResult{}, &ports.GeocodeFailure{Address: address, Reason: reason, Err: err}
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		metrics.MapsRequests.WithLabelValues("geocode", "error").Inc()
		return ports.GeocodeResult{}, &ports.GeocodeFailure{
			Address: address,
			Reason:  ports.GeocodeProviderError,
			Err:     fmt.Errorf("decode geocode response: %w", err),
		}
	}

	switch decoded.Status {
	case "OK":
	case "ZERO_RESULTS":
		metrics.MapsRequests.WithLabelValues("geocode", "zero_results").Inc()
		return ports.GeocodeResult{}, &ports.GeocodeFailure{Address: address, Reason: ports.GeocodeNotFound}
	case "OVER_QUERY_LIMIT":
		metrics.MapsRequests.WithLabelValues("geocode", "over_limit").Inc()
		return ports.GeocodeResult{}, &ports.GeocodeFailure{Address: address, Reason: ports.GeocodeRateLimited}
	default:
		metrics.MapsRequests.WithLabelValues("geocode", "error").Inc()
		return ports.GeocodeResult{}, &ports.GeocodeFailure{
			Address: address,
			Reason:  ports.GeocodeProviderError,
			Err:     fmt.Errorf("geocode status %q", decoded.Status),
		}
	}

	if len(decoded.Results) == 0 {
		metrics.MapsRequests.WithLabelValues("geocode", "zero_results").Inc()
		return ports.GeocodeResult{}, &ports.GeocodeFailure{Address: address, Reason: ports.GeocodeNotFound}
	}

	metrics.MapsRequests.WithLabelValues("geocode", "ok").Inc()

	best := decoded.Results[0]
	confidence := ports.ConfidenceApproximate
	if best.Geometry.LocationType == "ROOFTOP" {
		confidence = ports.ConfidenceExact
	}

	return ports.GeocodeResult{
		Coord:      domain.Coordinate{Lat: best.Geometry.Location.Lat, Lng: best.Geometry.Location.Lng},
		Confidence: confidence,
	}, nil
}
