package googlemaps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fieldservice-dispatch/internal/domain"
	"fieldservice-dispatch/internal/metrics"
	"fieldservice-dispatch/internal/platform/obs"
	"fieldservice-dispatch/internal/ports"
)

type matrixValue struct {
	Value int `json:"value"`
}

type matrixElement struct {
	Status            string       `json:"status"`
	Distance          matrixValue  `json:"distance"`
	Duration          matrixValue  `json:"duration"`
	DurationInTraffic *matrixValue `json:"duration_in_traffic"`
}

type matrixResponse struct {
	Status string `json:"status"`
	Rows   []struct {
		Elements []matrixElement `json:"elements"`
	} `json:"rows"`
}

// TravelTimes fetches one origin→many matrix row from the Distance Matrix
// API with the best-guess traffic model. The result is index-aligned with
// destinations.
func (p *Provider) TravelTimes(
	ctx context.Context,
	origin domain.Coordinate,
	destinations []domain.Coordinate,
	departAt time.Time,
) (_ []ports.LegEstimate, err error) {
	defer obs.Time(ctx, "maps.travelTimes")(&err)

	if len(destinations) == 0 {
		return []ports.LegEstimate{}, nil
	}

	dests := make([]string, len(destinations))
	for i, d := range destinations {
		dests[i] = formatCoord(d)
	}

	// The traffic model rejects departure times in the past.
	departure := "now"
	if !departAt.IsZero() && departAt.After(time.Now()) {
		departure = strconv.FormatInt(departAt.Unix(), 10)
	}

	resp, err := p.doWithRetry(ctx, func() (*http.Request, error) {
		q := url.Values{}
		q.Set("origins", formatCoord(origin))
		q.Set("destinations", strings.Join(dests, "|"))
		q.Set("departure_time", departure)
		q.Set("traffic_model", "best_guess")
		q.Set("mode", "driving")
		return p.newRequest(ctx, "/maps/api/distancematrix/json", q)
	})
	if err != nil {
		metrics.MapsRequests.WithLabelValues("distance_matrix", "error").Inc()
		return nil, fmt.Errorf("matrix request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		metrics.MapsRequests.WithLabelValues("distance_matrix", "error").Inc()
		return nil, fmt.Errorf("decode matrix response: %w", err)
	}

	if decoded.Status != "OK" {
		metrics.MapsRequests.WithLabelValues("distance_matrix", "error").Inc()
		return nil, fmt.Errorf("matrix status %q", decoded.Status)
	}
	if len(decoded.Rows) != 1 {
		metrics.MapsRequests.WithLabelValues("distance_matrix", "error").Inc()
		return nil, fmt.Errorf("expected 1 source row, got %d", len(decoded.Rows))
	}

	elements := decoded.Rows[0].Elements
	if len(elements) != len(destinations) {
		metrics.MapsRequests.WithLabelValues("distance_matrix", "error").Inc()
		return nil, fmt.Errorf(
			"row length does not match destinations: elements=%d destinations=%d",
			len(elements), len(destinations),
		)
	}

	out := make([]ports.LegEstimate, len(elements))
	for i, el := range elements {
		if el.Status != "OK" {
			metrics.MapsRequests.WithLabelValues("distance_matrix", "error").Inc()
			return nil, fmt.Errorf("matrix element %d status %q", i, el.Status)
		}

		est := ports.LegEstimate{
			DistanceMeters:  el.Distance.Value,
			DurationSeconds: el.Duration.Value,
		}
		if el.DurationInTraffic != nil {
			est.DurationInTrafficSeconds = el.DurationInTraffic.Value
		}
		out[i] = est
	}

	metrics.MapsRequests.WithLabelValues("distance_matrix", "ok").Inc()
	return out, nil
}

func formatCoord(c domain.Coordinate) string {
	return strconv.FormatFloat(c.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(c.Lng, 'f', 6, 64)
}
