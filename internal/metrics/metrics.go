package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service.
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts requests by method, route pattern, and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// GeocodeLookups counts address resolutions by where the answer came
	// from: cache, provider, fallback, or failed.
	GeocodeLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "geocode_lookups_total", Help: "Geocode lookups by result source."},
		[]string{"source"},
	)
	// MapsRequests counts upstream Maps API calls by endpoint and outcome.
	MapsRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "maps_api_requests_total", Help: "Upstream Maps API requests by endpoint and status."},
		[]string{"endpoint", "status"},
	)
	// RouteOptimizations counts optimization runs by mode (live or degraded).
	RouteOptimizations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "route_optimizations_total", Help: "Route optimization runs by mode."},
		[]string{"mode"},
	)
	// AutoConnectOutcomes counts per-technician auto-connect outcomes.
	AutoConnectOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "auto_connect_outcomes_total", Help: "Auto-connect outcomes per technician (created or skip reason)."},
		[]string{"outcome"},
	)
)

var regOnce sync.Once

// RegisterDefault registers all collectors on the service registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(GeocodeLookups)
		Registry.MustRegister(MapsRequests)
		Registry.MustRegister(RouteOptimizations)
		Registry.MustRegister(AutoConnectOutcomes)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
