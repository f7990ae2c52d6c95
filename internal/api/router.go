package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"fieldservice-dispatch/internal/api/handlers"
	"fieldservice-dispatch/internal/dispatch"
	"fieldservice-dispatch/internal/geocode"
	"fieldservice-dispatch/internal/metrics"
	"fieldservice-dispatch/internal/ports"
	"fieldservice-dispatch/internal/route"
)

// Dependencies holds everything the HTTP layer needs. Handlers stay unaware
// of concrete adapters; they see ports and the two domain services.
type Dependencies struct {
	Logger     zerolog.Logger
	Scheduling ports.SchedulingStore
	Dispatch   ports.DispatchStore
	Matcher    *dispatch.Matcher
	Resolver   *geocode.Resolver
	Planner    *route.Planner
}

// NewRouter wires HTTP handlers with their dependencies and returns an
// http.Handler. This is the API composition root.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(requestLogger(deps.Logger))
	r.Use(recovery)

	assignments := &handlers.AssignmentHandler{
		Scheduling: deps.Scheduling,
		Dispatch:   deps.Dispatch,
		Matcher:    deps.Matcher,
	}
	routes := &handlers.RouteHandler{
		Scheduling: deps.Scheduling,
		Resolver:   deps.Resolver,
		Planner:    deps.Planner,
	}

	r.Get("/health", handlers.Health)

	r.Route("/vehicle-job-assignments", func(r chi.Router) {
		r.Get("/", assignments.List)
		r.Post("/", assignments.Create)
		r.Post("/auto-connect", assignments.AutoConnect)
		r.Delete("/{assignmentID}", assignments.Deactivate)
	})

	r.Get("/users-with-inspections", assignments.ListCandidates)
	r.Get("/route-optimization", routes.Optimize)

	r.Method(http.MethodGet, "/metrics",
		promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return r
}
