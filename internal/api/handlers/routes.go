package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"fieldservice-dispatch/internal/api/dto"
	"fieldservice-dispatch/internal/domain"
	"fieldservice-dispatch/internal/geocode"
	"fieldservice-dispatch/internal/ports"
	"fieldservice-dispatch/internal/route"
)

// RouteHandler computes an optimized route for one vehicle's scheduled jobs
// on a date.
type RouteHandler struct {
	Scheduling ports.SchedulingStore
	Resolver   *geocode.Resolver
	Planner    *route.Planner
}

// Optimize handles GET /route-optimization?date=&vehicleId=&startLocation=.
// startLocation accepts either a "lat,lng" pair or a street address; an
// optional departAt (RFC 3339) overrides the default departure of now.
func (h *RouteHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}

	vehicleID := strings.TrimSpace(r.URL.Query().Get("vehicleId"))
	if vehicleID == "" {
		writeError(w, r, http.StatusBadRequest, "vehicleId is required")
		return
	}

	rawStart := strings.TrimSpace(r.URL.Query().Get("startLocation"))
	if rawStart == "" {
		writeError(w, r, http.StatusBadRequest, "startLocation is required")
		return
	}

	departAt := time.Now()
	if raw := r.URL.Query().Get("departAt"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "departAt must be an RFC 3339 timestamp")
			return
		}
		departAt = parsed
	}

	start, err := h.startCoordinate(r, rawStart)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("resolve start location failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	jobs, err := h.Scheduling.ListJobsForVehicle(r.Context(), vehicleID, date)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("list jobs for vehicle failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	stops := make([]domain.JobLocation, 0, len(jobs))
	for _, j := range jobs {
		if j.Status == domain.JobScheduled {
			stops = append(stops, j)
		}
	}
	if len(stops) == 0 {
		writeError(w, r, http.StatusNotFound, "no scheduled jobs for this vehicle on that date")
		return
	}

	result, err := h.Planner.Optimize(r.Context(), start, stops, departAt)
	if err != nil {
		if errors.Is(err, route.ErrNoStops) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("route optimization failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, routeResponse(result))
}

// startCoordinate turns the startLocation parameter into a coordinate:
// a literal "lat,lng" pair is used as-is, anything else is geocoded with
// the service-area centroid as fallback.
func (h *RouteHandler) startCoordinate(r *http.Request, raw string) (domain.Coordinate, error) {
	if coord, ok := parseLatLng(raw); ok {
		return coord, nil
	}

	res, usedFallback, err := h.Resolver.ResolveStart(r.Context(), raw)
	if err != nil {
		return domain.Coordinate{}, err
	}
	if usedFallback {
		zerolog.Ctx(r.Context()).Warn().Str("start", raw).Msg("start location fell back to service area centroid")
	}
	return res.Coord, nil
}

func parseLatLng(raw string) (domain.Coordinate, bool) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return domain.Coordinate{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return domain.Coordinate{}, false
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return domain.Coordinate{}, false
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return domain.Coordinate{}, false
	}
	return domain.Coordinate{Lat: lat, Lng: lng}, true
}

func routeResponse(result *domain.RouteOptimization) dto.RouteOptimizationResponse {
	res := dto.RouteOptimizationResponse{
		OptimizedOrder:       result.OptimizedOrder,
		Legs:                 make([]dto.RouteLegResponse, 0, len(result.Legs)),
		TotalDistanceMeters:  result.TotalDistanceMeters,
		TotalDurationSeconds: result.TotalDurationSeconds,
		Degraded:             result.Degraded,
		Unroutable:           make([]dto.UnroutableStopResponse, 0, len(result.Unroutable)),
		DepartAt:             result.DepartAt,
	}
	for _, leg := range result.Legs {
		res.Legs = append(res.Legs, dto.RouteLegResponse{
			FromJobID:           leg.FromJobID,
			ToJobID:             leg.ToJobID,
			DistanceMeters:      leg.DistanceMeters,
			DurationSeconds:     leg.DurationSeconds,
			TrafficDelaySeconds: leg.TrafficDelaySeconds,
			TrafficCondition:    string(leg.Traffic),
		})
	}
	for _, u := range result.Unroutable {
		res.Unroutable = append(res.Unroutable, dto.UnroutableStopResponse{
			JobID:   u.JobID,
			Address: u.Address,
			Reason:  u.Reason,
		})
	}
	return res
}
