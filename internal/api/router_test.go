package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldservice-dispatch/internal/adapters/cache"
	"fieldservice-dispatch/internal/adapters/googlemaps"
	"fieldservice-dispatch/internal/api"
	"fieldservice-dispatch/internal/api/dto"
	"fieldservice-dispatch/internal/dispatch"
	"fieldservice-dispatch/internal/domain"
	"fieldservice-dispatch/internal/geocode"
	"fieldservice-dispatch/internal/metrics"
	"fieldservice-dispatch/internal/ports"
	"fieldservice-dispatch/internal/route"
	"fieldservice-dispatch/internal/store"
)

func newTestRouter(t *testing.T) (*store.Memory, http.Handler) {
	t.Helper()
	metrics.RegisterDefault()

	mem := store.NewMemory()
	geocoder := &googlemaps.MockGeocodeProvider{Results: map[string]ports.GeocodeResult{}}
	resolver := geocode.NewResolver(geocoder, cache.NewMemoryGeocodeCache(), 8,
		domain.Coordinate{Lat: 40.04, Lng: -75.15})

	directions := googlemaps.NewMockDirectionsProvider(nil)
	directions.DefaultSpeedKMH = 40
	planner := route.NewPlanner(resolver, directions, 35)

	handler := api.NewRouter(api.Dependencies{
		Logger:     zerolog.Nop(),
		Scheduling: mem,
		Dispatch:   mem,
		Matcher:    dispatch.NewMatcher(mem, mem),
		Resolver:   resolver,
		Planner:    planner,
	})
	return mem, handler
}

func doRequest(t *testing.T, handler http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func seedAutoConnectScenario(t *testing.T, mem *store.Memory) domain.Date {
	t.Helper()
	day, err := domain.ParseDate("2024-06-01")
	require.NoError(t, err)

	done := day.Time().Add(7 * time.Hour)
	mem.AddUser("U1", "Dana Alvarez")
	mem.AddVehicle("V1", "Van 12")
	mem.AddProject(42, "Riverside Substation")
	mem.AddInspection(domain.InspectionRecord{
		UserID: "U1", VehicleID: "V1", InspectionDate: day, CompletedAt: &done,
	})
	mem.AddLink(domain.VehicleProjectLink{VehicleID: "V1", ProjectID: 42})
	mem.AddJob(domain.JobLocation{
		ID:                       "J1",
		ProjectID:                42,
		Address:                  "100 Main St",
		Coordinates:              &domain.Coordinate{Lat: 40.05, Lng: -75.10},
		ScheduledTime:            day.Time().Add(9 * time.Hour),
		EstimatedDurationMinutes: 45,
		Priority:                 domain.PriorityHigh,
		Status:                   domain.JobScheduled,
	})
	return day
}

func TestHealthEndpoint(t *testing.T) {
	_, handler := newTestRouter(t)

	rec := doRequest(t, handler, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAutoConnectEndpoint(t *testing.T) {
	mem, handler := newTestRouter(t)
	seedAutoConnectScenario(t, mem)

	rec := doRequest(t, handler, http.MethodPost, "/vehicle-job-assignments/auto-connect",
		dto.AutoConnectRequest{Date: "2024-06-01"})
	require.Equal(t, http.StatusOK, rec.Code)

	var res dto.AutoConnectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Created, 1)
	assert.Equal(t, "U1", res.Created[0].UserID)
	assert.Equal(t, int64(42), res.Created[0].ProjectID)
	assert.Empty(t, res.Skipped)

	// second trigger creates nothing and explains why
	rec = doRequest(t, handler, http.MethodPost, "/vehicle-job-assignments/auto-connect",
		dto.AutoConnectRequest{Date: "2024-06-01"})
	require.Equal(t, http.StatusOK, rec.Code)

	res = dto.AutoConnectResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Empty(t, res.Created)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "already_assigned", res.Skipped[0].Reason)
}

func TestAutoConnectEndpointRejectsBadDate(t *testing.T) {
	_, handler := newTestRouter(t)

	rec := doRequest(t, handler, http.MethodPost, "/vehicle-job-assignments/auto-connect",
		dto.AutoConnectRequest{Date: "06/01/2024"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAssignments(t *testing.T) {
	mem, handler := newTestRouter(t)
	day := seedAutoConnectScenario(t, mem)

	_ = doRequest(t, handler, http.MethodPost, "/vehicle-job-assignments/auto-connect",
		dto.AutoConnectRequest{Date: day.String()})

	rec := doRequest(t, handler, http.MethodGet, "/vehicle-job-assignments?date=2024-06-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res dto.ListAssignmentsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Assignments, 1)
	assert.Equal(t, "Dana Alvarez", res.Assignments[0].UserName)
	assert.Equal(t, "Van 12", res.Assignments[0].VehicleLabel)
	assert.Equal(t, "Riverside Substation", res.Assignments[0].ProjectName)

	t.Run("missing date parameter", func(t *testing.T) {
		rec := doRequest(t, handler, http.MethodGet, "/vehicle-job-assignments", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCreateAndDeactivateAssignment(t *testing.T) {
	_, handler := newTestRouter(t)

	body := dto.CreateAssignmentRequest{
		UserID:         "U1",
		VehicleID:      "V1",
		ProjectID:      42,
		AssignmentDate: "2024-06-01",
		Notes:          "manual dispatch",
	}
	rec := doRequest(t, handler, http.MethodPost, "/vehicle-job-assignments", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created dto.AssignmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "manual dispatch", created.Notes)

	t.Run("duplicate tuple conflicts", func(t *testing.T) {
		rec := doRequest(t, handler, http.MethodPost, "/vehicle-job-assignments", body)
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("deactivate then reuse", func(t *testing.T) {
		rec := doRequest(t, handler, http.MethodDelete, "/vehicle-job-assignments/"+created.ID, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = doRequest(t, handler, http.MethodPost, "/vehicle-job-assignments", body)
		require.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("deactivate unknown id", func(t *testing.T) {
		rec := doRequest(t, handler, http.MethodDelete, "/vehicle-job-assignments/no-such-id", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		rec := doRequest(t, handler, http.MethodPost, "/vehicle-job-assignments",
			dto.CreateAssignmentRequest{UserID: "U2", AssignmentDate: "2024-06-01"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListTechnicianCandidates(t *testing.T) {
	mem, handler := newTestRouter(t)
	seedAutoConnectScenario(t, mem)

	rec := doRequest(t, handler, http.MethodGet, "/users-with-inspections?date=2024-06-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res dto.ListTechnicianCandidatesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Users, 1)
	assert.Equal(t, "U1", res.Users[0].UserID)
	assert.Equal(t, "Dana Alvarez", res.Users[0].UserName)
	require.NotNil(t, res.Users[0].CompletedAt)
}

func TestRouteOptimizationEndpoint(t *testing.T) {
	mem, handler := newTestRouter(t)
	day := seedAutoConnectScenario(t, mem)

	mem.AddJob(domain.JobLocation{
		ID:                       "J2",
		ProjectID:                42,
		Address:                  "200 Oak Ave",
		Coordinates:              &domain.Coordinate{Lat: 40.10, Lng: -75.20},
		ScheduledTime:            day.Time().Add(11 * time.Hour),
		EstimatedDurationMinutes: 30,
		Priority:                 domain.PriorityMedium,
		Status:                   domain.JobScheduled,
	})
	// completed work never shows up in a route
	mem.AddJob(domain.JobLocation{
		ID:            "J3",
		ProjectID:     42,
		Address:       "300 Pine Rd",
		Coordinates:   &domain.Coordinate{Lat: 40.02, Lng: -75.05},
		ScheduledTime: day.Time().Add(8 * time.Hour),
		Status:        domain.JobCompleted,
	})

	rec := doRequest(t, handler, http.MethodGet,
		"/route-optimization?date=2024-06-01&vehicleId=V1&startLocation=40.0,-75.0", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res dto.RouteOptimizationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.ElementsMatch(t, []string{"J1", "J2"}, res.OptimizedOrder)
	assert.Len(t, res.Legs, 2)
	assert.False(t, res.Degraded)
	assert.Empty(t, res.Unroutable)
	assert.Greater(t, res.TotalDurationSeconds, 0)

	t.Run("no scheduled jobs", func(t *testing.T) {
		rec := doRequest(t, handler, http.MethodGet,
			"/route-optimization?date=2024-07-15&vehicleId=V1&startLocation=40.0,-75.0", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing start location", func(t *testing.T) {
		rec := doRequest(t, handler, http.MethodGet,
			"/route-optimization?date=2024-06-01&vehicleId=V1", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad departAt", func(t *testing.T) {
		rec := doRequest(t, handler, http.MethodGet,
			"/route-optimization?date=2024-06-01&vehicleId=V1&startLocation=40.0,-75.0&departAt=tomorrow", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	_, handler := newTestRouter(t)

	// generate one request so the counters have something to show
	_ = doRequest(t, handler, http.MethodGet, "/health", nil)

	rec := doRequest(t, handler, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
