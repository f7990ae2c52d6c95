package store_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldservice-dispatch/internal/domain"
	"fieldservice-dispatch/internal/ports"
	"fieldservice-dispatch/internal/store"
)

const seedFixture = `{
  "users": [
    {"id": "U1", "name": "Dana Alvarez"},
    {"id": "U2", "name": "Miles Okafor"}
  ],
  "vehicles": [
    {"id": "V1", "label": "Van 12"},
    {"id": "V2", "label": "Bucket Truck 3"}
  ],
  "projects": [
    {"id": 42, "name": "Riverside Substation"},
    {"id": 43, "name": "Fairmount Streetlights"}
  ],
  "vehicle_project_links": [
    {"vehicle_id": "V1", "project_id": 42},
    {"vehicle_id": "V1", "project_id": 43},
    {"vehicle_id": "V2", "project_id": 43}
  ],
  "jobs": [
    {
      "id": "J1", "project_id": 42, "address": "100 Main St",
      "lat": 40.05, "lng": -75.10,
      "scheduled_time": "2024-06-01T09:00:00Z",
      "estimated_duration_minutes": 45, "priority": "high", "status": "scheduled"
    },
    {
      "id": "J2", "project_id": 43, "address": "200 Oak Ave",
      "scheduled_time": "2024-06-01T11:00:00Z",
      "estimated_duration_minutes": 30
    },
    {
      "id": "J3", "project_id": 42, "address": "300 Pine Rd",
      "scheduled_time": "2024-06-02T09:00:00Z",
      "estimated_duration_minutes": 60
    }
  ],
  "inspections": [
    {"user_id": "U1", "vehicle_id": "V1", "inspection_date": "2024-06-01", "completed_at": "2024-06-01T07:00:00Z"},
    {"user_id": "U2", "vehicle_id": "V2", "inspection_date": "2024-06-01", "completed_at": null}
  ]
}`

// migrationsDir resolves the repository's migrations directory relative to
// this file.
func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// setupPostgres connects to the database named by TEST_DATABASE_URL, applies
// migrations, resets all tables and loads the seed fixture. Tests skip when
// the variable is unset, so a plain `go test ./...` needs no database.
func setupPostgres(t *testing.T) (*pgxpool.Pool, *store.Postgres) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	require.NoError(t, store.RunMigrations(databaseURL, migrationsDir()))

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, databaseURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx,
		`TRUNCATE vehicle_job_assignments, vehicle_project_links, inspections, jobs, projects, vehicles, users`)
	require.NoError(t, err)

	seedPath := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(seedPath, []byte(seedFixture), 0o600))
	require.NoError(t, store.SeedFromJSON(ctx, pool, seedPath))

	return pool, store.NewPostgres(pool)
}

func TestPostgresSchedulingQueries(t *testing.T) {
	_, pg := setupPostgres(t)
	ctx := context.Background()
	day := date(t, "2024-06-01")

	jobs, err := pg.ListJobsForDate(ctx, day)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "J1", jobs[0].ID)
	assert.Equal(t, "J2", jobs[1].ID)
	require.NotNil(t, jobs[0].Coordinates)
	assert.InDelta(t, 40.05, jobs[0].Coordinates.Lat, 1e-9)
	assert.Nil(t, jobs[1].Coordinates)
	assert.Equal(t, domain.PriorityHigh, jobs[0].Priority)
	assert.Equal(t, domain.JobScheduled, jobs[1].Status)

	t.Run("jobs filtered by vehicle links", func(t *testing.T) {
		forV1, err := pg.ListJobsForVehicle(ctx, "V1", day)
		require.NoError(t, err)
		require.Len(t, forV1, 2)

		forV2, err := pg.ListJobsForVehicle(ctx, "V2", day)
		require.NoError(t, err)
		require.Len(t, forV2, 1)
		assert.Equal(t, "J2", forV2[0].ID)
	})

	t.Run("inspections include incomplete records", func(t *testing.T) {
		inspections, err := pg.ListInspections(ctx, day)
		require.NoError(t, err)
		require.Len(t, inspections, 2)
	})

	t.Run("candidates require a completed inspection", func(t *testing.T) {
		candidates, err := pg.ListTechnicianCandidates(ctx, day)
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.Equal(t, "U1", candidates[0].UserID)
		assert.Equal(t, "Dana Alvarez", candidates[0].UserName)
		assert.Equal(t, "Van 12", candidates[0].VehicleLabel)
		require.NotNil(t, candidates[0].CompletedAt)
	})

	t.Run("links limited to requested vehicles", func(t *testing.T) {
		links, err := pg.ListVehicleProjectLinks(ctx, []string{"V1"})
		require.NoError(t, err)
		require.Len(t, links, 2)

		links, err = pg.ListVehicleProjectLinks(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, links)
	})
}

func TestPostgresAssignmentLifecycle(t *testing.T) {
	_, pg := setupPostgres(t)
	ctx := context.Background()
	day := date(t, "2024-06-01")

	ids, err := pg.CreateBatch(ctx, []domain.VehicleJobAssignment{{
		UserID: "U1", VehicleID: "V1", ProjectID: 42,
		InspectionDate: day, AssignmentDate: day, IsActive: true,
		Notes: "manual dispatch",
	}})
	require.NoError(t, err)
	require.Len(t, ids, 1)

	t.Run("conflicting batch rolls back entirely", func(t *testing.T) {
		// the first row is insertable; the second hits the partial unique
		// index, and neither may survive
		_, err := pg.CreateBatch(ctx, []domain.VehicleJobAssignment{
			{UserID: "U2", VehicleID: "V2", ProjectID: 43, InspectionDate: day, AssignmentDate: day, IsActive: true},
			{UserID: "U1", VehicleID: "V1", ProjectID: 42, InspectionDate: day, AssignmentDate: day, IsActive: true},
		})
		require.ErrorIs(t, err, ports.ErrDuplicateAssignment)

		active, err := pg.ListActive(ctx, day)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, "U1", active[0].UserID)
	})

	t.Run("detailed listing joins display fields", func(t *testing.T) {
		details, err := pg.ListActiveDetailed(ctx, day)
		require.NoError(t, err)
		require.Len(t, details, 1)
		assert.Equal(t, "Dana Alvarez", details[0].UserName)
		assert.Equal(t, "Van 12", details[0].VehicleLabel)
		assert.Equal(t, "Riverside Substation", details[0].ProjectName)
		assert.Equal(t, "manual dispatch", details[0].Notes)
		assert.True(t, details[0].AssignmentDate.Equal(day))
	})

	t.Run("deactivate frees the tuple", func(t *testing.T) {
		require.NoError(t, pg.Deactivate(ctx, ids[0]))

		active, err := pg.ListActive(ctx, day)
		require.NoError(t, err)
		assert.Empty(t, active)

		_, err = pg.CreateBatch(ctx, []domain.VehicleJobAssignment{{
			UserID: "U1", VehicleID: "V1", ProjectID: 42,
			InspectionDate: day, AssignmentDate: day, IsActive: true,
		}})
		require.NoError(t, err)

		require.ErrorIs(t, pg.Deactivate(ctx, ids[0]), ports.ErrNotFound)
		require.ErrorIs(t, pg.Deactivate(ctx, "no-such-id"), ports.ErrNotFound)
	})
}

func TestPostgresSeedIsIdempotent(t *testing.T) {
	pool, pg := setupPostgres(t)
	ctx := context.Background()

	seedPath := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(seedPath, []byte(seedFixture), 0o600))
	require.NoError(t, store.SeedFromJSON(ctx, pool, seedPath))

	jobs, err := pg.ListJobsForDate(ctx, date(t, "2024-06-01"))
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}
