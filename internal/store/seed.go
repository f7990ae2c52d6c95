package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type userSeed struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type vehicleSeed struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type projectSeed struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type linkSeed struct {
	VehicleID string `json:"vehicle_id"`
	ProjectID int64  `json:"project_id"`
}

type jobSeed struct {
	ID                       string     `json:"id"`
	ProjectID                int64      `json:"project_id"`
	Address                  string     `json:"address"`
	Lat                      *float64   `json:"lat"`
	Lng                      *float64   `json:"lng"`
	ScheduledTime            time.Time  `json:"scheduled_time"`
	EstimatedDurationMinutes int        `json:"estimated_duration_minutes"`
	AssignedTechnicianID     *string    `json:"assigned_technician_id"`
	Priority                 string     `json:"priority"`
	Status                   string     `json:"status"`
}

type inspectionSeed struct {
	UserID         string     `json:"user_id"`
	VehicleID      string     `json:"vehicle_id"`
	InspectionDate string     `json:"inspection_date"`
	CompletedAt    *time.Time `json:"completed_at"`
}

type seedFile struct {
	Users       []userSeed       `json:"users"`
	Vehicles    []vehicleSeed    `json:"vehicles"`
	Projects    []projectSeed    `json:"projects"`
	Links       []linkSeed       `json:"vehicle_project_links"`
	Jobs        []jobSeed        `json:"jobs"`
	Inspections []inspectionSeed `json:"inspections"`
}

// SeedFromJSON loads scheduling fixture data from a JSON file into the
// database. Rows are upserted, so re-running against the same file is safe.
func SeedFromJSON(ctx context.Context, pool *pgxpool.Pool, jsonPath string) error {
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed: read %q: %w", jsonPath, err)
	}

	var data seedFile
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("seed: parse json: %w", err)
	}

	for i, j := range data.Jobs {
		if strings.TrimSpace(j.ID) == "" {
			return fmt.Errorf("seed: job at index %d: id cannot be empty", i)
		}
		if strings.TrimSpace(j.Address) == "" {
			return fmt.Errorf("seed: job %q: address cannot be empty", j.ID)
		}
		if j.ScheduledTime.IsZero() {
			return fmt.Errorf("seed: job %q: scheduled_time is required", j.ID)
		}
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, u := range data.Users {
		if _, err := tx.Exec(ctx,
			`INSERT INTO users (id, name) VALUES ($1, $2)
			 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`, u.ID, u.Name); err != nil {
			return fmt.Errorf("seed: upsert user %q: %w", u.ID, err)
		}
	}
	for _, v := range data.Vehicles {
		if _, err := tx.Exec(ctx,
			`INSERT INTO vehicles (id, label) VALUES ($1, $2)
			 ON CONFLICT (id) DO UPDATE SET label = EXCLUDED.label`, v.ID, v.Label); err != nil {
			return fmt.Errorf("seed: upsert vehicle %q: %w", v.ID, err)
		}
	}
	for _, p := range data.Projects {
		if _, err := tx.Exec(ctx,
			`INSERT INTO projects (id, name) VALUES ($1, $2)
			 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`, p.ID, p.Name); err != nil {
			return fmt.Errorf("seed: upsert project %d: %w", p.ID, err)
		}
	}
	for _, l := range data.Links {
		if _, err := tx.Exec(ctx,
			`INSERT INTO vehicle_project_links (vehicle_id, project_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`, l.VehicleID, l.ProjectID); err != nil {
			return fmt.Errorf("seed: upsert link %s->%d: %w", l.VehicleID, l.ProjectID, err)
		}
	}
	for _, j := range data.Jobs {
		priority := j.Priority
		if priority == "" {
			priority = "medium"
		}
		status := j.Status
		if status == "" {
			status = "scheduled"
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO jobs
			   (id, project_id, address, lat, lng, scheduled_time, estimated_duration_minutes,
			    assigned_technician_id, priority, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (id) DO UPDATE SET
			   project_id = EXCLUDED.project_id,
			   address = EXCLUDED.address,
			   lat = EXCLUDED.lat,
			   lng = EXCLUDED.lng,
			   scheduled_time = EXCLUDED.scheduled_time,
			   estimated_duration_minutes = EXCLUDED.estimated_duration_minutes,
			   assigned_technician_id = EXCLUDED.assigned_technician_id,
			   priority = EXCLUDED.priority,
			   status = EXCLUDED.status`,
			j.ID, j.ProjectID, strings.TrimSpace(j.Address), j.Lat, j.Lng, j.ScheduledTime,
			j.EstimatedDurationMinutes, j.AssignedTechnicianID, priority, status); err != nil {
			return fmt.Errorf("seed: upsert job %q: %w", j.ID, err)
		}
	}
	for i, ins := range data.Inspections {
		if _, err := tx.Exec(ctx,
			`INSERT INTO inspections (user_id, vehicle_id, inspection_date, completed_at)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (user_id, vehicle_id, inspection_date) DO UPDATE SET
			   completed_at = EXCLUDED.completed_at`,
			ins.UserID, ins.VehicleID, ins.InspectionDate, ins.CompletedAt); err != nil {
			return fmt.Errorf("seed: upsert inspection at index %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("seed: commit tx: %w", err)
	}
	return nil
}
