package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"fieldservice-dispatch/internal/domain"
	"fieldservice-dispatch/internal/ports"
)

// Postgres implements the scheduling and dispatch ports over pgx/v5. The
// active-assignment uniqueness rule is enforced by a partial unique index,
// so concurrent writers outside this process cannot break it either.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Ping checks database connectivity.
func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// dayBounds returns the UTC half-open interval covering the date.
func dayBounds(d domain.Date) (time.Time, time.Time) {
	start := d.Time()
	return start, start.Add(24 * time.Hour)
}

// --- jobs ---

const jobColumns = `id, project_id, address, lat, lng, scheduled_time,
	 estimated_duration_minutes, assigned_technician_id, priority, status`

func (s *Postgres) ListJobsForDate(ctx context.Context, date domain.Date) ([]domain.JobLocation, error) {
	from, to := dayBounds(date)
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+`
		 FROM jobs WHERE scheduled_time >= $1 AND scheduled_time < $2
		 ORDER BY scheduled_time, id`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list jobs for date: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (s *Postgres) ListJobsForVehicle(ctx context.Context, vehicleID string, date domain.Date) ([]domain.JobLocation, error) {
	from, to := dayBounds(date)
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+`
		 FROM jobs
		 WHERE project_id IN (SELECT project_id FROM vehicle_project_links WHERE vehicle_id = $1)
		   AND scheduled_time >= $2 AND scheduled_time < $3
		 ORDER BY scheduled_time, id`, vehicleID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list jobs for vehicle: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func scanJobs(rows pgx.Rows) ([]domain.JobLocation, error) {
	var jobs []domain.JobLocation
	for rows.Next() {
		var (
			j          domain.JobLocation
			lat, lng   *float64
			technician *string
			priority   string
			status     string
		)
		if err := rows.Scan(&j.ID, &j.ProjectID, &j.Address, &lat, &lng, &j.ScheduledTime,
			&j.EstimatedDurationMinutes, &technician, &priority, &status); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		if lat != nil && lng != nil {
			j.Coordinates = &domain.Coordinate{Lat: *lat, Lng: *lng}
		}
		if technician != nil {
			j.AssignedTechnicianID = *technician
		}
		j.Priority = domain.Priority(priority)
		j.Status = domain.JobStatus(status)
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// --- inspections ---

func (s *Postgres) ListInspections(ctx context.Context, date domain.Date) ([]domain.InspectionRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, vehicle_id, inspection_date, completed_at
		 FROM inspections WHERE inspection_date = $1
		 ORDER BY user_id, vehicle_id`, date.Time())
	if err != nil {
		return nil, fmt.Errorf("list inspections: %w", err)
	}
	defer rows.Close()

	var records []domain.InspectionRecord
	for rows.Next() {
		var (
			r   domain.InspectionRecord
			day time.Time
		)
		if err := rows.Scan(&r.UserID, &r.VehicleID, &day, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan inspection: %w", err)
		}
		r.InspectionDate = domain.DateOf(day)
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Postgres) ListVehicleProjectLinks(ctx context.Context, vehicleIDs []string) ([]domain.VehicleProjectLink, error) {
	if len(vehicleIDs) == 0 {
		return []domain.VehicleProjectLink{}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT vehicle_id, project_id FROM vehicle_project_links
		 WHERE vehicle_id = ANY($1) ORDER BY vehicle_id, project_id`, vehicleIDs)
	if err != nil {
		return nil, fmt.Errorf("list vehicle project links: %w", err)
	}
	defer rows.Close()

	var links []domain.VehicleProjectLink
	for rows.Next() {
		var l domain.VehicleProjectLink
		if err := rows.Scan(&l.VehicleID, &l.ProjectID); err != nil {
			return nil, fmt.Errorf("scan vehicle project link: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func (s *Postgres) ListTechnicianCandidates(ctx context.Context, date domain.Date) ([]domain.TechnicianCandidate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT ON (i.user_id, i.vehicle_id)
		        i.user_id, COALESCE(u.name, ''), i.vehicle_id, COALESCE(v.label, ''), i.completed_at
		 FROM inspections i
		 LEFT JOIN users u ON u.id = i.user_id
		 LEFT JOIN vehicles v ON v.id = i.vehicle_id
		 WHERE i.inspection_date = $1 AND i.completed_at IS NOT NULL
		 ORDER BY i.user_id, i.vehicle_id, i.completed_at DESC`, date.Time())
	if err != nil {
		return nil, fmt.Errorf("list technician candidates: %w", err)
	}
	defer rows.Close()

	var candidates []domain.TechnicianCandidate
	for rows.Next() {
		var c domain.TechnicianCandidate
		if err := rows.Scan(&c.UserID, &c.UserName, &c.VehicleID, &c.VehicleLabel, &c.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan technician candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// --- assignments ---

const assignmentColumns = `id, user_id, vehicle_id, project_id, inspection_date,
	 assignment_date, is_active, notes, created_at, deactivated_at`

func (s *Postgres) ListActive(ctx context.Context, date domain.Date) ([]domain.VehicleJobAssignment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+assignmentColumns+`
		 FROM vehicle_job_assignments
		 WHERE assignment_date = $1 AND is_active
		 ORDER BY user_id, project_id`, date.Time())
	if err != nil {
		return nil, fmt.Errorf("list active assignments: %w", err)
	}
	defer rows.Close()

	var assignments []domain.VehicleJobAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

func (s *Postgres) ListActiveDetailed(ctx context.Context, date domain.Date) ([]domain.AssignmentDetail, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT a.id, a.user_id, a.vehicle_id, a.project_id, a.inspection_date,
		        a.assignment_date, a.is_active, a.notes, a.created_at, a.deactivated_at,
		        COALESCE(u.name, ''), COALESCE(v.label, ''), COALESCE(p.name, '')
		 FROM vehicle_job_assignments a
		 LEFT JOIN users u ON u.id = a.user_id
		 LEFT JOIN vehicles v ON v.id = a.vehicle_id
		 LEFT JOIN projects p ON p.id = a.project_id
		 WHERE a.assignment_date = $1 AND a.is_active
		 ORDER BY a.user_id, a.project_id`, date.Time())
	if err != nil {
		return nil, fmt.Errorf("list active assignments detailed: %w", err)
	}
	defer rows.Close()

	var details []domain.AssignmentDetail
	for rows.Next() {
		var (
			d                        domain.AssignmentDetail
			inspectionDay, assignDay time.Time
		)
		if err := rows.Scan(&d.ID, &d.UserID, &d.VehicleID, &d.ProjectID, &inspectionDay,
			&assignDay, &d.IsActive, &d.Notes, &d.CreatedAt, &d.DeactivatedAt,
			&d.UserName, &d.VehicleLabel, &d.ProjectName); err != nil {
			return nil, fmt.Errorf("scan assignment detail: %w", err)
		}
		d.InspectionDate = domain.DateOf(inspectionDay)
		d.AssignmentDate = domain.DateOf(assignDay)
		details = append(details, d)
	}
	return details, rows.Err()
}

func (s *Postgres) CreateBatch(ctx context.Context, assignments []domain.VehicleJobAssignment) ([]string, error) {
	if len(assignments) == 0 {
		return []string{}, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("create batch: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	ids := make([]string, 0, len(assignments))
	for _, a := range assignments {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		createdAt := a.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO vehicle_job_assignments
			   (id, user_id, vehicle_id, project_id, inspection_date, assignment_date, is_active, notes, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			a.ID, a.UserID, a.VehicleID, a.ProjectID, a.InspectionDate.Time(), a.AssignmentDate.Time(),
			a.IsActive, a.Notes, createdAt)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, ports.ErrDuplicateAssignment
			}
			return nil, fmt.Errorf("create batch: insert assignment: %w", err)
		}
		ids = append(ids, a.ID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("create batch: commit: %w", err)
	}
	return ids, nil
}

func (s *Postgres) Deactivate(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE vehicle_job_assignments
		 SET is_active = FALSE, deactivated_at = NOW()
		 WHERE id = $1 AND is_active`, id)
	if err != nil {
		return fmt.Errorf("deactivate assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func scanAssignment(rows pgx.Rows) (domain.VehicleJobAssignment, error) {
	var (
		a                        domain.VehicleJobAssignment
		inspectionDay, assignDay time.Time
	)
	if err := rows.Scan(&a.ID, &a.UserID, &a.VehicleID, &a.ProjectID, &inspectionDay,
		&assignDay, &a.IsActive, &a.Notes, &a.CreatedAt, &a.DeactivatedAt); err != nil {
		return domain.VehicleJobAssignment{}, fmt.Errorf("scan assignment: %w", err)
	}
	a.InspectionDate = domain.DateOf(inspectionDay)
	a.AssignmentDate = domain.DateOf(assignDay)
	return a, nil
}

// isUniqueViolation checks whether a pgx error is a unique constraint
// violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
