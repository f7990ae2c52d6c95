// Package store provides the persistence implementations behind the
// scheduling and dispatch ports: Postgres for production and an in-memory
// variant for tests and local development.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"fieldservice-dispatch/internal/domain"
	"fieldservice-dispatch/internal/ports"
)

// Memory backs both ports with mutex-guarded maps. It enforces the same
// active-assignment uniqueness rule as the Postgres partial index, so the
// matcher's invariants hold against either implementation.
type Memory struct {
	mu sync.RWMutex

	jobs        []domain.JobLocation
	inspections []domain.InspectionRecord
	links       []domain.VehicleProjectLink
	assignments map[string]*domain.VehicleJobAssignment

	userNames     map[string]string
	vehicleLabels map[string]string
	projectNames  map[int64]string
}

func NewMemory() *Memory {
	return &Memory{
		assignments:   make(map[string]*domain.VehicleJobAssignment),
		userNames:     make(map[string]string),
		vehicleLabels: make(map[string]string),
		projectNames:  make(map[int64]string),
	}
}

// --- seeding ---

func (m *Memory) AddJob(job domain.JobLocation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
}

func (m *Memory) AddInspection(ins domain.InspectionRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inspections = append(m.inspections, ins)
}

func (m *Memory) AddLink(link domain.VehicleProjectLink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, link)
}

func (m *Memory) AddUser(id, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userNames[id] = name
}

func (m *Memory) AddVehicle(id, label string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vehicleLabels[id] = label
}

func (m *Memory) AddProject(id int64, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projectNames[id] = name
}

// --- SchedulingStore ---

func (m *Memory) ListJobsForDate(_ context.Context, date domain.Date) ([]domain.JobLocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.JobLocation
	for _, j := range m.jobs {
		if domain.DateOf(j.ScheduledTime).Equal(date) {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *Memory) ListJobsForVehicle(_ context.Context, vehicleID string, date domain.Date) ([]domain.JobLocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	linked := map[int64]struct{}{}
	for _, l := range m.links {
		if l.VehicleID == vehicleID {
			linked[l.ProjectID] = struct{}{}
		}
	}

	var out []domain.JobLocation
	for _, j := range m.jobs {
		if _, ok := linked[j.ProjectID]; !ok {
			continue
		}
		if domain.DateOf(j.ScheduledTime).Equal(date) {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *Memory) ListInspections(_ context.Context, date domain.Date) ([]domain.InspectionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.InspectionRecord
	for _, ins := range m.inspections {
		if ins.InspectionDate.Equal(date) {
			out = append(out, ins)
		}
	}
	return out, nil
}

func (m *Memory) ListVehicleProjectLinks(_ context.Context, vehicleIDs []string) ([]domain.VehicleProjectLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := make(map[string]struct{}, len(vehicleIDs))
	for _, id := range vehicleIDs {
		wanted[id] = struct{}{}
	}

	var out []domain.VehicleProjectLink
	for _, l := range m.links {
		if _, ok := wanted[l.VehicleID]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *Memory) ListTechnicianCandidates(_ context.Context, date domain.Date) ([]domain.TechnicianCandidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type pair struct{ user, vehicle string }
	seen := map[pair]struct{}{}

	var out []domain.TechnicianCandidate
	for _, ins := range m.inspections {
		if !ins.InspectionDate.Equal(date) || !ins.Completed() {
			continue
		}
		p := pair{user: ins.UserID, vehicle: ins.VehicleID}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, domain.TechnicianCandidate{
			UserID:       ins.UserID,
			UserName:     m.userNames[ins.UserID],
			VehicleID:    ins.VehicleID,
			VehicleLabel: m.vehicleLabels[ins.VehicleID],
			CompletedAt:  ins.CompletedAt,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].VehicleID < out[j].VehicleID
	})
	return out, nil
}

// --- DispatchStore ---

func (m *Memory) ListActive(_ context.Context, date domain.Date) ([]domain.VehicleJobAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeLocked(date), nil
}

func (m *Memory) ListActiveDetailed(_ context.Context, date domain.Date) ([]domain.AssignmentDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	active := m.activeLocked(date)
	out := make([]domain.AssignmentDetail, 0, len(active))
	for _, a := range active {
		out = append(out, domain.AssignmentDetail{
			VehicleJobAssignment: a,
			UserName:             m.userNames[a.UserID],
			VehicleLabel:         m.vehicleLabels[a.VehicleID],
			ProjectName:          m.projectNames[a.ProjectID],
		})
	}
	return out, nil
}

func (m *Memory) CreateBatch(_ context.Context, assignments []domain.VehicleJobAssignment) ([]string, error) {
	if len(assignments) == 0 {
		return []string{}, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// validate the whole batch before touching state, so a conflict rejects
	// it atomically
	type tuple struct {
		user    string
		project int64
		date    string
	}
	pending := map[tuple]struct{}{}
	for _, a := range assignments {
		t := tuple{user: a.UserID, project: a.ProjectID, date: a.AssignmentDate.String()}
		if _, dup := pending[t]; dup {
			return nil, ports.ErrDuplicateAssignment
		}
		pending[t] = struct{}{}
		for _, existing := range m.assignments {
			if !existing.IsActive {
				continue
			}
			if existing.UserID == a.UserID && existing.ProjectID == a.ProjectID &&
				existing.AssignmentDate.Equal(a.AssignmentDate) {
				return nil, ports.ErrDuplicateAssignment
			}
		}
	}

	ids := make([]string, 0, len(assignments))
	for _, a := range assignments {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = time.Now().UTC()
		}
		stored := a
		m.assignments[a.ID] = &stored
		ids = append(ids, a.ID)
	}
	return ids, nil
}

func (m *Memory) Deactivate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.assignments[id]
	if !ok || !a.IsActive {
		return ports.ErrNotFound
	}
	now := time.Now().UTC()
	a.IsActive = false
	a.DeactivatedAt = &now
	return nil
}

func (m *Memory) activeLocked(date domain.Date) []domain.VehicleJobAssignment {
	var out []domain.VehicleJobAssignment
	for _, a := range m.assignments {
		if a.IsActive && a.AssignmentDate.Equal(date) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].ProjectID < out[j].ProjectID
	})
	return out
}
