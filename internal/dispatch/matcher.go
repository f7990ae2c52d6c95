// Package dispatch matches technicians to scheduled jobs for a date, based
// on same-day completed vehicle inspections and vehicle↔project links.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"fieldservice-dispatch/internal/domain"
	"fieldservice-dispatch/internal/metrics"
	"fieldservice-dispatch/internal/platform/obs"
	"fieldservice-dispatch/internal/ports"
)

// Matcher runs auto-connect. Runs are serialized per date: a second trigger
// for the same date waits for the first to finish, then sees its
// assignments as already existing.
type Matcher struct {
	scheduling ports.SchedulingStore
	dispatch   ports.DispatchStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMatcher(scheduling ports.SchedulingStore, dispatch ports.DispatchStore) *Matcher {
	return &Matcher{
		scheduling: scheduling,
		dispatch:   dispatch,
		locks:      make(map[string]*sync.Mutex),
	}
}

func (m *Matcher) dateLock(date domain.Date) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[date.String()]
	if !ok {
		l = &sync.Mutex{}
		m.locks[date.String()] = l
	}
	return l
}

// userOutcome accumulates what happened to one technician across all their
// candidate (user, vehicle) pairs.
type userOutcome struct {
	created bool
	already bool
	taken   bool
	noMatch bool
}

func (o *userOutcome) skipReason() (domain.SkipReason, bool) {
	switch {
	case o.created:
		return "", false
	case o.already:
		return domain.SkipAlreadyAssigned, true
	case o.taken:
		return domain.SkipJobAlreadyAssigned, true
	default:
		return domain.SkipNoMatchingVehicle, true
	}
}

// AutoConnect matches every technician with a completed same-day inspection
// to the unclaimed scheduled jobs of the projects linked to their vehicle.
//
// All candidate data is read before any write, new assignments are
// persisted in one transaction, and re-running for the same date creates no
// duplicates: existing (user, project, date) tuples surface as
// already_assigned skips instead.
func (m *Matcher) AutoConnect(ctx context.Context, date domain.Date) (_ *domain.AutoConnectResult, err error) {
	defer obs.Time(ctx, "dispatch.autoConnect")(&err)

	if date.IsZero() {
		return nil, errors.New("auto-connect: date is required")
	}

	lock := m.dateLock(date)
	lock.Lock()
	defer lock.Unlock()

	// every read happens before the first write, so concurrently arriving
	// inspections cannot skew one run
	inspections, err := m.scheduling.ListInspections(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("auto-connect: list inspections: %w", err)
	}
	jobs, err := m.scheduling.ListJobsForDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("auto-connect: list jobs: %w", err)
	}
	active, err := m.dispatch.ListActive(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("auto-connect: list active assignments: %w", err)
	}

	candidates, incompleteOnly := splitCandidates(inspections)

	vehicleIDs := make([]string, 0, len(candidates))
	seenVehicles := map[string]struct{}{}
	for _, c := range candidates {
		if _, ok := seenVehicles[c.VehicleID]; ok {
			continue
		}
		seenVehicles[c.VehicleID] = struct{}{}
		vehicleIDs = append(vehicleIDs, c.VehicleID)
	}

	var links []domain.VehicleProjectLink
	if len(vehicleIDs) > 0 {
		links, err = m.scheduling.ListVehicleProjectLinks(ctx, vehicleIDs)
		if err != nil {
			return nil, fmt.Errorf("auto-connect: list vehicle project links: %w", err)
		}
	}

	projectsByVehicle := make(map[string][]int64, len(links))
	for _, l := range links {
		projectsByVehicle[l.VehicleID] = append(projectsByVehicle[l.VehicleID], l.ProjectID)
	}
	for _, ps := range projectsByVehicle {
		sort.Slice(ps, func(i, j int) bool { return ps[i] < ps[j] })
	}

	openProjects := make(map[int64]struct{})
	for _, j := range jobs {
		if j.Status == domain.JobScheduled {
			openProjects[j.ProjectID] = struct{}{}
		}
	}

	activeByProject := make(map[int64]string, len(active))
	activeByUserProject := make(map[string]struct{}, len(active))
	for _, a := range active {
		activeByProject[a.ProjectID] = a.UserID
		activeByUserProject[userProjectKey(a.UserID, a.ProjectID)] = struct{}{}
	}

	outcomes := make(map[string]*userOutcome)
	var userOrder []string
	outcomeFor := func(userID string) *userOutcome {
		o, ok := outcomes[userID]
		if !ok {
			o = &userOutcome{}
			outcomes[userID] = o
			userOrder = append(userOrder, userID)
		}
		return o
	}

	now := time.Now().UTC()
	var toCreate []domain.VehicleJobAssignment
	claimedProjects := make(map[int64]string)

	for _, c := range candidates {
		outcome := outcomeFor(c.UserID)

		projects := projectsByVehicle[c.VehicleID]
		matchedAny := false

		for _, projectID := range projects {
			if _, open := openProjects[projectID]; !open {
				continue
			}
			matchedAny = true

			if _, ok := activeByUserProject[userProjectKey(c.UserID, projectID)]; ok {
				outcome.already = true
				continue
			}
			if _, ok := activeByProject[projectID]; ok {
				outcome.taken = true
				continue
			}
			if claimant, ok := claimedProjects[projectID]; ok {
				if claimant != c.UserID {
					outcome.taken = true
				}
				continue
			}

			toCreate = append(toCreate, domain.VehicleJobAssignment{
				ID:             uuid.NewString(),
				UserID:         c.UserID,
				VehicleID:      c.VehicleID,
				ProjectID:      projectID,
				InspectionDate: date,
				AssignmentDate: date,
				IsActive:       true,
				CreatedAt:      now,
			})
			claimedProjects[projectID] = c.UserID
			outcome.created = true
		}

		if !matchedAny {
			outcome.noMatch = true
		}
	}

	result := &domain.AutoConnectResult{
		Created: []domain.VehicleJobAssignment{},
		Skipped: []domain.SkippedTechnician{},
	}

	if len(toCreate) > 0 {
		if _, err := m.dispatch.CreateBatch(ctx, toCreate); err != nil {
			return nil, fmt.Errorf("auto-connect: persist assignments: %w", err)
		}
		result.Created = toCreate
	}

	for _, userID := range userOrder {
		reason, skipped := outcomes[userID].skipReason()
		if !skipped {
			continue
		}
		result.Skipped = append(result.Skipped, domain.SkippedTechnician{UserID: userID, Reason: reason})
	}
	for _, userID := range incompleteOnly {
		result.Skipped = append(result.Skipped, domain.SkippedTechnician{
			UserID: userID,
			Reason: domain.SkipInspectionIncomplete,
		})
	}

	for range result.Created {
		metrics.AutoConnectOutcomes.WithLabelValues("created").Inc()
	}
	for _, s := range result.Skipped {
		metrics.AutoConnectOutcomes.WithLabelValues(string(s.Reason)).Inc()
	}

	return result, nil
}

// splitCandidates reduces inspections to distinct completed (user, vehicle)
// pairs, sorted for deterministic processing, plus the users who inspected
// but never completed.
func splitCandidates(inspections []domain.InspectionRecord) ([]domain.InspectionRecord, []string) {
	type pair struct{ user, vehicle string }

	seen := map[pair]struct{}{}
	var candidates []domain.InspectionRecord
	completedUsers := map[string]struct{}{}
	allUsers := map[string]struct{}{}
	var allOrder []string

	for _, ins := range inspections {
		if _, ok := allUsers[ins.UserID]; !ok {
			allUsers[ins.UserID] = struct{}{}
			allOrder = append(allOrder, ins.UserID)
		}
		if !ins.Completed() {
			continue
		}

		completedUsers[ins.UserID] = struct{}{}
		p := pair{user: ins.UserID, vehicle: ins.VehicleID}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		candidates = append(candidates, ins)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].UserID != candidates[j].UserID {
			return candidates[i].UserID < candidates[j].UserID
		}
		return candidates[i].VehicleID < candidates[j].VehicleID
	})

	var incompleteOnly []string
	sort.Strings(allOrder)
	for _, u := range allOrder {
		if _, ok := completedUsers[u]; !ok {
			incompleteOnly = append(incompleteOnly, u)
		}
	}
	return candidates, incompleteOnly
}

func userProjectKey(userID string, projectID int64) string {
	return fmt.Sprintf("%s|%d", userID, projectID)
}
