package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"fieldservice-dispatch/internal/api/dto"
	"fieldservice-dispatch/internal/dispatch"
	"fieldservice-dispatch/internal/domain"
	"fieldservice-dispatch/internal/ports"
)

// AssignmentHandler exposes the vehicle job assignment endpoints: listing,
// manual create/deactivate, and the auto-connect batch.
type AssignmentHandler struct {
	Scheduling ports.SchedulingStore
	Dispatch   ports.DispatchStore
	Matcher    *dispatch.Matcher
}

func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}

	details, err := h.Dispatch.ListActiveDetailed(r.Context(), date)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("list assignments failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.ListAssignmentsResponse{
		Assignments: make([]dto.AssignmentDetailResponse, 0, len(details)),
	}
	for _, d := range details {
		res.Assignments = append(res.Assignments, dto.AssignmentDetailResponse{
			ID:             d.ID,
			UserID:         d.UserID,
			UserName:       d.UserName,
			VehicleID:      d.VehicleID,
			VehicleLabel:   d.VehicleLabel,
			ProjectID:      d.ProjectID,
			ProjectName:    d.ProjectName,
			InspectionDate: d.InspectionDate,
			AssignmentDate: d.AssignmentDate,
			IsActive:       d.IsActive,
			Notes:          d.Notes,
			CreatedAt:      d.CreatedAt,
		})
	}

	writeJSON(w, r, http.StatusOK, res)
}

func (h *AssignmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAssignmentRequest

	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return
	}

	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, r, http.StatusBadRequest, "user_id is required")
		return
	}
	if strings.TrimSpace(req.VehicleID) == "" {
		writeError(w, r, http.StatusBadRequest, "vehicle_id is required")
		return
	}
	if req.ProjectID <= 0 {
		writeError(w, r, http.StatusBadRequest, "project_id is required")
		return
	}

	assignmentDate, err := domain.ParseDate(req.AssignmentDate)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "assignment_date must be formatted YYYY-MM-DD")
		return
	}
	inspectionDate := assignmentDate
	if req.InspectionDate != "" {
		inspectionDate, err = domain.ParseDate(req.InspectionDate)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "inspection_date must be formatted YYYY-MM-DD")
			return
		}
	}

	assignment := domain.VehicleJobAssignment{
		UserID:         req.UserID,
		VehicleID:      req.VehicleID,
		ProjectID:      req.ProjectID,
		InspectionDate: inspectionDate,
		AssignmentDate: assignmentDate,
		IsActive:       true,
		Notes:          req.Notes,
	}

	ids, err := h.Dispatch.CreateBatch(r.Context(), []domain.VehicleJobAssignment{assignment})
	if err != nil {
		if errors.Is(err, ports.ErrDuplicateAssignment) {
			writeError(w, r, http.StatusConflict, "an active assignment already exists for this user, project and date")
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("create assignment failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}
	assignment.ID = ids[0]

	writeJSON(w, r, http.StatusCreated, assignmentResponse(assignment))
}

func (h *AssignmentHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "assignmentID")

	if err := h.Dispatch.Deactivate(r.Context(), id); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "no active assignment with that id")
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("deactivate assignment failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AssignmentHandler) AutoConnect(w http.ResponseWriter, r *http.Request) {
	var req dto.AutoConnectRequest

	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}

	date, err := domain.ParseDate(req.Date)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "date must be formatted YYYY-MM-DD")
		return
	}

	result, err := h.Matcher.AutoConnect(r.Context(), date)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("auto-connect failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.AutoConnectResponse{
		Created: make([]dto.AssignmentResponse, 0, len(result.Created)),
		Skipped: make([]dto.SkippedTechnicianResponse, 0, len(result.Skipped)),
	}
	for _, a := range result.Created {
		res.Created = append(res.Created, assignmentResponse(a))
	}
	for _, s := range result.Skipped {
		res.Skipped = append(res.Skipped, dto.SkippedTechnicianResponse{
			UserID: s.UserID,
			Reason: string(s.Reason),
		})
	}

	writeJSON(w, r, http.StatusOK, res)
}

func (h *AssignmentHandler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}

	candidates, err := h.Scheduling.ListTechnicianCandidates(r.Context(), date)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("list technician candidates failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.ListTechnicianCandidatesResponse{
		Users: make([]dto.TechnicianCandidateResponse, 0, len(candidates)),
	}
	for _, c := range candidates {
		res.Users = append(res.Users, dto.TechnicianCandidateResponse{
			UserID:       c.UserID,
			UserName:     c.UserName,
			VehicleID:    c.VehicleID,
			VehicleLabel: c.VehicleLabel,
			CompletedAt:  c.CompletedAt,
		})
	}

	writeJSON(w, r, http.StatusOK, res)
}

func assignmentResponse(a domain.VehicleJobAssignment) dto.AssignmentResponse {
	return dto.AssignmentResponse{
		ID:             a.ID,
		UserID:         a.UserID,
		VehicleID:      a.VehicleID,
		ProjectID:      a.ProjectID,
		InspectionDate: a.InspectionDate,
		AssignmentDate: a.AssignmentDate,
		IsActive:       a.IsActive,
		Notes:          a.Notes,
		CreatedAt:      a.CreatedAt,
		DeactivatedAt:  a.DeactivatedAt,
	}
}
