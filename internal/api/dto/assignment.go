package dto

import (
	"time"

	"fieldservice-dispatch/internal/domain"
)

type AssignmentResponse struct {
	ID             string      `json:"id"`
	UserID         string      `json:"user_id"`
	VehicleID      string      `json:"vehicle_id"`
	ProjectID      int64       `json:"project_id"`
	InspectionDate domain.Date `json:"inspection_date"`
	AssignmentDate domain.Date `json:"assignment_date"`
	IsActive       bool        `json:"is_active"`
	Notes          string      `json:"notes"`
	CreatedAt      time.Time   `json:"created_at"`
	DeactivatedAt  *time.Time  `json:"deactivated_at,omitempty"`
}

type AssignmentDetailResponse struct {
	ID             string      `json:"id"`
	UserID         string      `json:"user_id"`
	UserName       string      `json:"user_name"`
	VehicleID      string      `json:"vehicle_id"`
	VehicleLabel   string      `json:"vehicle_label"`
	ProjectID      int64       `json:"project_id"`
	ProjectName    string      `json:"project_name"`
	InspectionDate domain.Date `json:"inspection_date"`
	AssignmentDate domain.Date `json:"assignment_date"`
	IsActive       bool        `json:"is_active"`
	Notes          string      `json:"notes"`
	CreatedAt      time.Time   `json:"created_at"`
}

type ListAssignmentsResponse struct {
	Assignments []AssignmentDetailResponse `json:"assignments"`
}

type CreateAssignmentRequest struct {
	UserID         string `json:"user_id"`
	VehicleID      string `json:"vehicle_id"`
	ProjectID      int64  `json:"project_id"`
	InspectionDate string `json:"inspection_date"`
	AssignmentDate string `json:"assignment_date"`
	Notes          string `json:"notes"`
}

type AutoConnectRequest struct {
	Date string `json:"date"`
}

type SkippedTechnicianResponse struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

type AutoConnectResponse struct {
	Created []AssignmentResponse        `json:"created"`
	Skipped []SkippedTechnicianResponse `json:"skipped"`
}

type TechnicianCandidateResponse struct {
	UserID       string     `json:"user_id"`
	UserName     string     `json:"user_name"`
	VehicleID    string     `json:"vehicle_id"`
	VehicleLabel string     `json:"vehicle_label"`
	CompletedAt  *time.Time `json:"completed_at"`
}

type ListTechnicianCandidatesResponse struct {
	Users []TechnicianCandidateResponse `json:"users"`
}
