package dto

import (
	"time"

	"github.com/noah-isme/sma-tests-api/internal/models"
)

// ReportRequest captures POST /reports payload.
type ReportRequest struct {
	Type         models.ReportType   `json:"type" validate:"required,oneof=report_card test_results group_progress"`
	Format       models.ReportFormat `json:"format" validate:"required,oneof=csv pdf"`
	StudentID    string              `json:"studentId" validate:"required_if=Type report_card"`
	GroupID      string              `json:"groupId" validate:"required_if=Type group_progress"`
	TestID       string              `json:"testId" validate:"required_if=Type test_results"`
	SubjectID    string              `json:"subjectId" validate:"required_if=Type group_progress"`
	AcademicYear int                 `json:"academicYear" validate:"omitempty,min=2000,max=2100"`
	FromMonth    int                 `json:"fromMonth" validate:"omitempty,min=1,max=12"`
	ToMonth      int                 `json:"toMonth" validate:"omitempty,min=1,max=12"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Type      models.ReportType   `json:"type"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	ExpiresAt *time.Time          `json:"expiresAt,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
