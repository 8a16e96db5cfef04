package reports

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/nippogen/internal/models"
	"github.com/google/uuid"
)

type FailureKind string

const (
	FailureValidation  FailureKind = "validation"
	FailureDuplicate   FailureKind = "duplicate"
	FailureNotFound    FailureKind = "not_found"
	FailureNotEditable FailureKind = "not_editable"
	FailureConflict    FailureKind = "conflict"
	FailureGeneration  FailureKind = "generation"
	FailureInternal    FailureKind = "internal"
)

// GenerationResult is the envelope returned by Generate and Regenerate.
// Exactly one of the success payload or ErrorMessage is meaningful.
type GenerationResult struct {
	Success         bool                `json:"success"`
	ReportID        *uuid.UUID          `json:"report_id,omitempty"`
	UserID          *uuid.UUID          `json:"user_id,omitempty"`
	ReportDate      string              `json:"report_date,omitempty"`
	FinalContent    string              `json:"final_content,omitempty"`
	Status          models.ReportStatus `json:"status,omitempty"`
	GenerationCount int                 `json:"generation_count,omitempty"`
	GeneratedAt     *time.Time          `json:"generated_at,omitempty"`
	ErrorMessage    string              `json:"error_message,omitempty"`
	Kind            FailureKind         `json:"failure_kind,omitempty"`

	// Err keeps the underlying cause for logging; it is never serialized.
	Err error `json:"-"`
}

func succeeded(r *models.DailyReport) *GenerationResult {
	id, userID, at := r.ID, r.UserID, r.UpdatedAt
	return &GenerationResult{
		Success:         true,
		ReportID:        &id,
		UserID:          &userID,
		ReportDate:      r.DateString(),
		FinalContent:    r.FinalContent,
		Status:          r.Status,
		GenerationCount: r.GenerationCount,
		GeneratedAt:     &at,
	}
}

func failed(kind FailureKind, message string, err error) *GenerationResult {
	return &GenerationResult{
		Success:      false,
		ErrorMessage: message,
		Kind:         kind,
		Err:          err,
	}
}

// Unexpected reports whether the failure is a server fault rather than a business rule.
func (r *GenerationResult) Unexpected() bool {
	return r.Kind == FailureGeneration || r.Kind == FailureInternal
}
