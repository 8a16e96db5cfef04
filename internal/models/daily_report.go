package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ReportStatus string

const (
	StatusDraft    ReportStatus = "DRAFT"
	StatusEdited   ReportStatus = "EDITED"
	StatusApproved ReportStatus = "APPROVED"
)

func ParseReportStatus(s string) (ReportStatus, bool) {
	st := ReportStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusDraft, StatusEdited, StatusApproved:
		return st, true
	}
	return "", false
}

// Editable reports whether content may still change through the normal update path.
func (s ReportStatus) Editable() bool {
	return s == StatusDraft || s == StatusEdited
}

// DailyReport is unique per (user_id, report_date). Regeneration mutates the same row.
type DailyReport struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_reports_user_date,priority:1" json:"user_id"`
	ReportDate       datatypes.Date `gorm:"not null;uniqueIndex:idx_reports_user_date,priority:2;index" json:"report_date"`
	RawData          datatypes.JSON `json:"raw_data,omitempty"`
	GeneratedContent string         `gorm:"type:text" json:"generated_content"`
	EditedContent    string         `gorm:"type:text" json:"edited_content"`
	FinalContent     string         `gorm:"type:text" json:"final_content"`
	Status           ReportStatus   `gorm:"size:20;not null;index" json:"status"`
	GenerationCount  int            `gorm:"not null" json:"generation_count"`
	AdditionalNotes  string         `gorm:"type:text" json:"additional_notes"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func (r *DailyReport) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// DisplayContent picks final, then edited, then generated content, skipping blank values.
func (r *DailyReport) DisplayContent() string {
	for _, s := range []string{r.FinalContent, r.EditedContent, r.GeneratedContent} {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func (r *DailyReport) IsEditable() bool {
	return r.Status.Editable()
}

func (r *DailyReport) Date() time.Time {
	return time.Time(r.ReportDate)
}

func (r *DailyReport) DateString() string {
	return r.Date().Format(DateLayout)
}

const DateLayout = "2006-01-02"

// NormalizeDate drops the clock part and pins the date to UTC.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return NormalizeDate(t), nil
}
