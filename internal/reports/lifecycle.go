package reports

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/nippogen/internal/models"
	"github.com/google/uuid"
)

// Service holds the report operations that are not generation: edits,
// approval, reopening, reads and deletion. Every call is scoped to the owner.
type Service struct {
	reports     Repository
	allowReopen bool
}

func NewService(reports Repository, allowReopen bool) *Service {
	return &Service{reports: reports, allowReopen: allowReopen}
}

type UpdateInput struct {
	EditedContent   *string
	AdditionalNotes *string
}

type ListResult struct {
	Reports    []models.DailyReport `json:"reports"`
	TotalCount int                  `json:"total_count"`
	DateRange  string               `json:"date_range,omitempty"`
	Status     models.ReportStatus  `json:"status,omitempty"`
}

func (s *Service) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.DailyReport, error) {
	r, err := s.reports.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.UserID != userID {
		return nil, ErrReportNotFound
	}
	return r, nil
}

func (s *Service) GetByDate(ctx context.Context, userID uuid.UUID, date time.Time) (*models.DailyReport, error) {
	return s.reports.FindByUserAndDate(ctx, userID, date)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, f Filter) (*ListResult, error) {
	list, err := s.reports.FindByUserInDateRange(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.DailyReport{}
	}
	return &ListResult{
		Reports:    list,
		TotalCount: len(list),
		DateRange:  DateRangeLabel(f.From, f.To),
		Status:     f.Status,
	}, nil
}

// Update stores manual edits. Supplying edited content moves the report to EDITED.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, in UpdateInput) (*models.DailyReport, error) {
	r, err := s.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !r.IsEditable() {
		return nil, ErrReportNotEditable
	}

	fields := map[string]interface{}{}
	if in.EditedContent != nil {
		fields["edited_content"] = *in.EditedContent
		if strings.TrimSpace(*in.EditedContent) != "" {
			fields["status"] = models.StatusEdited
		}
	}
	if in.AdditionalNotes != nil {
		fields["additional_notes"] = *in.AdditionalNotes
	}
	if len(fields) == 0 {
		return r, nil
	}

	if err := s.reports.Update(ctx, id, editableGuard(), fields); err != nil {
		return nil, notEditableOnConflict(err)
	}
	return s.reports.FindByID(ctx, id)
}

// Approve freezes the currently displayed content as final.
func (s *Service) Approve(ctx context.Context, userID, id uuid.UUID) (*models.DailyReport, error) {
	r, err := s.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if r.Status == models.StatusApproved {
		return r, nil
	}

	fields := map[string]interface{}{
		"final_content": r.DisplayContent(),
		"status":        models.StatusApproved,
	}
	if err := s.reports.Update(ctx, id, editableGuard(), fields); err != nil {
		return nil, notEditableOnConflict(err)
	}
	return s.reports.FindByID(ctx, id)
}

// Reopen moves an approved report back to EDITED when reopening is enabled.
func (s *Service) Reopen(ctx context.Context, userID, id uuid.UUID) (*models.DailyReport, error) {
	if !s.allowReopen {
		return nil, ErrReopenDisabled
	}
	r, err := s.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if r.Status != models.StatusApproved {
		return nil, ErrReportNotApproved
	}

	guard := Guard{Statuses: []models.ReportStatus{models.StatusApproved}}
	if err := s.reports.Update(ctx, id, guard, map[string]interface{}{"status": models.StatusEdited}); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, ErrReportNotApproved
		}
		return nil, err
	}
	return s.reports.FindByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.GetByID(ctx, userID, id); err != nil {
		return err
	}
	return s.reports.DeleteByID(ctx, id)
}

func (s *Service) Export(ctx context.Context, userID, id uuid.UUID, userName string) (*MarkdownExport, error) {
	r, err := s.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return NewMarkdownExport(r, userName), nil
}

// DateRangeLabel renders the listing bounds as "A to B", "from A" or "until B".
func DateRangeLabel(from, to *time.Time) string {
	switch {
	case from != nil && to != nil:
		return from.Format(models.DateLayout) + " to " + to.Format(models.DateLayout)
	case from != nil:
		return "from " + from.Format(models.DateLayout)
	case to != nil:
		return "until " + to.Format(models.DateLayout)
	}
	return ""
}

func editableGuard() Guard {
	return Guard{Statuses: []models.ReportStatus{models.StatusDraft, models.StatusEdited}}
}

// A guard failure here means the report was approved in between.
func notEditableOnConflict(err error) error {
	if errors.Is(err, ErrConflict) {
		return ErrReportNotEditable
	}
	return err
}
