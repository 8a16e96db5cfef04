package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/nippogen/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrReportNotFound      = errors.New("report not found")
	ErrReportAlreadyExists = errors.New("report already exists for this date")
	ErrReportNotEditable   = errors.New("report is not editable in its current status")
	ErrReportNotApproved   = errors.New("only approved reports can be reopened")
	ErrReopenDisabled      = errors.New("reopening approved reports is disabled")
	ErrConflict            = errors.New("report was modified concurrently")
)

// Guard restricts an update to rows still in the expected state. Zero
// fields are not checked.
type Guard struct {
	Statuses        []models.ReportStatus
	GenerationCount *int
}

// Filter narrows a user's report listing. Nil bounds are open.
type Filter struct {
	From   *time.Time
	To     *time.Time
	Status models.ReportStatus
}

type Repository interface {
	Create(ctx context.Context, r *models.DailyReport) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.DailyReport, error)
	FindByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) (*models.DailyReport, error)
	FindByUserInDateRange(ctx context.Context, userID uuid.UUID, f Filter) ([]models.DailyReport, error)
	ExistsByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) (bool, error)
	Update(ctx context.Context, id uuid.UUID, guard Guard, fields map[string]interface{}) error
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx}
}

func (s *Store) Create(ctx context.Context, r *models.DailyReport) error {
	r.ReportDate = datatypes.Date(models.NormalizeDate(r.Date()))
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrReportAlreadyExists
		}
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*models.DailyReport, error) {
	var r models.DailyReport
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, reportNotFound(err)
	}
	return &r, nil
}

func (s *Store) FindByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) (*models.DailyReport, error) {
	var r models.DailyReport
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND report_date = ?", userID, datatypes.Date(models.NormalizeDate(date))).
		First(&r).Error
	if err != nil {
		return nil, reportNotFound(err)
	}
	return &r, nil
}

// FindByUserInDateRange lists reports newest date first. Both bounds are inclusive.
func (s *Store) FindByUserInDateRange(ctx context.Context, userID uuid.UUID, f Filter) ([]models.DailyReport, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if f.From != nil {
		q = q.Where("report_date >= ?", datatypes.Date(models.NormalizeDate(*f.From)))
	}
	if f.To != nil {
		q = q.Where("report_date <= ?", datatypes.Date(models.NormalizeDate(*f.To)))
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var out []models.DailyReport
	if err := q.Order("report_date DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return out, nil
}

func (s *Store) ExistsByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.DailyReport{}).
		Where("user_id = ? AND report_date = ?", userID, datatypes.Date(models.NormalizeDate(date))).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check report: %w", err)
	}
	return n > 0, nil
}

// Update applies fields to the report when the guard still holds. It returns
// ErrReportNotFound when the row is gone and ErrConflict when the guard fails.
func (s *Store) Update(ctx context.Context, id uuid.UUID, guard Guard, fields map[string]interface{}) error {
	q := s.db.WithContext(ctx).Model(&models.DailyReport{}).Where("id = ?", id)
	if len(guard.Statuses) > 0 {
		q = q.Where("status IN ?", guard.Statuses)
	}
	if guard.GenerationCount != nil {
		q = q.Where("generation_count = ?", *guard.GenerationCount)
	}

	result := q.Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to update report: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var n int64
	if err := s.db.WithContext(ctx).Model(&models.DailyReport{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to update report: %w", err)
	}
	if n == 0 {
		return ErrReportNotFound
	}
	return ErrConflict
}

func (s *Store) DeleteByID(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.DailyReport{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete report: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrReportNotFound
	}
	return nil
}

func (s *Store) DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.DailyReport{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete reports: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func reportNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrReportNotFound
	}
	return err
}
