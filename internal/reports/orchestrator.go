package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/nippogen/internal/credentials"
	"github.com/ahmetcoskunkizilkaya/nippogen/internal/generation"
	"github.com/ahmetcoskunkizilkaya/nippogen/internal/models"
	"github.com/ahmetcoskunkizilkaya/nippogen/internal/providers"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

// ActiveCredentials resolves the credential a gateway should use.
// credentials.ErrCredentialNotFound means the user has none.
type ActiveCredentials interface {
	FindActive(ctx context.Context, userID uuid.UUID, provider models.Provider) (*models.Credential, error)
}

type GenerateRequest struct {
	UserID          uuid.UUID
	ReportDate      time.Time
	AdditionalNotes string
}

type RegenerateRequest struct {
	ReportID uuid.UUID
	// UserID, when set, must own the report.
	UserID       uuid.UUID
	UserFeedback string
	// AdditionalNotes replaces the stored notes when non-nil.
	AdditionalNotes *string
}

type Orchestrator struct {
	reports           Repository
	credentials       ActiveCredentials
	gateways          *providers.Registry
	backend           generation.Backend
	providerTimeout   time.Duration
	generationTimeout time.Duration
}

func NewOrchestrator(
	reports Repository,
	creds ActiveCredentials,
	gateways *providers.Registry,
	backend generation.Backend,
	providerTimeout, generationTimeout time.Duration,
) *Orchestrator {
	return &Orchestrator{
		reports:           reports,
		credentials:       creds,
		gateways:          gateways,
		backend:           backend,
		providerTimeout:   providerTimeout,
		generationTimeout: generationTimeout,
	}
}

// Generate drafts the report for (user, date). Business failures come back
// in the envelope; only backend or storage faults are marked unexpected.
func (o *Orchestrator) Generate(ctx context.Context, req GenerateRequest) *GenerationResult {
	if req.UserID == uuid.Nil {
		return failed(FailureValidation, "user id is required", nil)
	}
	if req.ReportDate.IsZero() {
		return failed(FailureValidation, "report date is required", nil)
	}
	date := models.NormalizeDate(req.ReportDate)

	exists, err := o.reports.ExistsByUserAndDate(ctx, req.UserID, date)
	if err != nil {
		return failed(FailureInternal, "failed to check existing reports", err)
	}
	if exists {
		return failed(FailureDuplicate, fmt.Sprintf("a report for %s already exists", date.Format(models.DateLayout)), ErrReportAlreadyExists)
	}

	activities, err := o.collect(ctx, req.UserID, date)
	if err != nil {
		return failed(FailureInternal, "failed to load provider credentials", err)
	}

	genCtx, cancel := o.withTimeout(ctx, o.generationTimeout)
	text, err := o.backend.Generate(genCtx, generation.NewInput(date, req.AdditionalNotes, activities...))
	cancel()
	if err != nil {
		slog.Error("report generation failed", "action", "report.generate", "user_id", req.UserID.String(), "error", err)
		return failed(FailureGeneration, "report generation failed: "+err.Error(), err)
	}

	report := &models.DailyReport{
		UserID:           req.UserID,
		ReportDate:       datatypes.Date(date),
		RawData:          rawData(activities),
		GeneratedContent: text,
		FinalContent:     text,
		Status:           models.StatusDraft,
		GenerationCount:  1,
		AdditionalNotes:  req.AdditionalNotes,
	}
	if err := o.reports.Create(ctx, report); err != nil {
		if errors.Is(err, ErrReportAlreadyExists) {
			return failed(FailureDuplicate, fmt.Sprintf("a report for %s already exists", date.Format(models.DateLayout)), err)
		}
		return failed(FailureInternal, "failed to save report", err)
	}

	slog.Info("report generated", "action", "report.generate", "user_id", req.UserID.String(), "report_id", report.ID.String())
	return succeeded(report)
}

// Regenerate revises an existing report in place using the previous content
// and the user's feedback. The generation count guards against concurrent
// regenerations of the same row.
func (o *Orchestrator) Regenerate(ctx context.Context, req RegenerateRequest) *GenerationResult {
	if req.ReportID == uuid.Nil {
		return failed(FailureValidation, "report id is required", nil)
	}

	report, err := o.reports.FindByID(ctx, req.ReportID)
	if err != nil {
		if errors.Is(err, ErrReportNotFound) {
			return failed(FailureNotFound, "report not found", err)
		}
		return failed(FailureInternal, "failed to load report", err)
	}
	if req.UserID != uuid.Nil && report.UserID != req.UserID {
		return failed(FailureNotFound, "report not found", ErrReportNotFound)
	}
	if !report.IsEditable() {
		return failed(FailureNotEditable, fmt.Sprintf("report in status %s cannot be regenerated", report.Status), ErrReportNotEditable)
	}

	notes := report.AdditionalNotes
	if req.AdditionalNotes != nil {
		notes = *req.AdditionalNotes
	}

	activities, err := o.collect(ctx, report.UserID, report.Date())
	if err != nil {
		return failed(FailureInternal, "failed to load provider credentials", err)
	}

	previous := report.FinalContent
	if strings.TrimSpace(previous) == "" {
		previous = report.DisplayContent()
	}

	genCtx, cancel := o.withTimeout(ctx, o.generationTimeout)
	text, err := o.backend.Regenerate(genCtx, generation.NewInput(report.Date(), notes, activities...), previous, req.UserFeedback)
	cancel()
	if err != nil {
		slog.Error("report regeneration failed", "action", "report.regenerate", "user_id", report.UserID.String(), "report_id", report.ID.String(), "error", err)
		return failed(FailureGeneration, "report regeneration failed: "+err.Error(), err)
	}

	expected := report.GenerationCount
	fields := map[string]interface{}{
		"final_content":    text,
		"raw_data":         rawData(activities),
		"generation_count": expected + 1,
		"additional_notes": notes,
	}
	guard := Guard{Statuses: []models.ReportStatus{models.StatusDraft, models.StatusEdited}, GenerationCount: &expected}
	if err := o.reports.Update(ctx, report.ID, guard, fields); err != nil {
		switch {
		case errors.Is(err, ErrReportNotFound):
			return failed(FailureNotFound, "report not found", err)
		case errors.Is(err, ErrConflict):
			return failed(FailureConflict, "report changed while it was being regenerated, try again", err)
		}
		return failed(FailureInternal, "failed to save report", err)
	}

	updated, err := o.reports.FindByID(ctx, report.ID)
	if err != nil {
		return failed(FailureInternal, "failed to reload report", err)
	}

	slog.Info("report regenerated", "action", "report.regenerate", "user_id", updated.UserID.String(), "report_id", updated.ID.String(), "generation_count", updated.GenerationCount)
	return succeeded(updated)
}

// collect fetches all providers concurrently. A missing credential or a
// failing gateway yields that provider's empty activity. Only a credential
// lookup storage error is returned.
func (o *Orchestrator) collect(ctx context.Context, userID uuid.UUID, date time.Time) ([]providers.Activity, error) {
	all := models.Providers()
	activities := make([]providers.Activity, len(all))

	var g errgroup.Group
	for i, p := range all {
		g.Go(func() error {
			act, err := o.fetch(ctx, userID, p, date)
			if err != nil {
				return err
			}
			if act == nil {
				act = providers.EmptyActivity(p, date)
			}
			activities[i] = act
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return activities, nil
}

func (o *Orchestrator) fetch(ctx context.Context, userID uuid.UUID, p models.Provider, date time.Time) (providers.Activity, error) {
	gw, ok := o.gateways.Get(p)
	if !ok {
		return nil, nil
	}

	cred, err := o.credentials.FindActive(ctx, userID, p)
	if err != nil {
		if errors.Is(err, credentials.ErrCredentialNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s credential: %w", p, err)
	}

	fetchCtx, cancel := o.withTimeout(ctx, o.providerTimeout)
	defer cancel()

	start := time.Now()
	act, err := gw.FetchActivity(fetchCtx, cred, date)
	if err != nil {
		slog.Warn("provider fetch failed, continuing without it",
			"provider", p, "user_id", userID.String(), "error", err,
			"latency_ms", float64(time.Since(start).Milliseconds()))
		return nil, nil
	}
	return act, nil
}

func (o *Orchestrator) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func rawData(activities []providers.Activity) datatypes.JSON {
	payload := make(map[models.Provider]providers.Activity, len(activities))
	for _, a := range activities {
		if a != nil {
			payload[a.Provider()] = a
		}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
