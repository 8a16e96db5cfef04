package reports

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ahmetcoskunkizilkaya/nippogen/internal/credentials"
	"github.com/ahmetcoskunkizilkaya/nippogen/internal/generation"
	"github.com/ahmetcoskunkizilkaya/nippogen/internal/models"
	"github.com/ahmetcoskunkizilkaya/nippogen/internal/providers"
	"github.com/google/uuid"
)

// memRepo is an in-memory Repository that counts writes.
type memRepo struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]models.DailyReport
	creates int
	updates int
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[uuid.UUID]models.DailyReport{}}
}

func (m *memRepo) Create(ctx context.Context, r *models.DailyReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	for _, row := range m.rows {
		if row.UserID == r.UserID && row.DateString() == r.DateString() {
			return ErrReportAlreadyExists
		}
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := time.Now()
	r.CreatedAt, r.UpdatedAt = now, now
	m.rows[r.ID] = *r
	return nil
}

func (m *memRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.DailyReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	return &r, nil
}

func (m *memRepo) FindByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) (*models.DailyReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.UserID == userID && r.DateString() == date.Format(models.DateLayout) {
			return &r, nil
		}
	}
	return nil, ErrReportNotFound
}

func (m *memRepo) FindByUserInDateRange(ctx context.Context, userID uuid.UUID, f Filter) ([]models.DailyReport, error) {
	return nil, errors.New("not used")
}

func (m *memRepo) ExistsByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) (bool, error) {
	_, err := m.FindByUserAndDate(ctx, userID, date)
	return err == nil, nil
}

func (m *memRepo) Update(ctx context.Context, id uuid.UUID, guard Guard, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return ErrReportNotFound
	}
	if guard.GenerationCount != nil && r.GenerationCount != *guard.GenerationCount {
		return ErrConflict
	}
	if len(guard.Statuses) > 0 {
		allowed := false
		for _, s := range guard.Statuses {
			allowed = allowed || s == r.Status
		}
		if !allowed {
			return ErrConflict
		}
	}
	m.updates++
	for k, v := range fields {
		switch k {
		case "final_content":
			r.FinalContent = v.(string)
		case "edited_content":
			r.EditedContent = v.(string)
		case "additional_notes":
			r.AdditionalNotes = v.(string)
		case "generation_count":
			r.GenerationCount = v.(int)
		case "status":
			r.Status = v.(models.ReportStatus)
		}
	}
	r.UpdatedAt = time.Now()
	m.rows[id] = r
	return nil
}

func (m *memRepo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return ErrReportNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type fakeCreds struct {
	active map[models.Provider]bool
	err    error
}

func (f *fakeCreds) FindActive(ctx context.Context, userID uuid.UUID, p models.Provider) (*models.Credential, error) {
	if f.err != nil {
		return nil, f.err
	}
	if !f.active[p] {
		return nil, credentials.ErrCredentialNotFound
	}
	return &models.Credential{ID: uuid.New(), UserID: userID, Provider: p, Secret: "token", Active: true}, nil
}

func allActive() *fakeCreds {
	return &fakeCreds{active: map[models.Provider]bool{
		models.ProviderGitHub: true,
		models.ProviderToggl:  true,
		models.ProviderNotion: true,
	}}
}

type fakeGateway struct {
	provider models.Provider
	activity providers.Activity
	err      error
	delay    time.Duration
	calls    atomic.Int32
}

func (f *fakeGateway) Provider() models.Provider { return f.provider }

func (f *fakeGateway) TestConnection(ctx context.Context, cred *models.Credential) bool { return true }

func (f *fakeGateway) FetchActivity(ctx context.Context, cred *models.Credential, date time.Time) (providers.Activity, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.activity != nil {
		return f.activity, nil
	}
	return providers.EmptyActivity(f.provider, date), nil
}

type fakeBackend struct {
	mu           sync.Mutex
	text         string
	err          error
	generates    int
	regenerates  int
	lastInput    generation.Input
	lastPrevious string
	lastFeedback string
}

func (f *fakeBackend) Generate(ctx context.Context, in generation.Input) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generates++
	f.lastInput = in
	return f.text, f.err
}

func (f *fakeBackend) Regenerate(ctx context.Context, in generation.Input, previous, feedback string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regenerates++
	f.lastInput, f.lastPrevious, f.lastFeedback = in, previous, feedback
	return f.text, f.err
}

type harness struct {
	repo    *memRepo
	creds   *fakeCreds
	github  *fakeGateway
	toggl   *fakeGateway
	notion  *fakeGateway
	backend *fakeBackend
	orch    *Orchestrator
}

func newHarness() *harness {
	h := &harness{
		repo:    newMemRepo(),
		creds:   allActive(),
		github:  &fakeGateway{provider: models.ProviderGitHub},
		toggl:   &fakeGateway{provider: models.ProviderToggl},
		notion:  &fakeGateway{provider: models.ProviderNotion},
		backend: &fakeBackend{text: "# Report\n..."},
	}
	h.orch = NewOrchestrator(h.repo, h.creds, h.registry(), h.backend, time.Second, time.Second)
	return h
}

func (h *harness) registry() *providers.Registry {
	return providers.NewRegistry(h.github, h.toggl, h.notion)
}

func (h *harness) gatewayCalls() int32 {
	return h.github.calls.Load() + h.toggl.calls.Load() + h.notion.calls.Load()
}
