package reports

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/nippogen/internal/models"
	"github.com/ahmetcoskunkizilkaya/nippogen/internal/providers"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func TestGenerate_AllEmptySourcesSucceeds(t *testing.T) {
	h := newHarness()
	userID := uuid.New()

	res := h.orch.Generate(context.Background(), GenerateRequest{UserID: userID, ReportDate: day})

	require.True(t, res.Success, res.ErrorMessage)
	assert.Equal(t, 1, res.GenerationCount)
	assert.Equal(t, "# Report\n...", res.FinalContent)
	assert.Equal(t, models.StatusDraft, res.Status)
	assert.Equal(t, "2024-03-15", res.ReportDate)
	assert.Equal(t, userID, *res.UserID)

	stored, err := h.repo.FindByID(context.Background(), *res.ReportID)
	require.NoError(t, err)
	assert.Equal(t, "# Report\n...", stored.GeneratedContent)
	assert.Equal(t, "# Report\n...", stored.FinalContent)
	assert.Equal(t, models.StatusDraft, stored.Status)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(stored.RawData, &raw))
	assert.Contains(t, raw, "github")
	assert.Contains(t, raw, "toggl")
	assert.Contains(t, raw, "notion")
}

func TestGenerate_MissingFieldsNeverCallCollaborators(t *testing.T) {
	for name, req := range map[string]GenerateRequest{
		"no user": {ReportDate: day},
		"no date": {UserID: uuid.New()},
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness()
			res := h.orch.Generate(context.Background(), req)

			assert.False(t, res.Success)
			assert.Equal(t, FailureValidation, res.Kind)
			assert.NotEmpty(t, res.ErrorMessage)
			assert.Equal(t, int32(0), h.gatewayCalls())
			assert.Equal(t, 0, h.backend.generates)
			assert.Equal(t, 0, h.repo.creates)
		})
	}
}

func TestGenerate_DuplicateIsRejectedBeforeExternalCalls(t *testing.T) {
	h := newHarness()
	userID := uuid.New()

	first := h.orch.Generate(context.Background(), GenerateRequest{UserID: userID, ReportDate: day})
	require.True(t, first.Success)
	callsAfterFirst := h.gatewayCalls()

	second := h.orch.Generate(context.Background(), GenerateRequest{UserID: userID, ReportDate: day.Add(5 * time.Hour)})
	assert.False(t, second.Success)
	assert.Equal(t, FailureDuplicate, second.Kind)
	assert.Equal(t, callsAfterFirst, h.gatewayCalls())
	assert.Equal(t, 1, h.backend.generates)
	assert.Equal(t, 1, h.repo.count())
}

func TestGenerate_GatewayFailureIsNotFatal(t *testing.T) {
	h := newHarness()
	h.github.err = providers.ErrUnauthorized
	h.notion.err = errors.New("connection reset")

	res := h.orch.Generate(context.Background(), GenerateRequest{UserID: uuid.New(), ReportDate: day})

	require.True(t, res.Success, res.ErrorMessage)
	require.NotNil(t, h.backend.lastInput.GitHub)
	assert.True(t, h.backend.lastInput.GitHub.Empty())
	assert.True(t, h.backend.lastInput.Notion.Empty())
}

func TestGenerate_GatewayTimeoutIsNotFatal(t *testing.T) {
	h := newHarness()
	h.toggl.delay = time.Minute
	h.orch.providerTimeout = 20 * time.Millisecond

	start := time.Now()
	res := h.orch.Generate(context.Background(), GenerateRequest{UserID: uuid.New(), ReportDate: day})

	require.True(t, res.Success, res.ErrorMessage)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.True(t, h.backend.lastInput.Toggl.Empty())
}

func TestGenerate_MissingCredentialYieldsEmptyPayload(t *testing.T) {
	h := newHarness()
	h.creds.active = map[models.Provider]bool{models.ProviderToggl: true}
	h.toggl.activity = &providers.TogglActivity{Date: "2024-03-15", Entries: []providers.TogglEntry{{ID: 1, DurationSeconds: 60}}, TotalSeconds: 60}

	res := h.orch.Generate(context.Background(), GenerateRequest{UserID: uuid.New(), ReportDate: day})

	require.True(t, res.Success)
	assert.Equal(t, int32(0), h.github.calls.Load())
	assert.Equal(t, int32(0), h.notion.calls.Load())
	assert.Equal(t, int32(1), h.toggl.calls.Load())
	assert.True(t, h.backend.lastInput.GitHub.Empty())
	assert.False(t, h.backend.lastInput.Toggl.Empty())
}

func TestGenerate_CredentialStorageErrorIsInternal(t *testing.T) {
	h := newHarness()
	h.creds.err = errors.New("db down")

	res := h.orch.Generate(context.Background(), GenerateRequest{UserID: uuid.New(), ReportDate: day})

	assert.False(t, res.Success)
	assert.Equal(t, FailureInternal, res.Kind)
	assert.True(t, res.Unexpected())
	assert.Equal(t, 0, h.backend.generates)
}

func TestGenerate_BackendFailurePersistsNothing(t *testing.T) {
	h := newHarness()
	h.backend.err = errors.New("model overloaded")

	res := h.orch.Generate(context.Background(), GenerateRequest{UserID: uuid.New(), ReportDate: day})

	assert.False(t, res.Success)
	assert.Equal(t, FailureGeneration, res.Kind)
	assert.True(t, res.Unexpected())
	assert.Contains(t, res.ErrorMessage, "model overloaded")
	assert.Equal(t, 0, h.repo.creates)
	assert.Equal(t, 0, h.repo.count())
}

func TestGenerate_PassesNotesToBackend(t *testing.T) {
	h := newHarness()
	res := h.orch.Generate(context.Background(), GenerateRequest{UserID: uuid.New(), ReportDate: day, AdditionalNotes: "demo day"})
	require.True(t, res.Success)
	assert.Equal(t, "demo day", h.backend.lastInput.AdditionalNotes)
	assert.Equal(t, day, h.backend.lastInput.Date)
}

func generated(t *testing.T, h *harness, userID uuid.UUID) uuid.UUID {
	t.Helper()
	res := h.orch.Generate(context.Background(), GenerateRequest{UserID: userID, ReportDate: day, AdditionalNotes: "original notes"})
	require.True(t, res.Success, res.ErrorMessage)
	return *res.ReportID
}

func TestRegenerate_ReplacesContentAndCounts(t *testing.T) {
	h := newHarness()
	userID := uuid.New()
	id := generated(t, h, userID)
	before, err := h.repo.FindByID(context.Background(), id)
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)
	h.backend.text = "# Report v2"
	res := h.orch.Regenerate(context.Background(), RegenerateRequest{ReportID: id, UserID: userID, UserFeedback: "add more detail"})

	require.True(t, res.Success, res.ErrorMessage)
	assert.Equal(t, "# Report v2", res.FinalContent)
	assert.Equal(t, 2, res.GenerationCount)
	assert.Equal(t, "# Report\n...", h.backend.lastPrevious)
	assert.Equal(t, "add more detail", h.backend.lastFeedback)
	assert.Equal(t, "original notes", h.backend.lastInput.AdditionalNotes)

	after, err := h.repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "# Report v2", after.FinalContent)
	assert.Equal(t, "# Report\n...", after.GeneratedContent)
	assert.Equal(t, models.StatusDraft, after.Status)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
	assert.Equal(t, 1, h.repo.count())
}

func TestRegenerate_ReplacesNotesWhenGiven(t *testing.T) {
	h := newHarness()
	userID := uuid.New()
	id := generated(t, h, userID)

	notes := "new notes"
	res := h.orch.Regenerate(context.Background(), RegenerateRequest{ReportID: id, AdditionalNotes: &notes})
	require.True(t, res.Success)

	r, err := h.repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "new notes", r.AdditionalNotes)
	assert.Equal(t, "new notes", h.backend.lastInput.AdditionalNotes)
}

func TestRegenerate_Failures(t *testing.T) {
	t.Run("missing id", func(t *testing.T) {
		h := newHarness()
		res := h.orch.Regenerate(context.Background(), RegenerateRequest{})
		assert.Equal(t, FailureValidation, res.Kind)
		assert.Equal(t, int32(0), h.gatewayCalls())
		assert.Equal(t, 0, h.backend.regenerates)
	})

	t.Run("unknown report", func(t *testing.T) {
		h := newHarness()
		res := h.orch.Regenerate(context.Background(), RegenerateRequest{ReportID: uuid.New()})
		assert.Equal(t, FailureNotFound, res.Kind)
		assert.False(t, res.Unexpected())
	})

	t.Run("other user", func(t *testing.T) {
		h := newHarness()
		id := generated(t, h, uuid.New())
		res := h.orch.Regenerate(context.Background(), RegenerateRequest{ReportID: id, UserID: uuid.New()})
		assert.Equal(t, FailureNotFound, res.Kind)
	})

	t.Run("approved", func(t *testing.T) {
		h := newHarness()
		userID := uuid.New()
		id := generated(t, h, userID)
		_, err := NewService(h.repo, false).Approve(context.Background(), userID, id)
		require.NoError(t, err)

		res := h.orch.Regenerate(context.Background(), RegenerateRequest{ReportID: id})
		assert.Equal(t, FailureNotEditable, res.Kind)
		assert.Equal(t, 0, h.backend.regenerates)
	})

	t.Run("backend error keeps old content", func(t *testing.T) {
		h := newHarness()
		id := generated(t, h, uuid.New())
		h.backend.err = errors.New("timeout")

		res := h.orch.Regenerate(context.Background(), RegenerateRequest{ReportID: id})
		assert.Equal(t, FailureGeneration, res.Kind)

		r, err := h.repo.FindByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "# Report\n...", r.FinalContent)
		assert.Equal(t, 1, r.GenerationCount)
		assert.Equal(t, 0, h.repo.updates)
	})
}

// conflictRepo bumps the generation count between load and update, as a
// concurrent regeneration would.
type conflictRepo struct {
	*memRepo
}

func (c conflictRepo) Update(ctx context.Context, id uuid.UUID, guard Guard, fields map[string]interface{}) error {
	c.memRepo.mu.Lock()
	r := c.memRepo.rows[id]
	r.GenerationCount++
	c.memRepo.rows[id] = r
	c.memRepo.mu.Unlock()
	return c.memRepo.Update(ctx, id, guard, fields)
}

func TestRegenerate_LostRaceIsConflict(t *testing.T) {
	h := newHarness()
	id := generated(t, h, uuid.New())

	orch := NewOrchestrator(conflictRepo{h.repo}, h.creds, providers.NewRegistry(h.github), h.backend, time.Second, time.Second)
	res := orch.Regenerate(context.Background(), RegenerateRequest{ReportID: id})

	assert.False(t, res.Success)
	assert.Equal(t, FailureConflict, res.Kind)
}
