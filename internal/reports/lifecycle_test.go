package reports

import (
	"context"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/nippogen/internal/models"
	"github.com/ahmetcoskunkizilkaya/nippogen/internal/testutils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(t *testing.T, allowReopen bool) (*Service, uuid.UUID, uuid.UUID) {
	t.Helper()
	store := NewStore(testutils.NewDB(t))
	userID := uuid.New()
	r := newReport(userID, day, models.StatusDraft)
	require.NoError(t, store.Create(context.Background(), r))
	return NewService(store, allowReopen), userID, r.ID
}

func ptr(s string) *string { return &s }

func TestService_UpdateMarksEdited(t *testing.T) {
	ctx := context.Background()
	svc, userID, id := seeded(t, false)

	r, err := svc.Update(ctx, userID, id, UpdateInput{EditedContent: ptr("my edit"), AdditionalNotes: ptr("notes")})
	require.NoError(t, err)
	assert.Equal(t, models.StatusEdited, r.Status)
	assert.Equal(t, "my edit", r.EditedContent)
	assert.Equal(t, "notes", r.AdditionalNotes)
	// Final content still wins the display until approval.
	assert.Equal(t, "generated", r.DisplayContent())
}

func TestService_UpdateNotesOnlyKeepsStatus(t *testing.T) {
	svc, userID, id := seeded(t, false)

	r, err := svc.Update(context.Background(), userID, id, UpdateInput{AdditionalNotes: ptr("later")})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, r.Status)
	assert.Equal(t, "later", r.AdditionalNotes)
}

func TestService_ApproveFreezesReport(t *testing.T) {
	ctx := context.Background()
	svc, userID, id := seeded(t, false)

	r, err := svc.Approve(ctx, userID, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, r.Status)
	assert.Equal(t, "generated", r.FinalContent)

	again, err := svc.Approve(ctx, userID, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, again.Status)

	_, err = svc.Update(ctx, userID, id, UpdateInput{EditedContent: ptr("too late")})
	assert.ErrorIs(t, err, ErrReportNotEditable)
}

func TestService_Reopen(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled", func(t *testing.T) {
		svc, userID, id := seeded(t, false)
		_, err := svc.Approve(ctx, userID, id)
		require.NoError(t, err)

		_, err = svc.Reopen(ctx, userID, id)
		assert.ErrorIs(t, err, ErrReopenDisabled)
	})

	t.Run("enabled", func(t *testing.T) {
		svc, userID, id := seeded(t, true)

		_, err := svc.Reopen(ctx, userID, id)
		assert.ErrorIs(t, err, ErrReportNotApproved)

		_, err = svc.Approve(ctx, userID, id)
		require.NoError(t, err)
		r, err := svc.Reopen(ctx, userID, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusEdited, r.Status)
		assert.True(t, r.IsEditable())
	})
}

func TestService_ScopedToOwner(t *testing.T) {
	ctx := context.Background()
	svc, _, id := seeded(t, true)
	stranger := uuid.New()

	_, err := svc.GetByID(ctx, stranger, id)
	assert.ErrorIs(t, err, ErrReportNotFound)
	_, err = svc.Update(ctx, stranger, id, UpdateInput{EditedContent: ptr("x")})
	assert.ErrorIs(t, err, ErrReportNotFound)
	_, err = svc.Approve(ctx, stranger, id)
	assert.ErrorIs(t, err, ErrReportNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, stranger, id), ErrReportNotFound)
	_, err = svc.Export(ctx, stranger, id, "")
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestService_DeleteAndGetByDate(t *testing.T) {
	ctx := context.Background()
	svc, userID, id := seeded(t, false)

	r, err := svc.GetByDate(ctx, userID, day)
	require.NoError(t, err)
	assert.Equal(t, id, r.ID)

	require.NoError(t, svc.Delete(ctx, userID, id))
	_, err = svc.GetByDate(ctx, userID, day)
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	svc, userID, _ := seeded(t, false)

	res, err := svc.List(ctx, userID, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalCount)
	assert.Empty(t, res.DateRange)

	from := day.AddDate(0, 0, 1)
	res, err = svc.List(ctx, userID, Filter{From: &from})
	require.NoError(t, err)
	assert.NotNil(t, res.Reports)
	assert.Equal(t, 0, res.TotalCount)
	assert.Equal(t, "from 2024-03-16", res.DateRange)
}

func TestDateRangeLabel(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "2024-01-01 to 2024-01-31", DateRangeLabel(&from, &to))
	assert.Equal(t, "from 2024-01-01", DateRangeLabel(&from, nil))
	assert.Equal(t, "until 2024-01-31", DateRangeLabel(nil, &to))
	assert.Equal(t, "", DateRangeLabel(nil, nil))
}
