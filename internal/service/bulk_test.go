package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uiso2025/uiso-admin-api/internal/domain"
)

func bulkFixtures() []domain.Registration {
	return []domain.Registration{
		individual("r1", "Budi Santoso", t0),
		individual("r2", "Ani Wijaya", t0.Add(time.Hour)),
		individual("r3", "Citra Lestari", t0.Add(2*time.Hour)),
	}
}

func TestBulkCoordinator_PartialFailure(t *testing.T) {
	h := newHarness(bulkFixtures()...)
	h.load()
	h.repo.batchErr = errors.New("deadlock detected")
	h.repo.statusErrs["r2"] = []error{errors.New("row is locked")}

	res, err := h.bulk.ApplyBulk(context.Background(), []string{"r1", "r2", "r3"}, domain.StatusApproved, "", "admin-1")
	require.NoError(t, err)

	assert.Equal(t, 2, res.UpdatedCount)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "r2", res.Failures[0].ID)
	assert.Contains(t, res.Failures[0].Reason, "row is locked")

	for id, want := range map[string]domain.Status{"r1": domain.StatusApproved, "r2": domain.StatusPending, "r3": domain.StatusApproved} {
		got, _ := h.board.Get(id)
		assert.Equal(t, want, got.Status, id)
	}

	_, failures := h.notifier.counts()
	assert.Equal(t, 1, failures)
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.BulkRegistrations.WithLabelValues("updated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.BulkRegistrations.WithLabelValues("failed")))
}

func TestBulkCoordinator_BatchedWrite(t *testing.T) {
	h := newHarness(bulkFixtures()...)
	h.load()

	res, err := h.bulk.ApplyBulk(context.Background(), []string{"r1", "r3", "r1"}, domain.StatusRejected, "dokumen tidak lengkap", "admin-1")
	require.NoError(t, err)

	assert.Equal(t, 2, res.UpdatedCount)
	assert.Empty(t, res.Failures)
	assert.Equal(t, 1, h.repo.batchCalls)
	assert.Equal(t, 0, h.repo.statusCalls)

	got, _ := h.board.Get("r3")
	assert.Equal(t, domain.StatusRejected, got.Status)
	assert.Equal(t, t0.Add(240*time.Hour), got.UpdatedAt)

	successes, _ := h.notifier.counts()
	assert.Equal(t, 1, successes)
}

// Bulk approval is an administrative override of the verification gate.
func TestBulkCoordinator_BypassesEligibility(t *testing.T) {
	h := newHarness(bulkFixtures()...)
	h.load()

	res, err := h.bulk.ApplyBulk(context.Background(), []string{"r1"}, domain.StatusApproved, "", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.UpdatedCount)

	state, _ := h.verification.State("r1")
	onBoard, _ := h.board.Get("r1")
	assert.False(t, domain.IsEligibleForApproval(onBoard, &state))
	assert.Equal(t, domain.StatusApproved, onBoard.Status)
}

func TestBulkCoordinator_SkipsInFlightIDs(t *testing.T) {
	h := newHarness(bulkFixtures()...)
	h.load()
	require.True(t, h.guard.TryAcquire("r2"))

	res, err := h.bulk.ApplyBulk(context.Background(), []string{"r1", "r2"}, domain.StatusRejected, "", "admin-1")
	require.NoError(t, err)

	assert.Equal(t, 1, res.UpdatedCount)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "r2", res.Failures[0].ID)
	assert.True(t, h.guard.Busy("r2"), "a guard held elsewhere is not released by bulk")
	assert.False(t, h.guard.Busy("r1"))
}

func TestBulkCoordinator_UnknownIDsInFallback(t *testing.T) {
	h := newHarness(bulkFixtures()...)
	h.load()

	res, err := h.bulk.ApplyBulk(context.Background(), []string{"r1", "ghost"}, domain.StatusRejected, "", "admin-1")
	require.NoError(t, err)

	assert.Equal(t, 1, res.UpdatedCount)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "ghost", res.Failures[0].ID)
	assert.Contains(t, res.Failures[0].Reason, "not found")
	assert.Equal(t, domain.StatusRejected, h.repo.stored("r1").Status)
}

func TestBulkCoordinator_Validation(t *testing.T) {
	h := newHarness(bulkFixtures()...)

	_, err := h.bulk.ApplyBulk(context.Background(), nil, domain.StatusApproved, "", "admin-1")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = h.bulk.ApplyBulk(context.Background(), []string{"", ""}, domain.StatusApproved, "", "admin-1")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = h.bulk.ApplyBulk(context.Background(), []string{"r1"}, domain.Status("archived"), "", "admin-1")
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Equal(t, 0, h.repo.batchCalls)
}
