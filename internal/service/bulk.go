package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/uiso2025/uiso-admin-api/internal/domain"
	"github.com/uiso2025/uiso-admin-api/internal/metrics"
	"github.com/uiso2025/uiso-admin-api/internal/pkg/keyguard"
)

type BulkFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

type BulkResult struct {
	UpdatedCount int           `json:"updatedCount"`
	Failures     []BulkFailure `json:"failures"`
}

// BulkCoordinator applies one status to many registrations. It does not
// consult the eligibility gate: bulk approval is an administrative override.
type BulkCoordinator struct {
	repo     RegistrationRepository
	board    *Board
	guard    *keyguard.Guard
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger
	timeout  time.Duration
	now      func() time.Time
}

func NewBulkCoordinator(
	repo RegistrationRepository,
	board *Board,
	guard *keyguard.Guard,
	notifier Notifier,
	m *metrics.Metrics,
	logger *zap.Logger,
	timeout time.Duration,
) *BulkCoordinator {
	return &BulkCoordinator{
		repo:     repo,
		board:    board,
		guard:    guard,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		timeout:  timeout,
		now:      time.Now,
	}
}

func (b *BulkCoordinator) ApplyBulk(ctx context.Context, ids []string, target domain.Status, note, actorID string) (BulkResult, error) {
	if !target.Valid() {
		err := &domain.ValidationError{Reason: fmt.Sprintf("unknown status %q", target)}
		b.notifier.NotifyFailure(err, "bulk status update")
		return BulkResult{}, err
	}
	ids = dedupe(ids)
	if len(ids) == 0 {
		err := &domain.ValidationError{Reason: "no registrations selected"}
		b.notifier.NotifyFailure(err, "bulk status update")
		return BulkResult{}, err
	}

	result := BulkResult{Failures: []BulkFailure{}}

	acquired := make([]string, 0, len(ids))
	for _, id := range ids {
		if !b.guard.TryAcquire(id) {
			result.Failures = append(result.Failures, BulkFailure{ID: id, Reason: (&domain.ConflictError{ID: id}).Error()})
			continue
		}
		acquired = append(acquired, id)
	}
	defer func() {
		for _, id := range acquired {
			b.guard.Release(id)
		}
	}()

	if target == domain.StatusApproved {
		b.logger.Warn("bulk approval bypasses the verification gate",
			zap.Int("count", len(acquired)),
			zap.String("actor_id", actorID),
		)
	}

	change := domain.StatusChange{To: target, At: b.now(), ActorID: actorID, Reason: note}
	succeeded, failures := b.write(ctx, acquired, change)
	result.Failures = append(result.Failures, failures...)
	result.UpdatedCount = len(succeeded)

	for _, id := range succeeded {
		b.board.SetStatus(id, target, change.At)
	}

	b.metrics.AddBulk("updated", result.UpdatedCount)
	b.metrics.AddBulk("failed", len(result.Failures))

	if len(result.Failures) == 0 {
		b.notifier.NotifySuccess(fmt.Sprintf("%d pendaftaran berhasil diubah menjadi %s", result.UpdatedCount, target))
	} else {
		b.notifier.NotifyFailure(
			fmt.Errorf("%d of %d registrations could not be updated", len(result.Failures), len(ids)),
			"bulk status update",
		)
	}

	return result, nil
}

// write tries one batched transaction first. When it fails the ids are
// written one by one and each failure is reported on its own.
func (b *BulkCoordinator) write(ctx context.Context, ids []string, change domain.StatusChange) ([]string, []BulkFailure) {
	if len(ids) == 0 {
		return nil, nil
	}

	bctx, cancel := withTimeout(ctx, b.timeout)
	err := b.repo.UpdateStatusBatch(bctx, ids, change)
	cancel()
	if err == nil {
		return ids, nil
	}

	b.logger.Warn("batched status write failed, falling back to per-registration writes",
		zap.Int("count", len(ids)),
		zap.Error(err),
	)

	var (
		succeeded []string
		failures  []BulkFailure
	)
	for _, id := range ids {
		ictx, cancel := withTimeout(ctx, b.timeout)
		err := b.repo.UpdateStatus(ictx, id, change)
		cancel()

		if err != nil {
			failures = append(failures, BulkFailure{ID: id, Reason: b.reason(id, err)})
			continue
		}
		succeeded = append(succeeded, id)
	}

	return succeeded, failures
}

func (b *BulkCoordinator) reason(id string, err error) string {
	if errors.Is(err, ErrRegistrationNotFound) {
		return (&domain.NotFoundError{Resource: "registration", ID: id}).Error()
	}
	return (&domain.BackendError{Op: "update status", Err: err}).Error()
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
