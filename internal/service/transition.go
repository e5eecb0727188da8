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
	"github.com/uiso2025/uiso-admin-api/internal/pkg/optimistic"
	"github.com/uiso2025/uiso-admin-api/internal/pkg/retry"
	"github.com/uiso2025/uiso-admin-api/internal/repository"
)

// TransitionEngine changes the status of one registration on the board.
// Approval is gated on the verification projection; every other target is
// unconditional. Transitions for the same id never overlap.
type TransitionEngine struct {
	repo         RegistrationRepository
	board        *Board
	verification *VerificationStore
	guard        *keyguard.Guard
	notifier     Notifier
	metrics      *metrics.Metrics
	logger       *zap.Logger
	policy       retry.Policy
	now          func() time.Time
}

func NewTransitionEngine(
	repo RegistrationRepository,
	board *Board,
	verification *VerificationStore,
	guard *keyguard.Guard,
	notifier Notifier,
	m *metrics.Metrics,
	logger *zap.Logger,
	policy retry.Policy,
) *TransitionEngine {
	return &TransitionEngine{
		repo:         repo,
		board:        board,
		verification: verification,
		guard:        guard,
		notifier:     notifier,
		metrics:      m,
		logger:       logger,
		policy:       policy,
		now:          time.Now,
	}
}

// InFlight reports whether a transition for id is currently running.
func (e *TransitionEngine) InFlight(id string) bool {
	return e.guard.Busy(id)
}

func (e *TransitionEngine) Transition(ctx context.Context, registrationID string, target domain.Status, actorID string) error {
	if !target.Valid() {
		return e.fail("unknown", "invalid", &domain.ValidationError{Reason: fmt.Sprintf("unknown status %q", target)})
	}

	reg, onBoard := e.board.Get(registrationID)
	if _, seeded := e.verification.State(registrationID); !onBoard || !seeded {
		// Another listing may have replaced the board since this one was shown.
		loaded, err := e.verification.Load(ctx, registrationID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return e.fail(target, "not_found", err)
			}
			return e.fail(target, "backend_error", err)
		}
		reg = loaded
	}

	if !e.guard.TryAcquire(registrationID) {
		return e.fail(target, "conflict", &domain.ConflictError{ID: registrationID})
	}
	defer e.guard.Release(registrationID)

	if target == domain.StatusApproved {
		var state *domain.VerificationState
		if s, ok := e.verification.State(registrationID); ok {
			state = &s
		}
		if !domain.IsEligibleForApproval(reg, state) {
			return e.fail(target, "ineligible", domain.NewMissingDocumentsError(domain.MissingDocuments(reg, state)))
		}
	}

	at := e.now()
	change := domain.StatusChange{To: target, At: at, ActorID: actorID}

	cmd := optimistic.Command[boardSnapshot]{
		Snapshot: func() boardSnapshot {
			s, _ := e.board.snapshot(registrationID)
			return s
		},
		Apply: func() {
			e.board.hold(registrationID, target, at)
		},
		Write: func(ctx context.Context) error {
			return retry.Do(ctx, e.policy, repository.IsTransient, func(err error, next time.Duration) {
				e.logger.Warn("status write failed, retrying",
					zap.String("registration_id", registrationID),
					zap.Duration("backoff", next),
					zap.Error(err),
				)
			}, func(ctx context.Context) error {
				return e.repo.UpdateStatus(ctx, registrationID, change)
			})
		},
		Restore: func(s boardSnapshot) {
			e.board.restore(registrationID, s)
		},
	}

	// The write outlives a disconnected client; the retry policy bounds each
	// attempt.
	if err := cmd.Run(context.WithoutCancel(ctx)); err != nil {
		e.metrics.IncrementRollbacks("transition")
		e.logger.Error("status write failed, board reverted",
			zap.String("registration_id", registrationID),
			zap.String("target", string(target)),
			zap.Error(err),
		)

		if errors.Is(err, ErrRegistrationNotFound) {
			return e.fail(target, "not_found", &domain.NotFoundError{Resource: "registration", ID: registrationID})
		}
		return e.fail(target, "backend_error", &domain.BackendError{Op: "update status", Err: err})
	}

	e.board.settle(registrationID)
	e.metrics.ObserveTransition(string(target), "success")
	e.notifier.NotifySuccess(fmt.Sprintf("Status pendaftaran berhasil diubah menjadi %s", target))
	return nil
}

func (e *TransitionEngine) fail(target domain.Status, outcome string, err error) error {
	e.metrics.ObserveTransition(string(target), outcome)
	e.notifier.NotifyFailure(err, "status transition")
	return err
}
