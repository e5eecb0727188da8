package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/uiso2025/uiso-admin-api/internal/domain"
	"github.com/uiso2025/uiso-admin-api/internal/metrics"
	"github.com/uiso2025/uiso-admin-api/internal/pkg/keyguard"
	"github.com/uiso2025/uiso-admin-api/internal/pkg/retry"
	"github.com/uiso2025/uiso-admin-api/internal/repository"
)

var (
	ErrRegistrationNotFound = repository.ErrRegistrationNotFound
	ErrTeamMemberNotFound   = repository.ErrTeamMemberNotFound
	ErrPartialBatch         = repository.ErrPartialBatch
)

type RegistrationRepository interface {
	Find(ctx context.Context, filter domain.StoreFilter) ([]domain.Registration, int64, error)
	FindByID(ctx context.Context, id string) (domain.Registration, error)
	UpdateStatus(ctx context.Context, id string, change domain.StatusChange) error
	UpdateStatusBatch(ctx context.Context, ids []string, change domain.StatusChange) error
	UpdateDocumentFlag(ctx context.Context, id string, field domain.DocumentField, value bool) error
	UpdateMemberFlag(ctx context.Context, memberID, registrationID string, value bool) error
	FindStatusChanges(ctx context.Context, registrationID string) ([]domain.StatusRecord, error)
}

type Options struct {
	Retry retry.Policy
	// WriteTimeout bounds verification and bulk writes.
	WriteTimeout time.Duration
	Location     *time.Location
}

// RegistrationService is the admin entry point over the registration board.
// It wires the query, verification, transition, bulk and export components
// around one shared board.
type RegistrationService struct {
	repo   RegistrationRepository
	board  *Board
	logger *zap.Logger

	verification *VerificationStore
	transitions  *TransitionEngine
	queries      *QueryEngine
	bulk         *BulkCoordinator
	export       *ExportProjector
}

func NewRegistrationService(repo RegistrationRepository, notifier Notifier, m *metrics.Metrics, logger *zap.Logger, opts Options) *RegistrationService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	board := NewBoard()
	guard := keyguard.New()
	verification := NewVerificationStore(repo, board, notifier, m, logger, opts.WriteTimeout)
	queries := NewQueryEngine(repo, board, verification, notifier, m, logger, opts.Location)

	return &RegistrationService{
		repo:         repo,
		board:        board,
		logger:       logger,
		verification: verification,
		transitions:  NewTransitionEngine(repo, board, verification, guard, notifier, m, logger, opts.Retry),
		queries:      queries,
		bulk:         NewBulkCoordinator(repo, board, guard, notifier, m, logger, opts.WriteTimeout),
		export:       NewExportProjector(queries, opts.Location),
	}
}

func (s *RegistrationService) Board() *Board {
	return s.board
}

// Detail loads one registration from the store, puts it on the board and
// opens it in the detail view.
func (s *RegistrationService) Detail(ctx context.Context, id string) (domain.Registration, domain.VerificationState, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRegistrationNotFound) {
			return domain.Registration{}, domain.VerificationState{}, &domain.NotFoundError{Resource: "registration", ID: id}
		}
		return domain.Registration{}, domain.VerificationState{}, &domain.BackendError{Op: "load registration", Err: fmt.Errorf("s.repo.FindByID -> %w", err)}
	}

	s.board.OpenDetail(reg)
	s.verification.Seed([]domain.Registration{reg})

	state, _ := s.verification.State(id)
	return reg, state, nil
}

// History returns the status changes recorded for id, oldest first.
func (s *RegistrationService) History(ctx context.Context, id string) ([]domain.StatusRecord, error) {
	records, err := s.repo.FindStatusChanges(ctx, id)
	if err != nil {
		return nil, &domain.BackendError{Op: "load status history", Err: fmt.Errorf("s.repo.FindStatusChanges -> %w", err)}
	}
	if records == nil {
		records = []domain.StatusRecord{}
	}

	return records, nil
}

func (s *RegistrationService) Query(ctx context.Context, spec domain.QuerySpec) (domain.QueryResult, error) {
	return s.queries.Query(ctx, spec)
}

func (s *RegistrationService) Transition(ctx context.Context, id string, target domain.Status, actorID string) error {
	return s.transitions.Transition(ctx, id, target, actorID)
}

func (s *RegistrationService) SetFlag(ctx context.Context, id string, field domain.DocumentField, value bool) error {
	return s.verification.SetFlag(ctx, id, field, value)
}

func (s *RegistrationService) SetMemberFlag(ctx context.Context, memberID, id string, value bool) error {
	return s.verification.SetMemberFlag(ctx, memberID, id, value)
}

func (s *RegistrationService) VerificationState(id string) (domain.VerificationState, bool) {
	return s.verification.State(id)
}

func (s *RegistrationService) ApplyBulk(ctx context.Context, ids []string, target domain.Status, note, actorID string) (BulkResult, error) {
	return s.bulk.ApplyBulk(ctx, ids, target, note, actorID)
}

func (s *RegistrationService) Project(ctx context.Context, spec domain.QuerySpec, includeTeamMembers bool) (domain.Projection, error) {
	return s.export.Project(ctx, spec, includeTeamMembers)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
