package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/uiso2025/uiso-admin-api/internal/domain"
	"github.com/uiso2025/uiso-admin-api/internal/metrics"
	"github.com/uiso2025/uiso-admin-api/internal/pkg/optimistic"
)

// VerificationStore keeps the verification projection of every registration
// on the board, and writes single flags through to the store.
//
// A flag whose write is still in flight is pending: reseeding from the store
// keeps the pending value until the write settles or is restored.
type VerificationStore struct {
	mu      sync.Mutex
	states  map[string]domain.VerificationState
	pending map[flagKey]pendingFlag
	seq     uint64

	repo     RegistrationRepository
	board    *Board
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger
	timeout  time.Duration
}

// flagKey names one flag. memberID is empty for registration documents.
type flagKey struct {
	registrationID string
	memberID       string
	field          domain.DocumentField
}

type pendingFlag struct {
	value bool
	seq   uint64
}

func NewVerificationStore(repo RegistrationRepository, board *Board, notifier Notifier, m *metrics.Metrics, logger *zap.Logger, timeout time.Duration) *VerificationStore {
	return &VerificationStore{
		states:   make(map[string]domain.VerificationState),
		pending:  make(map[flagKey]pendingFlag),
		repo:     repo,
		board:    board,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		timeout:  timeout,
	}
}

// Seed replaces the projection entries of regs with their stored flags.
// Other entries are left alone.
func (v *VerificationStore) Seed(regs []domain.Registration) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, r := range regs {
		v.states[r.ID] = domain.NewVerificationState(r)
	}
	v.overlayPending()
}

// Reset rebuilds the projection from regs, the new board contents. The entry
// of the registration open in the detail view is kept.
func (v *VerificationStore) Reset(regs []domain.Registration) {
	detail, hasDetail := v.board.Detail()

	v.mu.Lock()
	defer v.mu.Unlock()

	states := make(map[string]domain.VerificationState, len(regs)+1)
	if hasDetail {
		if s, ok := v.states[detail.ID]; ok {
			states[detail.ID] = s
		}
	}
	for _, r := range regs {
		states[r.ID] = domain.NewVerificationState(r)
	}
	v.states = states
	v.overlayPending()
}

// overlayPending puts in-flight values back over freshly seeded entries.
// Callers hold mu.
func (v *VerificationStore) overlayPending() {
	for k, p := range v.pending {
		v.set(k, p.value)
	}
}

// Load fetches a registration that is not on the board, as happens when a
// later listing replaced it, and seeds both the board and the projection.
func (v *VerificationStore) Load(ctx context.Context, registrationID string) (domain.Registration, error) {
	lctx, cancel := withTimeout(ctx, v.timeout)
	defer cancel()

	reg, err := v.repo.FindByID(lctx, registrationID)
	if err != nil {
		if errors.Is(err, ErrRegistrationNotFound) {
			return domain.Registration{}, &domain.NotFoundError{Resource: "registration", ID: registrationID}
		}
		return domain.Registration{}, &domain.BackendError{Op: "load registration", Err: fmt.Errorf("v.repo.FindByID -> %w", err)}
	}

	v.board.Upsert(reg)
	v.Seed([]domain.Registration{reg})

	if onBoard, ok := v.board.Get(registrationID); ok {
		reg = onBoard
	}
	return reg, nil
}

// State returns a copy of the projection entry for registrationID.
func (v *VerificationStore) State(registrationID string) (domain.VerificationState, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	s, ok := v.states[registrationID]
	if !ok {
		return domain.VerificationState{}, false
	}
	return s.Clone(), true
}

// ensure returns the projection entry of registrationID, loading it from the
// store when it is missing.
func (v *VerificationStore) ensure(ctx context.Context, registrationID string) (domain.VerificationState, error) {
	if s, ok := v.State(registrationID); ok {
		return s, nil
	}
	if _, err := v.Load(ctx, registrationID); err != nil {
		return domain.VerificationState{}, err
	}
	s, ok := v.State(registrationID)
	if !ok {
		return domain.VerificationState{}, &domain.NotFoundError{Resource: "registration", ID: registrationID}
	}
	return s, nil
}

func (v *VerificationStore) SetFlag(ctx context.Context, registrationID string, field domain.DocumentField, value bool) error {
	if !field.Valid() {
		err := &domain.ValidationError{Reason: fmt.Sprintf("unknown document field %q", field)}
		v.notifier.NotifyFailure(err, "verification")
		return err
	}
	if _, err := v.ensure(ctx, registrationID); err != nil {
		v.notifier.NotifyFailure(err, "verification")
		return err
	}

	key := flagKey{registrationID: registrationID, field: field}
	write := func(ctx context.Context) error {
		return v.repo.UpdateDocumentFlag(ctx, registrationID, field, value)
	}

	return v.run(ctx, key, value, write, string(field), field.Label())
}

func (v *VerificationStore) SetMemberFlag(ctx context.Context, memberID, registrationID string, value bool) error {
	state, err := v.ensure(ctx, registrationID)
	if err != nil {
		v.notifier.NotifyFailure(err, "verification")
		return err
	}
	if _, ok := state.TeamMembers[memberID]; !ok {
		err := &domain.NotFoundError{Resource: "team member", ID: memberID}
		v.notifier.NotifyFailure(err, "verification")
		return err
	}

	key := flagKey{registrationID: registrationID, memberID: memberID}
	write := func(ctx context.Context) error {
		return v.repo.UpdateMemberFlag(ctx, memberID, registrationID, value)
	}

	return v.run(ctx, key, value, write, "member_identity_card", "Kartu Identitas Anggota")
}

func (v *VerificationStore) run(ctx context.Context, key flagKey, value bool, write func(context.Context) error, document, label string) error {
	var seq uint64
	cmd := optimistic.Command[bool]{
		Snapshot: func() bool {
			v.mu.Lock()
			defer v.mu.Unlock()
			return v.flag(key)
		},
		Apply: func() {
			seq = v.hold(key, value)
		},
		Write: func(ctx context.Context) error {
			ctx, cancel := withTimeout(ctx, v.timeout)
			defer cancel()
			return write(ctx)
		},
		Restore: func(prior bool) {
			v.release(key, seq, &prior)
		},
	}

	// The write outlives a disconnected client; the write timeout bounds it.
	if err := cmd.Run(context.WithoutCancel(ctx)); err != nil {
		v.metrics.IncrementRollbacks("verification")
		v.metrics.ObserveVerification(document, "failure")
		v.logger.Warn("verification write failed, flag reverted",
			zap.String("registration_id", key.registrationID),
			zap.String("document", document),
			zap.Error(err),
		)

		err = v.mapWriteErr(key.registrationID, key.memberID, err)
		v.notifier.NotifyFailure(err, "verification")
		return err
	}

	v.release(key, seq, nil)
	v.metrics.ObserveVerification(document, "success")
	if state, ok := v.State(key.registrationID); ok {
		v.board.ApplyVerification(key.registrationID, state)
	}

	verb := "diverifikasi"
	if !value {
		verb = "dibatalkan verifikasinya"
	}
	v.notifier.NotifySuccess(fmt.Sprintf("%s berhasil %s", label, verb))
	return nil
}

// hold sets key to value and marks it pending. The returned sequence number
// identifies this write to release.
func (v *VerificationStore) hold(key flagKey, value bool) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.seq++
	v.pending[key] = pendingFlag{value: value, seq: v.seq}
	v.set(key, value)
	return v.seq
}

// release ends the pending write seq of key. A non-nil prior is restored.
func (v *VerificationStore) release(key flagKey, seq uint64, prior *bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if p, ok := v.pending[key]; ok && p.seq == seq {
		delete(v.pending, key)
	}
	if prior != nil {
		v.set(key, *prior)
	}
}

// flag reads key from the projection. Callers hold mu.
func (v *VerificationStore) flag(key flagKey) bool {
	s := v.states[key.registrationID]
	if key.memberID != "" {
		return s.TeamMembers[key.memberID].IdentityCardVerified
	}
	return s.Flag(key.field)
}

// set writes key into the projection. Callers hold mu.
func (v *VerificationStore) set(key flagKey, value bool) {
	s, ok := v.states[key.registrationID]
	if !ok {
		return
	}
	s = s.Clone()
	if key.memberID != "" {
		if _, ok := s.TeamMembers[key.memberID]; !ok {
			return
		}
		s.TeamMembers[key.memberID] = domain.MemberVerification{IdentityCardVerified: value}
	} else {
		s.SetFlag(key.field, value)
	}
	v.states[key.registrationID] = s
}

func (v *VerificationStore) mapWriteErr(registrationID, memberID string, err error) error {
	switch {
	case errors.Is(err, ErrTeamMemberNotFound):
		return &domain.NotFoundError{Resource: "team member", ID: memberID}
	case errors.Is(err, ErrRegistrationNotFound):
		return &domain.NotFoundError{Resource: "registration", ID: registrationID}
	default:
		return &domain.BackendError{Op: "update verification", Err: err}
	}
}
