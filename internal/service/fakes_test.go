package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/uiso2025/uiso-admin-api/internal/domain"
	"github.com/uiso2025/uiso-admin-api/internal/metrics"
	"github.com/uiso2025/uiso-admin-api/internal/pkg/keyguard"
	"github.com/uiso2025/uiso-admin-api/internal/pkg/retry"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

var (
	osp = domain.Competition{ID: "c-osp", Code: "OSP", Name: "Olimpiade Sains Pelajar", Type: domain.CompetitionIndividual}
	scc = domain.Competition{ID: "c-scc", Code: "SCC", Name: "Science Creativity Competition", Type: domain.CompetitionTeam}
)

// fakeRepo is an in-memory store honoring StoreFilter the way the gorm DAO
// does.
type fakeRepo struct {
	mu      sync.Mutex
	regs    map[string]domain.Registration
	history map[string][]domain.StatusRecord

	findErr    error
	batchErr   error
	flagErr    error
	statusErrs map[string][]error

	// block, when set, holds UpdateStatus until it is closed or the
	// context ends. started receives one value per blocked call.
	block   chan struct{}
	started chan string

	// flagBlock and flagStarted do the same for UpdateDocumentFlag.
	flagBlock   chan struct{}
	flagStarted chan string

	findCalls   int
	statusCalls int
	batchCalls  int
	flagCalls   int
}

func newFakeRepo(regs ...domain.Registration) *fakeRepo {
	r := &fakeRepo{
		regs:       make(map[string]domain.Registration),
		history:    make(map[string][]domain.StatusRecord),
		statusErrs: make(map[string][]error),
	}
	for _, reg := range regs {
		r.regs[reg.ID] = reg.Clone()
	}
	return r
}

func (f *fakeRepo) Find(_ context.Context, filter domain.StoreFilter) ([]domain.Registration, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.findCalls++
	if f.findErr != nil {
		return nil, 0, f.findErr
	}

	var out []domain.Registration
	for _, r := range f.regs {
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		if filter.From != nil && r.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && r.CreatedAt.After(*filter.To) {
			continue
		}
		out = append(out, r.Clone())
	}

	desc := filter.Order != domain.SortAsc
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		var c int
		switch filter.OrderBy {
		case domain.SortUpdatedAt:
			c = a.UpdatedAt.Compare(b.UpdatedAt)
		case domain.SortStatus:
			c = compareStrings(string(a.Status), string(b.Status))
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if desc {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	return out, int64(len(out)), nil
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (f *fakeRepo) FindByID(_ context.Context, id string) (domain.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.regs[id]
	if !ok {
		return domain.Registration{}, fmt.Errorf("r.dao.FindByID -> %w", ErrRegistrationNotFound)
	}
	return r.Clone(), nil
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, id string, change domain.StatusChange) error {
	f.mu.Lock()
	f.statusCalls++
	block, started := f.block, f.started
	f.mu.Unlock()

	if block != nil {
		if started != nil {
			started <- id
		}
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if errs := f.statusErrs[id]; len(errs) > 0 {
		f.statusErrs[id] = errs[1:]
		return fmt.Errorf("r.dao.UpdateStatus -> %w", errs[0])
	}

	r, ok := f.regs[id]
	if !ok {
		return fmt.Errorf("r.dao.UpdateStatus -> %w", ErrRegistrationNotFound)
	}
	f.record(r, change)
	r.Status, r.UpdatedAt = change.To, change.At
	f.regs[id] = r
	return nil
}

// record appends to the status history. Callers hold mu.
func (f *fakeRepo) record(r domain.Registration, change domain.StatusChange) {
	f.history[r.ID] = append(f.history[r.ID], domain.StatusRecord{
		From:    r.Status,
		To:      change.To,
		ActorID: change.ActorID,
		Reason:  change.Reason,
		At:      change.At,
	})
}

func (f *fakeRepo) FindStatusChanges(_ context.Context, registrationID string) ([]domain.StatusRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.findErr != nil {
		return nil, f.findErr
	}
	return append([]domain.StatusRecord(nil), f.history[registrationID]...), nil
}

func (f *fakeRepo) UpdateStatusBatch(_ context.Context, ids []string, change domain.StatusChange) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.batchCalls++
	if f.batchErr != nil {
		return fmt.Errorf("r.dao.UpdateStatusBatch -> %w", f.batchErr)
	}
	for _, id := range ids {
		if _, ok := f.regs[id]; !ok {
			return fmt.Errorf("r.dao.UpdateStatusBatch -> %w", ErrPartialBatch)
		}
	}
	for _, id := range ids {
		r := f.regs[id]
		f.record(r, change)
		r.Status, r.UpdatedAt = change.To, change.At
		f.regs[id] = r
	}
	return nil
}

func (f *fakeRepo) UpdateDocumentFlag(ctx context.Context, id string, field domain.DocumentField, value bool) error {
	f.mu.Lock()
	block, started := f.flagBlock, f.flagStarted
	f.mu.Unlock()

	if block != nil {
		if started != nil {
			started <- id
		}
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.flagCalls++
	if f.flagErr != nil {
		return fmt.Errorf("r.dao.UpdateDocumentFlag -> %w", f.flagErr)
	}
	r, ok := f.regs[id]
	if !ok {
		return fmt.Errorf("r.dao.UpdateDocumentFlag -> %w", ErrRegistrationNotFound)
	}
	state := domain.NewVerificationState(r)
	state.SetFlag(field, value)
	state.ApplyTo(&r)
	f.regs[id] = r
	return nil
}

func (f *fakeRepo) UpdateMemberFlag(_ context.Context, memberID, registrationID string, value bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.flagCalls++
	if f.flagErr != nil {
		return fmt.Errorf("r.dao.UpdateMemberFlag -> %w", f.flagErr)
	}
	r, ok := f.regs[registrationID]
	if !ok {
		return fmt.Errorf("r.dao.UpdateMemberFlag -> %w", ErrTeamMemberNotFound)
	}
	for i := range r.TeamMembers {
		if r.TeamMembers[i].ID == memberID {
			r.TeamMembers[i].IdentityCardVerified = value
			f.regs[registrationID] = r
			return nil
		}
	}
	return fmt.Errorf("r.dao.UpdateMemberFlag -> %w", ErrTeamMemberNotFound)
}

func (f *fakeRepo) stored(id string) domain.Registration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.regs[id].Clone()
}

type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	failures  []error
}

func (n *recordingNotifier) NotifySuccess(message string) {
	n.mu.Lock()
	n.successes = append(n.successes, message)
	n.mu.Unlock()
}

func (n *recordingNotifier) NotifyFailure(err error, _ string) {
	n.mu.Lock()
	n.failures = append(n.failures, err)
	n.mu.Unlock()
}

func (n *recordingNotifier) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.successes), len(n.failures)
}

// harness wires every component around one fake store.
type harness struct {
	repo         *fakeRepo
	board        *Board
	notifier     *recordingNotifier
	metrics      *metrics.Metrics
	guard        *keyguard.Guard
	verification *VerificationStore
	transitions  *TransitionEngine
	queries      *QueryEngine
	bulk         *BulkCoordinator
	export       *ExportProjector
}

func newHarness(regs ...domain.Registration) *harness {
	h := &harness{
		repo:     newFakeRepo(regs...),
		board:    NewBoard(),
		notifier: &recordingNotifier{},
		metrics:  metrics.New(prometheus.NewRegistry()),
		guard:    keyguard.New(),
	}

	logger := zap.NewNop()
	policy := retry.Policy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

	h.verification = NewVerificationStore(h.repo, h.board, h.notifier, h.metrics, logger, time.Second)
	h.transitions = NewTransitionEngine(h.repo, h.board, h.verification, h.guard, h.notifier, h.metrics, logger, policy)
	h.transitions.now = func() time.Time { return t0.Add(240 * time.Hour) }
	h.queries = NewQueryEngine(h.repo, h.board, h.verification, h.notifier, h.metrics, logger, time.UTC)
	h.bulk = NewBulkCoordinator(h.repo, h.board, h.guard, h.notifier, h.metrics, logger, time.Second)
	h.bulk.now = func() time.Time { return t0.Add(240 * time.Hour) }
	h.export = NewExportProjector(h.queries, time.UTC)

	return h
}

// load puts every stored registration on the board, as a listing would.
func (h *harness) load() {
	regs, _, _ := h.repo.Find(context.Background(), domain.StoreFilter{})
	h.board.Replace(regs)
	h.verification.Reset(regs)
}

func individual(id, name string, created time.Time) domain.Registration {
	return domain.Registration{
		ID:          id,
		Status:      domain.StatusPending,
		Competition: osp,
		Profile: domain.Profile{
			ID:             "p-" + id,
			FullName:       name,
			Email:          id + "@example.com",
			School:         "SMA Negeri 1",
			EducationLevel: domain.EducationSMA,
			Grade:          11,
		},
		TeamSize:  1,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func team(id, name string, created time.Time, members ...domain.TeamMember) domain.Registration {
	r := individual(id, name, created)
	teamName := "Tim " + name
	r.TeamName = &teamName
	r.Competition = scc
	r.TeamSize = len(members)
	r.TeamMembers = members
	for i := range r.TeamMembers {
		r.TeamMembers[i].RegistrationID = id
	}
	return r
}

func verified(r domain.Registration) domain.Registration {
	r.IdentityCardVerified = true
	r.EngagementProofVerified = true
	r.PaymentProofVerified = true
	for i := range r.TeamMembers {
		r.TeamMembers[i].IdentityCardVerified = true
	}
	return r
}
