package service

import (
	"sync"
	"time"

	"github.com/uiso2025/uiso-admin-api/internal/domain"
)

// StatusSnapshot is the (status, updated_at) pair restored on rollback.
type StatusSnapshot struct {
	Status    domain.Status
	UpdatedAt time.Time
}

type boardSnapshot struct {
	record StatusSnapshot
	detail *StatusSnapshot
}

// Board is the working set of registrations the admin is acting on, plus the
// registration currently open in the detail view. Status updates touch both.
//
// A status whose write is still in flight is pending: it survives Replace,
// Upsert and OpenDetail until the write settles or is restored.
type Board struct {
	mu      sync.RWMutex
	items   map[string]domain.Registration
	detail  *domain.Registration
	pending map[string]StatusSnapshot
}

func NewBoard() *Board {
	return &Board{
		items:   make(map[string]domain.Registration),
		pending: make(map[string]StatusSnapshot),
	}
}

// Replace swaps the whole working set. An open detail view is refreshed when
// its registration is part of regs.
func (b *Board) Replace(regs []domain.Registration) {
	items := make(map[string]domain.Registration, len(regs))
	for _, r := range regs {
		items[r.ID] = r.Clone()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for id, p := range b.pending {
		if r, ok := items[id]; ok {
			r.Status, r.UpdatedAt = p.Status, p.UpdatedAt
			items[id] = r
		}
	}
	b.items = items
	if b.detail != nil {
		if r, ok := items[b.detail.ID]; ok {
			d := r.Clone()
			b.detail = &d
		}
	}
}

func (b *Board) Upsert(r domain.Registration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[r.ID] = b.overlay(r.Clone())
}

// overlay applies the pending status of r, if any. Callers hold mu.
func (b *Board) overlay(r domain.Registration) domain.Registration {
	if p, ok := b.pending[r.ID]; ok {
		r.Status, r.UpdatedAt = p.Status, p.UpdatedAt
	}
	return r
}

func (b *Board) Get(id string) (domain.Registration, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	r, ok := b.items[id]
	if !ok {
		return domain.Registration{}, false
	}
	return r.Clone(), true
}

func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.items)
}

// OpenDetail shows r in the detail view and makes sure it is on the board.
func (b *Board) OpenDetail(r domain.Registration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r = b.overlay(r.Clone())
	b.items[r.ID] = r
	d := r.Clone()
	b.detail = &d
}

func (b *Board) Detail() (domain.Registration, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.detail == nil {
		return domain.Registration{}, false
	}
	return b.detail.Clone(), true
}

func (b *Board) CloseDetail() {
	b.mu.Lock()
	b.detail = nil
	b.mu.Unlock()
}

func (b *Board) snapshot(id string) (boardSnapshot, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	r, ok := b.items[id]
	if !ok {
		return boardSnapshot{}, false
	}

	s := boardSnapshot{record: StatusSnapshot{Status: r.Status, UpdatedAt: r.UpdatedAt}}
	if b.detail != nil && b.detail.ID == id {
		s.detail = &StatusSnapshot{Status: b.detail.Status, UpdatedAt: b.detail.UpdatedAt}
	}
	return s, true
}

// SetStatus updates the board and, if it shows id, the detail view.
func (b *Board) SetStatus(id string, status domain.Status, at time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.setStatus(id, status, at)
}

func (b *Board) setStatus(id string, status domain.Status, at time.Time) bool {
	r, ok := b.items[id]
	if !ok {
		return false
	}
	r.Status, r.UpdatedAt = status, at
	b.items[id] = r

	if b.detail != nil && b.detail.ID == id {
		b.detail.Status, b.detail.UpdatedAt = status, at
	}
	return true
}

// hold sets an optimistic status for id and keeps it pending until settle or
// restore.
func (b *Board) hold(id string, status domain.Status, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending[id] = StatusSnapshot{Status: status, UpdatedAt: at}
	b.setStatus(id, status, at)
}

// settle marks the pending status of id as written.
func (b *Board) settle(id string) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}

func (b *Board) restore(id string, s boardSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.pending, id)

	if r, ok := b.items[id]; ok {
		r.Status, r.UpdatedAt = s.record.Status, s.record.UpdatedAt
		b.items[id] = r
	}
	if b.detail != nil && b.detail.ID == id {
		prior := s.record
		if s.detail != nil {
			prior = *s.detail
		}
		b.detail.Status, b.detail.UpdatedAt = prior.Status, prior.UpdatedAt
	}
}

// ApplyVerification copies the projection flags onto the board and detail
// copies of id.
func (b *Board) ApplyVerification(id string, state domain.VerificationState) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if r, ok := b.items[id]; ok {
		state.ApplyTo(&r)
		b.items[id] = r
	}
	if b.detail != nil && b.detail.ID == id {
		state.ApplyTo(b.detail)
	}
}
