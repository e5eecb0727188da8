package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/uiso2025/uiso-admin-api/internal/domain"
	"github.com/uiso2025/uiso-admin-api/internal/metrics"
)

// storeSortKeys are the flat registration columns the store can order by.
var storeSortKeys = map[domain.SortKey]bool{
	domain.SortCreatedAt: true,
	domain.SortUpdatedAt: true,
	domain.SortStatus:    true,
}

// memorySortKeys extract the joined text a registration is sorted by when the
// store cannot order on it.
var memorySortKeys = map[domain.SortKey]func(domain.Registration) string{
	domain.SortApplicantName:   func(r domain.Registration) string { return r.Profile.FullName },
	domain.SortEducationLevel:  func(r domain.Registration) string { return string(r.Profile.EducationLevel) },
	domain.SortSchool:          func(r domain.Registration) string { return r.Profile.School },
	domain.SortCompetitionCode: func(r domain.Registration) string { return r.Competition.Code },
	domain.SortCompetitionName: func(r domain.Registration) string { return r.Competition.Name },
}

type predicate struct {
	name  string
	match func(domain.Registration) bool
}

// queryPlan is a compiled QuerySpec: what the store evaluates and what is
// applied after the fetch.
type queryPlan struct {
	store   domain.StoreFilter
	filters []predicate
	// less is nil when the store already returns the requested order.
	less func(a, b domain.Registration) bool
}

func (p queryPlan) sortStrategy() string {
	if p.less == nil {
		return "store"
	}
	return "memory"
}

func (p queryPlan) filterNames() []string {
	names := make([]string, len(p.filters))
	for i, f := range p.filters {
		names[i] = f.name
	}
	return names
}

func (p queryPlan) apply(regs []domain.Registration) []domain.Registration {
	out := regs[:0:0]
	for _, r := range regs {
		if p.matches(r) {
			out = append(out, r)
		}
	}
	if p.less != nil {
		sort.SliceStable(out, func(i, j int) bool { return p.less(out[i], out[j]) })
	}
	return out
}

func (p queryPlan) matches(r domain.Registration) bool {
	for _, f := range p.filters {
		if !f.match(r) {
			return false
		}
	}
	return true
}

// compileQuery splits spec into store predicates and in-memory predicates.
// Date bounds are whole days in loc, both inclusive.
func compileQuery(spec domain.QuerySpec, loc *time.Location) (queryPlan, error) {
	spec = spec.Normalized()

	var plan queryPlan

	if spec.Status != domain.FilterAll {
		status := domain.Status(spec.Status)
		if !status.Valid() {
			return queryPlan{}, &domain.ValidationError{Reason: fmt.Sprintf("unknown status filter %q", spec.Status)}
		}
		plan.store.Status = &status
	}

	if spec.DateFrom != nil {
		from := startOfDay(*spec.DateFrom, loc)
		plan.store.From = &from
	}
	if spec.DateTo != nil {
		to := startOfDay(*spec.DateTo, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
		plan.store.To = &to
	}
	if plan.store.From != nil && plan.store.To != nil && plan.store.From.After(*plan.store.To) {
		return queryPlan{}, &domain.ValidationError{Reason: "dateFrom must not be after dateTo"}
	}

	if term := strings.ToLower(strings.TrimSpace(spec.Search)); term != "" {
		plan.filters = append(plan.filters, predicate{
			name:  "search",
			match: func(r domain.Registration) bool { return strings.Contains(searchText(r), term) },
		})
	}
	if spec.Competition != domain.FilterAll {
		code := spec.Competition
		plan.filters = append(plan.filters, predicate{
			name:  "competition",
			match: func(r domain.Registration) bool { return r.Competition.Code == code },
		})
	}
	if spec.Education != domain.FilterAll {
		level := domain.EducationLevel(spec.Education)
		plan.filters = append(plan.filters, predicate{
			name:  "education",
			match: func(r domain.Registration) bool { return r.Profile.EducationLevel == level },
		})
	}

	switch {
	case storeSortKeys[spec.SortBy]:
		plan.store.OrderBy = spec.SortBy
		plan.store.Order = spec.SortOrder
	case memorySortKeys[spec.SortBy] != nil:
		plan.store.OrderBy = domain.SortCreatedAt
		plan.store.Order = domain.SortDesc

		key := memorySortKeys[spec.SortBy]
		desc := spec.SortOrder == domain.SortDesc
		plan.less = func(a, b domain.Registration) bool {
			c := strings.Compare(strings.ToLower(key(a)), strings.ToLower(key(b)))
			if desc {
				c = -c
			}
			return c < 0
		}
	default:
		return queryPlan{}, &domain.ValidationError{Reason: fmt.Sprintf("unknown sort key %q", spec.SortBy)}
	}

	return plan, nil
}

func searchText(r domain.Registration) string {
	return strings.ToLower(strings.Join([]string{
		r.Profile.FullName,
		r.Profile.Email,
		r.Profile.School,
		r.Profile.IdentityNumber,
	}, " "))
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func paginate(regs []domain.Registration, page, pageSize int) domain.QueryResult {
	total := len(regs)
	totalPages := (total + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	data := make([]domain.Registration, end-start)
	copy(data, regs[start:end])

	return domain.QueryResult{
		Data: data,
		Pagination: domain.Pagination{
			Page:        page,
			Limit:       pageSize,
			Total:       int64(total),
			TotalPages:  totalPages,
			HasNextPage: page < totalPages,
			HasPrevPage: page > 1,
		},
	}
}

// QueryEngine lists registrations. A successful query replaces the board with
// the whole filtered set and reseeds the verification projection.
type QueryEngine struct {
	repo         RegistrationRepository
	board        *Board
	verification *VerificationStore
	notifier     Notifier
	metrics      *metrics.Metrics
	logger       *zap.Logger
	loc          *time.Location
}

func NewQueryEngine(
	repo RegistrationRepository,
	board *Board,
	verification *VerificationStore,
	notifier Notifier,
	m *metrics.Metrics,
	logger *zap.Logger,
	loc *time.Location,
) *QueryEngine {
	return &QueryEngine{
		repo:         repo,
		board:        board,
		verification: verification,
		notifier:     notifier,
		metrics:      m,
		logger:       logger,
		loc:          loc,
	}
}

func (q *QueryEngine) Query(ctx context.Context, spec domain.QuerySpec) (domain.QueryResult, error) {
	spec = spec.Normalized()

	regs, err := q.Resolve(ctx, spec)
	if err != nil {
		q.notifier.NotifyFailure(err, "registration query")
		return domain.QueryResult{}, err
	}

	q.board.Replace(regs)
	q.verification.Reset(regs)
	q.metrics.BoardSize.Set(float64(len(regs)))

	return paginate(regs, spec.Page, spec.PageSize), nil
}

// Resolve returns every registration matching spec in the requested order,
// without pagination and without touching the board.
func (q *QueryEngine) Resolve(ctx context.Context, spec domain.QuerySpec) ([]domain.Registration, error) {
	plan, err := compileQuery(spec, q.loc)
	if err != nil {
		return nil, err
	}

	q.logger.Debug("registration query compiled",
		zap.Strings("memory_filters", plan.filterNames()),
		zap.String("sort", plan.sortStrategy()),
	)

	started := time.Now()
	regs, _, err := q.repo.Find(ctx, plan.store)
	if err != nil {
		q.logger.Error("registration fetch failed", zap.Error(err))
		return nil, &domain.BackendError{Op: "fetch registrations", Err: fmt.Errorf("q.repo.Find -> %w", err)}
	}

	regs = plan.apply(regs)
	q.metrics.QueryLatency.WithLabelValues(plan.sortStrategy()).Observe(time.Since(started).Seconds())

	return regs, nil
}
