package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uiso2025/uiso-admin-api/internal/domain"
)

func pendingFive() []domain.Registration {
	regs := []domain.Registration{
		individual("r1", "Eka Putri", t0),
		individual("r2", "budi Santoso", t0.Add(1*time.Hour)),
		individual("r3", "Citra Lestari", t0.Add(2*time.Hour)),
		individual("r4", "Ani Wijaya", t0.Add(3*time.Hour)),
		individual("r5", "dedi Kurnia", t0.Add(4*time.Hour)),
	}
	approved := individual("r6", "Aaron", t0.Add(5*time.Hour))
	approved.Status = domain.StatusApproved
	return append(regs, approved)
}

func names(regs []domain.Registration) []string {
	out := make([]string, len(regs))
	for i, r := range regs {
		out[i] = r.Profile.FullName
	}
	return out
}

func TestQueryEngine_SortByNameWithPagination(t *testing.T) {
	h := newHarness(pendingFive()...)

	res, err := h.queries.Query(context.Background(), domain.QuerySpec{
		Status:    "pending",
		SortBy:    domain.SortApplicantName,
		SortOrder: domain.SortAsc,
		Page:      1,
		PageSize:  2,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Ani Wijaya", "budi Santoso"}, names(res.Data))
	assert.Equal(t, domain.Pagination{
		Page:        1,
		Limit:       2,
		Total:       5,
		TotalPages:  3,
		HasNextPage: true,
		HasPrevPage: false,
	}, res.Pagination)
}

func TestQueryEngine_Deterministic(t *testing.T) {
	h := newHarness(pendingFive()...)
	spec := domain.QuerySpec{SortBy: domain.SortSchool, PageSize: 4}

	first, err := h.queries.Query(context.Background(), spec)
	require.NoError(t, err)
	second, err := h.queries.Query(context.Background(), spec)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

// All fixtures share one school, so ties keep the store's created_at desc
// order.
func TestQueryEngine_StableTies(t *testing.T) {
	h := newHarness(pendingFive()...)

	res, err := h.queries.Query(context.Background(), domain.QuerySpec{SortBy: domain.SortSchool, SortOrder: domain.SortAsc, PageSize: 10})
	require.NoError(t, err)

	ids := make([]string, len(res.Data))
	for i, r := range res.Data {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"r6", "r5", "r4", "r3", "r2", "r1"}, ids)
}

func TestQueryEngine_PageBeyondTotal(t *testing.T) {
	h := newHarness(pendingFive()...)

	res, err := h.queries.Query(context.Background(), domain.QuerySpec{Page: 9, PageSize: 2})
	require.NoError(t, err)

	assert.Empty(t, res.Data)
	assert.NotNil(t, res.Data)
	assert.Equal(t, int64(6), res.Pagination.Total)
	assert.Equal(t, 3, res.Pagination.TotalPages)
	assert.False(t, res.Pagination.HasNextPage)
	assert.True(t, res.Pagination.HasPrevPage)
}

func TestQueryEngine_SearchIsCaseInsensitive(t *testing.T) {
	h := newHarness(pendingFive()...)

	upper, err := h.queries.Query(context.Background(), domain.QuerySpec{Search: "BUDI"})
	require.NoError(t, err)
	lower, err := h.queries.Query(context.Background(), domain.QuerySpec{Search: "budi"})
	require.NoError(t, err)

	assert.Equal(t, []string{"budi Santoso"}, names(upper.Data))
	assert.Equal(t, upper, lower)
}

func TestQueryEngine_InMemoryFilters(t *testing.T) {
	regs := pendingFive()
	regs[0].Competition = scc
	regs[1].Profile.EducationLevel = domain.EducationUniversity
	regs[2].Profile.IdentityNumber = "3201987654"
	h := newHarness(regs...)

	tests := []struct {
		name string
		spec domain.QuerySpec
		want []string
	}{
		{"competition code", domain.QuerySpec{Competition: "SCC"}, []string{"Eka Putri"}},
		{"education level", domain.QuerySpec{Education: "Mahasiswa"}, []string{"budi Santoso"}},
		{"search by identity number", domain.QuerySpec{Search: "98765"}, []string{"Citra Lestari"}},
		{"search by email", domain.QuerySpec{Search: "r4@EXAMPLE"}, []string{"Ani Wijaya"}},
		{"blank search is a no-op", domain.QuerySpec{Search: "  ", Status: "approved"}, []string{"Aaron"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.queries.Query(context.Background(), tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(res.Data))
		})
	}
}

func TestQueryEngine_DateRangeIsInclusiveWholeDays(t *testing.T) {
	late := individual("late", "Late", time.Date(2025, 3, 2, 23, 59, 59, 0, time.UTC))
	early := individual("early", "Early", time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC))
	outside := individual("outside", "Outside", time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC))
	h := newHarness(late, early, outside)

	day := time.Date(2025, 3, 2, 15, 0, 0, 0, time.UTC)
	res, err := h.queries.Query(context.Background(), domain.QuerySpec{DateFrom: &day, DateTo: &day})
	require.NoError(t, err)

	assert.Equal(t, []string{"Late", "Early"}, names(res.Data))
}

func TestQueryEngine_ReplacesBoardWithFullSet(t *testing.T) {
	h := newHarness(pendingFive()...)
	h.board.Upsert(individual("stale", "Stale", t0))

	_, err := h.queries.Query(context.Background(), domain.QuerySpec{Status: "pending", PageSize: 2})
	require.NoError(t, err)

	assert.Equal(t, 5, h.board.Len(), "the board holds every match, not one page")
	_, ok := h.board.Get("stale")
	assert.False(t, ok)

	_, ok = h.verification.State("r5")
	assert.True(t, ok)
}

func TestQueryEngine_FetchFailureKeepsBoard(t *testing.T) {
	h := newHarness(pendingFive()...)
	h.load()
	h.repo.findErr = errors.New("connection reset by peer")

	_, err := h.queries.Query(context.Background(), domain.QuerySpec{})
	require.ErrorIs(t, err, domain.ErrBackend)

	assert.Equal(t, 6, h.board.Len())
	_, failures := h.notifier.counts()
	assert.Equal(t, 1, failures)
}

func TestQueryEngine_RejectsInvalidSpec(t *testing.T) {
	h := newHarness(pendingFive()...)
	from := t0.Add(48 * time.Hour)
	to := t0

	for name, spec := range map[string]domain.QuerySpec{
		"sort key":   {SortBy: "profiles.password"},
		"status":     {Status: "archived"},
		"date range": {DateFrom: &from, DateTo: &to},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := h.queries.Query(context.Background(), spec)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
	assert.Equal(t, 0, h.repo.findCalls)
}

func TestCompileQuery_ClassifiesPredicates(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*60*60)
	day := time.Date(2025, 3, 2, 12, 0, 0, 0, jakarta)

	t.Run("scalar predicates are pushed down", func(t *testing.T) {
		plan, err := compileQuery(domain.QuerySpec{
			Status:    "approved",
			DateFrom:  &day,
			DateTo:    &day,
			SortBy:    domain.SortUpdatedAt,
			SortOrder: domain.SortAsc,
		}, jakarta)
		require.NoError(t, err)

		require.NotNil(t, plan.store.Status)
		assert.Equal(t, domain.StatusApproved, *plan.store.Status)
		assert.Equal(t, time.Date(2025, 3, 2, 0, 0, 0, 0, jakarta), *plan.store.From)
		assert.Equal(t, time.Date(2025, 3, 2, 23, 59, 59, 999999999, jakarta), *plan.store.To)
		assert.Equal(t, domain.SortUpdatedAt, plan.store.OrderBy)
		assert.Equal(t, domain.SortAsc, plan.store.Order)
		assert.Empty(t, plan.filters)
		assert.Equal(t, "store", plan.sortStrategy())
	})

	t.Run("joined predicates run in memory", func(t *testing.T) {
		plan, err := compileQuery(domain.QuerySpec{
			Search:      "budi",
			Competition: "OSP",
			Education:   "SMA",
			SortBy:      domain.SortCompetitionName,
		}, time.UTC)
		require.NoError(t, err)

		assert.Nil(t, plan.store.Status)
		assert.Equal(t, []string{"search", "competition", "education"}, plan.filterNames())
		assert.Equal(t, domain.SortCreatedAt, plan.store.OrderBy)
		assert.Equal(t, domain.SortDesc, plan.store.Order)
		assert.Equal(t, "memory", plan.sortStrategy())
	})
}
