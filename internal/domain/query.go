package domain

import "time"

type SortKey string

const (
	SortCreatedAt       SortKey = "created_at"
	SortUpdatedAt       SortKey = "updated_at"
	SortStatus          SortKey = "status"
	SortApplicantName   SortKey = "profiles.full_name"
	SortEducationLevel  SortKey = "profiles.education_level"
	SortSchool          SortKey = "profiles.school"
	SortCompetitionCode SortKey = "competitions.code"
	SortCompetitionName SortKey = "competitions.name"
)

var SortKeys = []SortKey{
	SortCreatedAt,
	SortUpdatedAt,
	SortStatus,
	SortApplicantName,
	SortEducationLevel,
	SortSchool,
	SortCompetitionCode,
	SortCompetitionName,
}

func (k SortKey) Valid() bool {
	for _, v := range SortKeys {
		if v == k {
			return true
		}
	}
	return false
}

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// FilterAll disables a status, competition or education filter.
const FilterAll = "all"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// QuerySpec describes one listing request. It is a value, never persisted.
type QuerySpec struct {
	Search      string
	Status      string
	Competition string
	Education   string
	DateFrom    *time.Time
	DateTo      *time.Time
	SortBy      SortKey
	SortOrder   SortOrder
	Page        int
	PageSize    int
}

// Normalized fills defaults: created_at desc, page 1, default page size and
// "all" for empty filters.
func (q QuerySpec) Normalized() QuerySpec {
	if q.SortBy == "" {
		q.SortBy = SortCreatedAt
	}
	if q.SortOrder != SortAsc {
		q.SortOrder = SortDesc
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	if q.Status == "" {
		q.Status = FilterAll
	}
	if q.Competition == "" {
		q.Competition = FilterAll
	}
	if q.Education == "" {
		q.Education = FilterAll
	}
	return q
}

type Pagination struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

type QueryResult struct {
	Data       []Registration `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

// StoreFilter carries the predicates the store evaluates natively.
type StoreFilter struct {
	Status  *Status
	From    *time.Time
	To      *time.Time
	OrderBy SortKey
	Order   SortOrder
	IDs     []string
}
