package request

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/dlclark/regexp2"
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/uiso2025/uiso-admin-api/internal/domain"
)

const dateLayout = "2006-01-02"

// Calendar dates only: yyyy-mm-dd with a plausible month and day.
var dateExp = regexp2.MustCompile(`^\d{4}-(?:0[1-9]|1[0-2])-(?:0[1-9]|[12]\d|3[01])$`, regexp2.None)

var errInvalidDate = errors.New("must be a date in yyyy-mm-dd format")

func validDate(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if ok, err := dateExp.MatchString(s); err != nil || !ok {
		return errInvalidDate
	}
	if _, err := time.Parse(dateLayout, s); err != nil {
		return errInvalidDate
	}
	return nil
}

func sortKeys() []interface{} {
	keys := make([]interface{}, len(domain.SortKeys))
	for i, k := range domain.SortKeys {
		keys[i] = string(k)
	}
	return keys
}

// RegistrationQuery is a QuerySpec as sent on the wire, either as query
// string parameters or as a JSON body.
type RegistrationQuery struct {
	Search      string `form:"search" json:"search"`
	Status      string `form:"status" json:"status"`
	Competition string `form:"competition" json:"competition"`
	Education   string `form:"education" json:"education"`
	DateFrom    string `form:"dateFrom" json:"dateFrom"`
	DateTo      string `form:"dateTo" json:"dateTo"`
	SortBy      string `form:"sortBy" json:"sortBy"`
	SortOrder   string `form:"sortOrder" json:"sortOrder"`
	Page        int    `form:"page" json:"page"`
	Limit       int    `form:"limit" json:"limit"`
}

func (req *RegistrationQuery) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Search, validation.Length(0, 100)),
		validation.Field(&req.Status, validation.In(domain.FilterAll, "pending", "approved", "rejected")),
		validation.Field(&req.Competition, validation.Length(0, 20)),
		validation.Field(&req.Education, validation.In(domain.FilterAll, "SD", "SMP", "SMA", "Mahasiswa")),
		validation.Field(&req.DateFrom, validation.By(validDate)),
		validation.Field(&req.DateTo, validation.By(validDate)),
		validation.Field(&req.SortBy, validation.In(sortKeys()...)),
		validation.Field(&req.SortOrder, validation.In("asc", "desc")),
		validation.Field(&req.Page, validation.Min(0)),
		validation.Field(&req.Limit, validation.Min(0), validation.Max(domain.MaxPageSize)),
	)
}

// ToQuerySpec converts the request. Dates are read in loc.
func (req *RegistrationQuery) ToQuerySpec(loc *time.Location) (domain.QuerySpec, error) {
	spec := domain.QuerySpec{
		Search:      req.Search,
		Status:      req.Status,
		Competition: req.Competition,
		Education:   req.Education,
		SortBy:      domain.SortKey(req.SortBy),
		SortOrder:   domain.SortOrder(req.SortOrder),
		Page:        req.Page,
		PageSize:    req.Limit,
	}

	var err error
	if spec.DateFrom, err = parseDate(req.DateFrom, loc); err != nil {
		return domain.QuerySpec{}, fmt.Errorf("dateFrom: %w", err)
	}
	if spec.DateTo, err = parseDate(req.DateTo, loc); err != nil {
		return domain.QuerySpec{}, fmt.Errorf("dateTo: %w", err)
	}

	return spec.Normalized(), nil
}

func parseDate(s string, loc *time.Location) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// EncodeQuery serializes spec back into query string parameters. Defaults
// are omitted so shared links stay short.
func EncodeQuery(spec domain.QuerySpec, loc *time.Location) url.Values {
	spec = spec.Normalized()
	v := url.Values{}

	if spec.Search != "" {
		v.Set("search", spec.Search)
	}
	if spec.Status != domain.FilterAll {
		v.Set("status", spec.Status)
	}
	if spec.Competition != domain.FilterAll {
		v.Set("competition", spec.Competition)
	}
	if spec.Education != domain.FilterAll {
		v.Set("education", spec.Education)
	}
	if spec.DateFrom != nil {
		v.Set("dateFrom", spec.DateFrom.In(loc).Format(dateLayout))
	}
	if spec.DateTo != nil {
		v.Set("dateTo", spec.DateTo.In(loc).Format(dateLayout))
	}
	if spec.SortBy != domain.SortCreatedAt {
		v.Set("sortBy", string(spec.SortBy))
	}
	if spec.SortOrder != domain.SortDesc {
		v.Set("sortOrder", string(spec.SortOrder))
	}
	if spec.Page != 1 {
		v.Set("page", strconv.Itoa(spec.Page))
	}
	if spec.PageSize != domain.DefaultPageSize {
		v.Set("limit", strconv.Itoa(spec.PageSize))
	}

	return v
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

func (req *UpdateStatusRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Status, validation.Required, validation.In("pending", "approved", "rejected")),
	)
}

type UpdateVerificationRequest struct {
	Field string `json:"field"`
	Value *bool  `json:"value"`
}

func (req *UpdateVerificationRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Field, validation.Required, validation.In(
			string(domain.DocumentIdentityCard),
			string(domain.DocumentEngagementProof),
			string(domain.DocumentPaymentProof),
		)),
		validation.Field(&req.Value, validation.NotNil),
	)
}

type UpdateMemberVerificationRequest struct {
	Value *bool `json:"value"`
}

func (req *UpdateMemberVerificationRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Value, validation.NotNil),
	)
}

type BulkStatusRequest struct {
	IDs    []string `json:"ids"`
	Status string   `json:"status"`
	Reason string   `json:"reason,omitempty"`
}

func (req *BulkStatusRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.IDs, validation.Required, validation.Length(1, 500)),
		validation.Field(&req.Status, validation.Required, validation.In("pending", "approved", "rejected")),
		validation.Field(&req.Reason, validation.Length(0, 500)),
	)
}

type ExportRequest struct {
	RegistrationQuery
	Format             string `json:"format"`
	IncludeTeamMembers bool   `json:"includeTeamMembers"`
}

func (req *ExportRequest) Validate() error {
	if err := req.RegistrationQuery.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Format, validation.Required, validation.In("xlsx", "csv")),
	)
}
