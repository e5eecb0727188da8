package v1

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/uiso2025/uiso-admin-api/internal/api/handler/v1/request"
	"github.com/uiso2025/uiso-admin-api/internal/api/handler/v1/response"
	"github.com/uiso2025/uiso-admin-api/internal/api/middleware"
	"github.com/uiso2025/uiso-admin-api/internal/domain"
	"github.com/uiso2025/uiso-admin-api/internal/export"
	"github.com/uiso2025/uiso-admin-api/internal/service"
)

type RegistrationService interface {
	Query(ctx context.Context, spec domain.QuerySpec) (domain.QueryResult, error)
	Detail(ctx context.Context, id string) (domain.Registration, domain.VerificationState, error)
	History(ctx context.Context, id string) ([]domain.StatusRecord, error)
	Transition(ctx context.Context, id string, target domain.Status, actorID string) error
	SetFlag(ctx context.Context, id string, field domain.DocumentField, value bool) error
	SetMemberFlag(ctx context.Context, memberID, id string, value bool) error
	VerificationState(id string) (domain.VerificationState, bool)
	ApplyBulk(ctx context.Context, ids []string, target domain.Status, note, actorID string) (service.BulkResult, error)
	Project(ctx context.Context, spec domain.QuerySpec, includeTeamMembers bool) (domain.Projection, error)
}

type RegistrationHandler struct {
	svc RegistrationService
	loc *time.Location
	now func() time.Time
}

func NewRegistrationHandler(svc RegistrationService, loc *time.Location) *RegistrationHandler {
	return &RegistrationHandler{
		svc: svc,
		loc: loc,
		now: time.Now,
	}
}

// HandleListRegistrations godoc
// @Summary      List registrations
// @Description  Filters, sorts and paginates registrations. The full filtered set becomes the admin working set.
// @Tags         registrations
// @Produce      json
// @Param        search       query     string  false  "Free text over name, email, school and identity number"
// @Param        status       query     string  false  "pending, approved, rejected or all"
// @Param        competition  query     string  false  "Competition code or all"
// @Param        education    query     string  false  "SD, SMP, SMA, Mahasiswa or all"
// @Param        dateFrom     query     string  false  "yyyy-mm-dd, inclusive"
// @Param        dateTo       query     string  false  "yyyy-mm-dd, inclusive"
// @Param        sortBy       query     string  false  "Sort key"
// @Param        sortOrder    query     string  false  "asc or desc"
// @Param        page         query     int     false  "Page number, from 1"
// @Param        limit        query     int     false  "Page size"
// @Success      200          {object}  response.RegistrationList
// @Failure      400          {object}  response.Err
// @Failure      401          {object}  response.Err
// @Failure      502          {object}  response.Err
// @Router       /admin/registrations [get]
// @Security BearerAuth
func (h *RegistrationHandler) HandleListRegistrations(ctx *gin.Context) {
	var req request.RegistrationQuery
	if err := ctx.ShouldBindQuery(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	spec, err := req.ToQuerySpec(h.loc)
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	result, err := h.svc.Query(ctx.Request.Context(), spec)
	if err != nil {
		response.RenderErr(ctx, response.FromDomain(fmt.Errorf("HandleListRegistrations -> h.svc.Query -> %w", err)))
		return
	}

	if link := h.linkHeader(ctx.Request.URL.Path, spec, result.Pagination); link != "" {
		ctx.Header("Link", link)
	}

	ctx.JSON(http.StatusOK, response.RegistrationList{
		Data:       result.Data,
		Pagination: result.Pagination,
	})
}

func (h *RegistrationHandler) linkHeader(path string, spec domain.QuerySpec, p domain.Pagination) string {
	var links []string

	if p.HasPrevPage {
		prev := spec
		prev.Page = spec.Page - 1
		if prev.Page > p.TotalPages && p.TotalPages > 0 {
			prev.Page = p.TotalPages
		}
		links = append(links, fmt.Sprintf(`<%s?%s>; rel="prev"`, path, request.EncodeQuery(prev, h.loc).Encode()))
	}
	if p.HasNextPage {
		next := spec
		next.Page = spec.Page + 1
		links = append(links, fmt.Sprintf(`<%s?%s>; rel="next"`, path, request.EncodeQuery(next, h.loc).Encode()))
	}

	return strings.Join(links, ", ")
}

// HandleGetRegistration godoc
// @Summary      Get registration
// @Description  Loads one registration with its status history and opens it as the detail view.
// @Tags         registrations
// @Produce      json
// @Param        registrationID  path      string  true  "Registration ID"
// @Success      200             {object}  response.RegistrationDetail
// @Failure      401             {object}  response.Err
// @Failure      404             {object}  response.Err
// @Failure      502             {object}  response.Err
// @Router       /admin/registrations/{registrationID} [get]
// @Security BearerAuth
func (h *RegistrationHandler) HandleGetRegistration(ctx *gin.Context) {
	id := ctx.Param("registrationID")

	reg, state, err := h.svc.Detail(ctx.Request.Context(), id)
	if err != nil {
		response.RenderErr(ctx, response.FromDomain(fmt.Errorf("HandleGetRegistration -> h.svc.Detail -> %w", err)))
		return
	}

	history, err := h.svc.History(ctx.Request.Context(), id)
	if err != nil {
		response.RenderErr(ctx, response.FromDomain(fmt.Errorf("HandleGetRegistration -> h.svc.History -> %w", err)))
		return
	}

	missing := domain.MissingDocuments(reg, &state)
	if missing == nil {
		missing = []string{}
	}

	ctx.JSON(http.StatusOK, response.RegistrationDetail{
		Registration: reg,
		Verification: state,
		Eligible:     domain.IsEligibleForApproval(reg, &state),
		Missing:      missing,
		History:      history,
	})
}

// HandleUpdateStatus godoc
// @Summary      Change registration status
// @Description  Approval requires every document to be verified; the missing ones are listed on 422.
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Param        registrationID  path      string                       true  "Registration ID"
// @Param        request         body      request.UpdateStatusRequest  true  "request body"
// @Success      200             {object}  response.StatusUpdate
// @Failure      400             {object}  response.Err
// @Failure      404             {object}  response.Err
// @Failure      409             {object}  response.Err
// @Failure      422             {object}  response.Err
// @Failure      502             {object}  response.Err
// @Router       /admin/registrations/{registrationID}/status [patch]
// @Security BearerAuth
func (h *RegistrationHandler) HandleUpdateStatus(ctx *gin.Context) {
	id := ctx.Param("registrationID")

	var req request.UpdateStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	status := domain.Status(req.Status)
	if err := h.svc.Transition(ctx.Request.Context(), id, status, actorID(ctx)); err != nil {
		response.RenderErr(ctx, response.FromDomain(fmt.Errorf("HandleUpdateStatus -> h.svc.Transition -> %w", err)))
		return
	}

	ctx.JSON(http.StatusOK, response.StatusUpdate{ID: id, Status: status})
}

// HandleUpdateVerification godoc
// @Summary      Toggle a document verification flag
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Param        registrationID  path      string                             true  "Registration ID"
// @Param        request         body      request.UpdateVerificationRequest  true  "request body"
// @Success      200             {object}  response.VerificationUpdate
// @Failure      400             {object}  response.Err
// @Failure      404             {object}  response.Err
// @Failure      502             {object}  response.Err
// @Router       /admin/registrations/{registrationID}/verification [patch]
// @Security BearerAuth
func (h *RegistrationHandler) HandleUpdateVerification(ctx *gin.Context) {
	id := ctx.Param("registrationID")

	var req request.UpdateVerificationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	err := h.svc.SetFlag(ctx.Request.Context(), id, domain.DocumentField(req.Field), *req.Value)
	if err != nil {
		response.RenderErr(ctx, response.FromDomain(fmt.Errorf("HandleUpdateVerification -> h.svc.SetFlag -> %w", err)))
		return
	}

	h.renderVerification(ctx, id)
}

// HandleUpdateMemberVerification godoc
// @Summary      Toggle a team member's identity card verification
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Param        registrationID  path      string                                   true  "Registration ID"
// @Param        memberID        path      string                                   true  "Team member ID"
// @Param        request         body      request.UpdateMemberVerificationRequest  true  "request body"
// @Success      200             {object}  response.VerificationUpdate
// @Failure      400             {object}  response.Err
// @Failure      404             {object}  response.Err
// @Failure      502             {object}  response.Err
// @Router       /admin/registrations/{registrationID}/members/{memberID}/verification [patch]
// @Security BearerAuth
func (h *RegistrationHandler) HandleUpdateMemberVerification(ctx *gin.Context) {
	id := ctx.Param("registrationID")
	memberID := ctx.Param("memberID")

	var req request.UpdateMemberVerificationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	err := h.svc.SetMemberFlag(ctx.Request.Context(), memberID, id, *req.Value)
	if err != nil {
		response.RenderErr(ctx, response.FromDomain(fmt.Errorf("HandleUpdateMemberVerification -> h.svc.SetMemberFlag -> %w", err)))
		return
	}

	h.renderVerification(ctx, id)
}

func (h *RegistrationHandler) renderVerification(ctx *gin.Context, id string) {
	state, ok := h.svc.VerificationState(id)
	if !ok {
		response.RenderErr(ctx, response.ErrNotFound("registration", "id", id))
		return
	}

	ctx.JSON(http.StatusOK, response.VerificationUpdate{ID: id, Verification: state})
}

// HandleBulkStatus godoc
// @Summary      Change the status of many registrations
// @Description  Administrative override: the verification gate is not applied. Failed ids are reported individually.
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Param        request  body      request.BulkStatusRequest  true  "request body"
// @Success      200      {object}  response.BulkUpdate
// @Failure      400      {object}  response.Err
// @Failure      401      {object}  response.Err
// @Failure      422      {object}  response.Err
// @Router       /admin/registrations/bulk [post]
// @Security BearerAuth
func (h *RegistrationHandler) HandleBulkStatus(ctx *gin.Context) {
	var req request.BulkStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	status := domain.Status(req.Status)
	result, err := h.svc.ApplyBulk(ctx.Request.Context(), req.IDs, status, req.Reason, actorID(ctx))
	if err != nil {
		response.RenderErr(ctx, response.FromDomain(fmt.Errorf("HandleBulkStatus -> h.svc.ApplyBulk -> %w", err)))
		return
	}

	failures := make([]response.BulkFailure, len(result.Failures))
	for i, f := range result.Failures {
		failures[i] = response.BulkFailure{ID: f.ID, Reason: f.Reason}
	}

	message := fmt.Sprintf("%d registrations updated to %s", result.UpdatedCount, status)
	if len(failures) > 0 {
		message = fmt.Sprintf("%s, %d failed", message, len(failures))
	}

	ctx.JSON(http.StatusOK, response.BulkUpdate{
		Message:      message,
		UpdatedCount: result.UpdatedCount,
		Failures:     failures,
	})
}

// HandleExport godoc
// @Summary      Export registrations
// @Description  Exports every registration matching the filters, ignoring pagination.
// @Tags         registrations
// @Accept       json
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce      text/csv
// @Param        request  body      request.ExportRequest  true  "request body"
// @Success      200      {file}    binary
// @Failure      400      {object}  response.Err
// @Failure      401      {object}  response.Err
// @Failure      502      {object}  response.Err
// @Router       /admin/registrations/export [post]
// @Security BearerAuth
func (h *RegistrationHandler) HandleExport(ctx *gin.Context) {
	var req request.ExportRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	spec, err := req.ToQuerySpec(h.loc)
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	projection, err := h.svc.Project(ctx.Request.Context(), spec, req.IncludeTeamMembers)
	if err != nil {
		response.RenderErr(ctx, response.FromDomain(fmt.Errorf("HandleExport -> h.svc.Project -> %w", err)))
		return
	}

	file, err := export.Encode(projection, export.Format(req.Format), h.now().In(h.loc))
	if err != nil {
		response.RenderErr(ctx, response.ErrInternalServerError(fmt.Errorf("HandleExport -> export.Encode -> %w", err)))
		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Name))
	ctx.Data(http.StatusOK, file.ContentType, file.Body)
}

func actorID(ctx *gin.Context) string {
	claims, ok := middleware.ClaimsFrom(ctx)
	if !ok {
		return ""
	}
	return claims.Subject
}
