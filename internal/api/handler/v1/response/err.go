package response

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/uiso2025/uiso-admin-api/internal/domain"
)

// Err is the JSON body of every error response.
type Err struct {
	Err            error    `json:"-"`
	HTTPStatusCode int      `json:"-"`
	StatusText     string   `json:"status"`
	ErrorText      string   `json:"error,omitempty"`
	Missing        []string `json:"missing,omitempty"`
}

func RenderErr(ctx *gin.Context, err *Err) {
	ctx.AbortWithStatusJSON(err.HTTPStatusCode, err)
}

func ErrBadRequest(err error) *Err {
	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Bad request.",
		ErrorText:      err.Error(),
	}
}

func ErrUnauthorized(err error) *Err {
	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusUnauthorized,
		StatusText:     "Unauthorized.",
		ErrorText:      err.Error(),
	}
}

func ErrPermissionDenied(err error) *Err {
	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusForbidden,
		StatusText:     "Permission denied.",
		ErrorText:      err.Error(),
	}
}

func ErrNotFound(resource, key string, value any) *Err {
	return &Err{
		Err:            fmt.Errorf("%s with %s %v not found", resource, key, value),
		HTTPStatusCode: http.StatusNotFound,
		StatusText:     "Resource not found.",
		ErrorText:      fmt.Sprintf("%s with %s %v not found", resource, key, value),
	}
}

func ErrConflict(err error) *Err {
	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusConflict,
		StatusText:     "Please wait.",
		ErrorText:      err.Error(),
	}
}

func ErrUnprocessable(err error, missing []string) *Err {
	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusUnprocessableEntity,
		StatusText:     "Validation failed.",
		ErrorText:      err.Error(),
		Missing:        missing,
	}
}

func ErrBadGateway(err error) *Err {
	zap.L().Error("backend failure", zap.Error(err))

	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusBadGateway,
		StatusText:     "Backend failure.",
		ErrorText:      "the registration store could not complete the request",
	}
}

func ErrInternalServerError(err error) *Err {
	zap.L().Error("internal server error", zap.Error(err))

	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusInternalServerError,
		StatusText:     "Internal server error.",
	}
}

// FromDomain maps the registration error taxonomy onto HTTP statuses.
func FromDomain(err error) *Err {
	var (
		validationErr *domain.ValidationError
		notFoundErr   *domain.NotFoundError
	)

	switch {
	case errors.As(err, &validationErr):
		return ErrUnprocessable(validationErr, validationErr.Missing)
	case errors.As(err, &notFoundErr):
		return ErrNotFound(notFoundErr.Resource, "id", notFoundErr.ID)
	case errors.Is(err, domain.ErrConflict):
		return ErrConflict(err)
	case errors.Is(err, domain.ErrBackend):
		return ErrBadGateway(err)
	}

	return ErrInternalServerError(err)
}
