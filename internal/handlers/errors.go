package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/onboardhub/backend/internal/services"
	"github.com/onboardhub/backend/pkg/logger"
	"github.com/onboardhub/backend/pkg/response"
)

// appError maps a service error onto the HTTP error it should be rendered as.
func appError(err error) *response.AppError {
	var appErr *response.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, services.ErrForbidden):
		return response.NewForbidden(err.Error())
	case errors.Is(err, services.ErrNotFound):
		return response.NewNotFound(err.Error())
	case errors.Is(err, services.ErrAlreadyMember), errors.Is(err, services.ErrEmailTaken):
		return response.NewConflict(err.Error())
	case errors.Is(err, services.ErrFormat):
		return response.NewUnprocessable(err.Error())
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrInvalidRole):
		return response.NewBadRequest(err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		return response.NewUnauthorized(err.Error())
	case errors.Is(err, services.ErrGeneratorUnavailable):
		return response.NewBadGateway(err.Error())
	}
	return nil
}

// renderError writes err using the status mapped from its sentinel. Unmapped
// errors are store failures: they are logged and reported as a bare 500.
func renderError(c *gin.Context, err error) {
	if appErr := appError(err); appErr != nil {
		response.Error(c, appErr)
		return
	}
	logger.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	response.Error(c, response.NewServerError("internal server error"))
}

// pathID parses a positive numeric path parameter, answering 400 when it is not one.
func pathID(c *gin.Context, name, label string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid "+label+" id")
		return 0, false
	}
	return uint(id), true
}
