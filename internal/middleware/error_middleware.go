package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/unihub/unihub/internal/app/models/dto"
	"github.com/unihub/unihub/internal/pkg/apperrors"
	"github.com/unihub/unihub/internal/pkg/logger"
)

// statusForKind maps an error kind to its HTTP status and error code
func statusForKind(kind apperrors.Kind) (int, dto.ErrorCode) {
	switch kind {
	case apperrors.KindUnauthenticated:
		return http.StatusUnauthorized, dto.ErrorCodeUnauthorized
	case apperrors.KindForbidden:
		return http.StatusForbidden, dto.ErrorCodeForbidden
	case apperrors.KindNotFound:
		return http.StatusNotFound, dto.ErrorCodeResourceNotFound
	case apperrors.KindInvalidArgument:
		return http.StatusBadRequest, dto.ErrorCodeValidationFailed
	case apperrors.KindConflict:
		return http.StatusConflict, dto.ErrorCodeConflict
	default:
		return http.StatusInternalServerError, dto.ErrorCodeInternalServer
	}
}

// HandleAPIError writes err as an error response. Internal errors are logged
// and their message is not exposed.
func HandleAPIError(c *gin.Context, err error) {
	status, code := statusForKind(apperrors.KindOf(err))

	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("Request failed")
		message = "Internal server error"
	}

	switch {
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		code = dto.ErrorCodeInvalidCredentials
	case errors.Is(err, apperrors.ErrTokenExpired):
		code = dto.ErrorCodeExpiredToken
	case errors.Is(err, apperrors.ErrTokenInvalid):
		code = dto.ErrorCodeInvalidToken
	}

	c.AbortWithStatusJSON(status, dto.NewErrorResponse(dto.NewErrorDetail(code, message)))
}

// HandleBindingError writes a 400 response for a request that failed to bind
// or validate.
func HandleBindingError(c *gin.Context, err error) {
	errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid request")

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := dto.NewValidationErrors()
		for _, fe := range verrs {
			fields.AddError(fe.Field(), formatValidationError(fe))
		}
		errorDetail = errorDetail.WithDetails(fields.Errors)
		if len(verrs) == 1 {
			errorDetail = errorDetail.WithField(verrs[0].Field())
		}
	} else {
		errorDetail = errorDetail.WithDetails(err.Error())
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
}
