package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/buildledger/internal/auth"
	"github.com/fyrsmithlabs/buildledger/internal/logging"
	"github.com/fyrsmithlabs/buildledger/internal/model"
)

// ErrorResponse is the uniform error envelope for all API errors.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the machine code and human message of an API error.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrSessionExpired):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, model.ErrPermissionDenied):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, model.ErrAlreadyExists), errors.Is(err, model.ErrConflict):
		return http.StatusConflict, "conflict"
	}
	return http.StatusInternalServerError, "internal"
}

// errorHandler renders every error through the JSON envelope. Domain
// errors keep their message; internal errors are logged and masked.
func errorHandler(logger *logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, code := statusFor(err)
		message := err.Error()

		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			status = httpErr.Code
			code = codeForStatus(status)
			if m, ok := httpErr.Message.(string); ok {
				message = m
			}
		}

		if status >= http.StatusInternalServerError {
			logger.Error(c.Request().Context(), "request failed",
				zap.String("uri", c.Request().RequestURI), zap.Error(err))
			message = "internal error"
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, ErrorResponse{Error: ErrorBody{Code: code, Message: message}})
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "validation_failed"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusRequestEntityTooLarge:
		return "too_large"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusServiceUnavailable:
		return "unavailable"
	}
	return "internal"
}
