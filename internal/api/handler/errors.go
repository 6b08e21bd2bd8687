package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timmy/quill/internal/api/middleware"
	"github.com/timmy/quill/internal/repository"
	"github.com/timmy/quill/internal/service"
)

// ErrorResponse is the error body of every endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusFor maps service and repository errors to an HTTP status and a
// stable error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, service.ErrModelUnavailable):
		return http.StatusServiceUnavailable, "model_unavailable"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrAlreadyRunning):
		return http.StatusConflict, "already_running"
	case errors.Is(err, service.ErrNotPending), errors.Is(err, repository.ErrInvalidTransition):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, service.ErrCancelled):
		return http.StatusConflict, "cancelled"
	case errors.Is(err, service.ErrNotCompleted):
		return http.StatusConflict, "not_completed"
	case errors.Is(err, service.ErrRegistryClosed):
		return http.StatusServiceUnavailable, "shutting_down"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeError(c *gin.Context, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		middleware.GetLogger(c).WithError(err).Error("Request failed")
		_ = c.Error(err)
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}
