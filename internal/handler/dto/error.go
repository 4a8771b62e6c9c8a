package dto

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/domain"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorResponse creates a new error response.
func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	}
}

// MapDomainError maps domain errors to HTTP status codes and error codes.
// Every core error carries the offending ids and values in its message, so
// callers can render a precise response.
func MapDomainError(err error) (status int, code string, message string) {
	message = err.Error()

	switch {
	// Not found
	case errors.Is(err, domain.ErrTaskNotFound):
		return http.StatusNotFound, "TASK_NOT_FOUND", message
	case errors.Is(err, domain.ErrTemplateNotFound):
		return http.StatusNotFound, "TEMPLATE_NOT_FOUND", message
	case errors.Is(err, domain.ErrEnquiryNotFound):
		return http.StatusNotFound, "ENQUIRY_NOT_FOUND", message
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "USER_NOT_FOUND", message

	// Conflicts
	case errors.Is(err, domain.ErrTaskModified):
		return http.StatusConflict, "TASK_MODIFIED", message
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "INVALID_TRANSITION", message
	case errors.Is(err, domain.ErrCircularReference):
		return http.StatusConflict, "CIRCULAR_REFERENCE", message
	case errors.Is(err, domain.ErrCyclicDependency):
		return http.StatusConflict, "CYCLIC_DEPENDENCY", message
	case errors.Is(err, domain.ErrInactiveTemplate):
		return http.StatusConflict, "INACTIVE_TEMPLATE", message

	// Validation
	case errors.Is(err, domain.ErrUnassignableUser):
		return http.StatusUnprocessableEntity, "UNASSIGNABLE_USER", message
	case errors.Is(err, domain.ErrInvalidReassignment):
		return http.StatusUnprocessableEntity, "INVALID_REASSIGNMENT", message
	case errors.Is(err, domain.ErrInvalidDueDate):
		return http.StatusUnprocessableEntity, "INVALID_DUE_DATE", message
	case errors.Is(err, domain.ErrMissingVariable):
		return http.StatusUnprocessableEntity, "MISSING_VARIABLE", message
	case errors.Is(err, domain.ErrInvalidStatus):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", message
	case errors.Is(err, domain.ErrInvalidPriority):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", message
	case errors.Is(err, domain.ErrMissingCreator):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", message
	case errors.Is(err, domain.ErrMissingDueDate):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", message
	case errors.Is(err, domain.ErrUnknownTaskable):
		return http.StatusUnprocessableEntity, "UNKNOWN_TASKABLE", message

	// Auth
	case errors.Is(err, domain.ErrUserInactive):
		return http.StatusUnauthorized, "USER_INACTIVE", message
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized, "INVALID_TOKEN", message

	default:
		slog.Error("unmapped domain error returned to client",
			"error", err,
			"error_type", fmt.Sprintf("%T", err),
		)
		return http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"
	}
}
