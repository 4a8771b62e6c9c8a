package domain

import "errors"

// Domain-specific errors for business logic validation.
var (
	// Task errors
	ErrTaskNotFound      = errors.New("task not found")
	ErrTaskModified      = errors.New("task modified by concurrent update")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrCircularReference = errors.New("circular hierarchy reference")
	ErrCyclicDependency  = errors.New("cyclic dependency detected")

	// Assignment errors
	ErrUnassignableUser    = errors.New("user has no department")
	ErrInvalidReassignment = errors.New("invalid reassignment")
	ErrInvalidDueDate      = errors.New("due date is in the past")

	// Template errors
	ErrTemplateNotFound = errors.New("template not found")
	ErrInactiveTemplate = errors.New("template is not active")
	ErrMissingVariable  = errors.New("required template variable missing")

	// Entity errors
	ErrUserNotFound    = errors.New("user not found")
	ErrUserInactive    = errors.New("user is inactive")
	ErrInvalidToken    = errors.New("invalid authentication token")
	ErrEnquiryNotFound = errors.New("enquiry not found")
	ErrUnknownTaskable = errors.New("unknown taskable type")

	// Validation errors
	ErrInvalidStatus   = errors.New("invalid task status")
	ErrInvalidPriority = errors.New("invalid task priority")
	ErrMissingCreator  = errors.New("creator is required")
	ErrMissingDueDate  = errors.New("due date is required")
)
