package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError reports bad caller input (year/month, export type, dates...).
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Validation builds a ValidationError for the given field.
func Validation(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// AuthorizationError is returned when a caller touches another organization's data.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string {
	if e.Message == "" {
		return "not authorized to access this resource"
	}
	return e.Message
}

// NotFoundError reports a missing tenant, period or export.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// NotFound builds a NotFoundError.
func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// DuplicatePeriodError is raised when a snapshot for the same
// (organization, year, month) already exists.
type DuplicatePeriodError struct {
	OrganizationID string
	Year           int
	Month          int
}

func (e *DuplicatePeriodError) Error() string {
	return fmt.Sprintf("collection period %04d-%02d already exists for organization %s", e.Year, e.Month, e.OrganizationID)
}

// ConflictError means an optimistic write lost against a concurrent writer.
type ConflictError struct {
	Resource string
	ID       string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s was modified concurrently", e.Resource, e.ID)
}

// StorageError wraps database and filesystem failures.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err as a StorageError unless it already carries a kind.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if HasKind(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// RenderError is recorded on an export request when CSV/PDF generation fails.
type RenderError struct {
	Format string
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("failed to render %s export: %v", e.Format, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// HasKind reports whether err is (or wraps) one of the typed errors above.
func HasKind(err error) bool {
	var (
		v *ValidationError
		a *AuthorizationError
		n *NotFoundError
		d *DuplicatePeriodError
		c *ConflictError
		s *StorageError
		r *RenderError
	)
	return errors.As(err, &v) || errors.As(err, &a) || errors.As(err, &n) ||
		errors.As(err, &d) || errors.As(err, &c) || errors.As(err, &s) || errors.As(err, &r)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}

// IsDuplicatePeriod reports whether err is a DuplicatePeriodError.
func IsDuplicatePeriod(err error) bool {
	var d *DuplicatePeriodError
	return errors.As(err, &d)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// HTTPStatus maps an error to the status code the controllers answer with.
func HTTPStatus(err error) int {
	var (
		v *ValidationError
		a *AuthorizationError
		n *NotFoundError
		d *DuplicatePeriodError
		c *ConflictError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &v):
		return http.StatusBadRequest
	case errors.As(err, &a):
		return http.StatusForbidden
	case errors.As(err, &n):
		return http.StatusNotFound
	case errors.As(err, &d), errors.As(err, &c):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
