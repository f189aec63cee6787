package model

import (
	"errors"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	// Not found
	ErrPersonNotFound = errors.New("person not found")
	ErrPhotoNotFound  = errors.New("photo not found")

	// Validation
	ErrValidation     = errors.New("validation failed")
	ErrInvalidID      = errors.New("invalid person id")
	ErrInvalidFilter  = errors.New("invalid query filter")
	ErrInvalidPhoto   = errors.New("invalid photo")
	ErrPhotoTooLarge  = errors.New("photo exceeds the maximum size")
	ErrInvalidVariant = errors.New("unknown photo variant")
	ErrNoIDs          = errors.New("at least one id is required")
	ErrTooManyIDs     = errors.New("too many ids")

	// Store or filesystem inconsistency and I/O
	ErrInvalidPerson   = errors.New("person violates a store constraint")
	ErrPhotoMissing    = errors.New("photo is referenced but the file is missing")
	ErrPhotoWrite      = errors.New("failed to store photo")
	ErrQueueNotEnabled = errors.New("background queue is not enabled")
)

// ValidationError carries per-field messages from ozzo-validation.
type ValidationError struct {
	Fields validation.Errors
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	return ErrValidation.Error() + ": " + e.Fields.Error()
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError wraps the result of validation.ValidateStruct. Internal
// validator errors are returned unchanged.
func NewValidationError(err error) error {
	if err == nil {
		return nil
	}
	var fields validation.Errors
	if errors.As(err, &fields) {
		return &ValidationError{Fields: fields}
	}
	return err
}

var errorCodes = []struct {
	err     error
	status  int
	code    string
	message string // fixed client message; empty means the error text
}{
	{ErrPersonNotFound, http.StatusNotFound, "PERSON_NOT_FOUND", "Person not found"},
	{ErrPhotoNotFound, http.StatusNotFound, "PHOTO_NOT_FOUND", "Photo not found"},
	{ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR", ""},
	{ErrInvalidID, http.StatusBadRequest, "INVALID_ID", ""},
	{ErrInvalidFilter, http.StatusBadRequest, "INVALID_FILTER", ""},
	{ErrInvalidPhoto, http.StatusBadRequest, "INVALID_PHOTO", ""},
	{ErrPhotoTooLarge, http.StatusRequestEntityTooLarge, "PHOTO_TOO_LARGE", ""},
	{ErrInvalidVariant, http.StatusBadRequest, "INVALID_VARIANT", ""},
	{ErrNoIDs, http.StatusBadRequest, "NO_IDS", ""},
	{ErrTooManyIDs, http.StatusBadRequest, "TOO_MANY_IDS", ""},
	{ErrInvalidPerson, http.StatusBadRequest, "INVALID_PERSON", ""},
	{ErrPhotoMissing, http.StatusInternalServerError, "PHOTO_MISSING", "Photo file is missing"},
	{ErrPhotoWrite, http.StatusInternalServerError, "PHOTO_WRITE_FAILED", "Failed to store photo"},
	{ErrQueueNotEnabled, http.StatusServiceUnavailable, "QUEUE_DISABLED", "Background queue is not enabled"},
}

func lookup(err error) (int, string, string, bool) {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.status, e.code, e.message, true
		}
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", false
}

// ToHTTPStatus converts error to HTTP status code
func ToHTTPStatus(err error) int {
	status, _, _, _ := lookup(err)
	return status
}

// ToErrorCode converts error to API error code
func ToErrorCode(err error) string {
	_, code, _, _ := lookup(err)
	return code
}

// ToMessage returns the client-facing message. Unknown errors are not leaked.
func ToMessage(err error) string {
	_, _, msg, known := lookup(err)
	if !known || msg != "" {
		return msg
	}
	text := err.Error()
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	return text
}
