package services

import (
	"errors"
	"sort"
	"strings"

	"github.com/diewo77/go-eventdesk/validation"
)

// Sentinel errors shared by every service. Handlers map them to HTTP status
// codes.
var (
	ErrNotFound          = errors.New("not_found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrSlotTaken         = errors.New("slot_taken")
	ErrAlreadyConfigured = errors.New("setup_already_completed")
)

// ValidationError carries field violations.
type ValidationError struct {
	Fields validation.Violations
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+e.Fields[k])
	}
	return "validation_failed: " + strings.Join(parts, ", ")
}

func invalid(v validation.Violations) error {
	if v.Empty() {
		return nil
	}
	return &ValidationError{Fields: v}
}

func invalidField(field, code string) error {
	return &ValidationError{Fields: validation.Violations{field: code}}
}

// IsValidation reports whether err is a ValidationError and returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}
