package core

import "github.com/pkg/errors"

// FieldError ties a validation message to a single input field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError signals rejected input. Fields carries the per-field
// detail the HTTP layer renders under "details".
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// FieldMap flattens Fields into a field name to message map; nil when
// there is no per-field detail.
func (err ValidationError) FieldMap() map[string]string {
	if len(err.Fields) == 0 {
		return nil
	}
	flds := make(map[string]string, len(err.Fields))
	for _, fErr := range err.Fields {
		flds[fErr.Field] = fErr.Error
	}
	return flds
}

// shutdown is an unrecoverable state (integrity loss, resource exhaustion);
// the error handler turns it into a graceful stop.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
