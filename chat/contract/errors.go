package contract

import "errors"

var (
	ErrModelInvoke         = errors.New("model invoke failed")
	ErrSchemaViolation     = errors.New("model response violates schema")
	ErrValidation          = errors.New("validation failed")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrStoreUnavailable    = errors.New("record store unavailable")
)
