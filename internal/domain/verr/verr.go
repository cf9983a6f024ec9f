// Package verr builds field-level validation errors on top of ogen's
// validate.Error so that every domain reports violations the same way.
package verr

import (
	"github.com/go-faster/errors"
	"github.com/ogen-go/ogen/validate"
)

// Builder accumulates field violations.
type Builder struct {
	fields []validate.FieldError
}

// Add records a violation of field with a human-readable message.
func (b *Builder) Add(field, msg string) {
	b.fields = append(b.fields, validate.FieldError{Name: field, Error: errors.New(msg)})
}

// Check records a violation when check is non-nil.
func (b *Builder) Check(field string, check error, msg string) {
	if check != nil {
		b.Add(field, msg)
	}
}

// Err returns a *validate.Error, or nil when nothing was recorded.
func (b *Builder) Err() error {
	if len(b.fields) == 0 {
		return nil
	}
	return &validate.Error{Fields: b.fields}
}

// Field returns a validation error for a single field.
func Field(field, msg string) error {
	var b Builder
	b.Add(field, msg)
	return b.Err()
}

// Fields extracts the violations carried by err, if any.
func Fields(err error) ([]validate.FieldError, bool) {
	var vErr *validate.Error
	if !errors.As(err, &vErr) {
		return nil, false
	}
	return vErr.Fields, true
}
