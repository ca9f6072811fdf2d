package gradebook

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chhs/grades-backend/internal/model"
)

// Sentinel errors. Typed errors below match them through errors.Is.
var (
	ErrNotFound     = errors.New("no record matches the lookup key")
	ErrAmbiguous    = errors.New("lookup key matches more than one record")
	ErrInvalidField = errors.New("field is not editable")
	ErrOutOfRange   = errors.New("grade must be an integer between 0 and 100")
	ErrInvalidValue = errors.New("invalid field value")
	ErrWrite        = errors.New("store write failed")
	ErrSchema       = errors.New("sheet schema mismatch")
	ErrStaleRow     = errors.New("row changed since the snapshot was read")
	ErrDuplicate    = errors.New("a record with the same key already exists")
)

// AmbiguousError lists every snapshot index the key matched.
type AmbiguousError struct {
	Matches   []int
	SheetRows []int
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("%s: %d matches at sheet rows %v", ErrAmbiguous, len(e.Matches), e.SheetRows)
}

// Is implements errors.Is support
func (e *AmbiguousError) Is(target error) bool {
	return target == ErrAmbiguous
}

// FieldError is a rejected entry of a change set. Err is ErrInvalidField,
// ErrOutOfRange or ErrInvalidValue.
type FieldError struct {
	Field string
	Value interface{}
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v (got %v)", e.Field, e.Err, e.Value)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// ValidationError collects every rejected field of a change set.
type ValidationError struct {
	Fields []*FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Error()
	}
	return "invalid changes: " + strings.Join(msgs, "; ")
}

// Unwrap exposes each field error so errors.Is matches any of their causes.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Fields))
	for i, f := range e.Fields {
		errs[i] = f
	}
	return errs
}

// SchemaError reports required columns absent from a worksheet header.
type SchemaError struct {
	Worksheet string
	Missing   []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: worksheet %q is missing columns %s", ErrSchema, e.Worksheet, strings.Join(e.Missing, ", "))
}

// Is implements errors.Is support
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

// WriteError is a point write the store rejected.
type WriteError struct {
	Field model.EditableField
	Row   int
	Col   int
	Err   error
}

func (e *WriteError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("%s: %v", ErrWrite, e.Err)
	}
	if e.Field == "" {
		return fmt.Sprintf("%s at row %d: %v", ErrWrite, e.Row, e.Err)
	}
	return fmt.Sprintf("%s: %s at row %d col %d: %v", ErrWrite, e.Field, e.Row, e.Col, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *WriteError) Is(target error) bool {
	return target == ErrWrite
}

// PartialFailureError is returned when an update cycle stopped partway.
// Written fields are in the store; Failed and Pending are not.
type PartialFailureError struct {
	Written []model.EditableField
	Failed  []model.EditableField
	Pending []model.EditableField
	Err     *WriteError
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("update stopped after writing %v (failed %v, not attempted %v): %v",
		e.Written, e.Failed, e.Pending, e.Err)
}

func (e *PartialFailureError) Unwrap() error {
	return e.Err
}
