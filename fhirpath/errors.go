package fhirpath

import (
	"errors"
	"fmt"
)

// StructuralError reports a call that can not be dispatched: an unknown
// operation, an argument count without arity entry, an argument of the wrong
// kind, or a failure raised by an implementation.
//
// Structural errors are always fatal for the current evaluation.
type StructuralError struct {
	Op  string
	Msg string
	Err error
}

func (e *StructuralError) Error() string {
	switch {
	case e.Err != nil && e.Msg != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

// ConversionError is raised by the toX functions at the few points where an
// input can not be converted and the result is not simply empty:
// malformed numeric strings and multi-element input to strict conversions.
//
// The convertsToX functions turn it into false.
type ConversionError struct {
	Op    string
	Value Element
	Msg   string
}

func (e *ConversionError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func structuralErrorf(op string, format string, args ...any) error {
	return &StructuralError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

func conversionErrorf(op string, value Element, format string, args ...any) error {
	return &ConversionError{Op: op, Value: value, Msg: fmt.Sprintf(format, args...)}
}

// asStructural wraps err as a StructuralError for op, unless err already is one
// of the two error kinds of this package.
func asStructural(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StructuralError
	if errors.As(err, &se) {
		return err
	}
	var ce *ConversionError
	if errors.As(err, &ce) {
		return err
	}
	return &StructuralError{Op: op, Err: err}
}

// IsConversionError reports whether err is, or wraps, a ConversionError.
func IsConversionError(err error) bool {
	var ce *ConversionError
	return errors.As(err, &ce)
}

// IsStructuralError reports whether err is, or wraps, a StructuralError.
func IsStructuralError(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}
