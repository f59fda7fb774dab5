package fhirpath

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/apd/v3"
)

// Conversion functions. toInteger, toDecimal, toString and toBoolean are
// lenient about cardinality, the temporal conversions and toQuantity are not.

func toInteger(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	if len(focus) != 1 {
		return nil, nil
	}
	v, ok, err := focus[0].ToInteger(true)
	if err != nil || !ok {
		return nil, err
	}
	return v, nil
}

// toDecimal maps false to Integer 0 but true to Decimal 1.0, and keeps
// integers as they are.
func toDecimal(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	if len(focus) != 1 {
		return nil, nil
	}
	switch e := focus[0].(type) {
	case Boolean:
		if e {
			return Decimal{Value: apd.New(10, -1)}, nil
		}
		return Integer(0), nil
	case Integer, Decimal:
		return e, nil
	}
	v, ok, err := focus[0].ToDecimal(true)
	if err != nil || !ok {
		return nil, err
	}
	return v, nil
}

func toString(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	if len(focus) != 1 {
		return nil, nil
	}
	v, ok, err := focus[0].ToString(true)
	if err != nil || !ok {
		return nil, err
	}
	return v, nil
}

func toBoolean(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	if len(focus) != 1 {
		return nil, nil
	}
	v, ok, err := focus[0].ToBoolean(true)
	if err != nil || !ok {
		return nil, err
	}
	return v, nil
}

// strictSingleton returns the only element of focus, nil for an empty focus
// and a ConversionError for more than one element.
func strictSingleton(op string, focus Collection) (Element, error) {
	switch len(focus) {
	case 0:
		return nil, nil
	case 1:
		return focus[0], nil
	default:
		return nil, conversionErrorf(op, nil, "input collection contains %d items", len(focus))
	}
}

func toDate(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	e, err := strictSingleton("toDate", focus)
	if e == nil {
		return nil, err
	}
	if v, ok, err := e.ToDate(true); err == nil && ok {
		return v, nil
	}
	return nil, nil
}

func toDateTime(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	e, err := strictSingleton("toDateTime", focus)
	if e == nil {
		return nil, err
	}
	if v, ok, err := e.ToDateTime(true); err == nil && ok {
		return v, nil
	}
	return nil, nil
}

func toTime(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	e, err := strictSingleton("toTime", focus)
	if e == nil {
		return nil, err
	}
	if v, ok, err := e.ToTime(true); err == nil && ok {
		return v, nil
	}
	return nil, nil
}

// toQuantity accepts numbers, booleans, quantities and quantity literals.
// With a target unit the result is converted with UCUM; a quantity that can
// not be converted yields empty.
func toQuantity(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	e, err := strictSingleton("toQuantity", focus)
	if e == nil {
		return nil, err
	}

	var q Quantity
	switch v := e.(type) {
	case Boolean, Integer, Decimal, Quantity, String:
		var ok bool
		q, ok, err = v.ToQuantity(true)
		if err != nil || !ok {
			return nil, nil
		}
	default:
		return nil, nil
	}

	if len(args) == 0 {
		return q, nil
	}
	target, ok := argValue[String](args[0])
	if !ok {
		return q, nil
	}
	unit := normalizeUnit(string(target))
	if unit == normalizeUnit(string(q.Unit)) {
		return q, nil
	}
	converted, err := ConvertUnit(ctx, q, unit)
	if err != nil {
		Logger(ctx).DebugContext(ctx, "unit conversion failed",
			slog.String("quantity", q.String()),
			slog.String("unit", unit),
			slog.Any("error", err),
		)
		return nil, nil
	}
	return converted, nil
}

// convertsTo wraps a conversion as a check that never fails with a ConversionError.
func convertsTo(to func(ctx context.Context, focus Collection, args []Argument) (Element, error), matches func(Element) bool) Implementation {
	return scalar(func(ctx context.Context, focus Collection, args []Argument) (Element, error) {
		v, err := to(ctx, focus, args)
		if IsConversionError(err) {
			return Boolean(false), nil
		}
		if err != nil {
			return nil, err
		}
		return Boolean(v != nil && matches(v)), nil
	})
}

func isKind[T Element](e Element) bool {
	_, ok := e.(T)
	return ok
}
