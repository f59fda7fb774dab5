package fhirpath

import (
	"context"
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// mathInput returns the single numeric input of a math function.
func mathInput(op string, focus Collection) (Element, error) {
	switch len(focus) {
	case 0:
		return nil, nil
	case 1:
	default:
		return nil, fmt.Errorf("%s() expects a single input element", op)
	}
	switch e := focus[0].(type) {
	case Integer, Decimal:
		return e, nil
	case Quantity:
		if op == "abs" {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%s() expects Integer or Decimal but got %s", op, focus[0].TypeInfo().QualifiedName())
}

func decimalValue(e Element) *apd.Decimal {
	d, _, _ := e.ToDecimal(false)
	return d.Value
}

func absFn(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	e, err := mathInput("abs", focus)
	switch v := e.(type) {
	case Integer:
		if v < 0 {
			return integerResult(-int64(v)), nil
		}
		return v, nil
	case Decimal:
		var abs apd.Decimal
		abs.Abs(v.Value)
		return Decimal{Value: &abs}, nil
	case Quantity:
		var abs apd.Decimal
		abs.Abs(v.Value.Value)
		return Quantity{Value: Decimal{Value: &abs}, Unit: v.Unit}, nil
	}
	return nil, err
}

// integralFn builds ceiling, floor and truncate, which map decimals to integers.
func integralFn(op string, round func(c *apd.Context, d, x *apd.Decimal) (apd.Condition, error)) func(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	return func(ctx context.Context, focus Collection, args []Argument) (Element, error) {
		e, err := mathInput(op, focus)
		if e == nil {
			return nil, err
		}
		if i, ok := e.(Integer); ok {
			return i, nil
		}
		var r apd.Decimal
		if _, err := round(apdContext(ctx), &r, decimalValue(e)); err != nil {
			return nil, err
		}
		i, err := r.Int64()
		if err != nil {
			return nil, err
		}
		return integerResult(i), nil
	}
}

func truncate(c *apd.Context, d, x *apd.Decimal) (apd.Condition, error) {
	down := *c
	down.Rounding = apd.RoundDown
	return down.RoundToIntegralValue(d, x)
}

// decimalFn builds the math functions that always produce a Decimal.
func decimalFn(op string, fn func(ctx context.Context, x *apd.Decimal, args []Argument) (*apd.Decimal, error)) func(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	return func(ctx context.Context, focus Collection, args []Argument) (Element, error) {
		e, err := mathInput(op, focus)
		if e == nil {
			return nil, err
		}
		r, err := fn(ctx, decimalValue(e), args)
		if err != nil || r == nil {
			return nil, err
		}
		return Decimal{Value: r}, nil
	}
}

func exp(ctx context.Context, x *apd.Decimal, args []Argument) (*apd.Decimal, error) {
	var r apd.Decimal
	_, err := apdContext(ctx).Exp(&r, x)
	return &r, err
}

func ln(ctx context.Context, x *apd.Decimal, args []Argument) (*apd.Decimal, error) {
	if x.Sign() <= 0 {
		return nil, nil
	}
	var r apd.Decimal
	_, err := apdContext(ctx).Ln(&r, x)
	return &r, err
}

func sqrt(ctx context.Context, x *apd.Decimal, args []Argument) (*apd.Decimal, error) {
	if x.Negative {
		return nil, nil
	}
	var r apd.Decimal
	_, err := apdContext(ctx).Sqrt(&r, x)
	return &r, err
}

// log computes ln(x) / ln(base).
func log(ctx context.Context, x *apd.Decimal, args []Argument) (*apd.Decimal, error) {
	base := decimalValue(args[0].Value[0])
	if x.Sign() <= 0 || base.Sign() <= 0 {
		return nil, nil
	}
	c := apdContext(ctx)
	var lnX, lnBase, r apd.Decimal
	if _, err := c.Ln(&lnX, x); err != nil {
		return nil, err
	}
	if _, err := c.Ln(&lnBase, base); err != nil {
		return nil, err
	}
	if lnBase.IsZero() {
		return nil, nil
	}
	_, err := c.Quo(&r, &lnX, &lnBase)
	return &r, err
}

// roundFn rounds half up to the given number of decimal places, 0 by default.
func roundFn(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	e, err := mathInput("round", focus)
	if e == nil {
		return nil, err
	}
	var places int64
	if len(args) == 1 {
		p, ok := argValue[Integer](args[0])
		if !ok {
			return nil, fmt.Errorf("expected integer precision parameter")
		}
		if p < 0 {
			return nil, fmt.Errorf("precision must be >= 0")
		}
		places = int64(p)
	}

	ctxPrecision := apdContext(ctx).Precision
	if places > int64(ctxPrecision) {
		return nil, fmt.Errorf("precision %d exceeds the decimal precision of %d digits", places, ctxPrecision)
	}

	x := decimalValue(e)
	c := apdContext(ctx).WithPrecision(uint32(x.NumDigits() + places))
	c.Rounding = apd.RoundHalfUp
	var r apd.Decimal
	if _, err := c.Quantize(&r, x, int32(-places)); err != nil {
		return nil, err
	}
	return Decimal{Value: &r}, nil
}

// powerFn keeps integer results for integer operands. Results that are not
// real numbers are empty.
func powerFn(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	e, err := mathInput("power", focus)
	if e == nil {
		return nil, err
	}
	exponent := args[0].Value[0]

	base, baseIsInt := e.(Integer)
	n, expIsInt := exponent.(Integer)
	if baseIsInt && expIsInt && n >= 0 {
		result, ok := integerPower(int64(base), int64(n))
		if !ok {
			return nil, nil
		}
		return Integer(result), nil
	}

	x, y := decimalValue(e), decimalValue(exponent)
	if x.Negative {
		if _, err := y.Int64(); err != nil {
			return nil, nil
		}
	}
	var r apd.Decimal
	if _, err := apdContext(ctx).Pow(&r, x, y); err != nil {
		return nil, nil
	}
	return Decimal{Value: &r}, nil
}

// integerPower computes base^n by squaring. ok is false if the result
// leaves the Integer range.
func integerPower(base, n int64) (result int64, ok bool) {
	result = 1
	for n > 0 {
		if n&1 == 1 {
			result *= base
			if integerResult(result) == nil {
				return 0, false
			}
		}
		n >>= 1
		if n == 0 {
			break
		}
		// n still has a set bit, so an out of range square overflows the result
		base *= base
		if integerResult(base) == nil {
			return 0, false
		}
	}
	return result, true
}

// Arithmetic operators take both operands as arguments.

func operands(op string, args []Argument) (l, r Element, err error) {
	if len(args[0].Value) != 1 || len(args[1].Value) != 1 {
		return nil, nil, fmt.Errorf("%s expects single operands, got %d and %d", op, len(args[0].Value), len(args[1].Value))
	}
	return args[0].Value[0], args[1].Value[0], nil
}

func plusOp(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	l, r, err := operands("+", args)
	if err != nil {
		return nil, err
	}
	left, ok := l.(addElement)
	if !ok {
		return nil, fmt.Errorf("can not add %s and %s", l.TypeInfo().QualifiedName(), r.TypeInfo().QualifiedName())
	}
	return left.Add(ctx, r)
}

func minusOp(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	l, r, err := operands("-", args)
	if err != nil {
		return nil, err
	}
	left, ok := l.(subtractElement)
	if !ok {
		return nil, fmt.Errorf("can not subtract %s from %s", r.TypeInfo().QualifiedName(), l.TypeInfo().QualifiedName())
	}
	return left.Subtract(ctx, r)
}

func multiplyOp(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	l, r, err := operands("*", args)
	if err != nil {
		return nil, err
	}
	left, ok := l.(multiplyElement)
	if !ok {
		return nil, fmt.Errorf("can not multiply %s and %s", l.TypeInfo().QualifiedName(), r.TypeInfo().QualifiedName())
	}
	return left.Multiply(ctx, r)
}

func divideOp(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	l, r, err := operands("/", args)
	if err != nil {
		return nil, err
	}
	left, ok := l.(divideElement)
	if !ok {
		return nil, fmt.Errorf("can not divide %s by %s", l.TypeInfo().QualifiedName(), r.TypeInfo().QualifiedName())
	}
	return left.Divide(ctx, r)
}

func divOp(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	l, r, err := operands("div", args)
	if err != nil {
		return nil, err
	}
	left, ok := l.(divElement)
	if !ok {
		return nil, fmt.Errorf("can not div %s by %s", l.TypeInfo().QualifiedName(), r.TypeInfo().QualifiedName())
	}
	return left.Div(ctx, r)
}

func modOp(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	l, r, err := operands("mod", args)
	if err != nil {
		return nil, err
	}
	left, ok := l.(modElement)
	if !ok {
		return nil, fmt.Errorf("can not mod %s by %s", l.TypeInfo().QualifiedName(), r.TypeInfo().QualifiedName())
	}
	return left.Mod(ctx, r)
}
