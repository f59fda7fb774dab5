package fhirpath

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

var (
	integerStringRegex = regexp.MustCompile(`^[+-]?\d+$`)
	decimalStringRegex = regexp.MustCompile(`^[+-]?\d+(\.\d+)?$`)
)

func notConvertible[F Element, T Element](f F, explicit bool) (v T, ok bool, err error) {
	if explicit {
		return v, false, nil
	}
	return v, false, implicitConversionError[F, T](f)
}

type Boolean bool

func (b Boolean) Children(name ...string) Collection {
	return nil
}

func (b Boolean) ToBoolean(explicit bool) (v Boolean, ok bool, err error) {
	return b, true, nil
}
func (b Boolean) ToString(explicit bool) (v String, ok bool, err error) {
	if explicit {
		return String(b.String()), true, nil
	}
	return notConvertible[Boolean, String](b, explicit)
}
func (b Boolean) ToInteger(explicit bool) (v Integer, ok bool, err error) {
	if explicit {
		if b {
			return 1, true, nil
		}
		return 0, true, nil
	}
	return notConvertible[Boolean, Integer](b, explicit)
}
func (b Boolean) ToDecimal(explicit bool) (v Decimal, ok bool, err error) {
	if explicit {
		if b {
			return Decimal{Value: apd.New(10, -1)}, true, nil
		}
		return Decimal{Value: apd.New(0, -1)}, true, nil
	}
	return notConvertible[Boolean, Decimal](b, explicit)
}
func (b Boolean) ToDate(explicit bool) (v Date, ok bool, err error) {
	return notConvertible[Boolean, Date](b, explicit)
}
func (b Boolean) ToTime(explicit bool) (v Time, ok bool, err error) {
	return notConvertible[Boolean, Time](b, explicit)
}
func (b Boolean) ToDateTime(explicit bool) (v DateTime, ok bool, err error) {
	return notConvertible[Boolean, DateTime](b, explicit)
}
func (b Boolean) ToQuantity(explicit bool) (v Quantity, ok bool, err error) {
	if explicit {
		if b {
			return Quantity{Value: Decimal{Value: apd.New(1, 0)}, Unit: "1"}, true, nil
		}
		return Quantity{Value: Decimal{Value: apd.New(0, 0)}, Unit: "1"}, true, nil
	}
	return notConvertible[Boolean, Quantity](b, explicit)
}
func (b Boolean) Equal(other Element) (eq bool, ok bool) {
	if o, isBool := other.(Boolean); isBool {
		return b == o, true
	}
	return false, true
}
func (b Boolean) Equivalent(other Element) bool {
	eq, ok := b.Equal(other)
	return ok && eq
}
func (b Boolean) TypeInfo() TypeInfo {
	return systemType("Boolean")
}
func (b Boolean) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(b))
}
func (b Boolean) String() string {
	return strconv.FormatBool(bool(b))
}

type String string

func (s String) Children(name ...string) Collection {
	return nil
}

func (s String) ToBoolean(explicit bool) (v Boolean, ok bool, err error) {
	if explicit {
		switch strings.ToLower(string(s)) {
		case "true", "t", "yes", "y", "1", "1.0":
			return true, true, nil
		case "false", "f", "no", "n", "0", "0.0":
			return false, true, nil
		default:
			return false, false, nil
		}
	}
	return notConvertible[String, Boolean](s, explicit)
}
func (s String) ToString(explicit bool) (v String, ok bool, err error) {
	return s, true, nil
}
func (s String) ToInteger(explicit bool) (v Integer, ok bool, err error) {
	if !explicit {
		return notConvertible[String, Integer](s, explicit)
	}
	if !integerStringRegex.MatchString(string(s)) {
		return 0, false, conversionErrorf("toInteger", s, "could not convert to integer")
	}
	val, err := strconv.ParseInt(string(s), 10, 32)
	if err != nil {
		return 0, false, conversionErrorf("toInteger", s, "integer out of range")
	}
	return Integer(val), true, nil
}
func (s String) ToDecimal(explicit bool) (v Decimal, ok bool, err error) {
	if !explicit {
		return notConvertible[String, Decimal](s, explicit)
	}
	if !decimalStringRegex.MatchString(string(s)) {
		return Decimal{}, false, conversionErrorf("toDecimal", s, "could not convert to decimal")
	}
	d, _, err := apd.NewFromString(string(s))
	if err != nil {
		return Decimal{}, false, conversionErrorf("toDecimal", s, "could not convert to decimal")
	}
	return Decimal{Value: d}, true, nil
}
func (s String) ToDate(explicit bool) (v Date, ok bool, err error) {
	if !explicit {
		return notConvertible[String, Date](s, explicit)
	}
	if d, err := ParseDate(string(s)); err == nil {
		return d, true, nil
	}
	if dt, err := ParseDateTime(string(s)); err == nil {
		return dt.ToDate(true)
	}
	return Date{}, false, nil
}
func (s String) ToTime(explicit bool) (v Time, ok bool, err error) {
	if !explicit {
		return notConvertible[String, Time](s, explicit)
	}
	t, err := ParseTime(string(s))
	if err != nil {
		return Time{}, false, nil
	}
	return t, true, nil
}
func (s String) ToDateTime(explicit bool) (v DateTime, ok bool, err error) {
	if !explicit {
		return notConvertible[String, DateTime](s, explicit)
	}
	dt, err := ParseDateTime(string(s))
	if err != nil {
		return DateTime{}, false, nil
	}
	return dt, true, nil
}
func (s String) ToQuantity(explicit bool) (v Quantity, ok bool, err error) {
	if !explicit {
		return notConvertible[String, Quantity](s, explicit)
	}
	q, ok := ParseQuantityLiteral(string(s))
	return q, ok, nil
}
func (s String) Equal(other Element) (eq bool, ok bool) {
	if o, isString := other.(String); isString {
		return s == o, true
	}
	return false, true
}

var whitespaceReplaceRegex = regexp.MustCompile("[\t\r\n]")

func (s String) Equivalent(other Element) bool {
	o, isString := other.(String)
	if !isString {
		return false
	}
	normalize := func(s String) string {
		return strings.Join(strings.Fields(whitespaceReplaceRegex.ReplaceAllString(strings.ToLower(string(s)), " ")), " ")
	}
	return normalize(s) == normalize(o)
}
func (s String) Cmp(other Element) (cmp int, ok bool, err error) {
	o, isString := other.(String)
	if !isString {
		return 0, false, fmt.Errorf("can not compare String to %T, left: %v right: %v", other, s, other)
	}
	return strings.Compare(string(s), string(o)), true, nil
}
func (s String) Add(ctx context.Context, other Element) (Element, error) {
	o, isString := other.(String)
	if !isString {
		return nil, fmt.Errorf("can not add %T to String, %v + %v", other, s, other)
	}
	return s + o, nil
}
func (s String) TypeInfo() TypeInfo {
	return systemType("String")
}
func (s String) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}
func (s String) String() string {
	return fmt.Sprintf("'%s'", string(s))
}

type Integer int32

func (i Integer) Children(name ...string) Collection {
	return nil
}

func (i Integer) ToBoolean(explicit bool) (v Boolean, ok bool, err error) {
	if !explicit {
		return notConvertible[Integer, Boolean](i, explicit)
	}
	switch i {
	case 0:
		return false, true, nil
	case 1:
		return true, true, nil
	default:
		return false, false, nil
	}
}
func (i Integer) ToString(explicit bool) (v String, ok bool, err error) {
	if explicit {
		return String(i.String()), true, nil
	}
	return notConvertible[Integer, String](i, explicit)
}
func (i Integer) ToInteger(explicit bool) (v Integer, ok bool, err error) {
	return i, true, nil
}
func (i Integer) ToDecimal(explicit bool) (v Decimal, ok bool, err error) {
	return Decimal{Value: apd.New(int64(i), 0)}, true, nil
}
func (i Integer) ToDate(explicit bool) (v Date, ok bool, err error) {
	return notConvertible[Integer, Date](i, explicit)
}
func (i Integer) ToTime(explicit bool) (v Time, ok bool, err error) {
	return notConvertible[Integer, Time](i, explicit)
}
func (i Integer) ToDateTime(explicit bool) (v DateTime, ok bool, err error) {
	return notConvertible[Integer, DateTime](i, explicit)
}
func (i Integer) ToQuantity(explicit bool) (v Quantity, ok bool, err error) {
	return Quantity{Value: Decimal{Value: apd.New(int64(i), 0)}, Unit: "1"}, true, nil
}
func (i Integer) Equal(other Element) (eq bool, ok bool) {
	switch o := other.(type) {
	case Integer:
		return i == o, true
	case Decimal:
		return o.Equal(i)
	}
	return false, true
}
func (i Integer) Equivalent(other Element) bool {
	if d, isDecimal := other.(Decimal); isDecimal {
		return d.Equivalent(i)
	}
	eq, ok := i.Equal(other)
	return ok && eq
}
func (i Integer) Cmp(other Element) (cmp int, ok bool, err error) {
	d, _, _ := i.ToDecimal(false)
	cmp, ok, err = d.Cmp(other)
	if err != nil || !ok {
		return 0, false, fmt.Errorf("can not compare Integer to %T, left: %v right: %v", other, i, other)
	}
	return cmp, true, nil
}

// integerResult narrows an int64 result to Integer. Overflow yields no result.
func integerResult(v int64) Element {
	if v > math.MaxInt32 || v < math.MinInt32 {
		return nil
	}
	return Integer(v)
}

// integerArith applies fn if both operands are Integer. Decimal operands
// promote i and continue with decimal arithmetic via promoted. A false ok
// of fn yields no result.
func integerArith(
	ctx context.Context,
	op string, i Integer, other Element,
	fn func(a, b int64) (v int64, ok bool),
	promoted func(Decimal, context.Context, Element) (Element, error),
) (Element, error) {
	switch o := other.(type) {
	case Integer:
		v, ok := fn(int64(i), int64(o))
		if !ok {
			return nil, nil
		}
		return integerResult(v), nil
	case Decimal:
		d, _, _ := i.ToDecimal(false)
		return promoted(d, ctx, o)
	}
	return nil, fmt.Errorf("can not %s Integer and %s", op, other.TypeInfo().QualifiedName())
}

func nonZeroDivisor(fn func(a, b int64) int64) func(a, b int64) (int64, bool) {
	return func(a, b int64) (int64, bool) {
		if b == 0 {
			return 0, false
		}
		return fn(a, b), true
	}
}

func (i Integer) Add(ctx context.Context, other Element) (Element, error) {
	if q, isQuantity := other.(Quantity); isQuantity {
		iq, _, _ := i.ToQuantity(false)
		return iq.Add(ctx, q)
	}
	return integerArith(ctx, "add", i, other, func(a, b int64) (int64, bool) { return a + b, true }, Decimal.Add)
}
func (i Integer) Subtract(ctx context.Context, other Element) (Element, error) {
	return integerArith(ctx, "subtract", i, other, func(a, b int64) (int64, bool) { return a - b, true }, Decimal.Subtract)
}
func (i Integer) Multiply(ctx context.Context, other Element) (Element, error) {
	if q, isQuantity := other.(Quantity); isQuantity {
		iq, _, _ := i.ToQuantity(false)
		return iq.Multiply(ctx, q)
	}
	return integerArith(ctx, "multiply", i, other, func(a, b int64) (int64, bool) { return a * b, true }, Decimal.Multiply)
}

// Divide always yields a Decimal.
func (i Integer) Divide(ctx context.Context, other Element) (Element, error) {
	d, _, _ := i.ToDecimal(false)
	return d.Divide(ctx, other)
}
func (i Integer) Div(ctx context.Context, other Element) (Element, error) {
	return integerArith(ctx, "div", i, other, nonZeroDivisor(func(a, b int64) int64 { return a / b }), Decimal.Div)
}
func (i Integer) Mod(ctx context.Context, other Element) (Element, error) {
	return integerArith(ctx, "mod", i, other, nonZeroDivisor(func(a, b int64) int64 { return a % b }), Decimal.Mod)
}
func (i Integer) TypeInfo() TypeInfo {
	return systemType("Integer")
}
func (i Integer) MarshalJSON() ([]byte, error) {
	return json.Marshal(int32(i))
}
func (i Integer) String() string {
	return strconv.Itoa(int(i))
}

type Decimal struct {
	Value *apd.Decimal
}

func (d Decimal) Children(name ...string) Collection {
	return nil
}

func (d Decimal) ToBoolean(explicit bool) (v Boolean, ok bool, err error) {
	if !explicit {
		return notConvertible[Decimal, Boolean](d, explicit)
	}
	switch {
	case d.Value.Cmp(apd.New(1, 0)) == 0:
		return true, true, nil
	case d.Value.IsZero():
		return false, true, nil
	default:
		return false, false, nil
	}
}
func (d Decimal) ToString(explicit bool) (v String, ok bool, err error) {
	if explicit {
		return String(d.String()), true, nil
	}
	return notConvertible[Decimal, String](d, explicit)
}

// ToInteger succeeds only for integral values inside the Integer range.
func (d Decimal) ToInteger(explicit bool) (v Integer, ok bool, err error) {
	if !explicit {
		return notConvertible[Decimal, Integer](d, explicit)
	}
	// Int64 fails for values with a fractional part
	i, err := d.Value.Int64()
	if err != nil || i > math.MaxInt32 || i < math.MinInt32 {
		return 0, false, nil
	}
	return Integer(i), true, nil
}
func (d Decimal) ToDecimal(explicit bool) (v Decimal, ok bool, err error) {
	return d, true, nil
}
func (d Decimal) ToDate(explicit bool) (v Date, ok bool, err error) {
	return notConvertible[Decimal, Date](d, explicit)
}
func (d Decimal) ToTime(explicit bool) (v Time, ok bool, err error) {
	return notConvertible[Decimal, Time](d, explicit)
}
func (d Decimal) ToDateTime(explicit bool) (v DateTime, ok bool, err error) {
	return notConvertible[Decimal, DateTime](d, explicit)
}
func (d Decimal) ToQuantity(explicit bool) (v Quantity, ok bool, err error) {
	return Quantity{Value: d, Unit: "1"}, true, nil
}
func (d Decimal) Equal(other Element) (eq bool, ok bool) {
	switch o := other.(type) {
	case Decimal:
		return d.Value.Cmp(o.Value) == 0, true
	case Integer:
		od, _, _ := o.ToDecimal(false)
		return d.Value.Cmp(od.Value) == 0, true
	}
	return false, true
}

// Equivalent compares both values rounded to the precision of the less precise operand.
func (d Decimal) Equivalent(other Element) bool {
	var o Decimal
	switch v := other.(type) {
	case Decimal:
		o = v
	case Integer:
		o, _, _ = v.ToDecimal(false)
	default:
		return false
	}
	prec := uint32(min(d.Value.NumDigits(), o.Value.NumDigits()))
	ctx := apd.BaseContext.WithPrecision(prec)
	var a, b apd.Decimal
	if _, err := ctx.Round(&a, d.Value); err != nil {
		return false
	}
	if _, err := ctx.Round(&b, o.Value); err != nil {
		return false
	}
	return a.Cmp(&b) == 0
}
func (d Decimal) Cmp(other Element) (cmp int, ok bool, err error) {
	var o Decimal
	switch v := other.(type) {
	case Decimal:
		o = v
	case Integer:
		o, _, _ = v.ToDecimal(false)
	default:
		return 0, false, fmt.Errorf("can not compare Decimal to %T, left: %v right: %v", other, d, other)
	}
	return d.Value.Cmp(o.Value), true, nil
}

type decimalOp func(c *apd.Context, res, x, y *apd.Decimal) (apd.Condition, error)

// decimalArith applies fn to d and a numeric operand. With zeroDivisor set,
// a zero right operand yields no result.
func (d Decimal) decimalArith(ctx context.Context, op string, other Element, zeroDivisor bool, fn decimalOp) (*apd.Decimal, error) {
	var y *apd.Decimal
	switch o := other.(type) {
	case Decimal:
		y = o.Value
	case Integer:
		y = apd.New(int64(o), 0)
	default:
		return nil, fmt.Errorf("can not %s Decimal and %s", op, other.TypeInfo().QualifiedName())
	}
	if zeroDivisor && y.IsZero() {
		return nil, nil
	}
	var res apd.Decimal
	if _, err := fn(apdContext(ctx), &res, d.Value, y); err != nil {
		return nil, err
	}
	return &res, nil
}

func decimalElement(v *apd.Decimal, err error) (Element, error) {
	if v == nil || err != nil {
		return nil, err
	}
	return Decimal{Value: v}, nil
}

func (d Decimal) Add(ctx context.Context, other Element) (Element, error) {
	if q, isQuantity := other.(Quantity); isQuantity {
		return Quantity{Value: d, Unit: "1"}.Add(ctx, q)
	}
	return decimalElement(d.decimalArith(ctx, "add", other, false, (*apd.Context).Add))
}
func (d Decimal) Subtract(ctx context.Context, other Element) (Element, error) {
	return decimalElement(d.decimalArith(ctx, "subtract", other, false, (*apd.Context).Sub))
}
func (d Decimal) Multiply(ctx context.Context, other Element) (Element, error) {
	if q, isQuantity := other.(Quantity); isQuantity {
		return Quantity{Value: d, Unit: "1"}.Multiply(ctx, q)
	}
	return decimalElement(d.decimalArith(ctx, "multiply", other, false, (*apd.Context).Mul))
}
func (d Decimal) Divide(ctx context.Context, other Element) (Element, error) {
	return decimalElement(d.decimalArith(ctx, "divide", other, true, (*apd.Context).Quo))
}

// Div truncates the quotient to an Integer.
func (d Decimal) Div(ctx context.Context, other Element) (Element, error) {
	q, err := d.decimalArith(ctx, "div", other, true, (*apd.Context).QuoInteger)
	if q == nil || err != nil {
		return nil, err
	}
	i, err := q.Int64()
	if err != nil {
		return nil, nil
	}
	return integerResult(i), nil
}
func (d Decimal) Mod(ctx context.Context, other Element) (Element, error) {
	return decimalElement(d.decimalArith(ctx, "mod", other, true, (*apd.Context).Rem))
}
func (d Decimal) TypeInfo() TypeInfo {
	return systemType("Decimal")
}
func (d Decimal) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Value)
}
func (d Decimal) String() string {
	if d.Value == nil {
		return "0"
	}
	return d.Value.Text('f')
}

func isNumeric(e Element) bool {
	switch e.(type) {
	case Integer, Decimal:
		return true
	default:
		return false
	}
}
