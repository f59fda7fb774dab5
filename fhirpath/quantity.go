package fhirpath

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// Quantity is a decimal magnitude with a UCUM unit. Unit "1" is dimensionless.
type Quantity struct {
	Value Decimal
	Unit  String
}

func (q Quantity) Children(name ...string) Collection {
	var children Collection
	if len(name) == 0 || name[0] == "value" {
		children = append(children, q.Value)
	}
	if len(name) == 0 || name[0] == "unit" {
		children = append(children, q.Unit)
	}
	return children
}
func (q Quantity) ToBoolean(explicit bool) (v Boolean, ok bool, err error) {
	return notConvertible[Quantity, Boolean](q, explicit)
}
func (q Quantity) ToString(explicit bool) (v String, ok bool, err error) {
	if explicit {
		return String(q.String()), true, nil
	}
	return notConvertible[Quantity, String](q, explicit)
}
func (q Quantity) ToInteger(explicit bool) (v Integer, ok bool, err error) {
	return notConvertible[Quantity, Integer](q, explicit)
}
func (q Quantity) ToDecimal(explicit bool) (v Decimal, ok bool, err error) {
	return notConvertible[Quantity, Decimal](q, explicit)
}
func (q Quantity) ToDate(explicit bool) (v Date, ok bool, err error) {
	return notConvertible[Quantity, Date](q, explicit)
}
func (q Quantity) ToTime(explicit bool) (v Time, ok bool, err error) {
	return notConvertible[Quantity, Time](q, explicit)
}
func (q Quantity) ToDateTime(explicit bool) (v DateTime, ok bool, err error) {
	return notConvertible[Quantity, DateTime](q, explicit)
}
func (q Quantity) ToQuantity(explicit bool) (v Quantity, ok bool, err error) {
	return q, true, nil
}

// Equal compares after converting other to the unit of q.
// Quantities with incompatible units are not comparable.
func (q Quantity) Equal(other Element) (eq bool, ok bool) {
	o, isQuantity := quantityOperand(other)
	if !isQuantity {
		return false, true
	}
	converted, err := ConvertUnit(context.Background(), o, string(q.Unit))
	if err != nil {
		return false, false
	}
	return q.Value.Value.Cmp(converted.Value.Value) == 0, true
}
func (q Quantity) Equivalent(other Element) bool {
	o, isQuantity := quantityOperand(other)
	if !isQuantity {
		return false
	}
	converted, err := ConvertUnit(context.Background(), o, string(q.Unit))
	if err != nil {
		return false
	}
	return q.Value.Equivalent(converted.Value)
}
func (q Quantity) Cmp(other Element) (cmp int, ok bool, err error) {
	o, isQuantity := quantityOperand(other)
	if !isQuantity {
		return 0, false, fmt.Errorf("can not compare Quantity to %T, left: %v right: %v", other, q, other)
	}
	converted, err := ConvertUnit(context.Background(), o, string(q.Unit))
	if err != nil {
		return 0, false, nil
	}
	return q.Value.Value.Cmp(converted.Value.Value), true, nil
}

// quantityOperand accepts quantities and numbers, which are dimensionless quantities.
func quantityOperand(e Element) (Quantity, bool) {
	switch o := e.(type) {
	case Quantity:
		return o, true
	case Integer, Decimal:
		q, _, _ := o.ToQuantity(false)
		return q, true
	}
	return Quantity{}, false
}

func (q Quantity) Add(ctx context.Context, other Element) (Element, error) {
	o, isQuantity := quantityOperand(other)
	if !isQuantity {
		return nil, fmt.Errorf("can not add Quantity and %T: %v + %v", other, q, other)
	}
	converted, err := ConvertUnit(ctx, o, string(q.Unit))
	if err != nil {
		return nil, fmt.Errorf("quantity units do not match, left: %v right: %v", q, o)
	}
	var sum apd.Decimal
	if _, err := apdContext(ctx).Add(&sum, q.Value.Value, converted.Value.Value); err != nil {
		return nil, err
	}
	return Quantity{Value: Decimal{Value: &sum}, Unit: q.Unit}, nil
}
func (q Quantity) Subtract(ctx context.Context, other Element) (Element, error) {
	o, isQuantity := quantityOperand(other)
	if !isQuantity {
		return nil, fmt.Errorf("can not subtract %T from Quantity: %v - %v", other, q, other)
	}
	return q.Add(ctx, o.negate())
}
func (q Quantity) Multiply(ctx context.Context, other Element) (Element, error) {
	o, isQuantity := quantityOperand(other)
	if !isQuantity {
		return nil, fmt.Errorf("can not multiply Quantity with %T: %v * %v", other, q, other)
	}
	var product apd.Decimal
	if _, err := apdContext(ctx).Mul(&product, q.Value.Value, o.Value.Value); err != nil {
		return nil, err
	}
	return Quantity{Value: Decimal{Value: &product}, Unit: productUnit(q.Unit, o.Unit)}, nil
}
func (q Quantity) Divide(ctx context.Context, other Element) (Element, error) {
	o, isQuantity := quantityOperand(other)
	if !isQuantity {
		return nil, fmt.Errorf("can not divide Quantity by %T: %v / %v", other, q, other)
	}
	if o.Value.Value.IsZero() {
		return nil, nil
	}
	var quotient apd.Decimal
	if _, err := apdContext(ctx).Quo(&quotient, q.Value.Value, o.Value.Value); err != nil {
		return nil, err
	}
	return Quantity{Value: Decimal{Value: &quotient}, Unit: quotientUnit(q.Unit, o.Unit)}, nil
}

func (q Quantity) negate() Quantity {
	var neg apd.Decimal
	neg.Neg(q.Value.Value)
	return Quantity{Value: Decimal{Value: &neg}, Unit: q.Unit}
}

func productUnit(left, right String) String {
	switch {
	case left == "1":
		return right
	case right == "1":
		return left
	}
	return String(fmt.Sprintf("%s.%s", wrapUnit(left, "/"), wrapUnit(right, "/")))
}

func quotientUnit(numerator, denominator String) String {
	switch {
	case numerator == denominator:
		return "1"
	case denominator == "1":
		return numerator
	case numerator == "1":
		return String(fmt.Sprintf("1/%s", wrapUnit(denominator, "./")))
	}
	return String(fmt.Sprintf("%s/%s", wrapUnit(numerator, "/"), wrapUnit(denominator, "./")))
}

func wrapUnit(u String, operators string) string {
	if strings.ContainsAny(string(u), operators) {
		return fmt.Sprintf("(%s)", u)
	}
	return string(u)
}

func (q Quantity) TypeInfo() TypeInfo {
	return systemType("Quantity")
}
func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.String())
}
func (q Quantity) String() string {
	return fmt.Sprintf("%s '%s'", q.Value.String(), normalizeUnit(string(q.Unit)))
}
