package fhirpath

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Element is a single value of the closed runtime value set:
// Boolean, Integer, Decimal, String, Date, DateTime, Time, Quantity and Object.
//
// Every variant implements each coercion method itself. The explicit flag
// selects the rules of the toX functions, implicit conversions are the ones
// operators apply on their own. A conversion that does not apply returns
// ok == false; err is only set where the conversion must fail loudly.
type Element interface {
	// Children returns all child nodes with given names.
	//
	// If no name is passed, all children are returned.
	Children(name ...string) Collection
	ToBoolean(explicit bool) (v Boolean, ok bool, err error)
	ToString(explicit bool) (v String, ok bool, err error)
	ToInteger(explicit bool) (v Integer, ok bool, err error)
	ToDecimal(explicit bool) (v Decimal, ok bool, err error)
	ToDate(explicit bool) (v Date, ok bool, err error)
	ToTime(explicit bool) (v Time, ok bool, err error)
	ToDateTime(explicit bool) (v DateTime, ok bool, err error)
	ToQuantity(explicit bool) (v Quantity, ok bool, err error)
	Equal(other Element) (eq bool, ok bool)
	Equivalent(other Element) bool
	TypeInfo() TypeInfo
	json.Marshaler
	fmt.Stringer
}

type cmpElement interface {
	Element
	// Cmp returns ok == false when the operands are not comparable,
	// e.g. quantities with incompatible units.
	Cmp(other Element) (cmp int, ok bool, err error)
}

type addElement interface {
	Element
	Add(ctx context.Context, other Element) (Element, error)
}

type subtractElement interface {
	Element
	Subtract(ctx context.Context, other Element) (Element, error)
}

type multiplyElement interface {
	Element
	Multiply(ctx context.Context, other Element) (Element, error)
}

type divideElement interface {
	Element
	Divide(ctx context.Context, other Element) (Element, error)
}

type divElement interface {
	Element
	Div(ctx context.Context, other Element) (Element, error)
}

type modElement interface {
	Element
	Mod(ctx context.Context, other Element) (Element, error)
}

// TypeInfo describes the runtime type of an element.
type TypeInfo struct {
	Namespace string
	Name      string
	BaseType  TypeSpecifier
}

func (i TypeInfo) QualifiedName() TypeSpecifier {
	return TypeSpecifier{Namespace: i.Namespace, Name: i.Name}
}

func systemType(name string) TypeInfo {
	return TypeInfo{
		Namespace: "System",
		Name:      name,
		BaseType:  TypeSpecifier{Namespace: "System", Name: "Any"},
	}
}

// TypeSpecifier names a type, optionally qualified by its namespace.
type TypeSpecifier struct {
	Namespace string
	Name      string
}

// ParseTypeSpecifier parses "Name", "Namespace.Name" and backtick-delimited forms.
func ParseTypeSpecifier(s string) TypeSpecifier {
	s = strings.TrimSpace(s)
	split := strings.SplitN(s, ".", 2)
	if len(split) == 1 {
		return TypeSpecifier{Name: strings.Trim(split[0], "`")}
	}
	return TypeSpecifier{
		Namespace: strings.Trim(split[0], "`"),
		Name:      strings.Trim(split[1], "`"),
	}
}

func (t TypeSpecifier) String() string {
	if t.Namespace != "" {
		return fmt.Sprintf("%s.%s", t.Namespace, t.Name)
	}
	return t.Name
}

// Matches reports whether an element of type info is of type t.
// An unqualified specifier matches any namespace.
// Every type is a subtype of its base type.
func (t TypeSpecifier) Matches(info TypeInfo) bool {
	if t.matchesName(info.Namespace, info.Name) {
		return true
	}
	base := info.BaseType
	if base.Name == "" || (base.Namespace == info.Namespace && base.Name == info.Name) {
		return false
	}
	return t.matchesName(base.Namespace, base.Name)
}

func (t TypeSpecifier) matchesName(namespace, name string) bool {
	if t.Namespace != "" && !strings.EqualFold(t.Namespace, namespace) {
		return false
	}
	return t.Name == name
}

// Collection is the result of every evaluation: an ordered sequence of elements.
type Collection []Element

// Equal implements '=' on collections. ok is false if either side is empty.
func (c Collection) Equal(other Collection) (eq bool, ok bool) {
	if len(c) == 0 || len(other) == 0 {
		return false, false
	}
	if len(c) != len(other) {
		return false, true
	}
	for i, e := range c {
		eq, ok := e.Equal(other[i])
		if !ok || !eq {
			return false, ok
		}
	}
	return true, true
}

// Equivalent implements '~' on collections, ignoring order. Every element
// of other is matched at most once.
func (c Collection) Equivalent(other Collection) bool {
	if len(c) != len(other) {
		return false
	}
	matched := make([]bool, len(other))
	for _, e := range c {
		found := false
		for i, o := range other {
			if !matched[i] && e.Equivalent(o) {
				matched[i], found = true, true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Cmp orders two singleton collections. ok is false if either side is empty.
func (c Collection) Cmp(other Collection) (cmp int, ok bool, err error) {
	switch {
	case len(c) == 0 || len(other) == 0:
		return 0, false, nil
	case len(c) > 1 || len(other) > 1:
		return 0, false, fmt.Errorf("comparison needs single operands, got %d and %d values", len(c), len(other))
	}
	left, orderable := c[0].(cmpElement)
	if !orderable {
		return 0, false, fmt.Errorf("%s values are not ordered", c[0].TypeInfo().QualifiedName())
	}
	return left.Cmp(other[0])
}

// Contains reports whether an element equal to element is part of c.
func (c Collection) Contains(element Element) bool {
	return slices.ContainsFunc(c, func(e Element) bool {
		eq, ok := e.Equal(element)
		return ok && eq
	})
}

// Distinct returns c without duplicates, keeping the first occurrence.
func (c Collection) Distinct() Collection {
	distinct := make(Collection, 0, len(c))
	for _, e := range c {
		if !distinct.Contains(e) {
			distinct = append(distinct, e)
		}
	}
	return distinct
}

// Union merges both collections and removes duplicates.
func (c Collection) Union(other Collection) Collection {
	merged := make(Collection, 0, len(c)+len(other))
	merged = append(merged, c...)
	merged = append(merged, other...)
	return merged.Distinct()
}

// Combine merges both collections without eliminating duplicates.
func (c Collection) Combine(other Collection) Collection {
	combined := make(Collection, 0, len(c)+len(other))
	combined = append(combined, c...)
	return append(combined, other...)
}

// String renders c like "{ 1, 'a' }".
func (c Collection) String() string {
	if len(c) == 0 {
		return "{ }"
	}
	parts := make([]string, len(c))
	for i, e := range c {
		parts[i] = e.String()
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// Singleton converts a collection with at most one element to T, using implicit conversions.
//
// An empty collection yields ok == false. A single element that is not convertible
// to Boolean yields true when T is Boolean, following the singleton evaluation rules.
func Singleton[T Element](c Collection) (v T, ok bool, err error) {
	if len(c) == 0 {
		return v, false, nil
	} else if len(c) > 1 {
		return v, false, fmt.Errorf("can not convert to singleton: collection contains > 1 values")
	}

	v, ok, err = elementTo[T](c[0], false)

	// if not convertible but contains a single value, evaluate to true
	if _, wantBool := any(v).(Boolean); (err != nil || !ok) && wantBool {
		return any(Boolean(true)).(T), true, nil
	}

	return v, ok, err
}

func elementTo[T Element](e Element, explicit bool) (v T, ok bool, err error) {
	switch any(v).(type) {
	case Boolean:
		v, ok, err := e.ToBoolean(explicit)
		return any(v).(T), ok, err
	case String:
		v, ok, err := e.ToString(explicit)
		return any(v).(T), ok, err
	case Integer:
		v, ok, err := e.ToInteger(explicit)
		return any(v).(T), ok, err
	case Decimal:
		v, ok, err := e.ToDecimal(explicit)
		return any(v).(T), ok, err
	case Date:
		v, ok, err := e.ToDate(explicit)
		return any(v).(T), ok, err
	case Time:
		v, ok, err := e.ToTime(explicit)
		return any(v).(T), ok, err
	case DateTime:
		v, ok, err := e.ToDateTime(explicit)
		return any(v).(T), ok, err
	case Quantity:
		v, ok, err := e.ToQuantity(explicit)
		return any(v).(T), ok, err
	default:
		return v, false, fmt.Errorf("can not convert to type %T", v)
	}
}

func implicitConversionError[F Element, T Element](f F) error {
	var t T
	return fmt.Errorf("%T %v can not be implicitly converted to %T", f, f, t)
}
