package fhirpath

import (
	"encoding/json"
	"slices"
)

// Object is a structured node of the queried data, e.g. a resource or one of
// its complex elements. Fields keep their declaration order.
type Object struct {
	Type   TypeInfo
	Fields []Field
}

type Field struct {
	Name  string
	Value Collection
}

// NewField builds a field from its values.
func NewField(name string, values ...Element) Field {
	return Field{Name: name, Value: Collection(values)}
}

func (o Object) Children(name ...string) Collection {
	var children Collection
	for _, f := range o.Fields {
		if len(name) == 0 || slices.Contains(name, f.Name) {
			children = append(children, f.Value...)
		}
	}
	return children
}

func (o Object) field(name string) (Field, bool) {
	i := slices.IndexFunc(o.Fields, func(f Field) bool { return f.Name == name })
	if i < 0 {
		return Field{}, false
	}
	return o.Fields[i], true
}

func (o Object) ToBoolean(explicit bool) (v Boolean, ok bool, err error) {
	return notConvertible[Object, Boolean](o, explicit)
}
func (o Object) ToString(explicit bool) (v String, ok bool, err error) {
	if explicit {
		return String(o.String()), true, nil
	}
	return notConvertible[Object, String](o, explicit)
}
func (o Object) ToInteger(explicit bool) (v Integer, ok bool, err error) {
	return notConvertible[Object, Integer](o, explicit)
}
func (o Object) ToDecimal(explicit bool) (v Decimal, ok bool, err error) {
	return notConvertible[Object, Decimal](o, explicit)
}
func (o Object) ToDate(explicit bool) (v Date, ok bool, err error) {
	return notConvertible[Object, Date](o, explicit)
}
func (o Object) ToTime(explicit bool) (v Time, ok bool, err error) {
	return notConvertible[Object, Time](o, explicit)
}
func (o Object) ToDateTime(explicit bool) (v DateTime, ok bool, err error) {
	return notConvertible[Object, DateTime](o, explicit)
}
func (o Object) ToQuantity(explicit bool) (v Quantity, ok bool, err error) {
	return notConvertible[Object, Quantity](o, explicit)
}

// Equal compares field by field. Fields with empty values are ignored.
func (o Object) Equal(other Element) (eq bool, ok bool) {
	p, isObject := other.(Object)
	if !isObject || o.Type.QualifiedName() != p.Type.QualifiedName() {
		return false, true
	}
	return o.compareFields(p, func(a, b Collection) bool {
		eq, ok := a.Equal(b)
		return ok && eq
	}), true
}
func (o Object) Equivalent(other Element) bool {
	p, isObject := other.(Object)
	if !isObject || o.Type.QualifiedName() != p.Type.QualifiedName() {
		return false
	}
	return o.compareFields(p, Collection.Equivalent)
}

func (o Object) compareFields(p Object, same func(a, b Collection) bool) bool {
	names := o.fieldNames()
	if !slices.Equal(names, p.fieldNames()) {
		return false
	}
	for _, name := range names {
		a, _ := o.field(name)
		b, _ := p.field(name)
		if !same(a.Value, b.Value) {
			return false
		}
	}
	return true
}

func (o Object) fieldNames() []string {
	var names []string
	for _, f := range o.Fields {
		if len(f.Value) > 0 {
			names = append(names, f.Name)
		}
	}
	slices.Sort(names)
	return names
}

func (o Object) TypeInfo() TypeInfo {
	return o.Type
}
func (o Object) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(o.Fields))
	for _, f := range o.Fields {
		switch len(f.Value) {
		case 0:
		case 1:
			m[f.Name] = f.Value[0]
		default:
			m[f.Name] = []Element(f.Value)
		}
	}
	return json.Marshal(m)
}
func (o Object) String() string {
	buf, err := json.Marshal(o)
	if err != nil {
		return "null"
	}
	return string(buf)
}
