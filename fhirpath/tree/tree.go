// Package tree provides a minimal expression tree that drives the fhirpath
// dispatcher. Trees are built programmatically, there is no parser.
//
// Example:
//
//	// name.where(use = 'official').given
//	expr := tree.Chain{
//		tree.Member{Name: "name"},
//		tree.Func("where", tree.Binary{Op: "=", Left: tree.Member{Name: "use"}, Right: tree.Str("official")}),
//		tree.Member{Name: "given"},
//	}
//	result, err := tree.Evaluate(ctx, patient, expr)
package tree

import (
	"context"
	"fmt"
	"strings"

	"github.com/damedic/fhirpath-core/fhirpath"
)

// Evaluate evaluates expr with root as input.
func Evaluate(ctx context.Context, root fhirpath.Element, expr fhirpath.Expression) (fhirpath.Collection, error) {
	var focus fhirpath.Collection
	if root != nil {
		focus = fhirpath.Collection{root}
	}
	return expr.Evaluate(ctx, root, focus)
}

// Literal evaluates to its values, independent of the focus.
type Literal struct {
	Values fhirpath.Collection
	// Text overrides the rendering of the values.
	Text string
}

func (l Literal) Evaluate(ctx context.Context, root fhirpath.Element, focus fhirpath.Collection) (fhirpath.Collection, error) {
	return l.Values, nil
}

func (l Literal) String() string {
	if l.Text != "" {
		return l.Text
	}
	switch len(l.Values) {
	case 0:
		return "{}"
	case 1:
		return l.Values[0].String()
	}
	return l.Values.String()
}

// Lit builds a literal of the given values.
func Lit(values ...fhirpath.Element) Literal {
	return Literal{Values: values}
}

func Str(s string) Literal {
	return Lit(fhirpath.String(s))
}

func Int(i int32) Literal {
	return Lit(fhirpath.Integer(i))
}

func Bool(b bool) Literal {
	return Lit(fhirpath.Boolean(b))
}

// Empty is the empty collection literal {}.
var Empty = Literal{Values: fhirpath.Collection{}, Text: "{}"}

// Member navigates to the children with the given name.
// A focus element whose type has that name is kept as it is, so a path can
// start with the type of the root.
type Member struct {
	Name string
}

func (m Member) Evaluate(ctx context.Context, root fhirpath.Element, focus fhirpath.Collection) (fhirpath.Collection, error) {
	var result fhirpath.Collection
	for _, e := range focus {
		if e.TypeInfo().Name == m.Name {
			result = append(result, e)
			continue
		}
		result = append(result, e.Children(m.Name)...)
	}
	return result, nil
}

func (m Member) String() string {
	return m.Name
}

// Identifier is the text of a type argument, e.g. the Integer in is(Integer).
// It can not be evaluated.
type Identifier struct {
	Name string
}

func (i Identifier) Evaluate(ctx context.Context, root fhirpath.Element, focus fhirpath.Collection) (fhirpath.Collection, error) {
	return nil, fmt.Errorf("type identifier %s can not be evaluated", i.Name)
}

func (i Identifier) String() string {
	return i.Name
}

// Invocation calls a registered function on the result of Target, or on the
// focus if Target is nil.
type Invocation struct {
	Target fhirpath.Expression
	Name   string
	Params []fhirpath.Expression
}

// Func builds an invocation on the focus.
func Func(name string, params ...fhirpath.Expression) Invocation {
	return Invocation{Name: name, Params: params}
}

func (i Invocation) Evaluate(ctx context.Context, root fhirpath.Element, focus fhirpath.Collection) (fhirpath.Collection, error) {
	input := focus
	if i.Target != nil {
		var err error
		input, err = i.Target.Evaluate(ctx, root, focus)
		if err != nil {
			return nil, err
		}
	}
	return fhirpath.Call(ctx, i.Name, root, input, i.Params)
}

func (i Invocation) String() string {
	params := make([]string, len(i.Params))
	for j, p := range i.Params {
		params[j] = p.String()
	}
	call := fmt.Sprintf("%s(%s)", i.Name, strings.Join(params, ", "))
	if i.Target != nil {
		return i.Target.String() + "." + call
	}
	return call
}

// Binary applies an operator. Both operands are evaluated against the focus.
// The operator aliases isOp, asOp, inOp and containsOp render as is, as, in
// and contains.
type Binary struct {
	Op          string
	Left, Right fhirpath.Expression
}

func (b Binary) Evaluate(ctx context.Context, root fhirpath.Element, focus fhirpath.Collection) (fhirpath.Collection, error) {
	return fhirpath.Call(ctx, b.Op, root, focus, []fhirpath.Expression{b.Left, b.Right})
}

func (b Binary) String() string {
	op := strings.TrimSuffix(b.Op, "Op")
	return fmt.Sprintf("%s %s %s", b.Left, op, b.Right)
}

// This is $this, the item a macro function currently evaluates.
type This struct{}

func (This) Evaluate(ctx context.Context, root fhirpath.Element, focus fhirpath.Collection) (fhirpath.Collection, error) {
	if s, ok := fhirpath.ScopeFrom(ctx); ok && s.This != nil {
		return fhirpath.Collection{s.This}, nil
	}
	return focus, nil
}

func (This) String() string {
	return "$this"
}

// Index is $index.
type Index struct{}

func (Index) Evaluate(ctx context.Context, root fhirpath.Element, focus fhirpath.Collection) (fhirpath.Collection, error) {
	s, ok := fhirpath.ScopeFrom(ctx)
	if !ok {
		return nil, fmt.Errorf("$index used outside of a function scope")
	}
	return fhirpath.Collection{fhirpath.Integer(s.Index)}, nil
}

func (Index) String() string {
	return "$index"
}

// Total is $total, the accumulator of aggregate().
type Total struct{}

func (Total) Evaluate(ctx context.Context, root fhirpath.Element, focus fhirpath.Collection) (fhirpath.Collection, error) {
	s, ok := fhirpath.ScopeFrom(ctx)
	if !ok || !s.Aggregate {
		return nil, fmt.Errorf("$total used outside of aggregate")
	}
	return s.Total, nil
}

func (Total) String() string {
	return "$total"
}

// Chain evaluates its steps left to right, each step with the result of the
// previous one as focus.
type Chain []fhirpath.Expression

// Path builds a chain of member navigations.
func Path(names ...string) Chain {
	chain := make(Chain, len(names))
	for i, n := range names {
		chain[i] = Member{Name: n}
	}
	return chain
}

func (c Chain) Evaluate(ctx context.Context, root fhirpath.Element, focus fhirpath.Collection) (fhirpath.Collection, error) {
	current := focus
	for _, step := range c {
		var err error
		current, err = step.Evaluate(ctx, root, current)
		if err != nil {
			return nil, err
		}
	}
	return current, nil
}

func (c Chain) String() string {
	steps := make([]string, len(c))
	for i, s := range c {
		steps[i] = s.String()
	}
	return strings.Join(steps, ".")
}
