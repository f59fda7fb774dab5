package fhirpath

import (
	"context"
	"log/slog"
)

// Expression is an unevaluated argument of a call, as produced by the tree walker.
type Expression interface {
	// Evaluate evaluates the expression with focus as input.
	// root is the element the overall expression is evaluated on.
	Evaluate(ctx context.Context, root Element, focus Collection) (Collection, error)
	String() string
}

// Scope binds the special variables $this, $index and $total while a Lambda runs.
type Scope struct {
	This  Element
	Index int
	Total Collection
	// Aggregate is set when Total is bound, i.e. inside aggregate().
	Aggregate bool
}

type scopeKey struct{}

func withScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// ScopeFrom returns the innermost scope bound by a Lambda invocation.
func ScopeFrom(ctx context.Context) (Scope, bool) {
	s, ok := ctx.Value(scopeKey{}).(*Scope)
	if !ok || s == nil {
		return Scope{}, false
	}
	return *s, true
}

// Lambda is a deferred argument. Macro functions call it once per item.
//
// Passing a scope binds $this (to the single focus item unless set),
// $index and $total for the duration of the call. An empty focus falls back
// to the enclosing $this, then to the root.
type Lambda func(ctx context.Context, focus Collection, scope ...Scope) (Collection, error)

func bindLambda(root Element, expr Expression) Lambda {
	return func(ctx context.Context, focus Collection, scope ...Scope) (Collection, error) {
		parent, hasParent := ScopeFrom(ctx)
		if len(scope) > 0 {
			s := scope[0]
			if s.This == nil && len(focus) == 1 {
				s.This = focus[0]
			}
			if !s.Aggregate && hasParent && parent.Aggregate {
				s.Total, s.Aggregate = parent.Total, true
			}
			ctx = withScope(ctx, &s)
		}
		if len(focus) == 0 {
			switch {
			case hasParent && parent.This != nil:
				focus = Collection{parent.This}
			case root != nil:
				focus = Collection{root}
			}
		}
		return expr.Evaluate(ctx, root, focus)
	}
}

// Argument is a dispatched argument. Which field is set depends on Kind:
// Lambda for KindExpr, Type for KindIdentifier and KindTypeSpecifier, Value otherwise.
type Argument struct {
	Kind   ParameterKind
	Value  Collection
	Lambda Lambda
	Type   TypeSpecifier
}

func (a Argument) evaluated() bool {
	switch a.Kind {
	case KindExpr, KindIdentifier, KindTypeSpecifier:
		return false
	}
	return true
}

// argValue returns the single value of an eagerly evaluated argument.
func argValue[T Element](a Argument) (v T, ok bool) {
	if len(a.Value) != 1 {
		return v, false
	}
	v, ok = a.Value[0].(T)
	return v, ok
}

// Invoke dispatches a call of spec with the unevaluated argument expressions params.
//
// Arguments are evaluated according to the arity entry matching len(params).
// The result is never nil. Errors are either *StructuralError or *ConversionError.
func Invoke(
	ctx context.Context,
	spec FunctionSpec,
	root Element, focus Collection,
	params []Expression,
) (Collection, error) {
	log := Logger(ctx).With(slog.String("function", spec.Name))

	kinds, ok := spec.Arity[len(params)]
	if !ok && !(len(spec.Arity) == 0 && len(params) == 0) {
		return nil, structuralErrorf(spec.Name, "wrong number of arguments: %d", len(params))
	}

	if spec.NullableInput && len(focus) == 0 {
		log.DebugContext(ctx, "short-circuit", slog.String("reason", "empty input"))
		return Collection{}, nil
	}

	// all operands are evaluated before the empty check, so errors of
	// later operands are not hidden by an earlier empty one
	args := make([]Argument, len(kinds))
	emptyOperand := -1
	for i, kind := range kinds {
		arg, err := evaluateArgument(ctx, spec.Name, kind, root, focus, params[i])
		if err != nil {
			return nil, err
		}
		if emptyOperand < 0 && arg.evaluated() && len(arg.Value) == 0 {
			emptyOperand = i
		}
		args[i] = arg
	}
	if spec.Nullable && emptyOperand >= 0 {
		log.DebugContext(ctx, "short-circuit", slog.String("reason", "empty operand"), slog.Int("argument", emptyOperand))
		return Collection{}, nil
	}

	log.DebugContext(ctx, "invoke", slog.Int("arity", len(params)), slog.Int("focus", len(focus)))
	result, err := spec.Fn(ctx, focus, args)
	if err != nil {
		log.DebugContext(ctx, "failed", slog.Any("error", err))
		return nil, asStructural(spec.Name, err)
	}
	if result == nil {
		result = Collection{}
	}
	return result, nil
}

func evaluateArgument(
	ctx context.Context,
	name string,
	kind ParameterKind,
	root Element, focus Collection,
	param Expression,
) (Argument, error) {
	arg := Argument{Kind: kind}
	switch kind {
	case KindExpr:
		arg.Lambda = bindLambda(root, param)
		return arg, nil
	case KindIdentifier, KindTypeSpecifier:
		arg.Type = ParseTypeSpecifier(param.String())
		return arg, nil
	case KindAnyAtRoot:
		var rootFocus Collection
		if root != nil {
			rootFocus = Collection{root}
		}
		value, err := param.Evaluate(withScope(ctx, nil), root, rootFocus)
		if err != nil {
			return arg, err
		}
		arg.Value = value
		return arg, nil
	}

	value, err := param.Evaluate(ctx, root, focus)
	if err != nil {
		return arg, err
	}
	arg.Value = value
	if kind == KindAny || len(value) == 0 {
		return arg, nil
	}
	if len(value) > 1 {
		return arg, structuralErrorf(name, "expected single %s argument, got %d values", kind, len(value))
	}

	var matches bool
	switch value[0].(type) {
	case String:
		matches = kind == KindString
	case Integer:
		matches = kind == KindInteger || kind == KindNumber
	case Decimal:
		matches = kind == KindNumber
	case Boolean:
		matches = kind == KindBoolean
	}
	if !matches {
		return arg, structuralErrorf(name, "expected %s argument, got %s", kind, value[0].TypeInfo().QualifiedName())
	}
	return arg, nil
}

// Call looks up name in the registry of ctx and invokes it.
func Call(
	ctx context.Context,
	name string,
	root Element, focus Collection,
	params []Expression,
) (Collection, error) {
	spec, err := RegistryFrom(ctx).Lookup(name)
	if err != nil {
		return nil, err
	}
	return Invoke(ctx, spec, root, focus, params)
}

// scalar adapts a function computing at most one value. A nil value becomes
// the empty collection.
func scalar(fn func(ctx context.Context, focus Collection, args []Argument) (Element, error)) Implementation {
	return func(ctx context.Context, focus Collection, args []Argument) (Collection, error) {
		e, err := fn(ctx, focus, args)
		if err != nil || e == nil {
			return nil, err
		}
		return Collection{e}, nil
	}
}
