package fhirpath

import (
	"context"
	"fmt"
	"maps"
	"slices"
)

// ParameterKind declares how the dispatcher treats one argument of a call.
type ParameterKind int

const (
	// KindAny is evaluated eagerly against the focus, unconstrained.
	KindAny ParameterKind = iota
	// KindAnyAtRoot is evaluated eagerly against the root of the whole
	// expression, with the iteration scope cleared.
	KindAnyAtRoot
	// KindExpr is passed unevaluated as a Lambda.
	KindExpr
	KindString
	KindInteger
	// KindNumber accepts Integer and Decimal values.
	KindNumber
	KindBoolean
	// KindIdentifier and KindTypeSpecifier are not evaluated, their text is
	// parsed as a type specifier.
	KindIdentifier
	KindTypeSpecifier
)

func (k ParameterKind) String() string {
	switch k {
	case KindAny:
		return "Any"
	case KindAnyAtRoot:
		return "AnyAtRoot"
	case KindExpr:
		return "Expr"
	case KindString:
		return "String"
	case KindInteger:
		return "Integer"
	case KindNumber:
		return "Number"
	case KindBoolean:
		return "Boolean"
	case KindIdentifier:
		return "Identifier"
	case KindTypeSpecifier:
		return "TypeSpecifier"
	default:
		return fmt.Sprintf("ParameterKind(%d)", int(k))
	}
}

// Arity maps a supported argument count to the kinds of its parameters.
// A nil Arity accepts exactly zero arguments.
type Arity map[int][]ParameterKind

// Implementation is the uniform signature of every registered operation.
//
// args holds one Argument per declared parameter, in declaration order.
type Implementation func(ctx context.Context, focus Collection, args []Argument) (Collection, error)

// FunctionSpec describes a function or operator.
type FunctionSpec struct {
	Name  string
	Arity Arity
	Fn    Implementation
	// NullableInput short-circuits to empty when the focus is empty.
	NullableInput bool
	// Nullable short-circuits to empty when any evaluated argument is empty.
	Nullable bool
}

func (s FunctionSpec) validate() error {
	if s.Name == "" {
		return fmt.Errorf("function without name")
	}
	if s.Fn == nil {
		return fmt.Errorf("function %s has no implementation", s.Name)
	}
	for count, kinds := range s.Arity {
		if count != len(kinds) {
			return fmt.Errorf("function %s: arity %d declares %d parameters", s.Name, count, len(kinds))
		}
	}
	return nil
}

// Registry is an immutable table of operations. It is safe for concurrent use.
type Registry struct {
	specs map[string]FunctionSpec
}

// NewRegistry builds a registry from specs. Names must be unique.
func NewRegistry(specs ...FunctionSpec) (*Registry, error) {
	r := &Registry{specs: make(map[string]FunctionSpec, len(specs))}
	for _, s := range specs {
		if err := s.validate(); err != nil {
			return nil, err
		}
		if _, ok := r.specs[s.Name]; ok {
			return nil, fmt.Errorf("function %s registered twice", s.Name)
		}
		r.specs[s.Name] = s
	}
	return r, nil
}

// Lookup returns the spec registered for name.
func (r *Registry) Lookup(name string) (FunctionSpec, error) {
	if r != nil {
		if s, ok := r.specs[name]; ok {
			return s, nil
		}
	}
	return FunctionSpec{}, structuralErrorf(name, "function not found")
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(r.specs))
}

// With returns a new registry where specs replace or extend the ones of r.
// r itself is not modified.
func (r *Registry) With(specs ...FunctionSpec) (*Registry, error) {
	merged := &Registry{specs: make(map[string]FunctionSpec)}
	if r != nil {
		maps.Copy(merged.specs, r.specs)
	}
	for _, s := range specs {
		if err := s.validate(); err != nil {
			return nil, err
		}
		merged.specs[s.Name] = s
	}
	return merged, nil
}

var defaultRegistry *Registry

func init() {
	defaultRegistry = mustRegistry(builtins()...)
}

func mustRegistry(specs ...FunctionSpec) *Registry {
	r, err := NewRegistry(specs...)
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultRegistry returns the registry of all built-in functions and operators.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

type registryKey struct{}

// WithRegistry installs r as the registry used by Call.
func WithRegistry(ctx context.Context, r *Registry) context.Context {
	return context.WithValue(ctx, registryKey{}, r)
}

// WithFunctions adds custom functions on top of the registry of ctx.
//
// Built-ins with the same name are shadowed.
//
// Example:
//
//	ctx, err = fhirpath.WithFunctions(ctx, fhirpath.FunctionSpec{
//		Name: "double",
//		Fn: func(ctx context.Context, focus fhirpath.Collection, args []fhirpath.Argument) (fhirpath.Collection, error) {
//			return focus.Combine(focus), nil
//		},
//	})
func WithFunctions(ctx context.Context, specs ...FunctionSpec) (context.Context, error) {
	r, err := RegistryFrom(ctx).With(specs...)
	if err != nil {
		return ctx, err
	}
	return WithRegistry(ctx, r), nil
}

// RegistryFrom returns the registry of ctx, or the default registry.
func RegistryFrom(ctx context.Context) *Registry {
	if ctx != nil {
		if r, ok := ctx.Value(registryKey{}).(*Registry); ok && r != nil {
			return r
		}
	}
	return defaultRegistry
}
