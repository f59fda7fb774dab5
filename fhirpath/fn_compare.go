package fhirpath

import (
	"context"
	"fmt"
)

func equalOp(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	eq, ok := args[0].Value.Equal(args[1].Value)
	if !ok {
		return nil, nil
	}
	return Boolean(eq), nil
}

func notEqualOp(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	eq, ok := args[0].Value.Equal(args[1].Value)
	if !ok {
		return nil, nil
	}
	return Boolean(!eq), nil
}

func equivalentOp(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	return Boolean(args[0].Value.Equivalent(args[1].Value)), nil
}

func notEquivalentOp(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	return Boolean(!args[0].Value.Equivalent(args[1].Value)), nil
}

// comparison builds the ordering operators from a predicate on the Cmp result.
func comparison(pred func(cmp int) bool) func(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	return func(ctx context.Context, focus Collection, args []Argument) (Element, error) {
		cmp, ok, err := args[0].Value.Cmp(args[1].Value)
		if err != nil || !ok {
			return nil, err
		}
		return Boolean(pred(cmp)), nil
	}
}

// membership reports whether the single element of item is part of collection.
func membership(op string, collection, item Collection) (Element, error) {
	switch len(item) {
	case 0:
		return nil, nil
	case 1:
	default:
		return nil, fmt.Errorf("%s: expected single element, got %d", op, len(item))
	}
	return Boolean(collection.Contains(item[0])), nil
}

func containsOp(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	return membership("contains", args[0].Value, args[1].Value)
}

func inOp(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	return membership("in", args[1].Value, args[0].Value)
}
