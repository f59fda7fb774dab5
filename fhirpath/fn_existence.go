package fhirpath

import (
	"context"
	"fmt"
)

// isTrue evaluates a criteria result with singleton evaluation rules.
func isTrue(c Collection) (bool, error) {
	b, ok, err := Singleton[Boolean](c)
	if err != nil {
		return false, err
	}
	return ok && bool(b), nil
}

func emptyFn(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	return Boolean(len(focus) == 0), nil
}

func notFn(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	b, ok, err := Singleton[Boolean](focus)
	if err != nil || !ok {
		return nil, err
	}
	return !b, nil
}

func existsFn(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	if len(args) == 0 {
		return Boolean(len(focus) > 0), nil
	}
	for i, e := range focus {
		criteria, err := args[0].Lambda(ctx, Collection{e}, Scope{Index: i})
		if err != nil {
			return nil, err
		}
		match, err := isTrue(criteria)
		if err != nil {
			return nil, err
		}
		if match {
			return Boolean(true), nil
		}
	}
	return Boolean(false), nil
}

func allFn(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	for i, e := range focus {
		criteria, err := args[0].Lambda(ctx, Collection{e}, Scope{Index: i})
		if err != nil {
			return nil, err
		}
		match, err := isTrue(criteria)
		if err != nil {
			return nil, err
		}
		if !match {
			return Boolean(false), nil
		}
	}
	return Boolean(true), nil
}

// booleans converts every element of focus to Boolean.
func booleans(focus Collection) ([]Boolean, error) {
	bs := make([]Boolean, 0, len(focus))
	for _, e := range focus {
		b, ok, err := e.ToBoolean(false)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("expected boolean values, got %v", e)
		}
		bs = append(bs, b)
	}
	return bs, nil
}

// quantifier builds allTrue, anyTrue, allFalse and anyFalse.
// all selects the universal form, want the value that is looked for.
func quantifier(all bool, want Boolean) func(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	return func(ctx context.Context, focus Collection, args []Argument) (Element, error) {
		bs, err := booleans(focus)
		if err != nil {
			return nil, err
		}
		for _, b := range bs {
			if all && b != want {
				return Boolean(false), nil
			}
			if !all && b == want {
				return Boolean(true), nil
			}
		}
		return Boolean(all), nil
	}
}

func subsetOfFn(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	other := args[0].Value
	for _, e := range focus {
		if !other.Contains(e) {
			return Boolean(false), nil
		}
	}
	return Boolean(true), nil
}

func supersetOfFn(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	for _, e := range args[0].Value {
		if !focus.Contains(e) {
			return Boolean(false), nil
		}
	}
	return Boolean(true), nil
}

func isDistinctFn(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	return Boolean(len(focus.Distinct()) == len(focus)), nil
}

func distinctFn(ctx context.Context, focus Collection, args []Argument) (Collection, error) {
	return focus.Distinct(), nil
}

func countFn(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	return Integer(len(focus)), nil
}
