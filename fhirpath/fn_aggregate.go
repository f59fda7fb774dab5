package fhirpath

import (
	"context"
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

func sumFn(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	if len(focus) == 0 {
		return Integer(0), nil
	}
	var total Element = focus[0]
	for _, e := range focus[1:] {
		acc, ok := total.(addElement)
		if !ok || !summable(e) {
			return nil, fmt.Errorf("sum() expects numbers or quantities, got %s", e.TypeInfo().QualifiedName())
		}
		sum, err := acc.Add(ctx, e)
		if err != nil {
			return nil, err
		}
		if sum == nil {
			return nil, nil
		}
		total = sum
	}
	if !summable(total) {
		return nil, fmt.Errorf("sum() expects numbers or quantities, got %s", total.TypeInfo().QualifiedName())
	}
	return total, nil
}

func summable(e Element) bool {
	switch e.(type) {
	case Integer, Decimal, Quantity:
		return true
	}
	return false
}

// extremum builds min and max. keep reports whether the candidate replaces
// the current extremum.
func extremum(op string, keep func(cmp int) bool) func(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	return func(ctx context.Context, focus Collection, args []Argument) (Element, error) {
		if len(focus) == 0 {
			return nil, nil
		}
		best := focus[0]
		for _, e := range focus[1:] {
			candidate, ok := e.(cmpElement)
			if !ok {
				return nil, fmt.Errorf("%s() can not compare %s", op, e.TypeInfo().QualifiedName())
			}
			cmp, ok, err := candidate.Cmp(best)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, nil
			}
			if keep(cmp) {
				best = e
			}
		}
		if _, ok := best.(cmpElement); !ok {
			return nil, fmt.Errorf("%s() can not compare %s", op, best.TypeInfo().QualifiedName())
		}
		return best, nil
	}
}

func avgFn(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	if len(focus) == 0 {
		return nil, nil
	}
	total, err := sumFn(ctx, focus, args)
	if err != nil || total == nil {
		return nil, err
	}
	count := Decimal{Value: apd.New(int64(len(focus)), 0)}
	switch t := total.(type) {
	case Integer:
		d, _, _ := t.ToDecimal(false)
		return d.Divide(ctx, count)
	case divideElement:
		return t.Divide(ctx, count)
	}
	return nil, fmt.Errorf("avg() can not divide %s", total.TypeInfo().QualifiedName())
}

// aggregateFn folds the focus with the aggregator, binding the accumulator to $total.
func aggregateFn(ctx context.Context, focus Collection, args []Argument) (Collection, error) {
	var total Collection
	if len(args) == 2 {
		total = args[1].Value
	}
	for i, e := range focus {
		next, err := args[0].Lambda(ctx, Collection{e}, Scope{Index: i, Total: total, Aggregate: true})
		if err != nil {
			return nil, err
		}
		total = next
	}
	return total, nil
}
