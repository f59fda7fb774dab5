package fhirpath

import (
	"context"
	"fmt"
)

func whereFn(ctx context.Context, focus Collection, args []Argument) (result Collection, err error) {
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
			result = append(result, e)
		}
	}
	return result, nil
}

func selectFn(ctx context.Context, focus Collection, args []Argument) (result Collection, err error) {
	for i, e := range focus {
		projection, err := args[0].Lambda(ctx, Collection{e}, Scope{Index: i})
		if err != nil {
			return nil, err
		}
		result = append(result, projection...)
	}
	return result, nil
}

// repeatFn applies the projection to the new items of each round until no
// new items appear. Items already seen are not projected again, so cyclic
// data terminates. Data that keeps producing distinct items fails once the
// repeat limit of ctx is reached.
func repeatFn(ctx context.Context, focus Collection, args []Argument) (result Collection, err error) {
	limit := repeatLimit(ctx)
	current := focus
	for round := 0; len(current) > 0; round++ {
		if round >= limit {
			return nil, structuralErrorf("repeat", "no fixed point after %d rounds", limit)
		}

		var found Collection
		for i, e := range current {
			projection, err := args[0].Lambda(ctx, Collection{e}, Scope{Index: i})
			if err != nil {
				return nil, err
			}
			for _, item := range projection {
				if !result.Contains(item) && !found.Contains(item) {
					found = append(found, item)
				}
			}
		}

		result = append(result, found...)
		current = found
	}
	return result, nil
}

func extensionFn(ctx context.Context, focus Collection, args []Argument) (result Collection, err error) {
	url, ok := argValue[String](args[0])
	if !ok {
		return nil, nil
	}
	for _, e := range focus {
		for _, ext := range e.Children("extension") {
			if ext.Children("url").Contains(url) {
				result = append(result, ext)
			}
		}
	}
	return result, nil
}

func ofTypeFn(ctx context.Context, focus Collection, args []Argument) (result Collection, err error) {
	for _, e := range focus {
		if args[0].Type.Matches(e.TypeInfo()) {
			result = append(result, e)
		}
	}
	return result, nil
}

func singleFn(ctx context.Context, focus Collection, args []Argument) (Collection, error) {
	if len(focus) > 1 {
		return nil, fmt.Errorf("expected single input element, got %d", len(focus))
	}
	return focus, nil
}

func firstFn(ctx context.Context, focus Collection, args []Argument) (Collection, error) {
	if len(focus) == 0 {
		return nil, nil
	}
	return focus[:1], nil
}

func lastFn(ctx context.Context, focus Collection, args []Argument) (Collection, error) {
	if len(focus) == 0 {
		return nil, nil
	}
	return focus[len(focus)-1:], nil
}

func tailFn(ctx context.Context, focus Collection, args []Argument) (Collection, error) {
	if len(focus) == 0 {
		return nil, nil
	}
	return focus[1:], nil
}

func takeFn(ctx context.Context, focus Collection, args []Argument) (Collection, error) {
	n, ok := argValue[Integer](args[0])
	if !ok || n <= 0 {
		return nil, nil
	}
	return focus[:min(int(n), len(focus))], nil
}

func skipFn(ctx context.Context, focus Collection, args []Argument) (Collection, error) {
	n, ok := argValue[Integer](args[0])
	if !ok || n <= 0 {
		return focus, nil
	}
	return focus[min(int(n), len(focus)):], nil
}

func intersectFn(ctx context.Context, focus Collection, args []Argument) (result Collection, err error) {
	other := args[0].Value
	for _, e := range focus.Distinct() {
		if other.Contains(e) {
			result = append(result, e)
		}
	}
	return result, nil
}

func excludeFn(ctx context.Context, focus Collection, args []Argument) (result Collection, err error) {
	other := args[0].Value
	for _, e := range focus {
		if !other.Contains(e) {
			result = append(result, e)
		}
	}
	return result, nil
}
