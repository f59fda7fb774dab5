package fhirpath

import "context"

func unionFn(ctx context.Context, focus Collection, args []Argument) (Collection, error) {
	return focus.Union(args[0].Value), nil
}

func combineFn(ctx context.Context, focus Collection, args []Argument) (Collection, error) {
	return focus.Combine(args[0].Value), nil
}

// unionOp implements '|', which takes both operands as arguments.
func unionOp(ctx context.Context, focus Collection, args []Argument) (Collection, error) {
	return args[0].Value.Union(args[1].Value), nil
}
