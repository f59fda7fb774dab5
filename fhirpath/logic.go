package fhirpath

import "context"

// The boolean operators use three-valued logic: an empty operand is unknown,
// which still determines the result in some cases, e.g. true or {} is true.

func logicOperands(args []Argument) (l Boolean, lKnown bool, r Boolean, rKnown bool) {
	l, lKnown = argValue[Boolean](args[0])
	r, rKnown = argValue[Boolean](args[1])
	return l, lKnown, r, rKnown
}

func orOp(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	l, lKnown, r, rKnown := logicOperands(args)
	switch {
	case (lKnown && bool(l)) || (rKnown && bool(r)):
		return Boolean(true), nil
	case lKnown && rKnown:
		return Boolean(false), nil
	}
	return nil, nil
}

func andOp(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	l, lKnown, r, rKnown := logicOperands(args)
	switch {
	case (lKnown && !bool(l)) || (rKnown && !bool(r)):
		return Boolean(false), nil
	case lKnown && rKnown:
		return Boolean(true), nil
	}
	return nil, nil
}

func xorOp(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	l, lKnown, r, rKnown := logicOperands(args)
	if lKnown && rKnown {
		return Boolean(l != r), nil
	}
	return nil, nil
}

func impliesOp(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	l, lKnown, r, rKnown := logicOperands(args)
	switch {
	case lKnown && !bool(l):
		return Boolean(true), nil
	case rKnown && bool(r):
		return Boolean(true), nil
	case lKnown && rKnown:
		return Boolean(false), nil
	}
	return nil, nil
}
