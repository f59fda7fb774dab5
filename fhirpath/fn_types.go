package fhirpath

import (
	"context"
	"fmt"
)

var simpleTypeInfo = TypeInfo{
	Namespace: "System",
	Name:      "SimpleTypeInfo",
	BaseType:  TypeSpecifier{Namespace: "System", Name: "Any"},
}

// typeInfoObject reflects a TypeInfo as a structured value, as returned by type().
func typeInfoObject(info TypeInfo) Object {
	return Object{
		Type: simpleTypeInfo,
		Fields: []Field{
			NewField("namespace", String(info.Namespace)),
			NewField("name", String(info.Name)),
			NewField("baseType", String(info.BaseType.String())),
		},
	}
}

func typeFn(ctx context.Context, focus Collection, args []Argument) (result Collection, err error) {
	for _, e := range focus {
		result = append(result, typeInfoObject(e.TypeInfo()))
	}
	return result, nil
}

func typeOperand(op string, c Collection) (Element, error) {
	if len(c) > 1 {
		return nil, fmt.Errorf("%s: expected single input element, got %d", op, len(c))
	}
	if len(c) == 0 {
		return nil, nil
	}
	return c[0], nil
}

func isFn(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	e, err := typeOperand("is", focus)
	if e == nil {
		return nil, err
	}
	return Boolean(args[0].Type.Matches(e.TypeInfo())), nil
}

func asFn(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	e, err := typeOperand("as", focus)
	if e == nil || !args[0].Type.Matches(e.TypeInfo()) {
		return nil, err
	}
	return e, nil
}

// The operator forms take the operand as first argument instead of the focus.

func isOp(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	return isFn(ctx, args[0].Value, args[1:])
}

func asOp(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	return asFn(ctx, args[0].Value, args[1:])
}
