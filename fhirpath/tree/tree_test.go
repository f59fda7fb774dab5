package tree_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damedic/fhirpath-core/fhirpath"
	"github.com/damedic/fhirpath-core/fhirpath/tree"
	"github.com/damedic/fhirpath-core/internal/testutil"
)

func humanName(use string, given ...string) fhirpath.Object {
	names := make([]fhirpath.Element, len(given))
	for i, g := range given {
		names[i] = fhirpath.String(g)
	}
	return fhirpath.Object{
		Type: fhirpath.TypeInfo{Namespace: "FHIR", Name: "HumanName"},
		Fields: []fhirpath.Field{
			fhirpath.NewField("use", fhirpath.String(use)),
			fhirpath.NewField("given", names...),
		},
	}
}

func patient() fhirpath.Object {
	return fhirpath.Object{
		Type: fhirpath.TypeInfo{Namespace: "FHIR", Name: "Patient"},
		Fields: []fhirpath.Field{
			fhirpath.NewField("active", fhirpath.Boolean(true)),
			fhirpath.NewField("name", humanName("official", "Peter", "James"), humanName("nickname", "Jim")),
			fhirpath.NewField("birthDate", fhirpath.Date{
				Value:     time.Date(1974, 12, 25, 0, 0, 0, 0, time.UTC),
				Precision: fhirpath.DatePrecisionFull,
			}),
		},
	}
}

func testContext(t *testing.T) context.Context {
	return fhirpath.WithLogger(context.Background(), testutil.NewTestLogger(t))
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name string
		expr fhirpath.Expression
		want string
	}{
		{
			name: "path starting with the root type",
			expr: tree.Path("Patient", "name", "given"),
			want: "{ 'Peter', 'James', 'Jim' }",
		},
		{
			name: "where",
			expr: tree.Chain{
				tree.Member{Name: "name"},
				tree.Func("where", tree.Binary{Op: "=", Left: tree.Member{Name: "use"}, Right: tree.Str("official")}),
				tree.Member{Name: "given"},
			},
			want: "{ 'Peter', 'James' }",
		},
		{
			name: "select with $this",
			expr: tree.Chain{
				tree.Path("name", "given"),
				tree.Func("select", tree.Binary{Op: "+", Left: tree.This{}, Right: tree.Str("!")}),
			},
			want: "{ 'Peter!', 'James!', 'Jim!' }",
		},
		{
			name: "select with $index",
			expr: tree.Chain{tree.Member{Name: "name"}, tree.Func("select", tree.Index{})},
			want: "{ 0, 1 }",
		},
		{
			name: "aggregate with $total",
			expr: tree.Invocation{
				Target: tree.Lit(fhirpath.Integer(1), fhirpath.Integer(2), fhirpath.Integer(3)),
				Name:   "aggregate",
				Params: []fhirpath.Expression{tree.Binary{Op: "+", Left: tree.This{}, Right: tree.Total{}}, tree.Int(0)},
			},
			want: "{ 6 }",
		},
		{
			name: "type operator",
			expr: tree.Binary{Op: "isOp", Left: tree.Member{Name: "birthDate"}, Right: tree.Identifier{Name: "Date"}},
			want: "{ true }",
		},
		{
			name: "conversion on a target",
			expr: tree.Invocation{Target: tree.Str("5 days"), Name: "toQuantity"},
			want: "{ 5 'd' }",
		},
		{
			name: "empty literal",
			expr: tree.Chain{tree.Empty, tree.Func("exists")},
			want: "{ false }",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tree.Evaluate(testContext(t), patient(), tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	tests := []struct {
		name string
		expr fhirpath.Expression
	}{
		{name: "$index outside a function", expr: tree.Index{}},
		{name: "$total outside aggregate", expr: tree.Chain{tree.Member{Name: "name"}, tree.Func("select", tree.Total{})}},
		{name: "identifier", expr: tree.Identifier{Name: "Patient"}},
		{name: "unknown function", expr: tree.Func("frobnicate")},
		{name: "error stops the chain", expr: tree.Chain{tree.Func("frobnicate"), tree.Member{Name: "name"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tree.Evaluate(testContext(t), patient(), tt.expr)
			assert.Error(t, err)
		})
	}

	_, err := tree.Evaluate(testContext(t), patient(), tree.Func("frobnicate"))
	assert.True(t, fhirpath.IsStructuralError(err))
}

func TestEvaluateWithoutRoot(t *testing.T) {
	got, err := tree.Evaluate(testContext(t), nil, tree.Func("empty"))
	require.NoError(t, err)
	assert.Equal(t, "{ true }", got.String())
}

func TestThisWithoutScope(t *testing.T) {
	focus := fhirpath.Collection{fhirpath.Integer(1)}
	got, err := tree.This{}.Evaluate(testContext(t), nil, focus)
	require.NoError(t, err)
	assert.Equal(t, focus, got)
}

func TestString(t *testing.T) {
	tests := []struct {
		expr fhirpath.Expression
		want string
	}{
		{
			expr: tree.Chain{
				tree.Member{Name: "name"},
				tree.Func("where", tree.Binary{Op: "=", Left: tree.Member{Name: "use"}, Right: tree.Str("official")}),
				tree.Member{Name: "given"},
			},
			want: "name.where(use = 'official').given",
		},
		{
			expr: tree.Binary{Op: "isOp", Left: tree.Member{Name: "value"}, Right: tree.Identifier{Name: "Quantity"}},
			want: "value is Quantity",
		},
		{
			expr: tree.Invocation{Target: tree.Int(1), Name: "aggregate", Params: []fhirpath.Expression{tree.Total{}, tree.Empty}},
			want: "1.aggregate($total, {})",
		},
		{
			expr: tree.Func("select", tree.This{}, tree.Index{}),
			want: "select($this, $index)",
		},
		{
			expr: tree.Lit(fhirpath.Boolean(true), fhirpath.Integer(2)),
			want: "{ true, 2 }",
		},
		{
			expr: tree.Literal{Values: fhirpath.Collection{fhirpath.Integer(2)}, Text: "0002"},
			want: "0002",
		},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.expr.String())
		})
	}
}
