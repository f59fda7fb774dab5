package fhirpath

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/go-cmp/cmp"

	"github.com/damedic/fhirpath-core/internal/testutil"
)

var fixedEvaluationInstant = time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)

// decimals are equal if they render the same, so 1.0 and 1 differ
var cmpDecimal = cmp.Comparer(func(a, b Decimal) bool {
	return a.String() == b.String()
})

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx := context.Background()
	ctx = WithLogger(ctx, testutil.NewTestLogger(t))
	ctx = WithAPDContext(ctx, apd.BaseContext.WithPrecision(20))
	ctx = WithEvaluationTime(ctx, fixedEvaluationInstant)
	return ctx
}

// lit is an expression evaluating to fixed values.
type lit []Element

func (l lit) Evaluate(ctx context.Context, root Element, focus Collection) (Collection, error) {
	return Collection(l), nil
}

func (l lit) String() string {
	if len(l) == 1 {
		return l[0].String()
	}
	return Collection(l).String()
}

// ident is the bare text of a type argument.
type ident string

func (i ident) Evaluate(ctx context.Context, root Element, focus Collection) (Collection, error) {
	return nil, nil
}

func (i ident) String() string {
	return string(i)
}

// this evaluates to its focus, like $this inside a lambda.
type this struct{}

func (this) Evaluate(ctx context.Context, root Element, focus Collection) (Collection, error) {
	return focus, nil
}

func (this) String() string {
	return "$this"
}

// exprFunc adapts a Go function computing from the focus.
type exprFunc func(ctx context.Context, focus Collection) (Collection, error)

func (f exprFunc) Evaluate(ctx context.Context, root Element, focus Collection) (Collection, error) {
	return f(ctx, focus)
}

func (f exprFunc) String() string {
	return "<func>"
}

// call invokes name from the default registry.
func call(ctx context.Context, name string, focus Collection, params ...Expression) (Collection, error) {
	return Call(ctx, name, nil, focus, params)
}

func dec(t testing.TB, s string) Decimal {
	t.Helper()
	d, _, err := apd.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid decimal %q: %v", s, err)
	}
	return Decimal{Value: d}
}

func qty(t testing.TB, value, unit string) Quantity {
	t.Helper()
	return Quantity{Value: dec(t, value), Unit: String(unit)}
}

type callTest struct {
	name    string
	fn      string
	focus   Collection
	params  []Expression
	want    Collection
	wantErr bool
}

func runCallTests(t *testing.T, tests []callTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := call(testContext(t), tt.fn, tt.focus, tt.params...)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("%s: expected error, got %v", tt.fn, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", tt.fn, err)
			}
			if diff := cmp.Diff(tt.want, got, cmpDecimal); diff != "" {
				t.Errorf("%s mismatch (-want +got):\n%s", tt.fn, diff)
			}
		})
	}
}
