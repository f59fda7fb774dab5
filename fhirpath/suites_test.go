package fhirpath_test

import (
	"context"
	"testing"

	"github.com/damedic/fhirpath-core/fhirpath"
	"github.com/damedic/fhirpath-core/internal/testutil"
	"github.com/damedic/fhirpath-core/testdata"
	"github.com/damedic/fhirpath-core/testdata/assert"
)

func TestConversionSuites(t *testing.T) {
	suites, err := testdata.GetConversionSuites()
	if err != nil {
		t.Fatal(err)
	}

	for _, suite := range suites.Suites {
		t.Run(suite.Name, func(t *testing.T) {
			for _, tc := range suite.Cases {
				t.Run(tc.Name, func(t *testing.T) {
					runCase(t, tc)
				})
			}
		})
	}
}

func runCase(t *testing.T, tc testdata.Case) {
	input, err := testdata.Collection(tc.Input)
	if err != nil {
		t.Fatalf("input: %v", err)
	}
	params, err := tc.Params()
	if err != nil {
		t.Fatal(err)
	}

	ctx := fhirpath.WithLogger(context.Background(), testutil.NewTestLogger(t))
	got, err := fhirpath.Call(ctx, tc.Function, nil, input, params)

	switch tc.Error {
	case "":
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want, err := testdata.Collection(tc.Want)
		if err != nil {
			t.Fatalf("want: %v", err)
		}
		assert.FHIRPathEqual(t, want, got)
	case testdata.ErrorConversion:
		if !fhirpath.IsConversionError(err) {
			t.Errorf("expected conversion error, got %v (result %v)", err, got)
		}
	case testdata.ErrorStructural:
		if !fhirpath.IsStructuralError(err) {
			t.Errorf("expected structural error, got %v (result %v)", err, got)
		}
	default:
		if err == nil {
			t.Errorf("expected error, got %v", got)
		}
	}
}
