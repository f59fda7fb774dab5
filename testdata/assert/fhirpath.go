package assert

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/damedic/fhirpath-core/fhirpath"
)

// FHIRPathEqual compares type and rendering of every element, so 1 and 1.0
// or 1 and '1' are reported as different.
func FHIRPathEqual(t *testing.T, expected, actual fhirpath.Collection) {
	t.Helper()
	if diff := cmp.Diff(render(expected), render(actual)); diff != "" {
		t.Errorf("result mismatch (-expected +actual):\n%s", diff)
	}
}

func render(c fhirpath.Collection) []string {
	rendered := make([]string, len(c))
	for i, e := range c {
		rendered[i] = e.TypeInfo().QualifiedName().String() + " " + e.String()
	}
	return rendered
}
