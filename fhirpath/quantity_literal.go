package fhirpath

import (
	"regexp"

	"github.com/cockroachdb/apd/v3"
)

// quantityLiteralRegex captures the magnitude, a quoted UCUM code or a bare calendar keyword.
var quantityLiteralRegex = regexp.MustCompile(`^((\+|-)?\d+(\.\d+)?)\s*(('[^']+')|([a-zA-Z]+))?$`)

const (
	quantityGroupValue  = 1
	quantityGroupQuoted = 5
	quantityGroupWord   = 6
)

// ParseQuantityLiteral parses strings like "5", "4.5 'mg'" or "3 days".
//
// A quoted unit is taken verbatim as UCUM code. A bare word must be a calendar
// keyword from the time unit table, otherwise the literal is rejected even
// though it is well formed. Without a unit the quantity is dimensionless ("1").
func ParseQuantityLiteral(s string) (Quantity, bool) {
	m := quantityLiteralRegex.FindStringSubmatch(s)
	if m == nil {
		return Quantity{}, false
	}

	unit := "1"
	switch {
	case m[quantityGroupQuoted] != "":
		quoted := m[quantityGroupQuoted]
		unit = quoted[1 : len(quoted)-1]
	case m[quantityGroupWord] != "":
		code, ok := TimeUnitCode(m[quantityGroupWord])
		if !ok {
			return Quantity{}, false
		}
		unit = code
	}

	value, _, err := apd.NewFromString(m[quantityGroupValue])
	if err != nil {
		return Quantity{}, false
	}
	return Quantity{Value: Decimal{Value: value}, Unit: String(unit)}, true
}
