package fhirpath

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iimos/ucum"
	"github.com/iimos/ucum/ucumapd"
)

// timeUnitTable maps the bare calendar keywords accepted in quantity
// literals to their UCUM codes. It is never written after initialization.
var timeUnitTable = map[string]string{
	"year":         "a",
	"years":        "a",
	"month":        "mo",
	"months":       "mo",
	"week":         "wk",
	"weeks":        "wk",
	"day":          "d",
	"days":         "d",
	"hour":         "h",
	"hours":        "h",
	"minute":       "min",
	"minutes":      "min",
	"second":       "s",
	"seconds":      "s",
	"millisecond":  "ms",
	"milliseconds": "ms",
}

// TimeUnitCode resolves a bare calendar keyword like "days" to its UCUM code.
func TimeUnitCode(word string) (code string, ok bool) {
	code, ok = timeUnitTable[word]
	return code, ok
}

type calendarDuration struct {
	level int
	// per is zero for variable length units
	per time.Duration
}

var calendarUnits = map[string]calendarDuration{
	"a":   {level: levelYear},
	"mo":  {level: levelMonth},
	"wk":  {level: levelDay, per: 7 * 24 * time.Hour},
	"d":   {level: levelDay, per: 24 * time.Hour},
	"h":   {level: levelHour, per: time.Hour},
	"min": {level: levelMinute, per: time.Minute},
	"s":   {level: levelSecond, per: time.Second},
	"ms":  {level: levelMillisecond, per: time.Millisecond},
}

func calendarUnit(unit String) (calendarDuration, bool) {
	code := string(unit)
	if c, ok := TimeUnitCode(code); ok {
		code = c
	}
	u, ok := calendarUnits[code]
	return u, ok
}

var unitConverter = ucumapd.NewConverter(ucum.DefaultConverter)

// ValidUnit reports whether code is a well formed UCUM expression.
func ValidUnit(code string) bool {
	_, err := ucum.Parse([]byte(code))
	return err == nil
}

// normalizeUnit strips quotes and maps calendar keywords to UCUM codes.
func normalizeUnit(unit string) string {
	unit = strings.TrimSpace(unit)
	if len(unit) >= 2 && unit[0] == '\'' && unit[len(unit)-1] == '\'' {
		return unit[1 : len(unit)-1]
	}
	if code, ok := TimeUnitCode(unit); ok {
		return code
	}
	if unit == "" {
		return "1"
	}
	return unit
}

// ConvertUnit converts q to the given unit using UCUM. The unit may be a UCUM
// code, a quoted UCUM code or a calendar keyword.
//
// Decimal precision follows the apd.Context of ctx.
func ConvertUnit(ctx context.Context, q Quantity, unit string) (Quantity, error) {
	from := normalizeUnit(string(q.Unit))
	to := normalizeUnit(unit)
	if from == to {
		return Quantity{Value: q.Value, Unit: String(to)}, nil
	}
	if !ValidUnit(from) {
		return Quantity{}, fmt.Errorf("invalid UCUM unit %q", from)
	}
	if !ValidUnit(to) {
		return Quantity{}, fmt.Errorf("invalid UCUM unit %q", to)
	}

	converted, err := unitConverter.ConvDecimal(q.Value.Value, from, to, apdContext(ctx))
	if err != nil {
		return Quantity{}, fmt.Errorf("can not convert %v to %q: %w", q, to, err)
	}
	return Quantity{Value: Decimal{Value: converted}, Unit: String(to)}, nil
}
