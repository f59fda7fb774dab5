package fhirpath

import (
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/go-cmp/cmp"
)

func TestToInteger(t *testing.T) {
	runCallTests(t, []callTest{
		{name: "true", fn: "toInteger", focus: Collection{Boolean(true)}, want: Collection{Integer(1)}},
		{name: "false", fn: "toInteger", focus: Collection{Boolean(false)}, want: Collection{Integer(0)}},
		{name: "integer string", fn: "toInteger", focus: Collection{String("42")}, want: Collection{Integer(42)}},
		{name: "signed string", fn: "toInteger", focus: Collection{String("-7")}, want: Collection{Integer(-7)}},
		{name: "integer", fn: "toInteger", focus: Collection{Integer(3)}, want: Collection{Integer(3)}},
		{name: "decimal string fails", fn: "toInteger", focus: Collection{String("4.2")}, wantErr: true},
		{name: "text fails", fn: "toInteger", focus: Collection{String("abc")}, wantErr: true},
		{name: "out of range fails", fn: "toInteger", focus: Collection{String("3000000000")}, wantErr: true},
		{name: "fractional decimal", fn: "toInteger", focus: Collection{dec(t, "4.2")}, want: Collection{}},
		{name: "quantity", fn: "toInteger", focus: Collection{qty(t, "1", "mg")}, want: Collection{}},
		{name: "empty", fn: "toInteger", focus: Collection{}, want: Collection{}},
		{name: "many", fn: "toInteger", focus: Collection{Integer(1), Integer(2)}, want: Collection{}},
	})

	_, err := call(testContext(t), "toInteger", Collection{String("4.2")})
	if !IsConversionError(err) {
		t.Errorf("expected ConversionError, got %v", err)
	}
}

func TestToDecimal(t *testing.T) {
	runCallTests(t, []callTest{
		{name: "true", fn: "toDecimal", focus: Collection{Boolean(true)}, want: Collection{dec(t, "1.0")}},
		{name: "false", fn: "toDecimal", focus: Collection{Boolean(false)}, want: Collection{Integer(0)}},
		{name: "integer kept", fn: "toDecimal", focus: Collection{Integer(5)}, want: Collection{Integer(5)}},
		{name: "decimal", fn: "toDecimal", focus: Collection{dec(t, "1.50")}, want: Collection{dec(t, "1.50")}},
		{name: "string", fn: "toDecimal", focus: Collection{String("3.14")}, want: Collection{dec(t, "3.14")}},
		{name: "malformed string", fn: "toDecimal", focus: Collection{String("3.14.15")}, wantErr: true},
		{name: "date", fn: "toDecimal", focus: Collection{Date{Value: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Precision: DatePrecisionFull}}, want: Collection{}},
		{name: "empty", fn: "toDecimal", focus: Collection{}, want: Collection{}},
	})
}

func TestToString(t *testing.T) {
	date := Date{Value: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Precision: DatePrecisionFull}
	runCallTests(t, []callTest{
		{name: "string", fn: "toString", focus: Collection{String("a")}, want: Collection{String("a")}},
		{name: "integer", fn: "toString", focus: Collection{Integer(-12)}, want: Collection{String("-12")}},
		{name: "decimal keeps scale", fn: "toString", focus: Collection{dec(t, "1.50")}, want: Collection{String("1.50")}},
		{name: "boolean", fn: "toString", focus: Collection{Boolean(true)}, want: Collection{String("true")}},
		{name: "quantity", fn: "toString", focus: Collection{qty(t, "10", "mg")}, want: Collection{String("10 'mg'")}},
		{name: "date", fn: "toString", focus: Collection{date}, want: Collection{String("2024-05-01")}},
		{name: "many", fn: "toString", focus: Collection{String("a"), String("b")}, want: Collection{}},
	})

	// deterministic
	ctx := testContext(t)
	first, _ := call(ctx, "toString", Collection{dec(t, "0.1")})
	second, _ := call(ctx, "toString", Collection{dec(t, "0.1")})
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("toString not deterministic (-first +second):\n%s", diff)
	}
}

func TestToBoolean(t *testing.T) {
	runCallTests(t, []callTest{
		{name: "yes", fn: "toBoolean", focus: Collection{String("yes")}, want: Collection{Boolean(true)}},
		{name: "upper case", fn: "toBoolean", focus: Collection{String("TRUE")}, want: Collection{Boolean(true)}},
		{name: "0.0", fn: "toBoolean", focus: Collection{String("0.0")}, want: Collection{Boolean(false)}},
		{name: "unknown word", fn: "toBoolean", focus: Collection{String("maybe")}, want: Collection{}},
		{name: "one", fn: "toBoolean", focus: Collection{Integer(1)}, want: Collection{Boolean(true)}},
		{name: "two", fn: "toBoolean", focus: Collection{Integer(2)}, want: Collection{}},
		{name: "decimal zero", fn: "toBoolean", focus: Collection{dec(t, "0.0")}, want: Collection{Boolean(false)}},
	})
}

func TestToTemporal(t *testing.T) {
	runCallTests(t, []callTest{
		{
			name:  "date",
			fn:    "toDate",
			focus: Collection{String("2024-05")},
			want:  Collection{Date{Value: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Precision: DatePrecisionMonth}},
		},
		{
			name:  "date from date time string",
			fn:    "toDate",
			focus: Collection{String("2024-05-01T10:00:00Z")},
			want:  Collection{Date{Value: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), Precision: DatePrecisionFull}},
		},
		{
			name:  "date time",
			fn:    "toDateTime",
			focus: Collection{String("2024-05-01T10:30")},
			want:  Collection{DateTime{Value: time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC), Precision: DateTimePrecisionMinute}},
		},
		{
			name:  "time",
			fn:    "toTime",
			focus: Collection{String("10:30:15")},
			want:  Collection{Time{Value: time.Date(0, 1, 1, 10, 30, 15, 0, time.UTC), Precision: TimePrecisionSecond}},
		},
		{name: "unparseable date", fn: "toDate", focus: Collection{String("May first")}, want: Collection{}},
		{name: "unparseable time", fn: "toTime", focus: Collection{String("25:99")}, want: Collection{}},
		{name: "integer", fn: "toDateTime", focus: Collection{Integer(2024)}, want: Collection{}},
		{name: "many dates", fn: "toDate", focus: Collection{String("2024"), String("2025")}, wantErr: true},
		{name: "empty", fn: "toTime", focus: Collection{}, want: Collection{}},
	})
}

func TestToQuantity(t *testing.T) {
	runCallTests(t, []callTest{
		{name: "integer", fn: "toQuantity", focus: Collection{Integer(5)}, want: Collection{qty(t, "5", "1")}},
		{name: "boolean", fn: "toQuantity", focus: Collection{Boolean(true)}, want: Collection{qty(t, "1", "1")}},
		{name: "calendar keyword", fn: "toQuantity", focus: Collection{String("5 days")}, want: Collection{qty(t, "5", "d")}},
		{name: "quoted unit", fn: "toQuantity", focus: Collection{String("4.5 'mg'")}, want: Collection{qty(t, "4.5", "mg")}},
		{name: "bare ucum word", fn: "toQuantity", focus: Collection{String("10 mg")}, want: Collection{}},
		{name: "text", fn: "toQuantity", focus: Collection{String("abc")}, want: Collection{}},
		{name: "date", fn: "toQuantity", focus: Collection{Date{Value: time.Now(), Precision: DatePrecisionYear}}, want: Collection{}},
		{name: "many", fn: "toQuantity", focus: Collection{Integer(1), Integer(2)}, wantErr: true},
		{
			name:   "same unit",
			fn:     "toQuantity",
			focus:  Collection{qty(t, "3", "d")},
			params: []Expression{lit{String("days")}},
			want:   Collection{qty(t, "3", "d")},
		},
		{
			name:   "incompatible unit",
			fn:     "toQuantity",
			focus:  Collection{qty(t, "3", "mg")},
			params: []Expression{lit{String("m")}},
			want:   Collection{},
		},
	})
}

func TestToQuantityUnitRoundTrip(t *testing.T) {
	ctx := testContext(t)
	start := qty(t, "10", "mg")

	grams, err := call(ctx, "toQuantity", Collection{start}, lit{String("g")})
	if err != nil {
		t.Fatal(err)
	}
	if len(grams) != 1 {
		t.Fatalf("expected one quantity, got %v", grams)
	}
	g := grams[0].(Quantity)
	if g.Unit != "g" || g.Value.Value.Cmp(apd.New(1, -2)) != 0 {
		t.Errorf("10 'mg' in g: got %v", g)
	}

	back, err := call(ctx, "toQuantity", grams, lit{String("mg")})
	if err != nil {
		t.Fatal(err)
	}
	if eq, ok := back[0].Equal(start); !ok || !eq {
		t.Errorf("round trip: got %v, want %v", back[0], start)
	}
}

func TestConvertsTo(t *testing.T) {
	runCallTests(t, []callTest{
		{name: "integer string", fn: "convertsToInteger", focus: Collection{String("42")}, want: Collection{Boolean(true)}},
		{name: "decimal string to integer", fn: "convertsToInteger", focus: Collection{String("4.2")}, want: Collection{Boolean(false)}},
		{name: "decimal to integer", fn: "convertsToInteger", focus: Collection{dec(t, "4.2")}, want: Collection{Boolean(false)}},
		{name: "integer to decimal", fn: "convertsToDecimal", focus: Collection{Integer(1)}, want: Collection{Boolean(true)}},
		{name: "false to decimal", fn: "convertsToDecimal", focus: Collection{Boolean(false)}, want: Collection{Boolean(true)}},
		{name: "text to decimal", fn: "convertsToDecimal", focus: Collection{String("x")}, want: Collection{Boolean(false)}},
		{name: "anything to string", fn: "convertsToString", focus: Collection{qty(t, "1", "mg")}, want: Collection{Boolean(true)}},
		{name: "boolean word", fn: "convertsToBoolean", focus: Collection{String("no")}, want: Collection{Boolean(true)}},
		{name: "other word", fn: "convertsToBoolean", focus: Collection{String("nope")}, want: Collection{Boolean(false)}},
		{name: "date", fn: "convertsToDate", focus: Collection{String("2024-02-29")}, want: Collection{Boolean(true)}},
		{name: "invalid date", fn: "convertsToDate", focus: Collection{String("2023-02-29")}, want: Collection{Boolean(false)}},
		{name: "date time", fn: "convertsToDateTime", focus: Collection{String("2024-01-01T00:00:00Z")}, want: Collection{Boolean(true)}},
		{name: "time", fn: "convertsToTime", focus: Collection{String("12:00")}, want: Collection{Boolean(true)}},
		{name: "quantity", fn: "convertsToQuantity", focus: Collection{String("1 'kg'")}, want: Collection{Boolean(true)}},
		{name: "bare ucum word", fn: "convertsToQuantity", focus: Collection{String("10 mg")}, want: Collection{Boolean(false)}},
		{
			name:   "convertible unit",
			fn:     "convertsToQuantity",
			focus:  Collection{qty(t, "1", "kg")},
			params: []Expression{lit{String("g")}},
			want:   Collection{Boolean(true)},
		},
		{
			name:   "inconvertible unit",
			fn:     "convertsToQuantity",
			focus:  Collection{qty(t, "1", "kg")},
			params: []Expression{lit{String("s")}},
			want:   Collection{Boolean(false)},
		},
		{name: "empty", fn: "convertsToInteger", focus: Collection{}, want: Collection{Boolean(false)}},
		{name: "many temporal", fn: "convertsToDate", focus: Collection{String("2024"), String("2025")}, want: Collection{Boolean(false)}},
	})
}

func TestParseQuantityLiteral(t *testing.T) {
	tests := []struct {
		in     string
		want   Quantity
		wantOk bool
	}{
		{in: "5", want: qty(t, "5", "1"), wantOk: true},
		{in: "-1.25", want: qty(t, "-1.25", "1"), wantOk: true},
		{in: "4.5 'mg'", want: qty(t, "4.5", "mg"), wantOk: true},
		{in: "4.5'mg'", want: qty(t, "4.5", "mg"), wantOk: true},
		{in: "1 'kg/m2'", want: qty(t, "1", "kg/m2"), wantOk: true},
		{in: "3 days", want: qty(t, "3", "d"), wantOk: true},
		{in: "1 year", want: qty(t, "1", "a"), wantOk: true},
		{in: "2 milliseconds", want: qty(t, "2", "ms"), wantOk: true},
		{in: "10 mg", wantOk: false},
		{in: "'mg'", wantOk: false},
		{in: "1.", wantOk: false},
		{in: "abc", wantOk: false},
		{in: "", wantOk: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseQuantityLiteral(tt.in)
			if ok != tt.wantOk {
				t.Fatalf("ParseQuantityLiteral(%q) ok = %v, want %v", tt.in, ok, tt.wantOk)
			}
			if !ok {
				return
			}
			if diff := cmp.Diff(tt.want, got, cmpDecimal); diff != "" {
				t.Errorf("ParseQuantityLiteral(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestImplicitConversion(t *testing.T) {
	tests := []struct {
		name    string
		element Element
		wantOk  bool
		wantErr bool
	}{
		{name: "integer to decimal", element: Integer(1), wantOk: true},
		{name: "decimal to decimal", element: dec(t, "1.5"), wantOk: true},
		{name: "string to decimal", element: String("1.5"), wantErr: true},
		{name: "boolean to decimal", element: Boolean(true), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, err := tt.element.ToDecimal(false)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if ok != tt.wantOk {
				t.Errorf("ok = %v, want %v", ok, tt.wantOk)
			}
		})
	}

	// explicit conversions never fail for unsupported pairs
	if _, ok, err := (Boolean(true)).ToDate(true); ok || err != nil {
		t.Errorf("Boolean.ToDate(true) = %v, %v", ok, err)
	}
}
