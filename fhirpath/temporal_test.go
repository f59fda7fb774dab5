package fhirpath_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/go-cmp/cmp"

	"github.com/damedic/fhirpath-core/fhirpath"
)

func quantity(value int64, exp int32, unit fhirpath.String) fhirpath.Quantity {
	return fhirpath.Quantity{Value: fhirpath.Decimal{Value: apd.New(value, exp)}, Unit: unit}
}

func TestDateArithmetic(t *testing.T) {
	ctx := context.Background()
	day := func(y int, m time.Month, d int) fhirpath.Date {
		return fhirpath.Date{Value: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Precision: fhirpath.DatePrecisionFull}
	}

	tests := []struct {
		name     string
		date     fhirpath.Date
		quantity fhirpath.Quantity
		wantAdd  fhirpath.Date
		wantSub  fhirpath.Date
		wantErr  bool
	}{
		{
			name:     "one year",
			date:     day(2020, 1, 1),
			quantity: quantity(1, 0, "year"),
			wantAdd:  day(2021, 1, 1),
			wantSub:  day(2019, 1, 1),
		},
		{
			name:     "one month with month end adjustment",
			date:     day(2020, 1, 31),
			quantity: quantity(1, 0, "month"),
			wantAdd:  day(2020, 2, 29),
			wantSub:  day(2019, 12, 31),
		},
		{
			name:     "ucum week",
			date:     day(2020, 1, 1),
			quantity: quantity(1, 0, "wk"),
			wantAdd:  day(2020, 1, 8),
			wantSub:  day(2019, 12, 25),
		},
		{
			name:     "hours in whole days",
			date:     day(2020, 1, 1),
			quantity: quantity(48, 0, "hours"),
			wantAdd:  day(2020, 1, 3),
			wantSub:  day(2019, 12, 30),
		},
		{
			name:     "decimal year is truncated",
			date:     day(2020, 1, 1),
			quantity: quantity(15, -1, "year"),
			wantAdd:  day(2021, 1, 1),
			wantSub:  day(2019, 1, 1),
		},
		{
			name:     "non time unit",
			date:     day(2020, 1, 1),
			quantity: quantity(1, 0, "mg"),
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.date.Add(ctx, tt.quantity)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.wantAdd, got); diff != "" {
				t.Errorf("Add() mismatch (-want +got):\n%s", diff)
			}

			got, err = tt.date.Subtract(ctx, tt.quantity)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.wantSub, got); diff != "" {
				t.Errorf("Subtract() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTimeArithmetic(t *testing.T) {
	ctx := context.Background()
	clock := func(h, m, s, ms int, precision fhirpath.TimePrecision) fhirpath.Time {
		return fhirpath.Time{Value: time.Date(0, 1, 1, h, m, s, ms*int(time.Millisecond), time.UTC), Precision: precision}
	}

	tests := []struct {
		name     string
		time     fhirpath.Time
		quantity fhirpath.Quantity
		wantAdd  fhirpath.Time
		wantErr  bool
	}{
		{
			name:     "one hour",
			time:     clock(10, 0, 0, 0, fhirpath.TimePrecisionSecond),
			quantity: quantity(1, 0, "hour"),
			wantAdd:  clock(11, 0, 0, 0, fhirpath.TimePrecisionSecond),
		},
		{
			name:     "wraps around midnight",
			time:     clock(23, 30, 0, 0, fhirpath.TimePrecisionMinute),
			quantity: quantity(1, 0, "h"),
			wantAdd:  clock(0, 30, 0, 0, fhirpath.TimePrecisionMinute),
		},
		{
			name:     "fractional seconds",
			time:     clock(10, 0, 0, 0, fhirpath.TimePrecisionMillisecond),
			quantity: quantity(15, -1, "s"),
			wantAdd:  clock(10, 0, 1, 500, fhirpath.TimePrecisionMillisecond),
		},
		{
			name:     "days are not allowed",
			time:     clock(10, 0, 0, 0, fhirpath.TimePrecisionSecond),
			quantity: quantity(1, 0, "day"),
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.time.Add(ctx, tt.quantity)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.wantAdd, got); diff != "" {
				t.Errorf("Add() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDateTimeArithmetic(t *testing.T) {
	ctx := context.Background()
	start := fhirpath.DateTime{
		Value:       time.Date(2020, 1, 31, 12, 0, 0, 0, time.UTC),
		Precision:   fhirpath.DateTimePrecisionSecond,
		HasTimeZone: true,
	}

	tests := []struct {
		name     string
		quantity fhirpath.Quantity
		want     time.Time
	}{
		{name: "one month", quantity: quantity(1, 0, "months"), want: time.Date(2020, 2, 29, 12, 0, 0, 0, time.UTC)},
		{name: "one hour", quantity: quantity(1, 0, "hour"), want: time.Date(2020, 1, 31, 13, 0, 0, 0, time.UTC)},
		{name: "minus ten minutes", quantity: quantity(-10, 0, "min"), want: time.Date(2020, 1, 31, 11, 50, 0, 0, time.UTC)},
		{name: "milliseconds", quantity: quantity(250, 0, "ms"), want: time.Date(2020, 1, 31, 12, 0, 0, 250*int(time.Millisecond), time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := start.Add(ctx, tt.quantity)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			want := fhirpath.DateTime{Value: tt.want, Precision: start.Precision, HasTimeZone: true}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Add() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseTemporal(t *testing.T) {
	tests := []struct {
		name    string
		parse   func(string) (fhirpath.Element, error)
		input   string
		want    string
		wantErr bool
	}{
		{name: "year", parse: parseDate, input: "@2024", want: "2024"},
		{name: "month", parse: parseDate, input: "2024-05", want: "2024-05"},
		{name: "invalid day", parse: parseDate, input: "2024-02-30", wantErr: true},
		{name: "time hour", parse: parseTime, input: "@T14", want: "14"},
		{name: "time millis", parse: parseTime, input: "14:30:00.123", want: "14:30:00.123"},
		{name: "time with zone", parse: parseTime, input: "14:30Z", wantErr: true},
		{name: "date time partial date with time", parse: parseDateTime, input: "2024-05T10:00", wantErr: true},
		{name: "date time to the hour", parse: parseDateTime, input: "2024-05-01T10+02:00", want: "2024-05-01T10+02:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got.String() != tt.want {
				t.Errorf("String() = %q, want %q", got.String(), tt.want)
			}
		})
	}
}

func parseDate(s string) (fhirpath.Element, error) {
	return fhirpath.ParseDate(s)
}

func parseTime(s string) (fhirpath.Element, error) {
	return fhirpath.ParseTime(s)
}

func parseDateTime(s string) (fhirpath.Element, error) {
	return fhirpath.ParseDateTime(s)
}

func TestDateTimeToStringPreservesTimezone(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "positive offset",
			input:    "@2024-01-15T06:30:00.000+11:00",
			expected: "2024-01-15T06:30:00.000+11:00",
		},
		{
			name:     "negative offset",
			input:    "@2024-01-15T06:30:00.000-05:00",
			expected: "2024-01-15T06:30:00.000-05:00",
		},
		{
			name:     "UTC with Z",
			input:    "@2024-01-15T06:30:00.000Z",
			expected: "2024-01-15T06:30:00.000Z",
		},
		{
			name:     "floating datetime",
			input:    "@2024-01-15T06:30:00.000",
			expected: "2024-01-15T06:30:00.000",
		},
		{
			name:     "explicit +00:00 renders as Z",
			input:    "@2024-01-15T06:30:00.000+00:00",
			expected: "2024-01-15T06:30:00.000Z",
		},
		{
			name:     "date only",
			input:    "@2024-01-15",
			expected: "2024-01-15",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dt, err := fhirpath.ParseDateTime(tt.input)
			if err != nil {
				t.Fatalf("ParseDateTime(%q) failed: %v", tt.input, err)
			}
			if got := dt.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestTemporalComparison(t *testing.T) {
	mustDateTime := func(s string) fhirpath.DateTime {
		dt, err := fhirpath.ParseDateTime(s)
		if err != nil {
			t.Fatal(err)
		}
		return dt
	}

	tests := []struct {
		name   string
		left   fhirpath.DateTime
		right  fhirpath.DateTime
		want   int
		wantOk bool
	}{
		{name: "same instant in different zones", left: mustDateTime("2024-01-01T12:00:00Z"), right: mustDateTime("2024-01-01T13:00:00+01:00"), want: 0, wantOk: true},
		{name: "earlier", left: mustDateTime("2024-01-01"), right: mustDateTime("2024-01-02"), want: -1, wantOk: true},
		{name: "different precision", left: mustDateTime("2024-01"), right: mustDateTime("2024-01-15"), wantOk: false},
		{name: "decided before precision differs", left: mustDateTime("2023"), right: mustDateTime("2024-01-15"), want: -1, wantOk: true},
		{name: "seconds and milliseconds", left: mustDateTime("2024-01-01T10:00:00Z"), right: mustDateTime("2024-01-01T10:00:00.000Z"), want: 0, wantOk: true},
		{name: "zoned and floating", left: mustDateTime("2024-01-01T10:00:00Z"), right: mustDateTime("2024-01-01T10:00:00"), wantOk: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := tt.left.Cmp(tt.right)
			if err != nil {
				t.Fatal(err)
			}
			if ok != tt.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOk)
			}
			if ok && got != tt.want {
				t.Errorf("Cmp() = %d, want %d", got, tt.want)
			}
		})
	}
}
