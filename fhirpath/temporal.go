package fhirpath

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
)

const (
	DateFormatOnlyYear  = "2006"
	DateFormatUpToMonth = "2006-01"
	DateFormatFull      = "2006-01-02"

	TimeFormatOnlyHour     = "15"
	TimeFormatOnlyHourTZ   = "15Z07:00"
	TimeFormatUpToMinute   = "15:04"
	TimeFormatUpToMinuteTZ = "15:04Z07:00"
	TimeFormatUpToSecond   = "15:04:05"
	TimeFormatUpToSecondTZ = "15:04:05Z07:00"
	TimeFormatFull         = "15:04:05.000"
	TimeFormatFullTZ       = "15:04:05.000Z07:00"

	timeFormatParseFull   = "15:04:05.999999999"
	timeFormatParseFullTZ = "15:04:05.999999999Z07:00"
)

type DatePrecision string

const (
	DatePrecisionYear  DatePrecision = "year"
	DatePrecisionMonth DatePrecision = "month"
	DatePrecisionFull  DatePrecision = "full"
)

type TimePrecision string

const (
	TimePrecisionHour        TimePrecision = "hour"
	TimePrecisionMinute      TimePrecision = "minute"
	TimePrecisionSecond      TimePrecision = "second"
	TimePrecisionMillisecond TimePrecision = "millisecond"
	TimePrecisionFull                      = TimePrecisionMillisecond
)

type DateTimePrecision string

const (
	DateTimePrecisionYear        DateTimePrecision = "year"
	DateTimePrecisionMonth       DateTimePrecision = "month"
	DateTimePrecisionDay         DateTimePrecision = "day"
	DateTimePrecisionHour        DateTimePrecision = "hour"
	DateTimePrecisionMinute      DateTimePrecision = "minute"
	DateTimePrecisionSecond      DateTimePrecision = "second"
	DateTimePrecisionMillisecond DateTimePrecision = "millisecond"
	DateTimePrecisionFull                          = DateTimePrecisionMillisecond
)

// temporal levels, from coarse to fine
const (
	levelYear = iota
	levelMonth
	levelDay
	levelHour
	levelMinute
	levelSecond
	levelMillisecond
)

func (p DatePrecision) level() int {
	switch p {
	case DatePrecisionYear:
		return levelYear
	case DatePrecisionMonth:
		return levelMonth
	default:
		return levelDay
	}
}

func (p TimePrecision) level() int {
	switch p {
	case TimePrecisionHour:
		return levelHour
	case TimePrecisionMinute:
		return levelMinute
	case TimePrecisionSecond:
		return levelSecond
	default:
		return levelMillisecond
	}
}

func (p DateTimePrecision) level() int {
	switch p {
	case DateTimePrecisionYear:
		return levelYear
	case DateTimePrecisionMonth:
		return levelMonth
	case DateTimePrecisionDay:
		return levelDay
	case DateTimePrecisionHour:
		return levelHour
	case DateTimePrecisionMinute:
		return levelMinute
	case DateTimePrecisionSecond:
		return levelSecond
	default:
		return levelMillisecond
	}
}

func component(t time.Time, level int) int {
	switch level {
	case levelYear:
		return t.Year()
	case levelMonth:
		return int(t.Month())
	case levelDay:
		return t.Day()
	case levelHour:
		return t.Hour()
	case levelMinute:
		return t.Minute()
	case levelSecond:
		return t.Second()
	default:
		return t.Nanosecond() / int(time.Millisecond)
	}
}

// compareLevels compares a and b component-wise, starting at level from.
// If one side is more precise and all shared components are equal, the result is
// not determined and ok is false.
func compareLevels(a, b time.Time, from, precA, precB int) (cmp int, ok bool) {
	shared := min(precA, precB)
	for level := from; level <= shared; level++ {
		ca, cb := component(a, level), component(b, level)
		switch {
		case ca < cb:
			return -1, true
		case ca > cb:
			return 1, true
		}
	}
	if precA != precB {
		// seconds and milliseconds are a single precision level
		if min(precA, precB) == levelSecond && max(precA, precB) == levelMillisecond {
			return 0, true
		}
		return 0, false
	}
	return 0, true
}

type Date struct {
	Value     time.Time
	Precision DatePrecision
}

func (d Date) Children(name ...string) Collection {
	return nil
}
func (d Date) ToBoolean(explicit bool) (v Boolean, ok bool, err error) {
	return notConvertible[Date, Boolean](d, explicit)
}
func (d Date) ToString(explicit bool) (v String, ok bool, err error) {
	if explicit {
		return String(d.String()), true, nil
	}
	return notConvertible[Date, String](d, explicit)
}
func (d Date) ToInteger(explicit bool) (v Integer, ok bool, err error) {
	return notConvertible[Date, Integer](d, explicit)
}
func (d Date) ToDecimal(explicit bool) (v Decimal, ok bool, err error) {
	return notConvertible[Date, Decimal](d, explicit)
}
func (d Date) ToDate(explicit bool) (v Date, ok bool, err error) {
	return d, true, nil
}
func (d Date) ToTime(explicit bool) (v Time, ok bool, err error) {
	return notConvertible[Date, Time](d, explicit)
}
func (d Date) ToDateTime(explicit bool) (v DateTime, ok bool, err error) {
	precision := DateTimePrecision(d.Precision)
	if d.Precision == DatePrecisionFull {
		precision = DateTimePrecisionDay
	}
	return DateTime{Value: d.Value, Precision: precision}, true, nil
}
func (d Date) ToQuantity(explicit bool) (v Quantity, ok bool, err error) {
	return notConvertible[Date, Quantity](d, explicit)
}
func (d Date) Equal(other Element) (eq bool, ok bool) {
	switch other.(type) {
	case Date, DateTime:
		cmp, ok, err := d.Cmp(other)
		if err != nil || !ok {
			return false, false
		}
		return cmp == 0, true
	}
	return false, true
}
func (d Date) Equivalent(other Element) bool {
	eq, ok := d.Equal(other)
	return ok && eq
}
func (d Date) Cmp(other Element) (cmp int, ok bool, err error) {
	switch o := other.(type) {
	case Date:
		cmp, ok = compareLevels(d.Value, o.Value, levelYear, d.Precision.level(), o.Precision.level())
		return cmp, ok, nil
	case DateTime:
		left, _, _ := d.ToDateTime(false)
		return left.Cmp(o)
	}
	return 0, false, fmt.Errorf("can not compare Date to %T, left: %v right: %v", other, d, other)
}
func (d Date) Add(ctx context.Context, other Element) (Element, error) {
	q, isQuantity := other.(Quantity)
	if !isQuantity {
		return nil, fmt.Errorf("can not add Date with %T: %v + %v", other, d, other)
	}
	shifted, err := shiftTemporal(d.Value, q, levelDay)
	if err != nil {
		return nil, err
	}
	return Date{Value: shifted, Precision: d.Precision}, nil
}
func (d Date) Subtract(ctx context.Context, other Element) (Element, error) {
	q, isQuantity := other.(Quantity)
	if !isQuantity {
		return nil, fmt.Errorf("can not subtract %T from Date: %v - %v", other, d, other)
	}
	return d.Add(ctx, q.negate())
}
func (d Date) TypeInfo() TypeInfo {
	return systemType("Date")
}
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}
func (d Date) String() string {
	switch d.Precision {
	case DatePrecisionYear:
		return d.Value.Format(DateFormatOnlyYear)
	case DatePrecisionMonth:
		return d.Value.Format(DateFormatUpToMonth)
	default:
		return d.Value.Format(DateFormatFull)
	}
}

type Time struct {
	Value     time.Time
	Precision TimePrecision
}

func (t Time) Children(name ...string) Collection {
	return nil
}
func (t Time) ToBoolean(explicit bool) (v Boolean, ok bool, err error) {
	return notConvertible[Time, Boolean](t, explicit)
}
func (t Time) ToString(explicit bool) (v String, ok bool, err error) {
	if explicit {
		return String(t.String()), true, nil
	}
	return notConvertible[Time, String](t, explicit)
}
func (t Time) ToInteger(explicit bool) (v Integer, ok bool, err error) {
	return notConvertible[Time, Integer](t, explicit)
}
func (t Time) ToDecimal(explicit bool) (v Decimal, ok bool, err error) {
	return notConvertible[Time, Decimal](t, explicit)
}
func (t Time) ToDate(explicit bool) (v Date, ok bool, err error) {
	return notConvertible[Time, Date](t, explicit)
}
func (t Time) ToTime(explicit bool) (v Time, ok bool, err error) {
	return t, true, nil
}
func (t Time) ToDateTime(explicit bool) (v DateTime, ok bool, err error) {
	return notConvertible[Time, DateTime](t, explicit)
}
func (t Time) ToQuantity(explicit bool) (v Quantity, ok bool, err error) {
	return notConvertible[Time, Quantity](t, explicit)
}
func (t Time) Equal(other Element) (eq bool, ok bool) {
	if _, isTime := other.(Time); !isTime {
		return false, true
	}
	cmp, ok, err := t.Cmp(other)
	if err != nil || !ok {
		return false, false
	}
	return cmp == 0, true
}
func (t Time) Equivalent(other Element) bool {
	eq, ok := t.Equal(other)
	return ok && eq
}
func (t Time) Cmp(other Element) (cmp int, ok bool, err error) {
	o, isTime := other.(Time)
	if !isTime {
		return 0, false, fmt.Errorf("can not compare Time to %T, left: %v right: %v", other, t, other)
	}
	cmp, ok = compareLevels(t.Value, o.Value, levelHour, t.Precision.level(), o.Precision.level())
	return cmp, ok, nil
}
func (t Time) Add(ctx context.Context, other Element) (Element, error) {
	q, isQuantity := other.(Quantity)
	if !isQuantity {
		return nil, fmt.Errorf("can not add Time with %T: %v + %v", other, t, other)
	}
	unit, ok := calendarUnit(q.Unit)
	if !ok || unit.level < levelHour {
		return nil, fmt.Errorf("can not add %v to Time, expected hours, minutes, seconds or milliseconds", q)
	}
	shifted, err := shiftTemporal(t.Value, q, levelMillisecond)
	if err != nil {
		return nil, err
	}
	// wrap around midnight
	shifted = time.Date(0, 1, 1, shifted.Hour(), shifted.Minute(), shifted.Second(), shifted.Nanosecond(), shifted.Location())
	return Time{Value: shifted, Precision: t.Precision}, nil
}
func (t Time) Subtract(ctx context.Context, other Element) (Element, error) {
	q, isQuantity := other.(Quantity)
	if !isQuantity {
		return nil, fmt.Errorf("can not subtract %T from Time: %v - %v", other, t, other)
	}
	return t.Add(ctx, q.negate())
}
func (t Time) TypeInfo() TypeInfo {
	return systemType("Time")
}
func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}
func (t Time) String() string {
	switch t.Precision {
	case TimePrecisionHour:
		return t.Value.Format(TimeFormatOnlyHour)
	case TimePrecisionMinute:
		return t.Value.Format(TimeFormatUpToMinute)
	case TimePrecisionSecond:
		return t.Value.Format(TimeFormatUpToSecond)
	default:
		return t.Value.Format(TimeFormatFull)
	}
}

type DateTime struct {
	Value       time.Time
	Precision   DateTimePrecision
	HasTimeZone bool
}

func (dt DateTime) Children(name ...string) Collection {
	return nil
}
func (dt DateTime) ToBoolean(explicit bool) (v Boolean, ok bool, err error) {
	return notConvertible[DateTime, Boolean](dt, explicit)
}
func (dt DateTime) ToString(explicit bool) (v String, ok bool, err error) {
	if explicit {
		return String(dt.String()), true, nil
	}
	return notConvertible[DateTime, String](dt, explicit)
}
func (dt DateTime) ToInteger(explicit bool) (v Integer, ok bool, err error) {
	return notConvertible[DateTime, Integer](dt, explicit)
}
func (dt DateTime) ToDecimal(explicit bool) (v Decimal, ok bool, err error) {
	return notConvertible[DateTime, Decimal](dt, explicit)
}
func (dt DateTime) ToDate(explicit bool) (v Date, ok bool, err error) {
	if !explicit {
		return notConvertible[DateTime, Date](dt, explicit)
	}
	var precision DatePrecision
	switch dt.Precision {
	case DateTimePrecisionYear, DateTimePrecisionMonth:
		precision = DatePrecision(dt.Precision)
	default:
		precision = DatePrecisionFull
	}
	return Date{Value: dt.Value, Precision: precision}, true, nil
}
func (dt DateTime) ToTime(explicit bool) (v Time, ok bool, err error) {
	return notConvertible[DateTime, Time](dt, explicit)
}
func (dt DateTime) ToDateTime(explicit bool) (v DateTime, ok bool, err error) {
	return dt, true, nil
}
func (dt DateTime) ToQuantity(explicit bool) (v Quantity, ok bool, err error) {
	return notConvertible[DateTime, Quantity](dt, explicit)
}
func (dt DateTime) Equal(other Element) (eq bool, ok bool) {
	switch other.(type) {
	case Date, DateTime:
		cmp, ok, err := dt.Cmp(other)
		if err != nil || !ok {
			return false, false
		}
		return cmp == 0, true
	}
	return false, true
}
func (dt DateTime) Equivalent(other Element) bool {
	eq, ok := dt.Equal(other)
	return ok && eq
}
func (dt DateTime) Cmp(other Element) (cmp int, ok bool, err error) {
	var o DateTime
	switch v := other.(type) {
	case DateTime:
		o = v
	case Date:
		o, _, _ = v.ToDateTime(false)
	default:
		return 0, false, fmt.Errorf("can not compare DateTime to %T, left: %v right: %v", other, dt, other)
	}

	left, right := dt.Value, o.Value
	leftHasTime := dt.Precision.level() >= levelHour
	rightHasTime := o.Precision.level() >= levelHour
	if leftHasTime && rightHasTime {
		// comparisons between zoned and unzoned values are indeterminate
		if dt.HasTimeZone != o.HasTimeZone {
			return 0, false, nil
		}
		left, right = left.UTC(), right.UTC()
	}
	cmp, ok = compareLevels(left, right, levelYear, dt.Precision.level(), o.Precision.level())
	return cmp, ok, nil
}
func (dt DateTime) Add(ctx context.Context, other Element) (Element, error) {
	q, isQuantity := other.(Quantity)
	if !isQuantity {
		return nil, fmt.Errorf("can not add DateTime with %T: %v + %v", other, dt, other)
	}
	shifted, err := shiftTemporal(dt.Value, q, levelMillisecond)
	if err != nil {
		return nil, err
	}
	return DateTime{Value: shifted, Precision: dt.Precision, HasTimeZone: dt.HasTimeZone}, nil
}
func (dt DateTime) Subtract(ctx context.Context, other Element) (Element, error) {
	q, isQuantity := other.(Quantity)
	if !isQuantity {
		return nil, fmt.Errorf("can not subtract %T from DateTime: %v - %v", other, dt, other)
	}
	return dt.Add(ctx, q.negate())
}
func (dt DateTime) TypeInfo() TypeInfo {
	return systemType("DateTime")
}
func (dt DateTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(dt.String())
}
func (dt DateTime) String() string {
	var ds, ts string
	switch dt.Precision {
	case DateTimePrecisionYear:
		return dt.Value.Format(DateFormatOnlyYear)
	case DateTimePrecisionMonth:
		return dt.Value.Format(DateFormatUpToMonth)
	case DateTimePrecisionDay:
		return dt.Value.Format(DateFormatFull)
	case DateTimePrecisionHour:
		ds, ts = dt.Value.Format(DateFormatFull), dt.timeFormat(TimeFormatOnlyHour, TimeFormatOnlyHourTZ)
	case DateTimePrecisionMinute:
		ds, ts = dt.Value.Format(DateFormatFull), dt.timeFormat(TimeFormatUpToMinute, TimeFormatUpToMinuteTZ)
	case DateTimePrecisionSecond:
		ds, ts = dt.Value.Format(DateFormatFull), dt.timeFormat(TimeFormatUpToSecond, TimeFormatUpToSecondTZ)
	default:
		ds, ts = dt.Value.Format(DateFormatFull), dt.timeFormat(TimeFormatFull, TimeFormatFullTZ)
	}
	return fmt.Sprintf("%sT%s", ds, ts)
}

func (dt DateTime) timeFormat(layout, layoutTZ string) string {
	if dt.HasTimeZone {
		return dt.Value.Format(layoutTZ)
	}
	return dt.Value.Format(layout)
}

// ParseDate parses a date literal with year, month or day precision.
func ParseDate(s string) (Date, error) {
	ds := strings.TrimLeft(s, "@")

	d, err := time.Parse(DateFormatOnlyYear, ds)
	if err == nil {
		return Date{Value: d, Precision: DatePrecisionYear}, nil
	}
	d, err = time.Parse(DateFormatUpToMonth, ds)
	if err == nil {
		return Date{Value: d, Precision: DatePrecisionMonth}, nil
	}
	d, err = time.Parse(DateFormatFull, ds)
	if err == nil {
		return Date{Value: d, Precision: DatePrecisionFull}, nil
	}

	return Date{}, fmt.Errorf("invalid Date format: %s", s)
}

// ParseTime parses a time literal, with or without the leading "@T".
func ParseTime(s string) (Time, error) {
	return parseTime(s, false)
}

func parseTime(s string, withTZ bool) (Time, error) {
	ts := strings.TrimPrefix(strings.TrimPrefix(s, "@"), "T")

	type layout struct {
		format    string
		zoned     bool
		precision TimePrecision
	}
	layouts := []layout{
		{TimeFormatOnlyHour, false, TimePrecisionHour},
		{TimeFormatOnlyHourTZ, true, TimePrecisionHour},
		{TimeFormatUpToMinute, false, TimePrecisionMinute},
		{TimeFormatUpToMinuteTZ, true, TimePrecisionMinute},
		{TimeFormatUpToSecond, false, TimePrecisionSecond},
		{TimeFormatUpToSecondTZ, true, TimePrecisionSecond},
		{timeFormatParseFull, false, TimePrecisionMillisecond},
		{timeFormatParseFullTZ, true, TimePrecisionMillisecond},
	}
	hasFraction := strings.Contains(ts, ".")
	for _, l := range layouts {
		if l.zoned && !withTZ {
			continue
		}
		if hasFraction != (l.precision == TimePrecisionMillisecond) {
			continue
		}
		if t, err := time.Parse(l.format, ts); err == nil {
			return Time{Value: t, Precision: l.precision}, nil
		}
	}
	return Time{}, fmt.Errorf("invalid Time format: %s", s)
}

// ParseDateTime parses a date time literal. A missing time part keeps the date precision.
func ParseDateTime(s string) (DateTime, error) {
	splits := strings.SplitN(strings.TrimLeft(s, "@"), "T", 2)

	d, err := ParseDate(splits[0])
	if err != nil {
		return DateTime{}, fmt.Errorf("invalid DateTime format (date part): %s", s)
	}
	if len(splits) == 1 || splits[1] == "" {
		dt, _, _ := d.ToDateTime(false)
		return dt, nil
	}
	if d.Precision != DatePrecisionFull {
		return DateTime{}, fmt.Errorf("invalid DateTime format (partial date with time): %s", s)
	}

	t, err := parseTime(splits[1], true)
	if err != nil {
		return DateTime{}, fmt.Errorf("invalid DateTime format (time part): %s", s)
	}
	hasTimeZone := strings.ContainsAny(splits[1], "Zz+-")

	tv := t.Value
	value := time.Date(d.Value.Year(), d.Value.Month(), d.Value.Day(),
		tv.Hour(), tv.Minute(), tv.Second(), tv.Nanosecond(), tv.Location())
	return DateTime{Value: value, Precision: DateTimePrecision(t.Precision), HasTimeZone: hasTimeZone}, nil
}

// shiftTemporal adds a time valued quantity to t. Units finer than finest
// are folded into whole multiples of the finest level, as calendar
// arithmetic on a Date ignores hours.
func shiftTemporal(t time.Time, q Quantity, finest int) (time.Time, error) {
	unit, ok := calendarUnit(q.Unit)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid time unit: %v", q.Unit)
	}

	value := q.Value.Value
	if unit.level == levelSecond {
		// seconds keep their fraction as milliseconds
		var ms apd.Decimal
		if _, err := apd.BaseContext.Mul(&ms, value, apd.New(1000, 0)); err != nil {
			return time.Time{}, err
		}
		value, unit = &ms, calendarUnits["ms"]
	}
	var integ apd.Decimal
	value.Modf(&integ, nil)
	n, err := integ.Int64()
	if err != nil {
		return time.Time{}, fmt.Errorf("quantity %v out of range for date arithmetic", q)
	}

	if unit.level > finest {
		day := calendarUnits["d"]
		n = n * int64(unit.per) / int64(day.per)
		unit = day
	}

	switch unit.level {
	case levelYear:
		return addMonths(t, int(n)*12), nil
	case levelMonth:
		return addMonths(t, int(n)), nil
	default:
		return t.Add(time.Duration(n) * unit.per), nil
	}
}

// addMonths adds months, clamping the day to the end of the resulting month.
func addMonths(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	shifted := first.AddDate(0, months, 0)
	lastDay := shifted.AddDate(0, 1, -1).Day()
	return shifted.AddDate(0, 0, min(t.Day(), lastDay)-1)
}
