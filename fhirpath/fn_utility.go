package fhirpath

import (
	"context"
	"time"
)

func iifFn(ctx context.Context, focus Collection, args []Argument) (Collection, error) {
	criterion, err := args[0].Lambda(ctx, focus)
	if err != nil {
		return nil, err
	}
	match, err := isTrue(criterion)
	if err != nil {
		return nil, err
	}
	switch {
	case match:
		return args[1].Lambda(ctx, focus)
	case len(args) == 3:
		return args[2].Lambda(ctx, focus)
	}
	return nil, nil
}

// traceFn passes its input through unchanged after logging it.
func traceFn(ctx context.Context, focus Collection, args []Argument) (Collection, error) {
	var name String
	if len(args) == 1 {
		name, _ = argValue[String](args[0])
	}
	if err := tracer(ctx).Log(ctx, string(name), focus); err != nil {
		return nil, err
	}
	return focus, nil
}

func nowFn(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	return DateTime{
		Value:       evaluationInstant(ctx),
		Precision:   DateTimePrecisionMillisecond,
		HasTimeZone: true,
	}, nil
}

func todayFn(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	now := evaluationInstant(ctx)
	return Date{
		Value:     time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		Precision: DatePrecisionFull,
	}, nil
}

func timeOfDayFn(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	now := evaluationInstant(ctx)
	return Time{
		Value:     time.Date(0, 1, 1, now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), time.UTC),
		Precision: TimePrecisionMillisecond,
	}, nil
}

func childrenFn(ctx context.Context, focus Collection, args []Argument) (result Collection, err error) {
	for _, e := range focus {
		result = append(result, e.Children()...)
	}
	return result, nil
}

// descendantsFn collects children recursively, breadth first.
func descendantsFn(ctx context.Context, focus Collection, args []Argument) (result Collection, err error) {
	level, err := childrenFn(ctx, focus, args)
	for len(level) > 0 && err == nil {
		result = append(result, level...)
		level, err = childrenFn(ctx, level, args)
	}
	return result, err
}
