package fhirpath

import (
	"strings"

	"github.com/cockroachdb/apd/v3"
)

var (
	binaryAny    = Arity{2: {KindAny, KindAny}}
	binaryNumber = Arity{2: {KindNumber, KindNumber}}
	binaryBool   = Arity{2: {KindBoolean, KindBoolean}}
)

func unary(kind ParameterKind) Arity {
	return Arity{1: {kind}}
}

// builtins lists every function and operator of the default registry.
func builtins() []FunctionSpec {
	return []FunctionSpec{
		// existence
		{Name: "empty", Fn: scalar(emptyFn)},
		{Name: "not", Fn: scalar(notFn)},
		{Name: "exists", Arity: Arity{0: nil, 1: {KindExpr}}, Fn: scalar(existsFn)},
		{Name: "all", Arity: unary(KindExpr), Fn: scalar(allFn)},
		{Name: "allTrue", Fn: scalar(quantifier(true, true))},
		{Name: "anyTrue", Fn: scalar(quantifier(false, true))},
		{Name: "allFalse", Fn: scalar(quantifier(true, false))},
		{Name: "anyFalse", Fn: scalar(quantifier(false, false))},
		{Name: "subsetOf", Arity: unary(KindAnyAtRoot), Fn: scalar(subsetOfFn)},
		{Name: "supersetOf", Arity: unary(KindAnyAtRoot), Fn: scalar(supersetOfFn)},
		{Name: "isDistinct", Fn: scalar(isDistinctFn)},
		{Name: "distinct", Fn: distinctFn},
		{Name: "count", Fn: scalar(countFn)},

		// filtering and projection
		{Name: "where", Arity: unary(KindExpr), Fn: whereFn},
		{Name: "select", Arity: unary(KindExpr), Fn: selectFn},
		{Name: "repeat", Arity: unary(KindExpr), Fn: repeatFn},
		{Name: "extension", Arity: unary(KindString), Fn: extensionFn},
		{Name: "ofType", Arity: unary(KindIdentifier), Fn: ofTypeFn},

		// subsetting
		{Name: "single", Fn: singleFn},
		{Name: "first", Fn: firstFn},
		{Name: "last", Fn: lastFn},
		{Name: "tail", Fn: tailFn},
		{Name: "take", Arity: unary(KindInteger), Fn: takeFn},
		{Name: "skip", Arity: unary(KindInteger), Fn: skipFn},
		{Name: "intersect", Arity: unary(KindAnyAtRoot), Fn: intersectFn},
		{Name: "exclude", Arity: unary(KindAnyAtRoot), Fn: excludeFn},

		// combining
		{Name: "union", Arity: unary(KindAnyAtRoot), Fn: unionFn},
		{Name: "combine", Arity: unary(KindAnyAtRoot), Fn: combineFn},
		{Name: "|", Arity: binaryAny, Fn: unionOp},

		// types
		{Name: "type", Arity: Arity{0: nil}, Fn: typeFn},
		{Name: "is", Arity: unary(KindTypeSpecifier), Fn: scalar(isFn)},
		{Name: "as", Arity: unary(KindTypeSpecifier), Fn: scalar(asFn)},
		{Name: "isOp", Arity: Arity{2: {KindAny, KindTypeSpecifier}}, Fn: scalar(isOp)},
		{Name: "asOp", Arity: Arity{2: {KindAny, KindTypeSpecifier}}, Fn: scalar(asOp)},

		// conversion
		{Name: "toInteger", Fn: scalar(toInteger)},
		{Name: "toDecimal", Fn: scalar(toDecimal)},
		{Name: "toString", Fn: scalar(toString)},
		{Name: "toBoolean", Fn: scalar(toBoolean)},
		{Name: "toDate", Fn: scalar(toDate)},
		{Name: "toDateTime", Fn: scalar(toDateTime)},
		{Name: "toTime", Fn: scalar(toTime)},
		{Name: "toQuantity", Arity: Arity{0: nil, 1: {KindString}}, Fn: scalar(toQuantity)},
		{Name: "convertsToInteger", Fn: convertsTo(toInteger, isKind[Integer])},
		{Name: "convertsToDecimal", Fn: convertsTo(toDecimal, isNumeric)},
		{Name: "convertsToString", Fn: convertsTo(toString, isKind[String])},
		{Name: "convertsToBoolean", Fn: convertsTo(toBoolean, isKind[Boolean])},
		{Name: "convertsToDate", Fn: convertsTo(toDate, isKind[Date])},
		{Name: "convertsToDateTime", Fn: convertsTo(toDateTime, isKind[DateTime])},
		{Name: "convertsToTime", Fn: convertsTo(toTime, isKind[Time])},
		{Name: "convertsToQuantity", Arity: Arity{0: nil, 1: {KindString}}, Fn: convertsTo(toQuantity, isKind[Quantity])},

		// strings
		{Name: "indexOf", Arity: unary(KindString), Fn: scalar(indexOfFn), NullableInput: true},
		{Name: "lastIndexOf", Arity: unary(KindString), Fn: scalar(lastIndexOfFn), NullableInput: true},
		{Name: "substring", Arity: Arity{1: {KindInteger}, 2: {KindInteger, KindInteger}}, Fn: scalar(substringFn), NullableInput: true},
		{Name: "startsWith", Arity: unary(KindString), Fn: scalar(stringPredicate(strings.HasPrefix)), NullableInput: true},
		{Name: "endsWith", Arity: unary(KindString), Fn: scalar(stringPredicate(strings.HasSuffix)), NullableInput: true},
		{Name: "contains", Arity: unary(KindString), Fn: scalar(stringPredicate(strings.Contains)), NullableInput: true},
		{Name: "upper", Fn: scalar(stringMapping(upper)), NullableInput: true},
		{Name: "lower", Fn: scalar(stringMapping(lower)), NullableInput: true},
		{Name: "replace", Arity: Arity{2: {KindString, KindString}}, Fn: scalar(replaceFn), NullableInput: true},
		{Name: "matches", Arity: unary(KindString), Fn: scalar(matchesFn(false)), NullableInput: true},
		{Name: "matchesFull", Arity: unary(KindString), Fn: scalar(matchesFn(true)), NullableInput: true},
		{Name: "replaceMatches", Arity: Arity{2: {KindString, KindString}}, Fn: scalar(replaceMatchesFn), NullableInput: true},
		{Name: "length", Fn: scalar(lengthFn), NullableInput: true},
		{Name: "split", Arity: unary(KindString), Fn: splitFn, NullableInput: true},
		{Name: "trim", Fn: scalar(stringMapping(strings.TrimSpace)), NullableInput: true},
		{Name: "toChars", Fn: toCharsFn},
		{Name: "join", Arity: Arity{0: nil, 1: {KindString}}, Fn: scalar(joinFn)},
		{Name: "encode", Arity: unary(KindString), Fn: scalar(encodeFn)},
		{Name: "decode", Arity: unary(KindString), Fn: scalar(decodeFn)},

		// math
		{Name: "abs", Fn: scalar(absFn)},
		{Name: "ceiling", Fn: scalar(integralFn("ceiling", (*apd.Context).Ceil))},
		{Name: "floor", Fn: scalar(integralFn("floor", (*apd.Context).Floor))},
		{Name: "truncate", Fn: scalar(integralFn("truncate", truncate))},
		{Name: "exp", Fn: scalar(decimalFn("exp", exp))},
		{Name: "ln", Fn: scalar(decimalFn("ln", ln))},
		{Name: "sqrt", Fn: scalar(decimalFn("sqrt", sqrt))},
		{Name: "log", Arity: unary(KindNumber), Fn: scalar(decimalFn("log", log)), Nullable: true},
		{Name: "power", Arity: unary(KindNumber), Fn: scalar(powerFn), Nullable: true},
		{Name: "round", Arity: Arity{0: nil, 1: {KindNumber}}, Fn: scalar(roundFn)},

		// equality and comparison
		{Name: "=", Arity: binaryAny, Fn: scalar(equalOp), Nullable: true},
		{Name: "!=", Arity: binaryAny, Fn: scalar(notEqualOp), Nullable: true},
		{Name: "~", Arity: binaryAny, Fn: scalar(equivalentOp)},
		{Name: "!~", Arity: binaryAny, Fn: scalar(notEquivalentOp)},
		{Name: "<", Arity: binaryAny, Fn: scalar(comparison(func(c int) bool { return c < 0 })), Nullable: true},
		{Name: ">", Arity: binaryAny, Fn: scalar(comparison(func(c int) bool { return c > 0 })), Nullable: true},
		{Name: "<=", Arity: binaryAny, Fn: scalar(comparison(func(c int) bool { return c <= 0 })), Nullable: true},
		{Name: ">=", Arity: binaryAny, Fn: scalar(comparison(func(c int) bool { return c >= 0 })), Nullable: true},
		{Name: "containsOp", Arity: binaryAny, Fn: scalar(containsOp)},
		{Name: "inOp", Arity: binaryAny, Fn: scalar(inOp)},

		// arithmetic
		{Name: "&", Arity: Arity{2: {KindString, KindString}}, Fn: scalar(concatOp)},
		{Name: "+", Arity: binaryAny, Fn: scalar(plusOp), Nullable: true},
		{Name: "-", Arity: binaryAny, Fn: scalar(minusOp), Nullable: true},
		{Name: "*", Arity: binaryAny, Fn: scalar(multiplyOp), Nullable: true},
		{Name: "/", Arity: binaryAny, Fn: scalar(divideOp), Nullable: true},
		{Name: "div", Arity: binaryNumber, Fn: scalar(divOp), Nullable: true},
		{Name: "mod", Arity: binaryNumber, Fn: scalar(modOp), Nullable: true},

		// boolean logic, three-valued instead of nullable
		{Name: "or", Arity: binaryBool, Fn: scalar(orOp)},
		{Name: "and", Arity: binaryBool, Fn: scalar(andOp)},
		{Name: "xor", Arity: binaryBool, Fn: scalar(xorOp)},
		{Name: "implies", Arity: binaryBool, Fn: scalar(impliesOp)},

		// aggregates
		{Name: "sum", Fn: scalar(sumFn)},
		{Name: "min", Fn: scalar(extremum("min", func(c int) bool { return c < 0 }))},
		{Name: "max", Fn: scalar(extremum("max", func(c int) bool { return c > 0 }))},
		{Name: "avg", Fn: scalar(avgFn)},
		{Name: "aggregate", Arity: Arity{1: {KindExpr}, 2: {KindExpr, KindAny}}, Fn: aggregateFn},

		// utility
		{Name: "iif", Arity: Arity{2: {KindExpr, KindExpr}, 3: {KindExpr, KindExpr, KindExpr}}, Fn: iifFn},
		{Name: "trace", Arity: Arity{0: nil, 1: {KindString}}, Fn: traceFn},
		{Name: "now", Fn: scalar(nowFn)},
		{Name: "today", Fn: scalar(todayFn)},
		{Name: "timeOfDay", Fn: scalar(timeOfDayFn)},

		// navigation
		{Name: "children", Fn: childrenFn},
		{Name: "descendants", Fn: descendantsFn},
	}
}
