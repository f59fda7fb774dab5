package fhirpath

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// String functions operate on a single String input. Indices count characters, not bytes.

func inputString(focus Collection) (String, bool, error) {
	return Singleton[String](focus)
}

func runeIndex(s string, byteIndex int) Integer {
	if byteIndex < 0 {
		return -1
	}
	return Integer(utf8.RuneCountInString(s[:byteIndex]))
}

func indexOfFn(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	s, ok, err := inputString(focus)
	if err != nil || !ok {
		return nil, err
	}
	sub, ok := argValue[String](args[0])
	if !ok {
		return nil, nil
	}
	return runeIndex(string(s), strings.Index(string(s), string(sub))), nil
}

func lastIndexOfFn(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	s, ok, err := inputString(focus)
	if err != nil || !ok {
		return nil, err
	}
	sub, ok := argValue[String](args[0])
	if !ok {
		return nil, nil
	}
	return runeIndex(string(s), strings.LastIndex(string(s), string(sub))), nil
}

func substringFn(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	s, ok, err := inputString(focus)
	if err != nil || !ok {
		return nil, err
	}
	start, ok := argValue[Integer](args[0])
	if !ok {
		return nil, nil
	}
	runes := []rune(string(s))
	if start < 0 || int(start) >= len(runes) {
		return nil, nil
	}
	end := len(runes)
	if len(args) == 2 {
		// empty length behaves as if omitted
		if length, ok := argValue[Integer](args[1]); ok {
			if length <= 0 {
				return String(""), nil
			}
			end = min(int(start)+int(length), len(runes))
		}
	}
	return String(runes[start:end]), nil
}

// stringPredicate builds startsWith, endsWith and contains.
func stringPredicate(pred func(s, arg string) bool) func(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	return func(ctx context.Context, focus Collection, args []Argument) (Element, error) {
		s, ok, err := inputString(focus)
		if err != nil || !ok {
			return nil, err
		}
		arg, ok := argValue[String](args[0])
		if !ok {
			return nil, nil
		}
		return Boolean(pred(string(s), string(arg))), nil
	}
}

// stringMapping builds the functions that map the input string to a new string.
func stringMapping(fn func(s string) string) func(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	return func(ctx context.Context, focus Collection, args []Argument) (Element, error) {
		s, ok, err := inputString(focus)
		if err != nil || !ok {
			return nil, err
		}
		return String(fn(string(s))), nil
	}
}

func upper(s string) string {
	return cases.Upper(language.Und).String(s)
}

func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

func replaceFn(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	s, ok, err := inputString(focus)
	if err != nil || !ok {
		return nil, err
	}
	pattern, ok := argValue[String](args[0])
	if !ok {
		return nil, nil
	}
	substitution, ok := argValue[String](args[1])
	if !ok {
		return nil, nil
	}
	return String(strings.ReplaceAll(string(s), string(pattern), string(substitution))), nil
}

func compileRegex(expr String, full bool) (*regexp.Regexp, error) {
	pattern := "(?s)" + string(expr)
	if full {
		pattern = "(?s)^(?:" + string(expr) + ")$"
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regular expression %q: %w", expr, err)
	}
	return re, nil
}

func matchesFn(full bool) func(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	return func(ctx context.Context, focus Collection, args []Argument) (Element, error) {
		s, ok, err := inputString(focus)
		if err != nil || !ok {
			return nil, err
		}
		expr, ok := argValue[String](args[0])
		if !ok {
			return nil, nil
		}
		re, err := compileRegex(expr, full)
		if err != nil {
			return nil, err
		}
		return Boolean(re.MatchString(string(s))), nil
	}
}

func replaceMatchesFn(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	s, ok, err := inputString(focus)
	if err != nil || !ok {
		return nil, err
	}
	expr, ok := argValue[String](args[0])
	if !ok {
		return nil, nil
	}
	substitution, ok := argValue[String](args[1])
	if !ok {
		return nil, nil
	}
	re, err := compileRegex(expr, false)
	if err != nil {
		return nil, err
	}
	return String(re.ReplaceAllString(string(s), string(substitution))), nil
}

func lengthFn(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	s, ok, err := inputString(focus)
	if err != nil || !ok {
		return nil, err
	}
	return Integer(utf8.RuneCountInString(string(s))), nil
}

func toCharsFn(ctx context.Context, focus Collection, args []Argument) (result Collection, err error) {
	s, ok, err := inputString(focus)
	if err != nil || !ok {
		return nil, err
	}
	for _, r := range string(s) {
		result = append(result, String(r))
	}
	return result, nil
}

func splitFn(ctx context.Context, focus Collection, args []Argument) (result Collection, err error) {
	s, ok, err := inputString(focus)
	if err != nil || !ok {
		return nil, err
	}
	separator, ok := argValue[String](args[0])
	if !ok {
		return nil, nil
	}
	for _, part := range strings.Split(string(s), string(separator)) {
		result = append(result, String(part))
	}
	return result, nil
}

// joinFn skips elements that have no string representation.
func joinFn(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	if len(focus) == 0 {
		return nil, nil
	}
	var separator String
	if len(args) == 1 {
		separator, _ = argValue[String](args[0])
	}
	parts := make([]string, 0, len(focus))
	for _, e := range focus {
		s, ok, err := e.ToString(true)
		if err != nil || !ok {
			continue
		}
		parts = append(parts, string(s))
	}
	if len(parts) == 0 {
		return nil, nil
	}
	return String(strings.Join(parts, string(separator))), nil
}

var encodings = map[String]struct {
	encode func([]byte) string
	decode func(string) ([]byte, error)
}{
	"hex":       {hex.EncodeToString, hex.DecodeString},
	"base64":    {base64.StdEncoding.EncodeToString, base64.StdEncoding.DecodeString},
	"urlbase64": {base64.URLEncoding.EncodeToString, base64.URLEncoding.DecodeString},
}

func encodeFn(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	s, ok, err := inputString(focus)
	if err != nil || !ok {
		return nil, err
	}
	format, _ := argValue[String](args[0])
	enc, ok := encodings[format]
	if !ok {
		return nil, fmt.Errorf("unsupported encoding format: %s", format)
	}
	return String(enc.encode([]byte(s))), nil
}

func decodeFn(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	s, ok, err := inputString(focus)
	if err != nil || !ok {
		return nil, err
	}
	format, _ := argValue[String](args[0])
	enc, ok := encodings[format]
	if !ok {
		return nil, fmt.Errorf("unsupported encoding format: %s", format)
	}
	decoded, err := enc.decode(string(s))
	if err != nil {
		return nil, fmt.Errorf("invalid %s string: %w", format, err)
	}
	return String(decoded), nil
}

// concatOp implements '&', which treats empty operands as empty strings.
func concatOp(ctx context.Context, focus Collection, args []Argument) (Element, error) {
	l, _ := argValue[String](args[0])
	r, _ := argValue[String](args[1])
	return l + r, nil
}
