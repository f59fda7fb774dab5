// Package testdata provides the function invocation suites shared by the
// fhirpath tests.
package testdata

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"gopkg.in/yaml.v3"

	"github.com/damedic/fhirpath-core/fhirpath"
	"github.com/damedic/fhirpath-core/fhirpath/tree"
)

//go:embed conversions.yaml
var conversionsYAML []byte

// Expected error classes of a case.
const (
	ErrorConversion = "conversion"
	ErrorStructural = "structural"
	ErrorAny        = "any"
)

type Suites struct {
	Suites []Suite `yaml:"suites"`
}

type Suite struct {
	Name  string `yaml:"name"`
	Cases []Case `yaml:"cases"`
}

// Case invokes Function on Input with one literal expression per Args entry.
type Case struct {
	Name     string    `yaml:"name"`
	Function string    `yaml:"function"`
	Input    []Value   `yaml:"input"`
	Args     [][]Value `yaml:"args"`
	Want     []Value   `yaml:"want"`
	Error    string    `yaml:"error"`
}

// Value is a typed literal written as "<Type> <literal>".
type Value string

// GetConversionSuites decodes the embedded suites.
func GetConversionSuites() (Suites, error) {
	var suites Suites
	if err := yaml.Unmarshal(conversionsYAML, &suites); err != nil {
		return Suites{}, fmt.Errorf("decoding conversion suites: %w", err)
	}
	return suites, nil
}

// Element parses the literal into an element of its type.
func (v Value) Element() (fhirpath.Element, error) {
	typ, literal, _ := strings.Cut(string(v), " ")

	switch typ {
	case "Boolean":
		b, err := strconv.ParseBool(literal)
		if err != nil {
			return nil, err
		}
		return fhirpath.Boolean(b), nil
	case "String":
		return fhirpath.String(literal), nil
	case "Integer":
		i, err := strconv.ParseInt(literal, 10, 32)
		if err != nil {
			return nil, err
		}
		return fhirpath.Integer(i), nil
	case "Decimal":
		d, _, err := apd.NewFromString(literal)
		if err != nil {
			return nil, err
		}
		return fhirpath.Decimal{Value: d}, nil
	case "Date":
		return fhirpath.ParseDate(literal)
	case "DateTime":
		return fhirpath.ParseDateTime(literal)
	case "Time":
		return fhirpath.ParseTime(literal)
	case "Quantity":
		q, ok := fhirpath.ParseQuantityLiteral(literal)
		if !ok {
			return nil, fmt.Errorf("invalid quantity literal %q", literal)
		}
		return q, nil
	}
	return nil, fmt.Errorf("unknown literal type %q in %q", typ, v)
}

// Collection parses all values.
func Collection(values []Value) (fhirpath.Collection, error) {
	c := make(fhirpath.Collection, 0, len(values))
	for _, v := range values {
		e, err := v.Element()
		if err != nil {
			return nil, err
		}
		c = append(c, e)
	}
	return c, nil
}

// Params turns the arguments of the case into literal expressions.
func (c Case) Params() ([]fhirpath.Expression, error) {
	params := make([]fhirpath.Expression, len(c.Args))
	for i, arg := range c.Args {
		values, err := Collection(arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		params[i] = tree.Lit(values...)
	}
	return params, nil
}
