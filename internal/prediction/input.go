// Package prediction turns a submitted form into a diagnosis and stage.
package prediction

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/Skufu/microbiome-stage/internal/artifacts"
)

// ExpectedInputs is the number of values assembled from a form.
const ExpectedInputs = 7

var (
	ErrMissingField  = errors.New("missing form field")
	ErrInvalidNumber = errors.New("form field is not a number")
	ErrInputCount    = errors.New("unexpected number of input features")
)

// Lookup returns a submitted form value and whether the field was present.
type Lookup func(field string) (string, bool)

// EncodeSex is 1 for "male" in any letter case and 0 for everything else.
func EncodeSex(sex string) float64 {
	if strings.ToLower(sex) == "male" {
		return 1
	}
	return 0
}

// ParseInputs reads the form fields in artifacts.InputFields order. All
// fields are required; every field but sex must parse as a float.
func ParseInputs(lookup Lookup) ([]float64, error) {
	values := make([]float64, 0, len(artifacts.InputFields))
	for _, field := range artifacts.InputFields {
		raw, ok := lookup(field)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, field)
		}
		if field == "sex" {
			values = append(values, EncodeSex(raw))
			continue
		}
		v, err := parseNumber(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidNumber, field, raw)
		}
		values = append(values, v)
	}
	return values, nil
}

// parseNumber reads a decimal float. Out-of-range magnitudes become ±Inf
// and hexadecimal notation is refused.
func parseNumber(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	digits := strings.TrimLeft(s, "+-")
	if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		return 0, strconv.ErrSyntax
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, err
	}
	return v, nil
}

// Project lays the input values out along the schema. Schema names with no
// mapped input are zero.
func Project(values []float64, slots *artifacts.SlotMap, schema []string) *mat.Dense {
	provided := make(map[string]float64, len(values))
	for i, v := range values {
		provided[slots.Feature(i)] = v
	}

	row := make([]float64, len(schema))
	for j, name := range schema {
		row[j] = provided[name]
	}
	return mat.NewDense(1, len(row), row)
}
