// Package fieldschema checks a custom-fields payload against a template's
// field schema. Validation is pure: no I/O, no mutation of its inputs.
package fieldschema

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dvloznov/personal-finance/internal/domain"
)

// Result holds every failure found, in schema order, plus the payload keys
// the schema does not declare.
type Result struct {
	Errors       []error
	Unrecognized []string
}

// Valid reports whether no errors were found. Unrecognized keys do not make
// a payload invalid.
func (r Result) Valid() bool {
	return len(r.Errors) == 0
}

// Err joins all failures into one error, or returns nil. Each typed error
// remains reachable through errors.As.
func (r Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	if len(r.Errors) == 1 {
		return r.Errors[0]
	}
	return errors.Join(r.Errors...)
}

// Validate checks values against schema:
//   - a required field that is absent, nil or blank yields MissingFieldError;
//   - number values must parse as decimals, date values as YYYY-MM-DD;
//   - select values must be one of the declared options;
//   - text accepts any value.
//
// Keys absent from the schema are left untouched and reported in
// Result.Unrecognized.
func Validate(schema domain.FieldSchema, values domain.CustomFields) Result {
	var res Result

	for _, d := range schema {
		v, ok := values[d.Name]
		if !ok || isEmpty(v) {
			if d.Required {
				res.Errors = append(res.Errors, &domain.MissingFieldError{Field: d.Name})
			}
			continue
		}
		if err := checkValue(d, v); err != nil {
			res.Errors = append(res.Errors, err)
		}
	}

	for _, k := range values.Keys() {
		if _, ok := schema.Lookup(k); !ok {
			res.Unrecognized = append(res.Unrecognized, k)
		}
	}

	return res
}

func checkValue(d domain.FieldDescriptor, v any) error {
	switch d.Type {
	case domain.FieldNumber:
		if _, ok := domain.ParseDecimal(v); !ok {
			return &domain.TypeMismatchError{Field: d.Name, Expected: d.Type, Value: v}
		}
	case domain.FieldDate:
		s, ok := v.(string)
		if !ok {
			return &domain.TypeMismatchError{Field: d.Name, Expected: d.Type, Value: v}
		}
		if _, err := domain.ParseDate(s); err != nil {
			return &domain.TypeMismatchError{Field: d.Name, Expected: d.Type, Value: v}
		}
	case domain.FieldSelect:
		s, ok := v.(string)
		if !ok {
			return &domain.InvalidOptionError{Field: d.Name, Value: fmt.Sprint(v), Options: d.Options}
		}
		if !slices.Contains(d.Options, s) {
			return &domain.InvalidOptionError{Field: d.Name, Value: s, Options: d.Options}
		}
	case domain.FieldText:
	}
	return nil
}

func isEmpty(v any) bool {
	switch s := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(s) == ""
	}
	return false
}
