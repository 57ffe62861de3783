package models

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Upstream amounts are JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Input is a DTO submitted by a form before it is forwarded upstream.
type Input interface {
	Normalize()
	Validate() error
}

// Prepare normalizes then validates in.
func Prepare(in Input) error {
	in.Normalize()
	return in.Validate()
}

// ValidationError lists the offending fields by their JSON name.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("invalid fields: %s", strings.Join(names, ", "))
}

func (e *ValidationError) add(field, rule string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = rule
}

func (e *ValidationError) orNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// validateStruct runs the tag rules and converts failures to a ValidationError.
func validateStruct(v any) *ValidationError {
	out := &ValidationError{}
	err := validate.Struct(v)
	if err == nil {
		return out
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out.add("_", err.Error())
		return out
	}
	for _, fe := range verrs {
		out.add(fe.Field(), fe.Tag())
	}
	return out
}

func nullIfBlank(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// NormalizePlate removes spaces and dashes and upper-cases a license plate.
func NormalizePlate(value string) string {
	value = strings.ReplaceAll(value, " ", "")
	value = strings.ReplaceAll(value, "-", "")
	return strings.ToUpper(value)
}
