// Package constraints holds struct tag constraints shared by configuration types.
//
// The only custom rule is isoneof, a case sensitive membership check:
//
//	Mode string `validate:"isoneof=NEWLINE PATTERN"`
package constraints

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	isOneOfTag = "isoneof"
	uniqueTag  = "unique"
)

// Violation describes a field that failed a struct tag constraint.
// Allowed holds the tag parameters: the allowed values for isoneof,
// the compared field for unique.
type Violation struct {
	Field   string
	Tag     string
	Value   string
	Allowed []string
}

// Error renders the violation, e.g. `"wat?" is not one of: hello world`.
func (v Violation) Error() string {
	switch v.Tag {
	case isOneOfTag:
		return fmt.Sprintf("%q is not one of: %s", v.Value, strings.Join(v.Allowed, " "))
	case uniqueTag:
		if len(v.Allowed) > 0 {
			return fmt.Sprintf("%s contains duplicate %s values", v.Field, strings.ToLower(v.Allowed[0]))
		}
		return fmt.Sprintf("%s contains duplicate values", v.Field)
	}
	return fmt.Sprintf("%s failed on the %q constraint", v.Field, v.Tag)
}

// Validator checks struct tags.
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator with the isoneof rule registered.
// Field names in violations use the koanf tag when present.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation(isOneOfTag, isOneOf); err != nil {
		panic(err)
	}
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := field.Tag.Get("koanf")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return &Validator{validate: v}
}

// Struct validates s and returns every failing field.
// The error is non-nil only when s cannot be validated at all.
func (v *Validator) Struct(s any) ([]Violation, error) {
	err := v.validate.Struct(s)
	if err == nil {
		return nil, nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil, err
	}

	violations := make([]Violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		violations = append(violations, Violation{
			Field:   fe.Namespace(),
			Tag:     fe.Tag(),
			Value:   fmt.Sprint(fe.Value()),
			Allowed: strings.Fields(fe.Param()),
		})
	}
	return violations, nil
}

func isOneOf(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	for _, allowed := range strings.Fields(fl.Param()) {
		if value == allowed {
			return true
		}
	}
	return false
}
