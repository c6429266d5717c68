// Package validator configures go-playground/validator for request bodies
// and the question schema.
package validator

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// questionkey: lower snake_case, at most 64 characters.
var questionKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

type Validator struct {
	v *validator.Validate
}

// New returns a validator that reports fields by their JSON names and knows
// the questionkey tag.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("questionkey", func(fl validator.FieldLevel) bool {
		return questionKeyPattern.MatchString(fl.Field().String())
	})
	return &Validator{v: v}
}

func (val *Validator) Struct(s any) error { return val.v.Struct(s) }

func (val *Validator) Var(field any, tag string) error { return val.v.Var(field, tag) }

// RegisterStringRule adds a tag that passes when ok accepts the field's
// string value. Register rules before the validator is shared.
func (val *Validator) RegisterStringRule(tag string, ok func(string) bool) error {
	return val.v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return ok(fl.Field().String())
	})
}

// Details turns a validation failure into field → failed rule, which is
// what error responses carry. Other errors come back as their message.
func Details(err error) any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		out[fe.Field()] = rule
	}
	return out
}
