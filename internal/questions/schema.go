// Package questions holds the static question schema volunteers answer for
// each observed person, the toggle rules for answering, and the form layout
// the field app renders from it.
package questions

import (
	_ "embed"
	"fmt"
	"slices"

	"fieldsurvey/platform/validator"

	"gopkg.in/yaml.v3"
)

//go:embed schema.yaml
var defaultSchemaYAML []byte

// Type is the kind of selector a question renders as.
type Type string

const (
	TypeSingle Type = "single"
	TypeMulti  Type = "multi"
)

// Option is one selectable answer.
type Option struct {
	Value string `yaml:"value" json:"value" validate:"required"`
	Label string `yaml:"label" json:"label" validate:"required"`
}

// Question is one schema entry.
type Question struct {
	Key     string   `yaml:"key" json:"key" validate:"required,questionkey"`
	Label   string   `yaml:"label" json:"label" validate:"required"`
	Type    Type     `yaml:"type" json:"type" validate:"required,oneof=single multi"`
	Options []Option `yaml:"options" json:"options" validate:"min=1,dive"`
}

// HasOption reports whether value is one of the question's options.
func (q Question) HasOption(value string) bool {
	return slices.ContainsFunc(q.Options, func(o Option) bool { return o.Value == value })
}

// Schema is the ordered, immutable list of questions.
type Schema struct {
	Questions []Question `yaml:"questions" json:"questions" validate:"min=1,dive"`
	index     map[string]int
}

// LoadSchema parses and validates a YAML schema document.
func LoadSchema(data []byte, val *validator.Validator) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse question schema: %w", err)
	}
	if err := val.Struct(&s); err != nil {
		return nil, fmt.Errorf("invalid question schema: %w", err)
	}

	s.index = make(map[string]int, len(s.Questions))
	for i, q := range s.Questions {
		if _, dup := s.index[q.Key]; dup {
			return nil, fmt.Errorf("invalid question schema: duplicate key %q", q.Key)
		}
		seen := make(map[string]bool, len(q.Options))
		for _, o := range q.Options {
			if seen[o.Value] {
				return nil, fmt.Errorf("invalid question schema: %s has duplicate option %q", q.Key, o.Value)
			}
			seen[o.Value] = true
		}
		s.index[q.Key] = i
	}
	return &s, nil
}

// DefaultSchema returns the built-in schema. It panics if the embedded file
// is invalid, which a test guards against.
func DefaultSchema(val *validator.Validator) *Schema {
	s, err := LoadSchema(defaultSchemaYAML, val)
	if err != nil {
		panic(err)
	}
	return s
}

// Lookup returns the question for key.
func (s *Schema) Lookup(key string) (Question, bool) {
	i, ok := s.index[key]
	if !ok {
		return Question{}, false
	}
	return s.Questions[i], true
}

// Keys returns every question key in schema order.
func (s *Schema) Keys() []string {
	keys := make([]string, len(s.Questions))
	for i, q := range s.Questions {
		keys[i] = q.Key
	}
	return keys
}

// EmptyAnswers returns an unanswered value for every key in fields that the
// schema knows.
func (s *Schema) EmptyAnswers(fields []string) Answers {
	out := make(Answers, len(fields))
	for _, key := range fields {
		if q, ok := s.Lookup(key); ok {
			out[key] = Empty(q.Type)
		}
	}
	return out
}
