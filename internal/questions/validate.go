package questions

import (
	"fmt"
	"slices"

	"fieldsurvey/platform/apperr"
)

// ValidateFields checks that every key of a survey's field list exists in
// the schema.
func (s *Schema) ValidateFields(fields []string) error {
	var unknown []string
	for _, key := range fields {
		if _, ok := s.Lookup(key); !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		return apperr.Validation("survey references unknown questions").WithDetails(unknown)
	}
	return nil
}

// Normalize checks answers against the survey's field list and the schema and
// returns a map holding exactly one value per field. Missing fields get the
// empty value for their type; duplicate list items are dropped.
func (s *Schema) Normalize(fields []string, answers Answers) (Answers, error) {
	problems := make(map[string]string)
	out := make(Answers, len(fields))

	for key, value := range answers {
		if !slices.Contains(fields, key) {
			problems[key] = "not part of this survey"
			continue
		}
		q, ok := s.Lookup(key)
		if !ok {
			problems[key] = "unknown question"
			continue
		}
		normalized, err := normalizeValue(q, value)
		if err != nil {
			problems[key] = err.Error()
			continue
		}
		out[key] = normalized
	}

	for _, key := range fields {
		if _, done := out[key]; done {
			continue
		}
		if _, failed := problems[key]; failed {
			continue
		}
		q, ok := s.Lookup(key)
		if !ok {
			problems[key] = "unknown question"
			continue
		}
		out[key] = Empty(q.Type)
	}

	if len(problems) > 0 {
		return nil, apperr.Validation("invalid answers").WithDetails(problems)
	}
	return out, nil
}

func normalizeValue(q Question, v Value) (Value, error) {
	if q.Type == TypeSingle {
		if v.IsMulti() {
			return Value{}, fmt.Errorf("expects a single value")
		}
		if !v.IsEmpty() && !q.HasOption(v.String()) {
			return Value{}, fmt.Errorf("unknown option %q", v.String())
		}
		return v, nil
	}

	if !v.IsMulti() {
		return Value{}, fmt.Errorf("expects a list of values")
	}
	items := make([]string, 0, len(v.items))
	for _, item := range v.items {
		if !q.HasOption(item) {
			return Value{}, fmt.Errorf("unknown option %q", item)
		}
		if !slices.Contains(items, item) {
			items = append(items, item)
		}
	}
	return Multi(items...), nil
}
