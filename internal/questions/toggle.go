package questions

import (
	"fmt"
	"slices"
)

// ToggleSingle selects choice, or clears the answer when choice is already
// selected.
func ToggleSingle(current Value, choice string) Value {
	if current.Has(choice) {
		return Single("")
	}
	return Single(choice)
}

// ToggleMulti adds choice to the selection or removes it when present.
func ToggleMulti(current Value, choice string) Value {
	items := current.Items()
	if i := slices.Index(items, choice); i >= 0 {
		return Multi(slices.Delete(items, i, i+1)...)
	}
	return Multi(append(items, choice)...)
}

// Toggle applies the toggle rule of the question identified by key.
func (s *Schema) Toggle(key string, current Value, choice string) (Value, error) {
	q, ok := s.Lookup(key)
	if !ok {
		return Value{}, fmt.Errorf("unknown question %q", key)
	}
	if !q.HasOption(choice) {
		return Value{}, fmt.Errorf("question %q has no option %q", key, choice)
	}
	if q.Type == TypeMulti {
		return ToggleMulti(current, choice), nil
	}
	return ToggleSingle(current, choice), nil
}
