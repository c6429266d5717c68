package questions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Value is the answer to one question: a single option value or a list of
// option values. On the wire it is a JSON string or a JSON array.
type Value struct {
	multi  bool
	single string
	items  []string
}

// Single returns a single-select answer.
func Single(choice string) Value {
	return Value{single: choice}
}

// Multi returns a multi-select answer holding items in order.
func Multi(items ...string) Value {
	return Value{multi: true, items: slices.Clone(items)}
}

// Empty returns the unanswered value for a question type.
func Empty(t Type) Value {
	if t == TypeMulti {
		return Multi()
	}
	return Single("")
}

// IsMulti reports whether v is a list.
func (v Value) IsMulti() bool { return v.multi }

// IsEmpty reports whether nothing is selected.
func (v Value) IsEmpty() bool {
	if v.multi {
		return len(v.items) == 0
	}
	return v.single == ""
}

// Items returns the selected option values.
func (v Value) Items() []string {
	if v.multi {
		return slices.Clone(v.items)
	}
	if v.single == "" {
		return []string{}
	}
	return []string{v.single}
}

// Has reports whether choice is selected.
func (v Value) Has(choice string) bool {
	if v.multi {
		return slices.Contains(v.items, choice)
	}
	return v.single != "" && v.single == choice
}

// Equal reports whether both values have the same shape and selection order.
func (v Value) Equal(other Value) bool {
	if v.multi != other.multi {
		return false
	}
	if v.multi {
		return slices.Equal(v.items, other.items)
	}
	return v.single == other.single
}

// String renders the answer for humans and CSV cells.
func (v Value) String() string {
	if v.multi {
		return strings.Join(v.items, ";")
	}
	return v.single
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.multi {
		items := v.items
		if items == nil {
			items = []string{}
		}
		return json.Marshal(items)
	}
	return json.Marshal(v.single)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = Single("")
		return nil
	case len(data) > 0 && data[0] == '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("answer list: %w", err)
		}
		*v = Multi(items...)
		return nil
	default:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("answer must be a string or a list of strings: %w", err)
		}
		*v = Single(s)
		return nil
	}
}

// Answers maps question keys to answers.
type Answers map[string]Value

// Clone returns a copy that shares no state with a.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = Value{multi: v.multi, single: v.single, items: slices.Clone(v.items)}
	}
	return out
}
