package questions

import "slices"

// Layout holds the dimensions the field app draws selectors with. Heights
// are in density independent points.
type Layout struct {
	HeaderHeight   float64
	ChipHeight     float64
	RowGap         float64
	SectionPadding float64
	ChipsPerRow    int
}

// DefaultLayout matches the phone form: three chips per row.
var DefaultLayout = Layout{
	HeaderHeight:   28,
	ChipHeight:     36,
	RowGap:         8,
	SectionPadding: 16,
	ChipsPerRow:    3,
}

// Height returns the rendered height of a selector with n options.
func (l Layout) Height(n int) float64 {
	perRow := max(l.ChipsPerRow, 1)
	rows := (n + perRow - 1) / perRow
	h := l.SectionPadding + l.HeaderHeight + float64(rows)*l.ChipHeight
	if rows > 1 {
		h += float64(rows-1) * l.RowGap
	}
	return h
}

// RenderedOption is an option with its selection state.
type RenderedOption struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// Selector is one rendered question.
type Selector struct {
	Key     string           `json:"key"`
	Label   string           `json:"label"`
	Type    Type             `json:"type"`
	Options []RenderedOption `json:"options"`
	Height  float64          `json:"height"`
}

// Render builds one selector per schema question listed in fields, in schema
// order, marking the options selected in answers.
func (s *Schema) Render(fields []string, answers Answers, layout Layout) []Selector {
	selectors := make([]Selector, 0, len(fields))
	for _, q := range s.Questions {
		if !slices.Contains(fields, q.Key) {
			continue
		}
		answer := answers[q.Key]
		options := make([]RenderedOption, len(q.Options))
		for i, o := range q.Options {
			options[i] = RenderedOption{Value: o.Value, Label: o.Label, Selected: answer.Has(o.Value)}
		}
		selectors = append(selectors, Selector{
			Key:     q.Key,
			Label:   q.Label,
			Type:    q.Type,
			Options: options,
			Height:  layout.Height(len(q.Options)),
		})
	}
	return selectors
}

// TotalHeight sums the heights of selectors.
func TotalHeight(selectors []Selector) float64 {
	var total float64
	for _, s := range selectors {
		total += s.Height
	}
	return total
}
