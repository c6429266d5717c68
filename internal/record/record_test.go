package record

import (
	"encoding/json"
	"testing"
	"time"

	"fieldsurvey/internal/questions"
	"fieldsurvey/platform/geo"
)

func rawFields(t *testing.T, fields map[string]any) map[string]json.RawMessage {
	t.Helper()
	out := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal %s: %v", k, err)
		}
		out[k] = b
	}
	return out
}

func TestFieldsFlattenAnswers(t *testing.T) {
	dp := DataPoint{
		ID:       "dp-1",
		Location: geo.Point{Latitude: 41.38, Longitude: 2.19},
		Answers: questions.Answers{
			"gender":     questions.Single("female"),
			"activities": questions.Multi("waiting"),
		},
	}
	fields := dp.Fields()

	if _, ok := fields["answers.gender"]; !ok {
		t.Fatal("expected answers.gender field")
	}
	if _, ok := fields["answers"]; ok {
		t.Fatal("answers must not be stored as one nested field")
	}
	if _, ok := fields[FieldCreatedAt]; ok {
		t.Fatal("zero created_at must be omitted")
	}
}

func TestFromFieldsRestoresDataPoint(t *testing.T) {
	created := time.Date(2026, 4, 3, 15, 4, 0, 0, time.UTC)
	dp := DataPoint{
		ID:        "dp-1",
		Location:  geo.Point{Latitude: 41.38, Longitude: 2.19},
		Color:     "#ff5a5f",
		Title:     "Person 3",
		TimeLabel: "3:04 PM",
		Note:      "near the fountain",
		CreatedAt: created,
		Answers: questions.Answers{
			"gender":     questions.Single("female"),
			"activities": questions.Multi("waiting", "consuming"),
		},
	}

	got, err := FromFields("dp-1", rawFields(t, dp.Fields()), time.Time{})
	if err != nil {
		t.Fatalf("from fields: %v", err)
	}
	if got.Location != dp.Location || got.Color != dp.Color || got.Title != dp.Title ||
		got.TimeLabel != dp.TimeLabel || got.Note != dp.Note || !got.CreatedAt.Equal(created) {
		t.Fatalf("unexpected data point %+v", got)
	}
	if !got.Answers["activities"].Equal(dp.Answers["activities"]) || !got.Answers["gender"].Equal(dp.Answers["gender"]) {
		t.Fatalf("unexpected answers %+v", got.Answers)
	}
}

func TestApplyFieldsOverlaysPartialUpdate(t *testing.T) {
	dp := DataPoint{ID: "dp-1", Color: "#ff5a5f", Answers: questions.Answers{"gender": questions.Single("male")}}

	err := ApplyFields(&dp, rawFields(t, map[string]any{
		AnswerField("gender"): questions.Single("female"),
		FieldLatitude:         1.5,
		"unknown":             true,
	}))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if dp.Answers["gender"].String() != "female" || dp.Location.Latitude != 1.5 || dp.Color != "#ff5a5f" {
		t.Fatalf("unexpected result %+v", dp)
	}
}

func TestApplyFieldsRejectsBadTypes(t *testing.T) {
	var dp DataPoint
	err := ApplyFields(&dp, map[string]json.RawMessage{FieldLatitude: json.RawMessage(`"north"`)})
	if err == nil {
		t.Fatal("expected type error")
	}
}

func TestCloneIsDeep(t *testing.T) {
	dp := DataPoint{Answers: questions.Answers{"activities": questions.Multi("waiting")}}
	clone := dp.Clone()
	clone.Answers["activities"] = questions.Multi()
	if dp.Answers["activities"].IsEmpty() {
		t.Fatal("clone must not share the answers map")
	}
}

func TestNextColorNeverRepeatsPrevious(t *testing.T) {
	for _, prev := range Palette {
		for i := 0; i < len(Palette)-1; i++ {
			got := NextColor(prev, func(int) int { return i })
			if got == prev {
				t.Fatalf("expected a color other than %s", prev)
			}
			if !IsPaletteColor(got) {
				t.Fatalf("expected palette color, got %s", got)
			}
		}
	}
}

func TestNextColorWithoutPreviousUsesWholePalette(t *testing.T) {
	got := NextColor("", func(n int) int {
		if n != len(Palette) {
			t.Fatalf("expected %d candidates, got %d", len(Palette), n)
		}
		return n - 1
	})
	if got != Palette[len(Palette)-1] {
		t.Fatalf("unexpected color %s", got)
	}
}
