package casing

import (
	"encoding/json"
	"testing"
)

func TestToSnake(t *testing.T) {
	cases := map[string]string{
		"email":         "email",
		"timeLabel":     "time_label",
		"userID":        "user_id",
		"HTTPServer":    "http_server",
		"newPassword":   "new_password",
		"already_snake": "already_snake",
		"answer2Key":    "answer2_key",
		"":              "",
	}

	for in, want := range cases {
		if got := ToSnake(in); got != want {
			t.Errorf("ToSnake(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSnakeKeysPreservesAnswerMaps(t *testing.T) {
	in := []byte(`{"surveyId":"s1","location":{"latitude":1.5,"longitude":2},"answers":{"groupSize":"2","ageGroup":["adult"]},"items":[{"timeLabel":"3:04 PM"}]}`)

	out, err := SnakeKeys(in, "answers")
	if err != nil {
		t.Fatalf("SnakeKeys returned error: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if doc["survey_id"] != "s1" {
		t.Fatalf("expected survey_id key, got %v", doc)
	}
	answers := doc["answers"].(map[string]any)
	if _, ok := answers["groupSize"]; !ok {
		t.Fatalf("expected answers keys to be preserved, got %v", answers)
	}
	items := doc["items"].([]any)
	if _, ok := items[0].(map[string]any)["time_label"]; !ok {
		t.Fatalf("expected nested array objects to be converted, got %v", items)
	}
}

func TestSnakeKeysKeepsLargeNumbers(t *testing.T) {
	out, err := SnakeKeys([]byte(`{"createdAtMs":1735689600123}`))
	if err != nil {
		t.Fatalf("SnakeKeys returned error: %v", err)
	}
	if string(out) != `{"created_at_ms":1735689600123}` {
		t.Fatalf("unexpected output %s", out)
	}
}

func TestSnakeKeysRejectsInvalidJSON(t *testing.T) {
	if _, err := SnakeKeys([]byte(`{"a":`)); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}
