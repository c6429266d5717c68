package validator

import "testing"

func TestQuestionKeyTag(t *testing.T) {
	val := New()

	valid := []string{"age", "group_size", "activity2"}
	for _, key := range valid {
		if err := val.Var(key, "questionkey"); err != nil {
			t.Errorf("expected %q to be valid: %v", key, err)
		}
	}

	invalid := []string{"", "Age", "2age", "group-size", "groupSize"}
	for _, key := range invalid {
		if err := val.Var(key, "questionkey"); err == nil {
			t.Errorf("expected %q to be rejected", key)
		}
	}
}

func TestStructUsesBuiltinCoordinateTags(t *testing.T) {
	type point struct {
		Lat float64 `validate:"latitude"`
		Lng float64 `validate:"longitude"`
	}
	val := New()

	if err := val.Struct(point{Lat: 41.39, Lng: 2.17}); err != nil {
		t.Fatalf("expected valid point, got %v", err)
	}
	if err := val.Struct(point{Lat: 91, Lng: 2.17}); err == nil {
		t.Fatal("expected latitude 91 to fail")
	}
}

func TestDetailsUseJSONNames(t *testing.T) {
	type signUp struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8"`
	}
	err := New().Struct(signUp{Email: "ana", Password: "short"})
	if err == nil {
		t.Fatal("expected validation error")
	}

	details, ok := Details(err).(map[string]string)
	if !ok {
		t.Fatalf("expected field map, got %T", Details(err))
	}
	if details["email"] != "email" || details["password"] != "min=8" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestRegisterStringRule(t *testing.T) {
	val := New()
	if err := val.RegisterStringRule("shout", func(s string) bool { return s == "HEY" }); err != nil {
		t.Fatalf("register: %v", err)
	}

	type body struct {
		Greeting *string `json:"greeting" validate:"omitempty,shout"`
	}
	hey, hi := "HEY", "hi"
	if err := val.Struct(body{Greeting: &hey}); err != nil {
		t.Fatalf("expected HEY to pass, got %v", err)
	}
	if err := val.Struct(body{}); err != nil {
		t.Fatalf("expected nil pointer to be skipped, got %v", err)
	}
	err := val.Struct(body{Greeting: &hi})
	details, _ := Details(err).(map[string]string)
	if details["greeting"] != "shout" {
		t.Fatalf("expected shout failure on greeting, got %v", err)
	}
}
