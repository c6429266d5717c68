package service

import (
	"context"
	"testing"

	"fieldsurvey/internal/questions"
	"fieldsurvey/internal/studies/repository"
	"fieldsurvey/platform/apperr"
	"fieldsurvey/platform/logger"
	"fieldsurvey/platform/validator"
)

func newDemoService(t *testing.T) *Service {
	t.Helper()
	repo, err := repository.NewDemoFixtures()
	if err != nil {
		t.Fatalf("demo fixtures: %v", err)
	}
	return New(repo, questions.DefaultSchema(validator.New()), logger.Discard())
}

func TestListDemoStudies(t *testing.T) {
	svc := newDemoService(t)

	result, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 demo studies, got %d", len(result.Items))
	}
	first := result.Items[0]
	if first.ID != "riverside-park" || len(first.Surveys) != 2 {
		t.Fatalf("unexpected first study %+v", first)
	}
	if first.Surveys[0].StudyID != "riverside-park" {
		t.Fatalf("expected survey to carry its study id, got %q", first.Surveys[0].StudyID)
	}
	center := first.Surveys[0].Center
	if center.Latitude < 41.385 || center.Latitude > 41.388 {
		t.Fatalf("unexpected centre %+v", center)
	}
}

func TestGetSurveyDropsUnknownFields(t *testing.T) {
	repo, err := repository.NewFixtures([]byte(`
studies:
  - id: s1
    name: S1
    surveys:
      - id: v1
        title: V1
        fields: [gender, shoe_size]
`))
	if err != nil {
		t.Fatalf("fixtures: %v", err)
	}
	svc := New(repo, questions.DefaultSchema(validator.New()), logger.Discard())

	survey, err := svc.GetSurvey(context.Background(), "v1")
	if err != nil {
		t.Fatalf("get survey: %v", err)
	}
	if len(survey.Fields) != 1 || survey.Fields[0] != "gender" {
		t.Fatalf("expected only gender, got %v", survey.Fields)
	}
	if survey.StudyID != "s1" {
		t.Fatalf("expected study id s1, got %q", survey.StudyID)
	}
}

func TestNotFound(t *testing.T) {
	svc := newDemoService(t)
	if _, err := svc.Get(context.Background(), "nope"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found study, got %v", err)
	}
	if _, err := svc.GetSurvey(context.Background(), "nope"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found survey, got %v", err)
	}
}

func TestFixturesRejectDuplicateSurveyIDs(t *testing.T) {
	_, err := repository.NewFixtures([]byte(`
studies:
  - id: a
    surveys: [{id: x, title: X}]
  - id: b
    surveys: [{id: x, title: Y}]
`))
	if err == nil {
		t.Fatal("expected duplicate survey id error")
	}
}
