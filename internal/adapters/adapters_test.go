package adapters

import (
	"context"
	"testing"

	datapointsrepo "fieldsurvey/internal/datapoints/repository"
	datapointsvc "fieldsurvey/internal/datapoints/service"
	"fieldsurvey/internal/questions"
	studiesrepo "fieldsurvey/internal/studies/repository"

	"github.com/google/uuid"
)

type studyStub struct{}

func (studyStub) GetSurvey(_ context.Context, id string) (studiesrepo.Survey, error) {
	return studiesrepo.Survey{ID: id, StudyID: "market-square", Title: "Before", Fields: []string{"age"}}, nil
}

func TestDataPointSurveyReader(t *testing.T) {
	got, err := NewDataPointSurveyReader(studyStub{}).GetSurvey(context.Background(), "market-before")
	if err != nil {
		t.Fatalf("get survey: %v", err)
	}
	if got.StudyID != "market-square" || len(got.Fields) != 1 || got.Fields[0] != "age" {
		t.Fatalf("unexpected survey %+v", got)
	}
}

type exporterStub struct {
	items []datapointsrepo.DataPoint
}

func (e exporterStub) Export(_ context.Context, surveyID string) (datapointsvc.Survey, []datapointsrepo.DataPoint, error) {
	return datapointsvc.Survey{ID: surveyID, StudyID: "market-square", Fields: []string{"age"}}, e.items, nil
}

func TestExportSheetSource(t *testing.T) {
	id := uuid.New()
	stub := exporterStub{items: []datapointsrepo.DataPoint{{
		ID:        id,
		SurveyID:  "market-before",
		Latitude:  1,
		Longitude: 2,
		Title:     "Person 1",
		Answers:   questions.Answers{"age": questions.Single("65+")},
	}}}

	sheet, err := NewExportSheetSource(stub).LoadSheet(context.Background(), "market-before")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sheet.StudyID != "market-square" || len(sheet.Rows) != 1 {
		t.Fatalf("unexpected sheet %+v", sheet)
	}
	row := sheet.Rows[0]
	if row.ID != id.String() || row.Location.Longitude != 2 || row.Answers["age"].String() != "65+" {
		t.Fatalf("unexpected row %+v", row)
	}
}
