package adapters

import (
	"context"

	datapointsvc "fieldsurvey/internal/datapoints/service"
	studiesrepo "fieldsurvey/internal/studies/repository"
)

// StudySurveyGetter is the narrow studies-service surface the data point
// module depends on.
type StudySurveyGetter interface {
	GetSurvey(ctx context.Context, id string) (studiesrepo.Survey, error)
}

// DataPointSurveyReader adapts the studies service to the data point
// module's SurveyReader port.
type DataPointSurveyReader struct {
	studies StudySurveyGetter
}

func NewDataPointSurveyReader(studies StudySurveyGetter) *DataPointSurveyReader {
	return &DataPointSurveyReader{studies: studies}
}

func (a *DataPointSurveyReader) GetSurvey(ctx context.Context, id string) (datapointsvc.Survey, error) {
	survey, err := a.studies.GetSurvey(ctx, id)
	if err != nil {
		return datapointsvc.Survey{}, err
	}
	return datapointsvc.Survey{ID: survey.ID, StudyID: survey.StudyID, Fields: survey.Fields}, nil
}

var _ datapointsvc.SurveyReader = (*DataPointSurveyReader)(nil)
