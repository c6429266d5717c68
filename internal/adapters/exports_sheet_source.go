package adapters

import (
	"context"

	datapointsrepo "fieldsurvey/internal/datapoints/repository"
	datapointsvc "fieldsurvey/internal/datapoints/service"
	"fieldsurvey/internal/exports"
	"fieldsurvey/internal/record"
)

// DataPointExporter is the narrow data point service surface exports need.
type DataPointExporter interface {
	Export(ctx context.Context, surveyID string) (datapointsvc.Survey, []datapointsrepo.DataPoint, error)
}

// ExportSheetSource adapts the data point service to exports.SheetSource.
type ExportSheetSource struct {
	datapoints DataPointExporter
}

func NewExportSheetSource(datapoints DataPointExporter) *ExportSheetSource {
	return &ExportSheetSource{datapoints: datapoints}
}

func (a *ExportSheetSource) LoadSheet(ctx context.Context, surveyID string) (exports.Sheet, error) {
	survey, items, err := a.datapoints.Export(ctx, surveyID)
	if err != nil {
		return exports.Sheet{}, err
	}

	rows := make([]record.DataPoint, len(items))
	for i, dp := range items {
		rows[i] = datapointsvc.ToRecord(dp)
	}
	return exports.Sheet{StudyID: survey.StudyID, SurveyID: survey.ID, Fields: survey.Fields, Rows: rows}, nil
}

var _ exports.SheetSource = (*ExportSheetSource)(nil)
