package exports

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"fieldsurvey/internal/record"
)

// Sheet is one survey's data points, ready to be written out.
type Sheet struct {
	StudyID  string
	SurveyID string
	Fields   []string
	Rows     []record.DataPoint
}

var fixedColumns = []string{
	"id",
	record.FieldTitle,
	record.FieldTimeLabel,
	record.FieldLatitude,
	record.FieldLongitude,
	record.FieldColor,
	record.FieldNote,
	record.FieldCreatedAt,
}

// Header returns the column names: fixed columns then one per survey field.
func (s Sheet) Header() []string {
	return append(append([]string{}, fixedColumns...), s.Fields...)
}

// WriteCSV writes the sheet with a header row. Multi-select answers are
// joined with semicolons.
func WriteCSV(w io.Writer, sheet Sheet) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(sheet.Header()); err != nil {
		return err
	}

	for _, dp := range sheet.Rows {
		row := []string{
			dp.ID,
			dp.Title,
			dp.TimeLabel,
			strconv.FormatFloat(dp.Location.Latitude, 'f', -1, 64),
			strconv.FormatFloat(dp.Location.Longitude, 'f', -1, 64),
			dp.Color,
			dp.Note,
			dp.CreatedAt.UTC().Format(time.RFC3339),
		}
		for _, key := range sheet.Fields {
			row = append(row, dp.Answers[key].String())
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
