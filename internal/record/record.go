// Package record defines how a data point is laid out in the document store.
// The mirror worker writes this shape and the field app's marker store reads
// and updates it, so both sides stay compatible.
package record

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"fieldsurvey/internal/questions"
	"fieldsurvey/platform/docstore"
	"fieldsurvey/platform/geo"
)

const (
	FieldLatitude  = "latitude"
	FieldLongitude = "longitude"
	FieldColor     = "color"
	FieldTitle     = "title"
	FieldTimeLabel = "time_label"
	FieldNote      = "note"
	FieldCreatedAt = "created_at"

	answerPrefix = "answers."
)

// DataPoint is one observed person.
type DataPoint struct {
	ID        string
	Location  geo.Point
	Color     string
	Title     string
	TimeLabel string
	Answers   questions.Answers
	Note      string
	CreatedAt time.Time
}

// Clone returns a deep copy.
func (dp DataPoint) Clone() DataPoint {
	dp.Answers = dp.Answers.Clone()
	return dp
}

// AnswerField is the document field holding the answer to key.
func AnswerField(key string) string {
	return answerPrefix + key
}

// Collection returns the path segments of a survey's data point collection.
func Collection(studyID, surveyID string) []string {
	return []string{"studies", studyID, "surveys", surveyID, "datapoints"}
}

// LocationFields returns the fields written when a point moves.
func LocationFields(p geo.Point) map[string]any {
	return map[string]any{FieldLatitude: p.Latitude, FieldLongitude: p.Longitude}
}

// Fields flattens dp into document fields, one per answer.
func (dp DataPoint) Fields() map[string]any {
	fields := map[string]any{
		FieldLatitude:  dp.Location.Latitude,
		FieldLongitude: dp.Location.Longitude,
		FieldColor:     dp.Color,
		FieldTitle:     dp.Title,
		FieldTimeLabel: dp.TimeLabel,
		FieldNote:      dp.Note,
	}
	if !dp.CreatedAt.IsZero() {
		fields[FieldCreatedAt] = dp.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	for key, value := range dp.Answers {
		fields[AnswerField(key)] = value
	}
	return fields
}

// FromDocument rebuilds a data point from a stored document.
func FromDocument(doc docstore.Document) (DataPoint, error) {
	return FromFields(doc.ID, doc.Fields, doc.CreateTime)
}

// FromFields rebuilds a data point from raw document fields. createTime is
// used when the document carries no created_at field.
func FromFields(id string, fields map[string]json.RawMessage, createTime time.Time) (DataPoint, error) {
	dp := DataPoint{ID: id, Answers: questions.Answers{}, CreatedAt: createTime}
	if err := ApplyFields(&dp, fields); err != nil {
		return DataPoint{}, err
	}
	return dp, nil
}

// ApplyFields overlays raw document fields onto dp. Unknown fields are
// ignored.
func ApplyFields(dp *DataPoint, fields map[string]json.RawMessage) error {
	if dp.Answers == nil {
		dp.Answers = questions.Answers{}
	}
	for name, raw := range fields {
		var err error
		switch {
		case strings.HasPrefix(name, answerPrefix):
			var v questions.Value
			err = json.Unmarshal(raw, &v)
			dp.Answers[strings.TrimPrefix(name, answerPrefix)] = v
		case name == FieldLatitude:
			err = json.Unmarshal(raw, &dp.Location.Latitude)
		case name == FieldLongitude:
			err = json.Unmarshal(raw, &dp.Location.Longitude)
		case name == FieldColor:
			err = json.Unmarshal(raw, &dp.Color)
		case name == FieldTitle:
			err = json.Unmarshal(raw, &dp.Title)
		case name == FieldTimeLabel:
			err = json.Unmarshal(raw, &dp.TimeLabel)
		case name == FieldNote:
			err = json.Unmarshal(raw, &dp.Note)
		case name == FieldCreatedAt:
			var s string
			if err = json.Unmarshal(raw, &s); err == nil {
				dp.CreatedAt, err = time.Parse(time.RFC3339Nano, s)
			}
		}
		if err != nil {
			return fmt.Errorf("data point %s field %s: %w", dp.ID, name, err)
		}
	}
	return nil
}
