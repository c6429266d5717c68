package transport

import (
	"time"

	"fieldsurvey/internal/questions"
)

// CreateRequest adds a data point. The id is optional so a field client can
// choose it up front; color, title and time label default server-side.
// Colors must come from the marker palette.
type CreateRequest struct {
	ID        string            `json:"id" validate:"omitempty,uuid"`
	Latitude  *float64          `json:"latitude" validate:"required,latitude"`
	Longitude *float64          `json:"longitude" validate:"required,longitude"`
	Color     string            `json:"color" validate:"omitempty,palette"`
	Title     string            `json:"title" validate:"max=80"`
	TimeLabel string            `json:"time_label" validate:"max=16"`
	Answers   questions.Answers `json:"answers"`
	Note      string            `json:"note" validate:"max=2000"`
}

// ReplaceRequest overwrites every mutable field of a data point.
type ReplaceRequest struct {
	Latitude  *float64          `json:"latitude" validate:"required,latitude"`
	Longitude *float64          `json:"longitude" validate:"required,longitude"`
	Color     string            `json:"color" validate:"required,palette"`
	Title     string            `json:"title" validate:"required,max=80"`
	TimeLabel string            `json:"time_label" validate:"required,max=16"`
	Answers   questions.Answers `json:"answers"`
	Note      string            `json:"note" validate:"max=2000"`
}

// PatchRequest changes only the fields present. Answers merge key by key.
type PatchRequest struct {
	Latitude  *float64          `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64          `json:"longitude" validate:"omitempty,longitude"`
	Color     *string           `json:"color" validate:"omitempty,palette"`
	Note      *string           `json:"note" validate:"omitempty,max=2000"`
	Answers   questions.Answers `json:"answers"`
}

type DataPointResponse struct {
	ID        string            `json:"id"`
	SurveyID  string            `json:"survey_id"`
	Latitude  float64           `json:"latitude"`
	Longitude float64           `json:"longitude"`
	Color     string            `json:"color"`
	Title     string            `json:"title"`
	TimeLabel string            `json:"time_label"`
	Answers   questions.Answers `json:"answers"`
	Note      string            `json:"note"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type ListResponse struct {
	Items []DataPointResponse `json:"items"`
}
