package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"fieldsurvey/internal/questions"
	"fieldsurvey/platform/geo"
)

type Survey struct {
	ID       string      `json:"id"`
	StudyID  string      `json:"study_id"`
	Title    string      `json:"title"`
	Boundary geo.Polygon `json:"boundary"`
	Center   geo.Point   `json:"center"`
	Fields   []string    `json:"fields"`
}

type Study struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Author      string   `json:"author"`
	Description string   `json:"description"`
	Surveys     []Survey `json:"surveys"`
}

// DataPoint is a data point as the API returns it.
type DataPoint struct {
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

// NewDataPoint is the body of a create call.
type NewDataPoint struct {
	ID        string            `json:"id,omitempty"`
	Latitude  float64           `json:"latitude"`
	Longitude float64           `json:"longitude"`
	Color     string            `json:"color,omitempty"`
	Title     string            `json:"title,omitempty"`
	TimeLabel string            `json:"timeLabel,omitempty"`
	Answers   questions.Answers `json:"answers,omitempty"`
	Note      string            `json:"note,omitempty"`
}

// DataPointPatch changes only the non-nil fields. Answers merge key by key.
type DataPointPatch struct {
	Latitude  *float64          `json:"latitude,omitempty"`
	Longitude *float64          `json:"longitude,omitempty"`
	Color     *string           `json:"color,omitempty"`
	Note      *string           `json:"note,omitempty"`
	Answers   questions.Answers `json:"answers,omitempty"`
}

type ExportLink struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"file_key"`
	ExpiresAt time.Time `json:"expires_at"`
	Rows      int       `json:"rows"`
}

type list[T any] struct {
	Items []T `json:"items"`
}

func dataPointsPath(surveyID string) string {
	return "/surveys/" + url.PathEscape(surveyID) + "/data-points"
}

func (c *Client) ListStudies(ctx context.Context) ([]Study, error) {
	var out list[Study]
	err := c.do(ctx, http.MethodGet, "/studies", nil, &out, "could not load studies")
	return out.Items, err
}

func (c *Client) GetStudy(ctx context.Context, id string) (Study, error) {
	var out Study
	err := c.do(ctx, http.MethodGet, "/studies/"+url.PathEscape(id), nil, &out, "could not load study")
	return out, err
}

func (c *Client) GetSurvey(ctx context.Context, id string) (Survey, error) {
	var out Survey
	err := c.do(ctx, http.MethodGet, "/surveys/"+url.PathEscape(id), nil, &out, "could not load survey")
	return out, err
}

// Questions fetches the question schema.
func (c *Client) Questions(ctx context.Context) ([]questions.Question, error) {
	var out struct {
		Questions []questions.Question `json:"questions"`
	}
	err := c.do(ctx, http.MethodGet, "/questions", nil, &out, "could not load questions")
	return out.Questions, err
}

func (c *Client) ListDataPoints(ctx context.Context, surveyID string) ([]DataPoint, error) {
	var out list[DataPoint]
	err := c.do(ctx, http.MethodGet, dataPointsPath(surveyID), nil, &out, "could not load data points")
	return out.Items, err
}

func (c *Client) CreateDataPoint(ctx context.Context, surveyID string, in NewDataPoint) (DataPoint, error) {
	var out DataPoint
	err := c.do(ctx, http.MethodPost, dataPointsPath(surveyID), in, &out, "could not save data point")
	return out, err
}

func (c *Client) PatchDataPoint(ctx context.Context, surveyID, id string, patch DataPointPatch) (DataPoint, error) {
	var out DataPoint
	path := dataPointsPath(surveyID) + "/" + url.PathEscape(id)
	err := c.do(ctx, http.MethodPatch, path, patch, &out, "could not update data point")
	return out, err
}

func (c *Client) DeleteDataPoint(ctx context.Context, surveyID, id string) error {
	path := dataPointsPath(surveyID) + "/" + url.PathEscape(id)
	return c.do(ctx, http.MethodDelete, path, nil, nil, "could not delete data point")
}

// Export asks the API to export a survey and returns the download link.
func (c *Client) Export(ctx context.Context, surveyID string) (ExportLink, error) {
	var out ExportLink
	err := c.do(ctx, http.MethodPost, "/surveys/"+url.PathEscape(surveyID)+"/exports", nil, &out, "could not export survey")
	return out, err
}
