package markers

import (
	"context"

	"fieldsurvey/internal/client"
	"fieldsurvey/platform/geo"
)

// DataPointAPI is the part of the REST client APIRemote uses.
type DataPointAPI interface {
	ListDataPoints(ctx context.Context, surveyID string) ([]client.DataPoint, error)
	CreateDataPoint(ctx context.Context, surveyID string, in client.NewDataPoint) (client.DataPoint, error)
	PatchDataPoint(ctx context.Context, surveyID, id string, patch client.DataPointPatch) (client.DataPoint, error)
	DeleteDataPoint(ctx context.Context, surveyID, id string) error
}

// APIRemote keeps markers in the survey API's data point endpoints. The API
// has no change feed, so Watch always fails with ErrNoChangeFeed.
type APIRemote struct {
	api      DataPointAPI
	surveyID string
}

func NewAPIRemote(api DataPointAPI, surveyID string) *APIRemote {
	return &APIRemote{api: api, surveyID: surveyID}
}

func (r *APIRemote) List(ctx context.Context) ([]Marker, error) {
	items, err := r.api.ListDataPoints(ctx, r.surveyID)
	if err != nil {
		return nil, err
	}
	out := make([]Marker, len(items))
	for i, dp := range items {
		out[i] = fromAPI(dp)
	}
	return out, nil
}

func (r *APIRemote) Create(ctx context.Context, m Marker) (Marker, error) {
	dp, err := r.api.CreateDataPoint(ctx, r.surveyID, client.NewDataPoint{
		ID:        m.ID,
		Latitude:  m.Location.Latitude,
		Longitude: m.Location.Longitude,
		Color:     m.Color,
		Title:     m.Title,
		TimeLabel: m.TimeLabel,
		Answers:   m.Answers,
		Note:      m.Note,
	})
	if err != nil {
		return Marker{}, err
	}
	return fromAPI(dp), nil
}

func (r *APIRemote) Update(ctx context.Context, id string, patch Patch) error {
	body := client.DataPointPatch{Answers: patch.Answers, Note: patch.Note}
	if patch.Location != nil {
		body.Latitude = &patch.Location.Latitude
		body.Longitude = &patch.Location.Longitude
	}
	_, err := r.api.PatchDataPoint(ctx, r.surveyID, id, body)
	if client.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}

func (r *APIRemote) Delete(ctx context.Context, id string) error {
	err := r.api.DeleteDataPoint(ctx, r.surveyID, id)
	if client.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}

func (r *APIRemote) Watch(context.Context) (<-chan Change, error) {
	return nil, ErrNoChangeFeed
}

func fromAPI(dp client.DataPoint) Marker {
	return Marker{
		ID:        dp.ID,
		Location:  geo.Point{Latitude: dp.Latitude, Longitude: dp.Longitude},
		Color:     dp.Color,
		Title:     dp.Title,
		TimeLabel: dp.TimeLabel,
		Answers:   dp.Answers,
		Note:      dp.Note,
		CreatedAt: dp.CreatedAt,
	}
}

var _ Remote = (*APIRemote)(nil)
