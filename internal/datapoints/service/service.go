package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"fieldsurvey/internal/datapoints/repository"
	"fieldsurvey/internal/datapoints/transport"
	"fieldsurvey/internal/events"
	"fieldsurvey/internal/questions"
	"fieldsurvey/internal/record"
	"fieldsurvey/platform/apperr"
	"fieldsurvey/platform/geo"
	"fieldsurvey/platform/logger"
	"fieldsurvey/platform/sanitize"

	"github.com/google/uuid"
)

var (
	ErrDataPointNotFound = apperr.NotFound("data point not found")
	ErrDataPointExists   = apperr.Conflict("data point already exists")
	ErrPartialLocation   = apperr.Validation("latitude and longitude must be changed together")
)

// Survey is the slice of a survey this module needs.
type Survey struct {
	ID      string
	StudyID string
	Fields  []string
}

// SurveyReader looks up surveys owned by the studies module.
type SurveyReader interface {
	GetSurvey(ctx context.Context, id string) (Survey, error)
}

type Service struct {
	repo     repository.Repository
	surveys  SurveyReader
	schema   *questions.Schema
	eventBus events.Bus
	log      *logger.Logger
	now      func() time.Time
	intn     func(int) int
}

func New(repo repository.Repository, surveys SurveyReader, schema *questions.Schema, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		surveys:  surveys,
		schema:   schema,
		eventBus: eventBus,
		log:      log,
		now:      time.Now,
		intn:     rand.IntN,
	}
}

// Export returns the survey and every data point recorded in it.
func (s *Service) Export(ctx context.Context, surveyID string) (Survey, []repository.DataPoint, error) {
	survey, err := s.surveys.GetSurvey(ctx, surveyID)
	if err != nil {
		return Survey{}, nil, err
	}
	items, err := s.repo.List(ctx, surveyID)
	if err != nil {
		return Survey{}, nil, err
	}
	return survey, items, nil
}

func (s *Service) List(ctx context.Context, surveyID string) (transport.ListResponse, error) {
	_, items, err := s.Export(ctx, surveyID)
	if err != nil {
		return transport.ListResponse{}, err
	}
	out := make([]transport.DataPointResponse, len(items))
	for i, dp := range items {
		out[i] = toResponse(dp)
	}
	return transport.ListResponse{Items: out}, nil
}

func (s *Service) Get(ctx context.Context, surveyID string, id uuid.UUID) (transport.DataPointResponse, error) {
	dp, err := s.repo.Get(ctx, surveyID, id)
	if err != nil {
		return transport.DataPointResponse{}, mapRepoErr(err)
	}
	return toResponse(dp), nil
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, surveyID string, req transport.CreateRequest) (transport.DataPointResponse, error) {
	survey, err := s.surveys.GetSurvey(ctx, surveyID)
	if err != nil {
		return transport.DataPointResponse{}, err
	}

	answers, err := s.schema.Normalize(survey.Fields, req.Answers)
	if err != nil {
		return transport.DataPointResponse{}, err
	}

	id := uuid.New()
	if req.ID != "" {
		if id, err = uuid.Parse(req.ID); err != nil {
			return transport.DataPointResponse{}, apperr.Validation("invalid id")
		}
	}

	existing, err := s.repo.List(ctx, surveyID)
	if err != nil {
		return transport.DataPointResponse{}, err
	}

	dp := repository.DataPoint{
		ID:        id,
		SurveyID:  surveyID,
		CreatedBy: &userID,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Color:     req.Color,
		Title:     sanitize.Line(req.Title),
		TimeLabel: req.TimeLabel,
		Answers:   answers,
		Note:      sanitize.Text(req.Note),
	}
	if dp.Color == "" {
		prev := ""
		if n := len(existing); n > 0 {
			prev = existing[n-1].Color
		}
		dp.Color = record.NextColor(prev, s.intn)
	}
	if dp.Title == "" {
		dp.Title = fmt.Sprintf("Person %d", len(existing)+1)
	}
	if dp.TimeLabel == "" {
		dp.TimeLabel = s.now().Format(record.TimeLabelLayout)
	}

	created, err := s.repo.Create(ctx, dp)
	if err != nil {
		return transport.DataPointResponse{}, mapRepoErr(err)
	}

	s.log.WithContext(ctx).WithSurvey(survey.StudyID, surveyID).Info("data point created", "data_point_id", created.ID)
	s.publishSaved(ctx, survey, created, true)
	return toResponse(created), nil
}

func (s *Service) Replace(ctx context.Context, surveyID string, id uuid.UUID, req transport.ReplaceRequest) (transport.DataPointResponse, error) {
	survey, err := s.surveys.GetSurvey(ctx, surveyID)
	if err != nil {
		return transport.DataPointResponse{}, err
	}
	answers, err := s.schema.Normalize(survey.Fields, req.Answers)
	if err != nil {
		return transport.DataPointResponse{}, err
	}

	dp, err := s.repo.Get(ctx, surveyID, id)
	if err != nil {
		return transport.DataPointResponse{}, mapRepoErr(err)
	}
	dp.Latitude = *req.Latitude
	dp.Longitude = *req.Longitude
	dp.Color = req.Color
	dp.Title = sanitize.Line(req.Title)
	dp.TimeLabel = req.TimeLabel
	dp.Answers = answers
	dp.Note = sanitize.Text(req.Note)

	return s.save(ctx, survey, dp)
}

// Patch applies a partial update. Answer keys present in the request
// replace the stored answer for that key; the rest are left alone.
func (s *Service) Patch(ctx context.Context, surveyID string, id uuid.UUID, req transport.PatchRequest) (transport.DataPointResponse, error) {
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return transport.DataPointResponse{}, ErrPartialLocation
	}

	survey, err := s.surveys.GetSurvey(ctx, surveyID)
	if err != nil {
		return transport.DataPointResponse{}, err
	}

	changes := repository.Changes{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Color:     req.Color,
	}
	if req.Note != nil {
		note := sanitize.Text(*req.Note)
		changes.Note = &note
	}
	if len(req.Answers) > 0 {
		keys := make([]string, 0, len(req.Answers))
		for key := range req.Answers {
			if slices.Contains(survey.Fields, key) {
				keys = append(keys, key)
			}
		}
		if changes.Answers, err = s.schema.Normalize(keys, req.Answers); err != nil {
			return transport.DataPointResponse{}, err
		}
	}

	updated, err := s.repo.Patch(ctx, surveyID, id, changes)
	if err != nil {
		return transport.DataPointResponse{}, mapRepoErr(err)
	}
	s.publishSaved(ctx, survey, updated, false)
	return toResponse(updated), nil
}

func (s *Service) Delete(ctx context.Context, surveyID string, id uuid.UUID) error {
	survey, err := s.surveys.GetSurvey(ctx, surveyID)
	if err != nil {
		return err
	}
	deletedAt, err := s.repo.Delete(ctx, surveyID, id)
	if err != nil {
		return mapRepoErr(err)
	}

	s.log.WithContext(ctx).WithSurvey(survey.StudyID, surveyID).Info("data point deleted", "data_point_id", id)
	s.eventBus.Publish(ctx, events.DataPointDeleted{
		BaseEvent:   events.NewBaseEvent(),
		StudyID:     survey.StudyID,
		SurveyID:    surveyID,
		DataPointID: id,
		DeletedAt:   deletedAt,
	})
	return nil
}

func (s *Service) save(ctx context.Context, survey Survey, dp repository.DataPoint) (transport.DataPointResponse, error) {
	updated, err := s.repo.Update(ctx, dp)
	if err != nil {
		return transport.DataPointResponse{}, mapRepoErr(err)
	}
	s.publishSaved(ctx, survey, updated, false)
	return toResponse(updated), nil
}

func (s *Service) publishSaved(ctx context.Context, survey Survey, dp repository.DataPoint, created bool) {
	s.eventBus.Publish(ctx, events.DataPointSaved{
		BaseEvent:   events.NewBaseEvent(),
		StudyID:     survey.StudyID,
		SurveyID:    survey.ID,
		DataPointID: dp.ID,
		Created:     created,
		Version:     dp.UpdatedAt,
		Document:    ToRecord(dp).Fields(),
	})
}

// ToRecord converts a stored data point into its document layout.
func ToRecord(dp repository.DataPoint) record.DataPoint {
	return record.DataPoint{
		ID:        dp.ID.String(),
		Location:  geo.Point{Latitude: dp.Latitude, Longitude: dp.Longitude},
		Color:     dp.Color,
		Title:     dp.Title,
		TimeLabel: dp.TimeLabel,
		Answers:   dp.Answers,
		Note:      dp.Note,
		CreatedAt: dp.CreatedAt,
	}
}

func mapRepoErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrDataPointNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return ErrDataPointExists
	default:
		return err
	}
}

func toResponse(dp repository.DataPoint) transport.DataPointResponse {
	answers := dp.Answers
	if answers == nil {
		answers = questions.Answers{}
	}
	return transport.DataPointResponse{
		ID:        dp.ID.String(),
		SurveyID:  dp.SurveyID,
		Latitude:  dp.Latitude,
		Longitude: dp.Longitude,
		Color:     dp.Color,
		Title:     dp.Title,
		TimeLabel: dp.TimeLabel,
		Answers:   answers,
		Note:      dp.Note,
		CreatedAt: dp.CreatedAt,
		UpdatedAt: dp.UpdatedAt,
	}
}
