package service

import (
	"context"
	"errors"

	"fieldsurvey/internal/questions"
	"fieldsurvey/internal/studies/repository"
	"fieldsurvey/internal/studies/transport"
	"fieldsurvey/platform/apperr"
	"fieldsurvey/platform/geo"
	"fieldsurvey/platform/logger"
)

// Service provides read access to studies and their surveys.
type Service struct {
	repo   repository.Repository
	schema *questions.Schema
	log    *logger.Logger
}

// New creates a new studies service.
func New(repo repository.Repository, schema *questions.Schema, log *logger.Logger) *Service {
	return &Service{repo: repo, schema: schema, log: log}
}

// List returns every study with its surveys.
func (s *Service) List(ctx context.Context) (transport.StudyListResponse, error) {
	studies, err := s.repo.ListStudies(ctx)
	if err != nil {
		return transport.StudyListResponse{}, err
	}
	items := make([]transport.StudyResponse, len(studies))
	for i, st := range studies {
		items[i] = s.toStudyResponse(st)
	}
	return transport.StudyListResponse{Items: items}, nil
}

// Get returns a single study.
func (s *Service) Get(ctx context.Context, id string) (transport.StudyResponse, error) {
	st, err := s.repo.GetStudy(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.StudyResponse{}, apperr.NotFound("study not found")
	}
	if err != nil {
		return transport.StudyResponse{}, err
	}
	return s.toStudyResponse(st), nil
}

// GetSurvey returns the survey with its field list restricted to questions
// the schema knows.
func (s *Service) GetSurvey(ctx context.Context, id string) (repository.Survey, error) {
	survey, err := s.repo.GetSurvey(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Survey{}, apperr.NotFound("survey not found")
	}
	if err != nil {
		return repository.Survey{}, err
	}
	survey.Fields = s.knownFields(survey)
	return survey, nil
}

// GetSurveyResponse is GetSurvey in its HTTP shape.
func (s *Service) GetSurveyResponse(ctx context.Context, id string) (transport.SurveyResponse, error) {
	survey, err := s.GetSurvey(ctx, id)
	if err != nil {
		return transport.SurveyResponse{}, err
	}
	return toSurveyResponse(survey), nil
}

func (s *Service) knownFields(survey repository.Survey) []string {
	fields := make([]string, 0, len(survey.Fields))
	for _, key := range survey.Fields {
		if _, ok := s.schema.Lookup(key); !ok {
			s.log.Warn("survey references unknown question", "survey_id", survey.ID, "key", key)
			continue
		}
		fields = append(fields, key)
	}
	return fields
}

func (s *Service) toStudyResponse(st repository.Study) transport.StudyResponse {
	surveys := make([]transport.SurveyResponse, len(st.Surveys))
	for i, survey := range st.Surveys {
		survey.Fields = s.knownFields(survey)
		surveys[i] = toSurveyResponse(survey)
	}
	return transport.StudyResponse{
		ID:          st.ID,
		Name:        st.Name,
		Author:      st.Author,
		Description: st.Description,
		Surveys:     surveys,
	}
}

func toSurveyResponse(survey repository.Survey) transport.SurveyResponse {
	boundary := survey.Boundary
	if boundary == nil {
		boundary = geo.Polygon{}
	}
	return transport.SurveyResponse{
		ID:       survey.ID,
		StudyID:  survey.StudyID,
		Title:    survey.Title,
		Boundary: boundary,
		Center:   boundary.Centroid(),
		Fields:   survey.Fields,
	}
}
