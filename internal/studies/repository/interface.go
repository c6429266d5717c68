package repository

import (
	"context"
	"errors"

	"fieldsurvey/platform/geo"
)

var ErrNotFound = errors.New("not found")

// Study groups the surveys run at one site.
type Study struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Author      string   `yaml:"author"`
	Description string   `yaml:"description"`
	Surveys     []Survey `yaml:"surveys"`
}

// Survey is one observation session of a study.
type Survey struct {
	ID       string      `yaml:"id"`
	StudyID  string      `yaml:"-"`
	Title    string      `yaml:"title"`
	Boundary geo.Polygon `yaml:"boundary"`
	Fields   []string    `yaml:"fields"`
}

// Repository provides read access to studies and surveys.
type Repository interface {
	ListStudies(ctx context.Context) ([]Study, error)
	GetStudy(ctx context.Context, id string) (Study, error)
	GetSurvey(ctx context.Context, id string) (Survey, error)
}
