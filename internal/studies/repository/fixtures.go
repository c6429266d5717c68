package repository

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures.yaml
var demoStudiesYAML []byte

// Fixtures serves a fixed set of studies from memory. Used for demos and
// offline development when STUDIES_DEMO is set.
type Fixtures struct {
	studies []Study
	surveys map[string]Survey
}

// NewFixtures parses a YAML document of studies.
func NewFixtures(data []byte) (*Fixtures, error) {
	var doc struct {
		Studies []Study `yaml:"studies"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse study fixtures: %w", err)
	}

	f := &Fixtures{studies: doc.Studies, surveys: make(map[string]Survey)}
	for i := range f.studies {
		for j := range f.studies[i].Surveys {
			survey := &f.studies[i].Surveys[j]
			survey.StudyID = f.studies[i].ID
			if _, dup := f.surveys[survey.ID]; dup {
				return nil, fmt.Errorf("parse study fixtures: duplicate survey id %q", survey.ID)
			}
			f.surveys[survey.ID] = *survey
		}
	}
	return f, nil
}

// NewDemoFixtures returns the built-in demo studies.
func NewDemoFixtures() (*Fixtures, error) {
	return NewFixtures(demoStudiesYAML)
}

func (f *Fixtures) ListStudies(context.Context) ([]Study, error) {
	return append([]Study(nil), f.studies...), nil
}

func (f *Fixtures) GetStudy(_ context.Context, id string) (Study, error) {
	for _, s := range f.studies {
		if s.ID == id {
			return s, nil
		}
	}
	return Study{}, ErrNotFound
}

func (f *Fixtures) GetSurvey(_ context.Context, id string) (Survey, error) {
	s, ok := f.surveys[id]
	if !ok {
		return Survey{}, ErrNotFound
	}
	return s, nil
}

var _ Repository = (*Fixtures)(nil)
