package repository

import (
	"context"
	"errors"
	"fmt"

	"fieldsurvey/platform/geo"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres reads studies from the studies and surveys tables.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const surveyColumns = `id, study_id, title, boundary, fields`

func scanSurvey(row pgx.Row) (Survey, error) {
	var s Survey
	var boundary geo.Polygon
	if err := row.Scan(&s.ID, &s.StudyID, &s.Title, &boundary, &s.Fields); err != nil {
		return Survey{}, err
	}
	s.Boundary = boundary
	return s, nil
}

func (r *Postgres) ListStudies(ctx context.Context) ([]Study, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, author, description FROM studies ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list studies: %w", err)
	}
	studies, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Study, error) {
		var s Study
		err := row.Scan(&s.ID, &s.Name, &s.Author, &s.Description)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("list studies: %w", err)
	}

	surveys, err := r.listSurveys(ctx, "")
	if err != nil {
		return nil, err
	}
	byStudy := make(map[string][]Survey)
	for _, s := range surveys {
		byStudy[s.StudyID] = append(byStudy[s.StudyID], s)
	}
	for i := range studies {
		studies[i].Surveys = byStudy[studies[i].ID]
	}
	return studies, nil
}

func (r *Postgres) GetStudy(ctx context.Context, id string) (Study, error) {
	var s Study
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, author, description FROM studies WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.Author, &s.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return Study{}, ErrNotFound
	}
	if err != nil {
		return Study{}, fmt.Errorf("get study: %w", err)
	}

	s.Surveys, err = r.listSurveys(ctx, id)
	return s, err
}

func (r *Postgres) GetSurvey(ctx context.Context, id string) (Survey, error) {
	s, err := scanSurvey(r.pool.QueryRow(ctx, `SELECT `+surveyColumns+` FROM surveys WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Survey{}, ErrNotFound
	}
	if err != nil {
		return Survey{}, fmt.Errorf("get survey: %w", err)
	}
	return s, nil
}

func (r *Postgres) listSurveys(ctx context.Context, studyID string) ([]Survey, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+surveyColumns+` FROM surveys
		WHERE $1 = '' OR study_id = $1
		ORDER BY study_id, display_order, id
	`, studyID)
	if err != nil {
		return nil, fmt.Errorf("list surveys: %w", err)
	}
	surveys, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Survey, error) {
		return scanSurvey(row)
	})
	if err != nil {
		return nil, fmt.Errorf("list surveys: %w", err)
	}
	return surveys, nil
}

var _ Repository = (*Postgres)(nil)
