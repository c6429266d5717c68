package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fieldsurvey/internal/questions"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound  = errors.New("data point not found")
	ErrDuplicate = errors.New("data point already exists")
)

const uniqueViolation = "23505"

// DataPoint is a stored observation.
type DataPoint struct {
	ID        uuid.UUID
	SurveyID  string
	CreatedBy *uuid.UUID
	Latitude  float64
	Longitude float64
	Color     string
	Title     string
	TimeLabel string
	Answers   questions.Answers
	Note      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Changes is a partial update. Nil fields keep their stored value and
// Answers merge key by key into the stored answers.
type Changes struct {
	Latitude  *float64
	Longitude *float64
	Color     *string
	Note      *string
	Answers   questions.Answers
}

// Apply merges the changes into dp the way Patch does in the database.
func (ch Changes) Apply(dp *DataPoint) {
	if ch.Latitude != nil {
		dp.Latitude = *ch.Latitude
	}
	if ch.Longitude != nil {
		dp.Longitude = *ch.Longitude
	}
	if ch.Color != nil {
		dp.Color = *ch.Color
	}
	if ch.Note != nil {
		dp.Note = *ch.Note
	}
	if len(ch.Answers) > 0 {
		merged := dp.Answers.Clone()
		if merged == nil {
			merged = questions.Answers{}
		}
		for key, value := range ch.Answers {
			merged[key] = value
		}
		dp.Answers = merged
	}
}

// Repository persists data points.
type Repository interface {
	List(ctx context.Context, surveyID string) ([]DataPoint, error)
	Get(ctx context.Context, surveyID string, id uuid.UUID) (DataPoint, error)
	Create(ctx context.Context, dp DataPoint) (DataPoint, error)
	Update(ctx context.Context, dp DataPoint) (DataPoint, error)
	Patch(ctx context.Context, surveyID string, id uuid.UUID, ch Changes) (DataPoint, error)
	// Delete returns the database time of the deletion.
	Delete(ctx context.Context, surveyID string, id uuid.UUID) (time.Time, error)
}

// Postgres implements Repository on the data_points table.
type Postgres struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const columns = `id, survey_id, created_by, latitude, longitude, color, title, time_label, answers, note, created_at, updated_at`

func scan(row pgx.Row) (DataPoint, error) {
	var dp DataPoint
	var answers []byte
	err := row.Scan(
		&dp.ID,
		&dp.SurveyID,
		&dp.CreatedBy,
		&dp.Latitude,
		&dp.Longitude,
		&dp.Color,
		&dp.Title,
		&dp.TimeLabel,
		&answers,
		&dp.Note,
		&dp.CreatedAt,
		&dp.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return DataPoint{}, ErrNotFound
	}
	if err != nil {
		return DataPoint{}, err
	}
	if err := json.Unmarshal(answers, &dp.Answers); err != nil {
		return DataPoint{}, fmt.Errorf("decode answers of %s: %w", dp.ID, err)
	}
	return dp, nil
}

func (r *Postgres) List(ctx context.Context, surveyID string) ([]DataPoint, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+columns+` FROM data_points
		WHERE survey_id = $1
		ORDER BY created_at, id
	`, surveyID)
	if err != nil {
		return nil, fmt.Errorf("list data points: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (DataPoint, error) {
		return scan(row)
	})
	if err != nil {
		return nil, fmt.Errorf("list data points: %w", err)
	}
	return items, nil
}

func (r *Postgres) Get(ctx context.Context, surveyID string, id uuid.UUID) (DataPoint, error) {
	return scan(r.pool.QueryRow(ctx, `
		SELECT `+columns+` FROM data_points WHERE survey_id = $1 AND id = $2
	`, surveyID, id))
}

func (r *Postgres) Create(ctx context.Context, dp DataPoint) (DataPoint, error) {
	answers, err := json.Marshal(dp.Answers)
	if err != nil {
		return DataPoint{}, err
	}

	created, err := scan(r.pool.QueryRow(ctx, `
		INSERT INTO data_points (id, survey_id, created_by, latitude, longitude, color, title, time_label, answers, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+columns,
		dp.ID, dp.SurveyID, dp.CreatedBy, dp.Latitude, dp.Longitude,
		dp.Color, dp.Title, dp.TimeLabel, answers, dp.Note,
	))

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return DataPoint{}, ErrDuplicate
	}
	if err != nil {
		return DataPoint{}, fmt.Errorf("insert data point: %w", err)
	}
	return created, nil
}

func (r *Postgres) Update(ctx context.Context, dp DataPoint) (DataPoint, error) {
	answers, err := json.Marshal(dp.Answers)
	if err != nil {
		return DataPoint{}, err
	}

	updated, err := scan(r.pool.QueryRow(ctx, `
		UPDATE data_points
		SET latitude = $3, longitude = $4, color = $5, title = $6, time_label = $7,
		    answers = $8, note = $9, updated_at = now()
		WHERE survey_id = $1 AND id = $2
		RETURNING `+columns,
		dp.SurveyID, dp.ID, dp.Latitude, dp.Longitude,
		dp.Color, dp.Title, dp.TimeLabel, answers, dp.Note,
	))
	if errors.Is(err, ErrNotFound) {
		return DataPoint{}, ErrNotFound
	}
	if err != nil {
		return DataPoint{}, fmt.Errorf("update data point: %w", err)
	}
	return updated, nil
}

// Patch merges ch into the row in a single statement, so concurrent patches
// of different answer keys both survive.
func (r *Postgres) Patch(ctx context.Context, surveyID string, id uuid.UUID, ch Changes) (DataPoint, error) {
	answers := "{}"
	if len(ch.Answers) > 0 {
		b, err := json.Marshal(ch.Answers)
		if err != nil {
			return DataPoint{}, err
		}
		answers = string(b)
	}

	updated, err := scan(r.pool.QueryRow(ctx, `
		UPDATE data_points
		SET latitude = COALESCE($3, latitude), longitude = COALESCE($4, longitude),
		    color = COALESCE($5, color), note = COALESCE($6, note),
		    answers = answers || $7::jsonb, updated_at = now()
		WHERE survey_id = $1 AND id = $2
		RETURNING `+columns,
		surveyID, id, ch.Latitude, ch.Longitude, ch.Color, ch.Note, answers,
	))
	if errors.Is(err, ErrNotFound) {
		return DataPoint{}, ErrNotFound
	}
	if err != nil {
		return DataPoint{}, fmt.Errorf("patch data point: %w", err)
	}
	return updated, nil
}

func (r *Postgres) Delete(ctx context.Context, surveyID string, id uuid.UUID) (time.Time, error) {
	var deletedAt time.Time
	err := r.pool.QueryRow(ctx, `
		DELETE FROM data_points WHERE survey_id = $1 AND id = $2
		RETURNING now()
	`, surveyID, id).Scan(&deletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("delete data point: %w", err)
	}
	return deletedAt, nil
}

var _ Repository = (*Postgres)(nil)
