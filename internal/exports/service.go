package exports

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"fieldsurvey/internal/adapters/storage"
	"fieldsurvey/platform/apperr"
	"fieldsurvey/platform/logger"

	"golang.org/x/sync/errgroup"
)

const csvContentType = "text/csv"

var ErrStorageDisabled = apperr.Unavailable("export storage is not configured")

// SheetSource loads the data points of a survey.
type SheetSource interface {
	LoadSheet(ctx context.Context, surveyID string) (Sheet, error)
}

// Result points at an uploaded export.
type Result struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"file_key"`
	ExpiresAt time.Time `json:"expires_at"`
	Rows      int       `json:"rows"`
}

type Service struct {
	source  SheetSource
	storage storage.ObjectStore
	bucket  string
	log     *logger.Logger
}

// NewService creates the export service. store may be nil, in which case
// every export fails with ErrStorageDisabled.
func NewService(source SheetSource, store storage.ObjectStore, bucket string, log *logger.Logger) *Service {
	return &Service{source: source, storage: store, bucket: bucket, log: log}
}

// Export renders the survey to CSV, uploads it and returns a download link.
func (s *Service) Export(ctx context.Context, surveyID string) (Result, error) {
	if s.storage == nil {
		return Result{}, ErrStorageDisabled
	}

	var sheet Sheet
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sheet, err = s.source.LoadSheet(gctx, surveyID)
		return err
	})
	g.Go(func() error {
		return s.storage.EnsureBucket(gctx, s.bucket)
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, sheet); err != nil {
		return Result{}, fmt.Errorf("render export: %w", err)
	}

	folder := "exports/" + sheet.StudyID
	key, err := s.storage.Put(ctx, s.bucket, storage.Object{
		Folder:      folder,
		Name:        sheet.SurveyID + ".csv",
		ContentType: csvContentType,
		Body:        &buf,
		Size:        int64(buf.Len()),
	})
	if err != nil {
		return Result{}, err
	}
	link, err := s.storage.PresignGet(ctx, s.bucket, key)
	if err != nil {
		return Result{}, err
	}

	s.log.WithContext(ctx).WithSurvey(sheet.StudyID, sheet.SurveyID).Info("survey exported", "file_key", key, "rows", len(sheet.Rows))
	return Result{URL: link.URL, FileKey: key, ExpiresAt: link.ExpiresAt, Rows: len(sheet.Rows)}, nil
}
