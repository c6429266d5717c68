package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fieldsurvey/internal/events"
	"fieldsurvey/internal/record"
	"fieldsurvey/platform/docstore"
	"fieldsurvey/platform/logger"

	"github.com/hibiken/asynq"
)

// MirrorPublisher turns data point events into mirror tasks.
type MirrorPublisher struct {
	queue MirrorEnqueuer
	log   *logger.Logger
}

func NewMirrorPublisher(queue MirrorEnqueuer, log *logger.Logger) *MirrorPublisher {
	return &MirrorPublisher{queue: queue, log: log}
}

// RegisterHandlers subscribes the publisher to data point events.
func (p *MirrorPublisher) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.NameDataPointSaved, p)
	bus.Subscribe(events.NameDataPointDeleted, p)
}

func (p *MirrorPublisher) Handle(ctx context.Context, event events.Event) error {
	var payload MirrorPayload
	switch e := event.(type) {
	case events.DataPointSaved:
		payload = MirrorPayload{
			StudyID:     e.StudyID,
			SurveyID:    e.SurveyID,
			DataPointID: e.DataPointID.String(),
			Version:     e.Version,
			Document:    e.Document,
		}
	case events.DataPointDeleted:
		payload = MirrorPayload{
			StudyID:     e.StudyID,
			SurveyID:    e.SurveyID,
			DataPointID: e.DataPointID.String(),
			Version:     e.DeletedAt,
			Deleted:     true,
		}
	default:
		return nil
	}

	if err := p.queue.EnqueueMirror(ctx, payload); err != nil {
		p.log.SyncEvent("enqueue", payload.DataPointID, err)
		return fmt.Errorf("enqueue mirror of %s: %w", payload.DataPointID, err)
	}
	return nil
}

// Mirror applies mirror tasks to the document store.
type Mirror struct {
	store *docstore.Store
	log   *logger.Logger
}

func NewMirror(store *docstore.Store, log *logger.Logger) *Mirror {
	return &Mirror{store: store, log: log}
}

func (m *Mirror) HandleTask(ctx context.Context, task *asynq.Task) error {
	payload, err := parseMirrorPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return m.Apply(ctx, payload)
}

// Apply writes or removes the document named by payload. A task older than
// what the document store already holds is dropped.
func (m *Mirror) Apply(ctx context.Context, payload MirrorPayload) error {
	col := m.store.Collection(record.Collection(payload.StudyID, payload.SurveyID)...)
	at := payload.Version
	if at.IsZero() {
		at = time.Now()
	}

	op := "mirror_set"
	var err error
	if payload.Deleted {
		op = "mirror_delete"
		_, err = col.DeleteAt(ctx, payload.DataPointID, at)
	} else {
		err = col.SetAt(ctx, payload.DataPointID, payload.Document, at)
	}
	if errors.Is(err, docstore.ErrStale) {
		m.log.Info("stale mirror task dropped", "op", op, "data_point_id", payload.DataPointID, "version", at)
		return nil
	}
	m.log.SyncEvent(op, payload.DataPointID, err)
	return err
}
