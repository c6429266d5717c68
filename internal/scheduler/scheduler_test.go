package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"fieldsurvey/internal/events"
	"fieldsurvey/internal/questions"
	"fieldsurvey/internal/record"
	"fieldsurvey/platform/docstore"
	"fieldsurvey/platform/geo"
	"fieldsurvey/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

type recordingQueue struct {
	payloads []MirrorPayload
	err      error
}

func (q *recordingQueue) EnqueueMirror(_ context.Context, payload MirrorPayload) error {
	q.payloads = append(q.payloads, payload)
	return q.err
}

func newTestStore(t *testing.T) *docstore.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return docstore.New(rdb)
}

func TestPublisherEnqueuesDataPointEvents(t *testing.T) {
	queue := &recordingQueue{}
	bus := events.NewInMemoryBus(logger.Discard())
	NewMirrorPublisher(queue, logger.Discard()).RegisterHandlers(bus)

	id := uuid.New()
	ctx := context.Background()
	if err := bus.PublishSync(ctx, events.DataPointSaved{StudyID: "s", SurveyID: "v", DataPointID: id, Document: map[string]any{"title": "Person 1"}}); err != nil {
		t.Fatalf("publish saved: %v", err)
	}
	if err := bus.PublishSync(ctx, events.DataPointDeleted{StudyID: "s", SurveyID: "v", DataPointID: id}); err != nil {
		t.Fatalf("publish deleted: %v", err)
	}

	if len(queue.payloads) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(queue.payloads))
	}
	if queue.payloads[0].Deleted || queue.payloads[0].Document["title"] != "Person 1" {
		t.Fatalf("unexpected save payload %+v", queue.payloads[0])
	}
	if !queue.payloads[1].Deleted || queue.payloads[1].DataPointID != id.String() {
		t.Fatalf("unexpected delete payload %+v", queue.payloads[1])
	}
}

func TestPublisherReportsEnqueueFailure(t *testing.T) {
	queue := &recordingQueue{err: errors.New("redis down")}
	p := NewMirrorPublisher(queue, logger.Discard())

	err := p.Handle(context.Background(), events.DataPointDeleted{DataPointID: uuid.New()})
	if err == nil {
		t.Fatal("expected enqueue error to surface")
	}
}

func TestMirrorTaskWritesThenDeletesDocument(t *testing.T) {
	store := newTestStore(t)
	mirror := NewMirror(store, logger.Discard())
	ctx := context.Background()

	dp := record.DataPoint{
		ID:        uuid.NewString(),
		Location:  geo.Point{Latitude: 41.4, Longitude: 2.2},
		Color:     "#29335C",
		Title:     "Person 3",
		TimeLabel: "10:05 AM",
		Answers:   questions.Answers{"activities": questions.Multi("waiting")},
	}
	task, err := NewMirrorTask(MirrorPayload{StudyID: "park", SurveyID: "am", DataPointID: dp.ID, Document: dp.Fields()})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if err := mirror.HandleTask(ctx, task); err != nil {
		t.Fatalf("handle set: %v", err)
	}

	col := store.Collection(record.Collection("park", "am")...)
	doc, err := col.Get(ctx, dp.ID)
	if err != nil {
		t.Fatalf("get mirrored: %v", err)
	}
	got, err := record.FromDocument(doc)
	if err != nil {
		t.Fatalf("decode mirrored: %v", err)
	}
	if got.Title != "Person 3" || got.Location != dp.Location || !got.Answers["activities"].Equal(questions.Multi("waiting")) {
		t.Fatalf("unexpected mirrored data point %+v", got)
	}

	task, _ = NewMirrorTask(MirrorPayload{StudyID: "park", SurveyID: "am", DataPointID: dp.ID, Deleted: true})
	if err := mirror.HandleTask(ctx, task); err != nil {
		t.Fatalf("handle delete: %v", err)
	}
	if _, err := col.Get(ctx, dp.ID); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected document removed, got %v", err)
	}
}

func TestMirrorSkipsRetryOnBadPayload(t *testing.T) {
	mirror := NewMirror(newTestStore(t), logger.Discard())
	err := mirror.HandleTask(context.Background(), asynq.NewTask(TaskMirrorDataPoint, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

type redisConfig struct {
	url      string
	insecure bool
}

func (c redisConfig) GetRedisURL() string       { return c.url }
func (c redisConfig) GetRedisTLSInsecure() bool { return c.insecure }

func TestRedisClientOpt(t *testing.T) {
	opt, err := redisClientOpt(redisConfig{url: "rediss://:pw@cache.internal:6380/2", insecure: true})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opt.Addr != "cache.internal:6380" || opt.Password != "pw" || opt.DB != 2 {
		t.Fatalf("unexpected opt %+v", opt)
	}
	if opt.TLSConfig == nil || !opt.TLSConfig.InsecureSkipVerify {
		t.Fatal("expected insecure TLS config")
	}

	if _, err := redisClientOpt(redisConfig{}); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestMirrorIgnoresTasksThatArriveLate(t *testing.T) {
	store := newTestStore(t)
	mirror := NewMirror(store, logger.Discard())
	ctx := context.Background()
	col := store.Collection(record.Collection("park", "am")...)

	created := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	patched := created.Add(time.Minute)
	deleted := patched.Add(time.Minute)

	first := record.DataPoint{ID: uuid.NewString(), Title: "Person 1", Note: "first"}
	second := first
	second.Note = "second"

	save := func(dp record.DataPoint, at time.Time) MirrorPayload {
		return MirrorPayload{StudyID: "park", SurveyID: "am", DataPointID: dp.ID, Version: at, Document: dp.Fields()}
	}

	// Two saves swapped: the older snapshot must not win.
	if err := mirror.Apply(ctx, save(second, patched)); err != nil {
		t.Fatalf("apply newer save: %v", err)
	}
	if err := mirror.Apply(ctx, save(first, created)); err != nil {
		t.Fatalf("stale save must be dropped without error, got %v", err)
	}
	doc, err := col.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got, _ := record.FromDocument(doc)
	if got.Note != "second" {
		t.Fatalf("older snapshot overwrote newer data: note %q", got.Note)
	}

	// Delete ahead of a save: the data point stays gone.
	gone := record.DataPoint{ID: uuid.NewString(), Title: "Person 2"}
	if err := mirror.Apply(ctx, MirrorPayload{StudyID: "park", SurveyID: "am", DataPointID: gone.ID, Version: deleted, Deleted: true}); err != nil {
		t.Fatalf("apply delete: %v", err)
	}
	if err := mirror.Apply(ctx, save(gone, created)); err != nil {
		t.Fatalf("late save must be dropped without error, got %v", err)
	}
	if _, err := col.Get(ctx, gone.ID); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("deleted data point %s reappeared: %v", gone.ID, err)
	}
}

func TestPublisherCarriesVersions(t *testing.T) {
	queue := &recordingQueue{}
	p := NewMirrorPublisher(queue, logger.Discard())
	ctx := context.Background()
	saved := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	deleted := saved.Add(time.Minute)

	_ = p.Handle(ctx, events.DataPointSaved{DataPointID: uuid.New(), Version: saved})
	_ = p.Handle(ctx, events.DataPointDeleted{DataPointID: uuid.New(), DeletedAt: deleted})

	if len(queue.payloads) != 2 || !queue.payloads[0].Version.Equal(saved) || !queue.payloads[1].Version.Equal(deleted) {
		t.Fatalf("unexpected payload versions %+v", queue.payloads)
	}
}
