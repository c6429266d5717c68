package markers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"fieldsurvey/internal/questions"
	"fieldsurvey/internal/record"
	"fieldsurvey/platform/geo"
	"fieldsurvey/platform/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var errRemoteDown = errors.New("remote down")

type fakeRemote struct {
	mu      sync.Mutex
	items   []Marker
	fail    error
	missing bool
	changes chan Change
}

func (f *fakeRemote) failWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = err
}

func (f *fakeRemote) List(context.Context) ([]Marker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	out := make([]Marker, len(f.items))
	for i, m := range f.items {
		out[i] = m.Clone()
	}
	return out, nil
}

func (f *fakeRemote) Create(_ context.Context, m Marker) (Marker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return Marker{}, f.fail
	}
	f.items = append(f.items, m.Clone())
	return m, nil
}

func (f *fakeRemote) Update(_ context.Context, id string, patch Patch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	for i := range f.items {
		if f.items[i].ID == id {
			patch.Apply(&f.items[i])
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeRemote) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	if f.missing {
		return ErrNotFound
	}
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeRemote) Watch(context.Context) (<-chan Change, error) {
	if f.changes == nil {
		return nil, ErrNoChangeFeed
	}
	return f.changes, nil
}

var testFields = []string{"gender", "age", "activities"}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Minute)
	return c.t
}

func newTestStore(t *testing.T, remote Remote, opts ...Option) *Store {
	t.Helper()
	c := &clock{t: time.Date(2026, 5, 2, 14, 59, 0, 0, time.Local)}
	var n int
	var mu sync.Mutex
	ids := func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("m-%03d", n)
	}
	base := []Option{WithClock(c.now), WithIDs(ids), WithRand(func(int) int { return 0 })}
	return New(remote, questions.DefaultSchema(validator.New()), testFields, append(base, opts...)...)
}

var here = geo.Point{Latitude: 41.3874, Longitude: 2.1686}

func TestCreateAssignsIdentityAndEmptyAnswers(t *testing.T) {
	remote := &fakeRemote{}
	s := newTestStore(t, remote)

	m, err := s.Create(context.Background(), here)
	require.NoError(t, err)

	assert.Equal(t, "m-001", m.ID)
	assert.Equal(t, "Person 1", m.Title)
	assert.Equal(t, "3:00 PM", m.TimeLabel)
	assert.True(t, record.IsPaletteColor(m.Color))
	assert.Equal(t, here, m.Location)
	require.Len(t, m.Answers, len(testFields))
	assert.True(t, m.Answers["gender"].IsEmpty())
	assert.True(t, m.Answers["activities"].IsMulti())

	assert.Len(t, remote.items, 1)
	assert.Equal(t, []Marker{m}, s.Markers())
}

func TestCreatedColorDiffersFromPrevious(t *testing.T) {
	stores := map[string]*Store{
		"fixed rand": newTestStore(t, &fakeRemote{}),
		"real rand":  New(&fakeRemote{}, questions.DefaultSchema(validator.New()), testFields),
	}
	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			var prev string
			for i := 0; i < 200; i++ {
				m, err := s.Create(context.Background(), here)
				require.NoError(t, err)
				require.NotEqual(t, prev, m.Color, "marker %d", i)
				prev = m.Color
			}
		})
	}
}

func TestCreateFailureLeavesLocalStateUntouched(t *testing.T) {
	remote := &fakeRemote{}
	s := newTestStore(t, remote)
	first, err := s.Create(context.Background(), here)
	require.NoError(t, err)

	remote.failWith(errRemoteDown)
	_, err = s.Create(context.Background(), here)
	require.ErrorIs(t, err, errRemoteDown)
	assert.Len(t, s.Markers(), 1)

	remote.failWith(nil)
	second, err := s.Create(context.Background(), here)
	require.NoError(t, err)
	assert.Equal(t, "Person 2", second.Title, "a failed create does not consume a title")
	assert.NotEqual(t, first.Color, second.Color)
}

func TestToggleRules(t *testing.T) {
	s := newTestStore(t, &fakeRemote{})
	ctx := context.Background()
	m, err := s.Create(ctx, here)
	require.NoError(t, err)

	_, err = s.Toggle(ctx, m.ID, "activities", "waiting")
	require.NoError(t, err)
	original, _ := s.Get(m.ID)

	_, err = s.Toggle(ctx, m.ID, "activities", "conversing")
	require.NoError(t, err)
	got, err := s.Toggle(ctx, m.ID, "activities", "conversing")
	require.NoError(t, err)
	assert.True(t, got.Answers["activities"].Equal(original.Answers["activities"]), "multi toggle twice restores the set")

	got, err = s.Toggle(ctx, m.ID, "gender", "female")
	require.NoError(t, err)
	assert.Equal(t, "female", got.Answers["gender"].String())
	got, err = s.Toggle(ctx, m.ID, "gender", "female")
	require.NoError(t, err)
	assert.True(t, got.Answers["gender"].IsEmpty(), "toggling the selected value clears it")

	_, err = s.Toggle(ctx, m.ID, "gender", "robot")
	assert.Error(t, err)
	_, err = s.Toggle(ctx, m.ID, "posture", "standing")
	assert.ErrorIs(t, err, ErrUnknownField)
	_, err = s.Toggle(ctx, "nope", "gender", "male")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatesArePessimistic(t *testing.T) {
	remote := &fakeRemote{}
	s := newTestStore(t, remote)
	ctx := context.Background()
	m, err := s.Create(ctx, here)
	require.NoError(t, err)

	remote.failWith(errRemoteDown)
	_, err = s.SetAnswer(ctx, m.ID, "age", questions.Single("25-64"))
	require.ErrorIs(t, err, errRemoteDown)
	_, err = s.SetNote(ctx, m.ID, "lost")
	require.ErrorIs(t, err, errRemoteDown)
	_, err = s.Move(ctx, m.ID, geo.Point{Latitude: 1, Longitude: 1})
	require.ErrorIs(t, err, errRemoteDown)

	local, _ := s.Get(m.ID)
	assert.Equal(t, m, local, "failed writes must not change local state")

	remote.failWith(nil)
	_, err = s.SetAnswer(ctx, m.ID, "age", questions.Single("25-64"))
	require.NoError(t, err)
	_, err = s.SetNote(ctx, m.ID, "by the kiosk")
	require.NoError(t, err)
	moved := geo.Point{Latitude: 41.39, Longitude: 2.17}
	got, err := s.Move(ctx, m.ID, moved)
	require.NoError(t, err)

	assert.Equal(t, "25-64", got.Answers["age"].String())
	assert.Equal(t, "by the kiosk", got.Note)
	assert.Equal(t, moved, got.Location)
	assert.Equal(t, got, remote.items[0])
}

func TestSetAnswerValidates(t *testing.T) {
	s := newTestStore(t, &fakeRemote{})
	ctx := context.Background()
	m, err := s.Create(ctx, here)
	require.NoError(t, err)

	_, err = s.SetAnswer(ctx, m.ID, "posture", questions.Single("standing"))
	assert.ErrorIs(t, err, ErrUnknownField)
	_, err = s.SetAnswer(ctx, m.ID, "activities", questions.Single("waiting"))
	assert.Error(t, err, "multi question needs a list")
	_, err = s.SetAnswer(ctx, "nope", "age", questions.Single("65+"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDuplicate(t *testing.T) {
	s := newTestStore(t, &fakeRemote{})
	ctx := context.Background()
	src, err := s.Create(ctx, here)
	require.NoError(t, err)
	_, err = s.SetAnswer(ctx, src.ID, "activities", questions.Multi("waiting", "consuming"))
	require.NoError(t, err)
	src, err = s.SetNote(ctx, src.ID, "with dog")
	require.NoError(t, err)

	dup, err := s.Duplicate(ctx, src.ID)
	require.NoError(t, err)

	assert.Equal(t, src.Answers, dup.Answers)
	assert.Equal(t, src.Note, dup.Note)
	assert.Equal(t, src.Location, dup.Location)
	assert.NotEqual(t, src.ID, dup.ID)
	assert.NotEqual(t, src.Color, dup.Color)
	assert.NotEqual(t, src.Title, dup.Title)
	assert.NotEqual(t, src.TimeLabel, dup.TimeLabel)

	_, err = s.SetAnswer(ctx, dup.ID, "gender", questions.Single("male"))
	require.NoError(t, err)
	again, _ := s.Get(src.ID)
	assert.True(t, again.Answers["gender"].IsEmpty(), "duplicate must not share answers with its source")

	_, err = s.Duplicate(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRemovesExactlyOne(t *testing.T) {
	remote := &fakeRemote{}
	s := newTestStore(t, remote)
	ctx := context.Background()
	var ids []string
	for i := 0; i < 3; i++ {
		m, err := s.Create(ctx, here)
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}

	require.NoError(t, s.Delete(ctx, ids[1]))
	left := s.Markers()
	require.Len(t, left, 2)
	assert.Equal(t, ids[0], left[0].ID)
	assert.Equal(t, ids[2], left[1].ID)

	assert.ErrorIs(t, s.Delete(ctx, ids[1]), ErrNotFound)
}

func TestDeleteKeepsMarkerWhenRemoteFails(t *testing.T) {
	remote := &fakeRemote{}
	s := newTestStore(t, remote)
	m, err := s.Create(context.Background(), here)
	require.NoError(t, err)

	remote.failWith(errRemoteDown)
	require.ErrorIs(t, s.Delete(context.Background(), m.ID), errRemoteDown)
	assert.Len(t, s.Markers(), 1)
}

func TestDeletePrunesWhenRemoteAlreadyGone(t *testing.T) {
	remote := &fakeRemote{}
	s := newTestStore(t, remote)
	m, err := s.Create(context.Background(), here)
	require.NoError(t, err)

	remote.missing = true
	require.NoError(t, s.Delete(context.Background(), m.ID))
	assert.Empty(t, s.Markers())
}

func TestLoadReplacesLocalList(t *testing.T) {
	remote := &fakeRemote{items: []Marker{
		{ID: "a", Title: "Person 4", Color: record.Palette[2]},
		{ID: "b", Title: "Person 7", Color: record.Palette[0]},
	}}
	s := newTestStore(t, remote)
	require.NoError(t, s.Load(context.Background()))
	require.Len(t, s.Markers(), 2)

	m, err := s.Create(context.Background(), here)
	require.NoError(t, err)
	assert.Equal(t, "Person 8", m.Title)
	assert.NotEqual(t, record.Palette[0], m.Color)

	remote.failWith(errRemoteDown)
	require.ErrorIs(t, s.Load(context.Background()), errRemoteDown)
	assert.Len(t, s.Markers(), 3, "failed load keeps the current list")
}

func TestConcurrentCreatesKeepColorsApart(t *testing.T) {
	s := New(&fakeRemote{}, questions.DefaultSchema(validator.New()), testFields)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Create(context.Background(), here)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all := s.Markers()
	require.Len(t, all, 32)
	seen := map[string]bool{}
	for i, m := range all {
		assert.False(t, seen[m.ID], "duplicate id %s", m.ID)
		seen[m.ID] = true
		if i > 0 {
			assert.NotEqual(t, all[i-1].Color, m.Color, "markers %d and %d", i-1, i)
		}
	}
}

func raw(t *testing.T, fields map[string]any) map[string]json.RawMessage {
	t.Helper()
	out := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		out[k] = b
	}
	return out
}

func TestFollowAppliesRemoteChanges(t *testing.T) {
	defer goleak.VerifyNone(t)

	remote := &fakeRemote{changes: make(chan Change)}
	s := newTestStore(t, remote)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Follow(ctx) }()

	other := Marker{ID: "x", Title: "Person 12", Color: record.Palette[3], Location: here, Answers: questions.Answers{"age": questions.Single("")}}
	remote.changes <- Change{Type: Added, ID: "x", Fields: raw(t, other.Fields())}
	remote.changes <- Change{Type: Modified, ID: "x", Fields: raw(t, map[string]any{record.AnswerField("age"): "65+"})}
	remote.changes <- Change{Type: Modified, ID: "ghost", Fields: raw(t, map[string]any{record.FieldNote: "?"})}

	require.Eventually(t, func() bool {
		m, ok := s.Get("x")
		return ok && m.Answers["age"].String() == "65+"
	}, time.Second, 5*time.Millisecond)
	_, ghost := s.Get("ghost")
	assert.False(t, ghost, "partial update of an unknown marker is ignored")

	remote.changes <- Change{Type: Removed, ID: "x"}
	require.Eventually(t, func() bool { return len(s.Markers()) == 0 }, time.Second, 5*time.Millisecond)

	created, err := s.Create(context.Background(), here)
	require.NoError(t, err)
	assert.Equal(t, "Person 13", created.Title)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestFollowWithoutChangeFeed(t *testing.T) {
	s := newTestStore(t, &fakeRemote{})
	assert.ErrorIs(t, s.Follow(context.Background()), ErrNoChangeFeed)
}

func TestChangeHookSeesAppliedChanges(t *testing.T) {
	defer goleak.VerifyNone(t)

	type seen struct {
		typ   ChangeType
		title string
	}
	var mu sync.Mutex
	var got []seen
	hook := func(c Change, m Marker) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, seen{c.Type, m.Title})
	}

	remote := &fakeRemote{changes: make(chan Change)}
	s := newTestStore(t, remote, WithChangeHook(hook))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Follow(ctx) }()

	other := Marker{ID: "x", Title: "Person 4", Color: record.Palette[1], Location: here}
	remote.changes <- Change{Type: Added, ID: "x", Fields: raw(t, other.Fields())}
	remote.changes <- Change{Type: Modified, ID: "ghost", Fields: raw(t, map[string]any{record.FieldNote: "?"})}
	remote.changes <- Change{Type: Modified, ID: "x", Fields: raw(t, map[string]any{record.FieldNote: "bench"})}
	remote.changes <- Change{Type: Removed, ID: "x"}
	remote.changes <- Change{Type: Removed, ID: "ghost"}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, []seen{{Added, "Person 4"}, {Modified, "Person 4"}, {Removed, "Person 4"}}, got)
}
