// Package markers keeps the field app's list of markers for the active
// survey in sync with a remote collection.
//
// Every mutation is pessimistic: the remote write is awaited and only a
// successful write is reflected in the local list. A Store is safe for
// concurrent use; remote calls are made without holding its lock.
package markers

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"fieldsurvey/internal/questions"
	"fieldsurvey/internal/record"
	"fieldsurvey/platform/geo"
	"fieldsurvey/platform/logger"

	"github.com/google/uuid"
)

// Marker is one observed person on the map.
type Marker = record.DataPoint

var ErrUnknownField = errors.New("markers: question is not part of this survey")

type Store struct {
	remote Remote
	schema *questions.Schema
	fields []string
	log    *logger.Logger
	now    func() time.Time
	intn   func(int) int
	newID  func() string
	hook   ChangeHook

	// create serialises Create and Duplicate so each new marker sees the
	// color of the one before it.
	create sync.Mutex

	mu      sync.RWMutex
	markers []Marker
	seq     int
}

type Option func(*Store)

// ChangeHook is called after Follow applies a remote change. For removals m
// is the marker as it was before it went.
type ChangeHook func(c Change, m Marker)

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }
func WithRand(intn func(int) int) Option    { return func(s *Store) { s.intn = intn } }
func WithIDs(newID func() string) Option    { return func(s *Store) { s.newID = newID } }
func WithLogger(log *logger.Logger) Option  { return func(s *Store) { s.log = log } }
func WithChangeHook(fn ChangeHook) Option   { return func(s *Store) { s.hook = fn } }

// New creates an empty store for a survey with the given field list.
func New(remote Remote, schema *questions.Schema, fields []string, opts ...Option) *Store {
	s := &Store{
		remote: remote,
		schema: schema,
		fields: slices.Clone(fields),
		log:    logger.Discard(),
		now:    time.Now,
		intn:   rand.IntN,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Markers returns a copy of the local list in creation order.
func (s *Store) Markers() []Marker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Marker, len(s.markers))
	for i, m := range s.markers {
		out[i] = m.Clone()
	}
	return out
}

// Get returns a copy of the marker with the given id.
func (s *Store) Get(id string) (Marker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		return s.markers[i].Clone(), true
	}
	return Marker{}, false
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.markers, func(m Marker) bool { return m.ID == id })
}

// Load replaces the local list with the remote collection.
func (s *Store) Load(ctx context.Context) error {
	items, err := s.remote.List(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers = items
	s.seq = 0
	for _, m := range items {
		s.seq = max(s.seq, titleNumber(m.Title))
	}
	s.seq = max(s.seq, len(items))
	return nil
}

// Create adds a marker at loc with empty answers for every survey field.
func (s *Store) Create(ctx context.Context, loc geo.Point) (Marker, error) {
	return s.add(ctx, func(m *Marker) {
		m.Location = loc
		m.Answers = s.schema.EmptyAnswers(s.fields)
	})
}

// Duplicate copies the answers, note and location of id into a new marker
// with its own id, color, title and time label.
func (s *Store) Duplicate(ctx context.Context, id string) (Marker, error) {
	src, ok := s.Get(id)
	if !ok {
		return Marker{}, ErrNotFound
	}
	return s.add(ctx, func(m *Marker) {
		m.Location = src.Location
		m.Answers = src.Answers
		m.Note = src.Note
	})
}

func (s *Store) add(ctx context.Context, fill func(*Marker)) (Marker, error) {
	s.create.Lock()
	defer s.create.Unlock()

	// The previous color is whatever ends the list now, including markers
	// other devices added through the change feed.
	s.mu.RLock()
	prev, seq := "", s.seq+1
	if n := len(s.markers); n > 0 {
		prev = s.markers[n-1].Color
	}
	s.mu.RUnlock()

	now := s.now()
	m := Marker{
		ID:        s.newID(),
		Color:     record.NextColor(prev, s.intn),
		Title:     fmt.Sprintf("Person %d", seq),
		TimeLabel: now.Format(record.TimeLabelLayout),
		CreatedAt: now.UTC(),
	}
	fill(&m)

	stored, err := s.remote.Create(ctx, m)
	if err != nil {
		s.log.SyncEvent("create", m.ID, err)
		return Marker{}, err
	}

	s.mu.Lock()
	if i := s.index(stored.ID); i >= 0 {
		// The change feed delivered it first.
		s.markers[i] = stored.Clone()
	} else {
		s.markers = append(s.markers, stored.Clone())
	}
	s.seq = max(s.seq, seq)
	s.mu.Unlock()

	s.log.SyncEvent("create", stored.ID, nil)
	return stored, nil
}

// SetAnswer replaces the answer to one question.
func (s *Store) SetAnswer(ctx context.Context, id, key string, value questions.Value) (Marker, error) {
	if !slices.Contains(s.fields, key) {
		return Marker{}, fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	normalized, err := s.schema.Normalize([]string{key}, questions.Answers{key: value})
	if err != nil {
		return Marker{}, err
	}
	return s.update(ctx, id, Patch{Answers: normalized})
}

// Toggle applies the schema's toggle rule for choice and stores the result.
func (s *Store) Toggle(ctx context.Context, id, key, choice string) (Marker, error) {
	m, ok := s.Get(id)
	if !ok {
		return Marker{}, ErrNotFound
	}
	if !slices.Contains(s.fields, key) {
		return Marker{}, fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	next, err := s.schema.Toggle(key, m.Answers[key], choice)
	if err != nil {
		return Marker{}, err
	}
	return s.update(ctx, id, Patch{Answers: questions.Answers{key: next}})
}

func (s *Store) SetNote(ctx context.Context, id, note string) (Marker, error) {
	return s.update(ctx, id, Patch{Note: &note})
}

func (s *Store) Move(ctx context.Context, id string, loc geo.Point) (Marker, error) {
	return s.update(ctx, id, Patch{Location: &loc})
}

func (s *Store) update(ctx context.Context, id string, patch Patch) (Marker, error) {
	if _, ok := s.Get(id); !ok {
		return Marker{}, ErrNotFound
	}

	if err := s.remote.Update(ctx, id, patch); err != nil {
		s.log.SyncEvent("update", id, err)
		return Marker{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		// Removed by a concurrent delete or the change feed.
		return Marker{}, ErrNotFound
	}
	m := s.markers[i].Clone()
	patch.Apply(&m)
	s.markers[i] = m
	return m.Clone(), nil
}

// Delete removes the marker remotely and then locally. A remote "not found"
// counts as already deleted.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, ok := s.Get(id); !ok {
		return ErrNotFound
	}

	err := s.remote.Delete(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.log.SyncEvent("delete", id, err)
		return err
	}

	s.remove(id)
	s.log.SyncEvent("delete", id, nil)
	return nil
}

func (s *Store) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(id); i >= 0 {
		s.markers = slices.Delete(s.markers, i, i+1)
	}
}

// Follow applies the remote change feed to the local list until ctx ends
// or the feed closes. Remote state wins over local state.
func (s *Store) Follow(ctx context.Context) error {
	changes, err := s.remote.Watch(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c, ok := <-changes:
			if !ok {
				return ctx.Err()
			}
			m, applied, err := s.apply(c)
			if err != nil {
				s.log.SyncEvent("follow", c.ID, err)
				continue
			}
			if applied && s.hook != nil {
				s.hook(c, m)
			}
		}
	}
}

// apply folds one change into the local list and reports the affected
// marker. Changes that touch nothing known locally report false.
func (s *Store) apply(c Change) (Marker, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(c.ID)
	switch {
	case c.Type == Removed:
		if i < 0 {
			return Marker{}, false, nil
		}
		gone := s.markers[i]
		s.markers = slices.Delete(s.markers, i, i+1)
		return gone, true, nil
	case i >= 0:
		m := s.markers[i].Clone()
		if err := record.ApplyFields(&m, c.Fields); err != nil {
			return Marker{}, false, err
		}
		s.markers[i] = m
		return m.Clone(), true, nil
	case c.Type == Modified && c.Fields[record.FieldTitle] == nil:
		// A partial update of a marker this store never loaded.
		return Marker{}, false, nil
	default:
		m, err := record.FromFields(c.ID, c.Fields, s.now().UTC())
		if err != nil {
			return Marker{}, false, err
		}
		s.markers = append(s.markers, m)
		s.seq = max(s.seq, titleNumber(m.Title))
		return m.Clone(), true, nil
	}
}

func titleNumber(title string) int {
	var n int
	if _, err := fmt.Sscanf(title, "Person %d", &n); err != nil {
		return 0
	}
	return n
}
