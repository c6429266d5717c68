package markers

import (
	"context"
	"encoding/json"
	"errors"

	"fieldsurvey/internal/questions"
	"fieldsurvey/internal/record"
	"fieldsurvey/platform/geo"
)

// ErrNotFound reports a marker that does not exist, locally or remotely.
var ErrNotFound = errors.New("markers: marker not found")

// ErrNoChangeFeed is returned by Watch on remotes that cannot push changes.
var ErrNoChangeFeed = errors.New("markers: remote has no change feed")

// Patch is a field-level change. Nil or empty members are left untouched.
type Patch struct {
	Answers  questions.Answers
	Note     *string
	Location *geo.Point
}

// Apply writes the patch onto m.
func (p Patch) Apply(m *Marker) {
	if m.Answers == nil {
		m.Answers = questions.Answers{}
	}
	for key, value := range p.Answers {
		m.Answers[key] = value
	}
	if p.Note != nil {
		m.Note = *p.Note
	}
	if p.Location != nil {
		m.Location = *p.Location
	}
}

// Fields returns the patch as document store fields.
func (p Patch) Fields() map[string]any {
	fields := make(map[string]any, len(p.Answers)+3)
	for key, value := range p.Answers {
		fields[record.AnswerField(key)] = value
	}
	if p.Note != nil {
		fields[record.FieldNote] = *p.Note
	}
	if p.Location != nil {
		for k, v := range record.LocationFields(*p.Location) {
			fields[k] = v
		}
	}
	return fields
}

type ChangeType int

const (
	Added ChangeType = iota
	Modified
	Removed
)

// Change is one entry of a remote change feed. Fields holds the fields that
// were written, which for Modified may be a subset of the document.
type Change struct {
	Type   ChangeType
	ID     string
	Fields map[string]json.RawMessage
}

// Remote is the collection a Store keeps in sync with. Implementations
// return ErrNotFound for updates or deletes of missing markers.
type Remote interface {
	List(ctx context.Context) ([]Marker, error)
	Create(ctx context.Context, m Marker) (Marker, error)
	Update(ctx context.Context, id string, patch Patch) error
	Delete(ctx context.Context, id string) error
	Watch(ctx context.Context) (<-chan Change, error)
}
