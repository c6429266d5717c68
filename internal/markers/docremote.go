package markers

import (
	"context"
	"errors"
	"fmt"

	"fieldsurvey/internal/record"
	"fieldsurvey/platform/docstore"
)

// DocRemote keeps markers in a document store collection, one document per
// marker with one field per answer.
type DocRemote struct {
	col *docstore.Collection
}

func NewDocRemote(store *docstore.Store, studyID, surveyID string) *DocRemote {
	return &DocRemote{col: store.Collection(record.Collection(studyID, surveyID)...)}
}

func (r *DocRemote) List(ctx context.Context) ([]Marker, error) {
	docs, err := r.col.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Marker, 0, len(docs))
	for _, doc := range docs {
		m, err := record.FromDocument(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *DocRemote) Create(ctx context.Context, m Marker) (Marker, error) {
	if err := r.col.Set(ctx, m.ID, m.Fields()); err != nil {
		return Marker{}, fmt.Errorf("create marker %s: %w", m.ID, err)
	}
	return m, nil
}

func (r *DocRemote) Update(ctx context.Context, id string, patch Patch) error {
	err := r.col.Update(ctx, id, patch.Fields())
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (r *DocRemote) Delete(ctx context.Context, id string) error {
	removed, err := r.col.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotFound
	}
	return nil
}

// Watch relays the collection's change feed until ctx ends.
func (r *DocRemote) Watch(ctx context.Context) (<-chan Change, error) {
	in, err := r.col.Watch(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan Change)
	go func() {
		defer close(out)
		for c := range in {
			change := Change{ID: c.ID, Fields: c.Fields}
			switch c.Type {
			case docstore.ChangeAdded:
				change.Type = Added
			case docstore.ChangeModified:
				change.Type = Modified
			case docstore.ChangeRemoved:
				change.Type = Removed
			}
			select {
			case out <- change:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

var _ Remote = (*DocRemote)(nil)
