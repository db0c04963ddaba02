package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MKhiriev/go-sync-keeper/internal/app"
	"github.com/MKhiriev/go-sync-keeper/models"
)

// RecordEngine is the untyped read/write surface a Repository is built on.
// *SyncCoordinator implements it.
type RecordEngine interface {
	Get(ctx context.Context, col models.Collection) models.CollectionView
	Insert(ctx context.Context, col models.Collection, payload models.Record) models.WriteResult
	Update(ctx context.Context, col models.Collection, id string, patch models.Record) models.WriteResult
	Remove(ctx context.Context, col models.Collection, id string) models.WriteResult
	Refetch(ctx context.Context, col models.Collection) error
}

var _ RecordEngine = (*SyncCoordinator)(nil)

// View is the typed counterpart of models.CollectionView.
type View[T any] struct {
	Items   []T
	Loading bool
	Err     error
}

// Result is the typed counterpart of models.WriteResult.
type Result[T any] struct {
	Item   T
	Err    error
	Queued bool
}

// Repository exposes one collection as values of T. T is converted to and
// from records through its JSON form, so its "id" field carries the record
// id.
type Repository[T any] struct {
	engine     RecordEngine
	collection models.Collection
}

// NewRepository binds T to the collection named name.
func NewRepository[T any](engine RecordEngine, name string) (*Repository[T], error) {
	col, err := models.ParseCollection(name)
	if err != nil {
		return nil, app.E(app.KindValidation, "repository.New", err)
	}
	return &Repository[T]{engine: engine, collection: col}, nil
}

// Collection returns the collection the repository is bound to.
func (r *Repository[T]) Collection() models.Collection {
	return r.collection
}

// List returns the cached items. Records that do not decode into T are
// reported through Err.
func (r *Repository[T]) List(ctx context.Context) View[T] {
	view := r.engine.Get(ctx, r.collection)

	out := View[T]{Loading: view.Loading, Err: view.Err, Items: make([]T, 0, len(view.Data))}
	for _, record := range view.Data {
		item, err := decode[T](record)
		if err != nil {
			out.Err = app.E(app.KindValidation, "repository.List", err)
			continue
		}
		out.Items = append(out.Items, item)
	}
	return out
}

// Find returns the cached item with the given id.
func (r *Repository[T]) Find(ctx context.Context, id string) (T, bool, error) {
	var zero T
	for _, record := range r.engine.Get(ctx, r.collection).Data {
		if record.ID() != id {
			continue
		}
		item, err := decode[T](record)
		if err != nil {
			return zero, false, app.E(app.KindValidation, "repository.Find", err)
		}
		return item, true, nil
	}
	return zero, false, nil
}

// Insert creates item. Any id it carries is ignored.
func (r *Repository[T]) Insert(ctx context.Context, item T) Result[T] {
	record, err := encode(item)
	if err != nil {
		return Result[T]{Err: app.E(app.KindValidation, "repository.Insert", err)}
	}
	return toResult[T](r.engine.Insert(ctx, r.collection, record.WithoutID()))
}

// Update sends the fields of item as a patch of the record with its id.
func (r *Repository[T]) Update(ctx context.Context, item T) Result[T] {
	record, err := encode(item)
	if err != nil {
		return Result[T]{Err: app.E(app.KindValidation, "repository.Update", err)}
	}
	return toResult[T](r.engine.Update(ctx, r.collection, record.ID(), record.WithoutID()))
}

// Remove deletes the record with the given id.
func (r *Repository[T]) Remove(ctx context.Context, id string) error {
	return r.engine.Remove(ctx, r.collection, id).Err
}

// Refetch reloads the collection from the backend.
func (r *Repository[T]) Refetch(ctx context.Context) error {
	return r.engine.Refetch(ctx, r.collection)
}

func toResult[T any](res models.WriteResult) Result[T] {
	out := Result[T]{Err: res.Err, Queued: res.Queued}
	if res.Err != nil || res.Data == nil {
		return out
	}
	item, err := decode[T](res.Data)
	if err != nil {
		out.Err = app.E(app.KindValidation, "repository.decode", err)
		return out
	}
	out.Item = item
	return out
}

func encode[T any](item T) (models.Record, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", item, err)
	}
	var record models.Record
	if err = json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("encode %T: %w", item, err)
	}
	return record, nil
}

func decode[T any](record models.Record) (T, error) {
	var item T
	raw, err := json.Marshal(record)
	if err != nil {
		return item, fmt.Errorf("decode record %s: %w", record.ID(), err)
	}
	if err = json.Unmarshal(raw, &item); err != nil {
		return item, fmt.Errorf("decode record %s: %w", record.ID(), err)
	}
	return item, nil
}
