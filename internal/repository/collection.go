package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"logimatch/internal/metrics"
)

const maxMutateAttempts = 3

// Collection is a typed view over one Store collection.
type Collection[T any] struct {
	store Store
	name  string
}

func NewCollection[T any](store Store, name string) *Collection[T] {
	return &Collection[T]{store: store, name: name}
}

func (c *Collection[T]) Load(ctx context.Context) ([]T, int64, error) {
	if c == nil || c.store == nil {
		return nil, 0, errors.New("collection store is nil")
	}

	snapshot, err := c.store.Get(ctx, c.name)
	if err != nil {
		return nil, 0, fmt.Errorf("load %s: %w", c.name, err)
	}
	if len(snapshot.Data) == 0 {
		return nil, snapshot.Version, nil
	}

	var items []T
	if err := json.Unmarshal(snapshot.Data, &items); err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", c.name, err)
	}
	return items, snapshot.Version, nil
}

func (c *Collection[T]) Save(ctx context.Context, items []T, version int64) (int64, error) {
	if c == nil || c.store == nil {
		return 0, errors.New("collection store is nil")
	}
	if items == nil {
		items = []T{}
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", c.name, err)
	}

	startedAt := time.Now()
	next, err := c.store.Put(ctx, c.name, raw, version)
	metrics.ObserveStoreWrite(c.name, time.Since(startedAt))
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return 0, err
		}
		return 0, fmt.Errorf("save %s: %w", c.name, err)
	}
	return next, nil
}

// Mutate reads the collection, applies fn and writes the result back when fn
// reports a change. fn may run more than once: a concurrent writer makes the
// write fail with ErrVersionConflict and the read-modify-write is redone on
// fresh data.
func (c *Collection[T]) Mutate(ctx context.Context, fn func(items []T) ([]T, bool, error)) error {
	var lastErr error
	for attempt := 0; attempt < maxMutateAttempts; attempt++ {
		items, version, err := c.Load(ctx)
		if err != nil {
			return err
		}

		next, changed, err := fn(items)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}

		if _, err := c.Save(ctx, next, version); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				lastErr = err
				continue
			}
			return err
		}
		return nil
	}

	return fmt.Errorf("mutate %s: %w", c.name, lastErr)
}
