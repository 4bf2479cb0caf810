package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"logimatch/internal/repository"
)

type collectionStore struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) repository.Store {
	return &collectionStore{pool: pool}
}

var _ repository.Store = (*collectionStore)(nil)

func (s *collectionStore) Get(ctx context.Context, collection string) (repository.Snapshot, error) {
	if s.pool == nil {
		return repository.Snapshot{}, errors.New("database pool is nil")
	}

	var (
		data    []byte
		version int64
	)
	err := s.pool.QueryRow(
		ctx,
		`SELECT data, version
		   FROM collections
		  WHERE name = $1`,
		collection,
	).Scan(&data, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.Snapshot{}, nil
	}
	if err != nil {
		return repository.Snapshot{}, err
	}

	return repository.Snapshot{Data: data, Version: version}, nil
}

func (s *collectionStore) Put(
	ctx context.Context,
	collection string,
	data json.RawMessage,
	expectedVersion int64,
) (int64, error) {
	if s.pool == nil {
		return 0, errors.New("database pool is nil")
	}

	var (
		tag pgconn.CommandTag
		err error
	)
	if expectedVersion == 0 {
		tag, err = s.pool.Exec(
			ctx,
			`INSERT INTO collections (name, data, version, updated_at)
			 VALUES ($1, $2, 1, NOW())
			 ON CONFLICT (name) DO NOTHING`,
			collection,
			[]byte(data),
		)
	} else {
		tag, err = s.pool.Exec(
			ctx,
			`UPDATE collections
			    SET data = $2,
			        version = version + 1,
			        updated_at = NOW()
			  WHERE name = $1
			    AND version = $3`,
			collection,
			[]byte(data),
			expectedVersion,
		)
	}
	if err != nil {
		return 0, err
	}
	if err := ensureAffected(tag); err != nil {
		return 0, err
	}

	return expectedVersion + 1, nil
}
