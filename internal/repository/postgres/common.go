package postgres

import (
	"github.com/jackc/pgx/v5/pgconn"

	"logimatch/internal/repository"
)

// ensureAffected reports a lost compare-and-swap as a version conflict.
func ensureAffected(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return repository.ErrVersionConflict
	}
	return nil
}
