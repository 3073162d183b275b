package store

import (
	"database/sql"
	"strings"
	"time"

	"github.com/kredefy/backend/pkg/ports"
)

func joinSet(set []string) string {
	return strings.Join(set, ", ")
}

// checkAffected turns a zero-row update into ErrNotFound.
func checkAffected(op string, result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return wrapErr(op, err)
	}
	if affected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// timePtr converts a NULL column to a nil pointer.
func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
