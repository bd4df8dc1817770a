// Package sqlite implements the repositories on sqlite through sqlx
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// timeLayout is how timestamps are stored in TEXT columns
const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", s, err)
	}
	return t, nil
}

// wrap adapts a database/sql handle opened with the "sqlite" driver
func wrap(db *sql.DB) *sqlx.DB {
	return sqlx.NewDb(db, "sqlite")
}
