package database

import (
	"fmt"

	"gorm.io/gorm"
)

// Row is one result row keyed by column name.
type Row = map[string]interface{}

// Error wraps any persistence failure so callers never branch on
// driver-specific error shapes.
type Error struct {
	Query string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("database error: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Query executes a parameterized statement and returns all rows in the
// order the database produced them. Placeholders use `?` and are bound
// by the driver, never interpolated.
func Query(db *gorm.DB, query string, args ...interface{}) ([]Row, error) {
	var rows []Row
	if err := db.Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, &Error{Query: query, Err: err}
	}
	return rows, nil
}

// QueryOne returns the first row, or nil without an error when the
// statement matched nothing.
func QueryOne(db *gorm.DB, query string, args ...interface{}) (Row, error) {
	rows, err := Query(db, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}
