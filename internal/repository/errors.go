package repository

import (
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// UniqueViolationError reports an INSERT rejected by a unique index.
// Field is empty when the offending column could not be identified.
type UniqueViolationError struct {
	Field string
	Err   error
}

func (e *UniqueViolationError) Error() string {
	if e.Field == "" {
		return "unique constraint violated"
	}
	return "unique constraint violated on " + e.Field
}

func (e *UniqueViolationError) Unwrap() error {
	return e.Err
}

var (
	pgDetailKey   = regexp.MustCompile(`Key \(([a-zA-Z0-9_]+)\)=`)
	sqliteUniqCol = regexp.MustCompile(`UNIQUE constraint failed: [a-zA-Z0-9_]+\.([a-zA-Z0-9_]+)`)
)

// asUniqueViolation inspects a driver error and returns a UniqueViolationError
// when it reports a unique index conflict. table scopes constraint-name parsing.
func asUniqueViolation(err error, table string) (*UniqueViolationError, bool) {
	if err == nil {
		return nil, false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return nil, false
		}
		return &UniqueViolationError{Field: pgUniqueField(pgErr, table), Err: err}, true
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		if liteErr.ExtendedCode != sqlite3.ErrConstraintUnique {
			return nil, false
		}
		field := ""
		if m := sqliteUniqCol.FindStringSubmatch(liteErr.Error()); m != nil {
			field = m[1]
		}
		return &UniqueViolationError{Field: field, Err: err}, true
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &UniqueViolationError{Err: err}, true
	}

	return nil, false
}

func pgUniqueField(pgErr *pgconn.PgError, table string) string {
	prefix := "idx_" + table + "_"
	if strings.HasPrefix(pgErr.ConstraintName, prefix) {
		return strings.TrimPrefix(pgErr.ConstraintName, prefix)
	}
	if m := pgDetailKey.FindStringSubmatch(pgErr.Detail); m != nil {
		return m[1]
	}
	return ""
}
