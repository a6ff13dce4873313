package db

import (
	"strings"

	pkgerrors "github.com/angelmondragon/logbook-backend/pkg/errors"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint violation.
// When constraintName is provided, a Postgres violation must name that
// constraint. SQLite only reports columns, so any UNIQUE failure matches.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if pg, ok := pkgerrors.Postgres(err); ok {
		return pg.Code == pgUniqueViolation &&
			(constraintName == "" || pg.Constraint == constraintName)
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
