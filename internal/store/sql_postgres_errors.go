package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/MKhiriev/go-sync-keeper/internal/app"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// ErrorClassificator maps driver errors to the engine's error kinds.
type ErrorClassificator interface {
	Classify(err error) app.Kind
	// Wrap returns err classified and tagged with op, or nil for a nil err.
	Wrap(op string, err error) error
}

// PostgresErrorClassifier implements [ErrorClassificator] for PostgreSQL.
// It inspects the pgconn error code returned by the pgx driver.
type PostgresErrorClassifier struct{}

// NewPostgresErrorClassifier constructs a [PostgresErrorClassifier] ready for use.
func NewPostgresErrorClassifier() *PostgresErrorClassifier {
	return &PostgresErrorClassifier{}
}

// Classify implements [ErrorClassificator]. Errors that are not PostgreSQL
// driver errors are storage failures.
func (c *PostgresErrorClassifier) Classify(err error) app.Kind {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return ClassifyPgError(pgErr)
	}

	return app.KindStorage
}

func (c *PostgresErrorClassifier) Wrap(op string, err error) error {
	return wrapClassified(c, op, err)
}

// ClassifyPgError maps a *pgconn.PgError to an error kind based on the
// PostgreSQL error code.
// See https://www.postgresql.org/docs/current/errcodes-appendix.html for the
// full list of PostgreSQL error codes.
//
//   - Class 23 unique violation → Conflict
//   - Class 22 data exceptions, Class 23 check/not-null violations → Validation
//   - everything else (connection loss, rollbacks, syntax) → Storage
func ClassifyPgError(pgErr *pgconn.PgError) app.Kind {
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return app.KindConflict

	case pgerrcode.CheckViolation,
		pgerrcode.NotNullViolation,
		pgerrcode.InvalidTextRepresentation,
		pgerrcode.InvalidParameterValue:
		return app.KindValidation
	}

	if pgerrcode.IsDataException(pgErr.Code) {
		return app.KindValidation
	}

	return app.KindStorage
}

// SQLiteErrorClassifier implements [ErrorClassificator] for the client
// store. Every failure of the local file is a storage failure except
// constraint violations, which reveal a duplicate entry.
type SQLiteErrorClassifier struct{}

func NewSQLiteErrorClassifier() *SQLiteErrorClassifier {
	return &SQLiteErrorClassifier{}
}

func (c *SQLiteErrorClassifier) Classify(err error) app.Kind {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return app.KindConflict
	}
	return app.KindStorage
}

func (c *SQLiteErrorClassifier) Wrap(op string, err error) error {
	return wrapClassified(c, op, err)
}

func wrapClassified(c ErrorClassificator, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, context.Canceled) {
		return err
	}
	return app.E(c.Classify(err), op, err)
}
