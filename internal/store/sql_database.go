package store

import (
	"database/sql"

	"github.com/MKhiriev/go-sync-keeper/internal/logger"
)

// DB is a database handle shared by the repositories of one store. The
// classificator maps driver errors to the engine's error kinds.
type DB struct {
	*sql.DB
	errorClassificator ErrorClassificator
	logger             *logger.Logger
}

// NewDB wraps an already opened connection.
func NewDB(conn *sql.DB, classificator ErrorClassificator, log *logger.Logger) *DB {
	return &DB{DB: conn, errorClassificator: classificator, logger: log}
}

func (db *DB) classify(op string, err error) error {
	return db.errorClassificator.Wrap(op, err)
}
