package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/MKhiriev/go-sync-keeper/internal/app"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pgError(code string) error {
	return &pgconn.PgError{Code: code}
}

func newMockDB(t *testing.T, classificator ErrorClassificator) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewDB(conn, classificator, logger.Nop()), mock
}

// ── client repositories: error paths ─────────────────────────────────────────

func TestOperationRepository_AppendStorageError(t *testing.T) {
	db, mock := newMockDB(t, NewSQLiteErrorClassifier())
	repo := NewOperationRepository(db, logger.Nop())

	mock.ExpectExec("INSERT INTO pending_operations").WillReturnError(errors.New("disk I/O error"))

	err := repo.Append(context.Background(), "u", models.NewDeleteOperation(models.Goals, "g", testNow))
	require.Error(t, err)
	assert.Equal(t, app.KindStorage, app.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOperationRepository_ListQueryError(t *testing.T) {
	db, mock := newMockDB(t, NewSQLiteErrorClassifier())
	repo := NewOperationRepository(db, logger.Nop())

	mock.ExpectQuery("SELECT entry").WithArgs("u").WillReturnError(errors.New("database is locked"))

	_, err := repo.List(context.Background(), "u")
	assert.ErrorIs(t, err, app.ErrStorage)
}

func TestMirrorRepository_LoadCorrupted(t *testing.T) {
	db, mock := newMockDB(t, NewSQLiteErrorClassifier())
	repo := NewMirrorRepository(db, logger.Nop())

	mock.ExpectQuery("SELECT records").
		WithArgs("u", "accounts").
		WillReturnRows(sqlmock.NewRows([]string{"records"}).AddRow("[{broken"))

	_, _, err := repo.Load(context.Background(), "u", models.Accounts)
	assert.ErrorIs(t, err, ErrCorruptedEntry)
}

// ── record repository ─────────────────────────────────────────────────────────

func newTestRecordRepo(t *testing.T) (RecordRepository, sqlmock.Sqlmock) {
	db, mock := newMockDB(t, NewPostgresErrorClassifier())
	return NewRecordRepository(db, logger.Nop()), mock
}

func TestRecordRepository_List(t *testing.T) {
	repo, mock := newTestRecordRepo(t)

	mock.ExpectQuery("SELECT data FROM records WHERE").
		WithArgs("accounts", "u").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).
			AddRow([]byte(`{"id":"a","name":"Wallet"}`)).
			AddRow([]byte(`{"id":"b","name":"Bank"}`)))

	records, err := repo.List(context.Background(), "u", models.Accounts)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ID())
	assert.Equal(t, "Bank", records[1]["name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepository_InsertUniqueViolation(t *testing.T) {
	repo, mock := newTestRecordRepo(t)

	mock.ExpectQuery("INSERT INTO records").
		WithArgs("u", "accounts", "a", sqlmock.AnyArg()).
		WillReturnError(pgError(pgerrcode.UniqueViolation))

	_, err := repo.Insert(context.Background(), "u", models.Accounts, models.Record{"id": "a"})
	assert.ErrorIs(t, err, ErrRecordAlreadyExists)
	assert.Equal(t, app.KindConflict, app.KindOf(err))
}

func TestRecordRepository_InsertCheckViolation(t *testing.T) {
	repo, mock := newTestRecordRepo(t)

	mock.ExpectQuery("INSERT INTO records").WillReturnError(pgError(pgerrcode.CheckViolation))

	_, err := repo.Insert(context.Background(), "u", models.Accounts, models.Record{"id": "temp_1_0000000f"})
	assert.Equal(t, app.KindValidation, app.KindOf(err))
}

func TestRecordRepository_Insert(t *testing.T) {
	repo, mock := newTestRecordRepo(t)

	mock.ExpectQuery("INSERT INTO records").
		WithArgs("u", "goals", "g-1", `{"id":"g-1","target":100}`).
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte(`{"id":"g-1","target":100}`)))

	saved, err := repo.Insert(context.Background(), "u", models.Goals, models.Record{"id": "g-1", "target": 100})
	require.NoError(t, err)
	assert.Equal(t, "g-1", saved.ID())
	assert.EqualValues(t, 100, saved["target"])
}

func TestRecordRepository_UpdateNotFound(t *testing.T) {
	repo, mock := newTestRecordRepo(t)

	mock.ExpectQuery("UPDATE records SET data = data").WillReturnError(sql.ErrNoRows)

	_, err := repo.Update(context.Background(), "u", models.Accounts, "missing", models.Record{"name": "x"})
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestRecordRepository_UpdateMergesPatch(t *testing.T) {
	repo, mock := newTestRecordRepo(t)

	mock.ExpectQuery("UPDATE records SET data = data").
		WithArgs(`{"name":"Cash"}`, "accounts", "acc-1", "u").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte(`{"id":"acc-1","name":"Cash","balance":5}`)))

	updated, err := repo.Update(context.Background(), "u", models.Accounts, "acc-1", models.Record{"id": "ignored", "name": "Cash"})
	require.NoError(t, err)
	assert.Equal(t, "Cash", updated["name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepository_Delete(t *testing.T) {
	repo, mock := newTestRecordRepo(t)

	mock.ExpectExec("DELETE FROM records").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM records").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM records").WillReturnError(pgError(pgerrcode.ConnectionFailure))

	deleted, err := repo.Delete(context.Background(), "u", models.Accounts, "a")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(context.Background(), "u", models.Accounts, "a")
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = repo.Delete(context.Background(), "u", models.Accounts, "a")
	assert.Equal(t, app.KindStorage, app.KindOf(err))
}

// ── classifiers ───────────────────────────────────────────────────────────────

func TestClassifyPgError(t *testing.T) {
	tests := []struct {
		code string
		want app.Kind
	}{
		{pgerrcode.UniqueViolation, app.KindConflict},
		{pgerrcode.CheckViolation, app.KindValidation},
		{pgerrcode.NotNullViolation, app.KindValidation},
		{pgerrcode.InvalidTextRepresentation, app.KindValidation},
		{pgerrcode.NumericValueOutOfRange, app.KindValidation},
		{pgerrcode.ConnectionFailure, app.KindStorage},
		{pgerrcode.DeadlockDetected, app.KindStorage},
		{pgerrcode.UndefinedTable, app.KindStorage},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyPgError(&pgconn.PgError{Code: tt.code}))
		})
	}
}

func TestErrorClassifiers_Wrap(t *testing.T) {
	pg := NewPostgresErrorClassifier()
	assert.NoError(t, pg.Wrap("op", nil))
	assert.ErrorIs(t, pg.Wrap("op", sql.ErrNoRows), sql.ErrNoRows)
	assert.Equal(t, app.KindStorage, app.KindOf(pg.Wrap("op", errors.New("plain"))))

	lite := NewSQLiteErrorClassifier()
	assert.Equal(t, app.KindConflict, lite.Classify(sqlite3.Error{Code: sqlite3.ErrConstraint}))
	assert.Equal(t, app.KindStorage, lite.Classify(sqlite3.Error{Code: sqlite3.ErrIoErr}))
}
