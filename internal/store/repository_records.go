package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/jackc/pgerrcode"
)

const recordsTable = "records"

// recordRepository is the PostgreSQL-backed implementation of
// [RecordRepository]. Record bodies live in a jsonb column; the id column
// mirrors the body's "id" field.
type recordRepository struct {
	db      *DB
	builder sq.StatementBuilderType
	logger  *logger.Logger
}

// NewRecordRepository constructs a [RecordRepository] backed by db.
func NewRecordRepository(db *DB, logger *logger.Logger) RecordRepository {
	logger.Debug().Msg("creating record repository")
	return &recordRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger:  logger,
	}
}

func (r *recordRepository) List(ctx context.Context, userID string, collection models.Collection) ([]models.Record, error) {
	log := logger.FromContext(ctx)

	query, args, err := r.builder.
		Select("data").
		From(recordsTable).
		Where(sq.Eq{"user_id": userID, "collection": string(collection)}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.List").
			Str("user_id", userID).
			Str("collection", string(collection)).
			Msg("failed to query records")
		return nil, r.db.classify("recordRepository.List", err)
	}
	defer rows.Close()

	records := make([]models.Record, 0)
	for rows.Next() {
		record, scanErr := scanRecord(rows)
		if scanErr != nil {
			log.Err(scanErr).Str("func", "recordRepository.List").Msg("failed to scan record row")
			return nil, scanErr
		}
		records = append(records, record)
	}
	if err = rows.Err(); err != nil {
		return nil, r.db.classify("recordRepository.List", err)
	}

	return records, nil
}

func (r *recordRepository) Insert(ctx context.Context, userID string, collection models.Collection, record models.Record) (models.Record, error) {
	log := logger.FromContext(ctx)

	body, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}

	query, args, err := r.builder.
		Insert(recordsTable).
		Columns("user_id", "collection", "id", "data").
		Values(userID, string(collection), record.ID(), string(body)).
		Suffix("RETURNING data").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}

	saved, err := scanRecord(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.Insert").
			Str("user_id", userID).
			Str("collection", string(collection)).
			Str("id", record.ID()).
			Msg("failed to insert record")

		if postgresError(err) == pgerrcode.UniqueViolation {
			return nil, fmt.Errorf("%w: %w", ErrRecordAlreadyExists, r.db.classify("recordRepository.Insert", err))
		}
		return nil, r.db.classify("recordRepository.Insert", err)
	}

	return saved, nil
}

// Update merges patch into the stored jsonb body with the || operator. The id
// field of the patch is ignored.
func (r *recordRepository) Update(ctx context.Context, userID string, collection models.Collection, id string, patch models.Record) (models.Record, error) {
	log := logger.FromContext(ctx)

	body, err := json.Marshal(patch.WithoutID())
	if err != nil {
		return nil, fmt.Errorf("failed to encode patch: %w", err)
	}

	query, args, err := r.builder.
		Update(recordsTable).
		Set("data", sq.Expr("data || ?::jsonb", string(body))).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"user_id": userID, "collection": string(collection), "id": id}).
		Suffix("RETURNING data").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}

	updated, err := scanRecord(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.Update").
			Str("user_id", userID).
			Str("id", id).
			Msg("failed to update record")
		return nil, r.db.classify("recordRepository.Update", err)
	}

	return updated, nil
}

func (r *recordRepository) Delete(ctx context.Context, userID string, collection models.Collection, id string) (bool, error) {
	log := logger.FromContext(ctx)

	query, args, err := r.builder.
		Delete(recordsTable).
		Where(sq.Eq{"user_id": userID, "collection": string(collection), "id": id}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.Delete").
			Str("user_id", userID).
			Str("id", id).
			Msg("failed to delete record")
		return false, r.db.classify("recordRepository.Delete", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, r.db.classify("recordRepository.Delete", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (models.Record, error) {
	var body []byte
	if err := row.Scan(&body); err != nil {
		return nil, err
	}

	var record models.Record
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedEntry, err)
	}
	return record, nil
}
