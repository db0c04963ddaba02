package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/models"
)

// operationRepository stores each pending operation as its self-contained
// JSON entry. The autoincrement seq column fixes the replay order.
type operationRepository struct {
	*DB
	logger *logger.Logger
}

func NewOperationRepository(db *DB, logger *logger.Logger) OperationRepository {
	return &operationRepository{
		DB:     db,
		logger: logger,
	}
}

func (r *operationRepository) Append(ctx context.Context, userID string, op models.PendingOperation) error {
	entry, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("failed to encode pending operation %s: %w", op.ID, err)
	}

	if _, err = r.DB.ExecContext(ctx, appendOperation, userID, op.ID, string(entry), time.Now().UnixMilli()); err != nil {
		r.logger.Err(err).
			Str("func", "operationRepository.Append").
			Str("user_id", userID).
			Str("op_id", op.ID).
			Msg("failed to persist pending operation")
		return r.classify("operationRepository.Append", err)
	}

	return nil
}

func (r *operationRepository) Replace(ctx context.Context, userID string, op models.PendingOperation) error {
	entry, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("failed to encode pending operation %s: %w", op.ID, err)
	}

	res, err := r.DB.ExecContext(ctx, replaceOperation, string(entry), userID, op.ID)
	if err != nil {
		r.logger.Err(err).
			Str("func", "operationRepository.Replace").
			Str("user_id", userID).
			Str("op_id", op.ID).
			Msg("failed to rewrite pending operation")
		return r.classify("operationRepository.Replace", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrOperationNotFound, op.ID)
	}
	return nil
}

func (r *operationRepository) Delete(ctx context.Context, userID, opID string) error {
	if _, err := r.DB.ExecContext(ctx, deleteOperation, userID, opID); err != nil {
		r.logger.Err(err).
			Str("func", "operationRepository.Delete").
			Str("user_id", userID).
			Str("op_id", opID).
			Msg("failed to delete pending operation")
		return r.classify("operationRepository.Delete", err)
	}
	return nil
}

// List returns the stored operations in enqueue order. Entries that cannot be
// decoded are skipped and logged so one corrupted row does not block the
// whole queue.
func (r *operationRepository) List(ctx context.Context, userID string) ([]models.PendingOperation, error) {
	rows, err := r.DB.QueryContext(ctx, listOperations, userID)
	if err != nil {
		r.logger.Err(err).
			Str("func", "operationRepository.List").
			Str("user_id", userID).
			Msg("failed to query pending operations")
		return nil, r.classify("operationRepository.List", err)
	}
	defer rows.Close()

	ops := make([]models.PendingOperation, 0)
	for rows.Next() {
		var entry string
		if err = rows.Scan(&entry); err != nil {
			return nil, r.classify("operationRepository.List", err)
		}

		var op models.PendingOperation
		if err = json.Unmarshal([]byte(entry), &op); err == nil {
			err = op.Validate()
		}
		if err != nil {
			r.logger.Warn().Err(err).
				Str("func", "operationRepository.List").
				Str("user_id", userID).
				Msg("skipping corrupted pending operation")
			continue
		}
		ops = append(ops, op)
	}

	if err = rows.Err(); err != nil {
		return nil, r.classify("operationRepository.List", err)
	}
	return ops, nil
}
