package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var opTime = time.UnixMilli(1_700_000_000_123)

func TestNewInsertOperation(t *testing.T) {
	op := NewInsertOperation(Accounts, Record{"id": "temp_1_aaaaaaaa", "name": "Wallet"}, opTime)

	assert.Equal(t, "op-temp_1_aaaaaaaa", op.ID)
	assert.Equal(t, OperationInsert, op.Kind)
	assert.Equal(t, int64(1_700_000_000_123), op.Timestamp)
	assert.Equal(t, "temp_1_aaaaaaaa", op.TargetID())
	assert.Equal(t, Record{"name": "Wallet"}, op.Payload())
	assert.Empty(t, op.Dependencies())
	assert.NoError(t, op.Validate())
}

func TestNewUpdateOperation(t *testing.T) {
	op := NewUpdateOperation(Accounts, "acc-1", Record{"id": "x", "name": "Cash"}, opTime)

	assert.Equal(t, "op-update-acc-1-1700000000123", op.ID)
	assert.Equal(t, Record{"name": "Cash"}, op.Patch())
	assert.Nil(t, op.Payload())
	assert.NoError(t, op.Validate())
}

func TestNewDeleteOperation(t *testing.T) {
	op := NewDeleteOperation(Goals, "temp_5_eeeeeeee", opTime)

	assert.Equal(t, "op-delete-temp_5_eeeeeeee-1700000000123", op.ID)
	assert.Equal(t, Record{"id": "temp_5_eeeeeeee"}, op.Data)
	assert.Nil(t, op.Patch())
	assert.Equal(t, []string{"temp_5_eeeeeeee"}, op.Dependencies())
}

func TestPendingOperation_Dependencies(t *testing.T) {
	op := NewInsertOperation(Transactions, Record{"id": "temp_2_bbbbbbbb", "accountId": "temp_1_aaaaaaaa"}, opTime)

	assert.Equal(t, []string{"temp_1_aaaaaaaa"}, op.Dependencies())
}

func TestPendingOperation_RewriteID(t *testing.T) {
	insert := NewInsertOperation(Accounts, Record{"id": "temp_1_aaaaaaaa"}, opTime)
	rewritten, changed := insert.RewriteID("temp_1_aaaaaaaa", "acc-42")

	require.True(t, changed)
	assert.Equal(t, "op-temp_1_aaaaaaaa", rewritten.ID, "operation id is stable")
	assert.Equal(t, "acc-42", rewritten.TargetID())
	assert.Equal(t, "temp_1_aaaaaaaa", insert.TargetID())

	update := NewUpdateOperation(Transactions, "tx-1", Record{"accountId": "temp_1_aaaaaaaa"}, opTime)
	rewritten, changed = update.RewriteID("temp_1_aaaaaaaa", "acc-42")
	require.True(t, changed)
	assert.Equal(t, Record{"accountId": "acc-42"}, rewritten.Patch())

	_, changed = update.RewriteID("temp_x", "y")
	assert.False(t, changed)
}

func TestPendingOperation_Validate(t *testing.T) {
	assert.Error(t, PendingOperation{}.Validate())
	assert.Error(t, PendingOperation{ID: "op", Collection: "nope", Kind: OperationDelete}.Validate())
	assert.Error(t, PendingOperation{ID: "op", Collection: Goals, Kind: "MERGE"}.Validate())
	assert.Error(t, PendingOperation{ID: "op", Collection: Goals, Kind: OperationDelete, Data: Record{}}.Validate())
}
