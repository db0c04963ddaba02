package store

import (
	"context"
	"testing"

	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRecordRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRecordRepository()

	_, err := repo.Insert(ctx, "u", models.Accounts, models.Record{"id": "b", "name": "Bank"})
	require.NoError(t, err)
	_, err = repo.Insert(ctx, "u", models.Accounts, models.Record{"id": "a", "name": "Wallet"})
	require.NoError(t, err)

	_, err = repo.Insert(ctx, "u", models.Accounts, models.Record{"id": "a"})
	assert.ErrorIs(t, err, ErrRecordAlreadyExists)

	list, err := repo.List(ctx, "u", models.Accounts)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID(), "insertion order")

	updated, err := repo.Update(ctx, "u", models.Accounts, "a", models.Record{"name": "Cash", "id": "zzz"})
	require.NoError(t, err)
	assert.Equal(t, models.Record{"id": "a", "name": "Cash"}, updated)

	_, err = repo.Update(ctx, "u", models.Accounts, "nope", models.Record{"name": "x"})
	assert.ErrorIs(t, err, ErrRecordNotFound)

	deleted, err := repo.Delete(ctx, "u", models.Accounts, "a")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = repo.Delete(ctx, "u", models.Accounts, "a")
	require.NoError(t, err)
	assert.False(t, deleted)

	other, err := repo.List(ctx, "someone-else", models.Accounts)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestMemoryOperationRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryOperationRepository()

	op := models.NewInsertOperation(models.Accounts, models.Record{"id": "temp_1_aaaaaaaa", "name": "Wallet"}, testNow)
	require.NoError(t, repo.Append(ctx, "u", op))

	ops, err := repo.List(ctx, "u")
	require.NoError(t, err)
	ops[0].Data["name"] = "mutated"

	again, err := repo.List(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, "Wallet", again[0].Data["name"])
}
