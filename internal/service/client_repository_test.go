package service

import (
	"context"
	"testing"

	"github.com/MKhiriev/go-sync-keeper/internal/app"
	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRepository_UnknownCollection(t *testing.T) {
	h := newHarness(t, true)

	_, err := NewRepository[models.Account](h.coord, "wallets")

	assert.ErrorIs(t, err, app.ErrValidation)
	assert.ErrorIs(t, err, models.ErrUnknownCollection)
}

func TestRepository_TypedRoundTrip(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)
	accounts, err := NewRepository[models.Account](h.coord, "accounts")
	require.NoError(t, err)
	assert.Equal(t, models.Accounts, accounts.Collection())

	created := accounts.Insert(ctx, models.Account{ID: "ignored", Name: "Wallet", Currency: "EUR"})
	require.NoError(t, created.Err)
	assert.False(t, created.Queued)
	assert.Equal(t, "srv-1", created.Item.ID)
	assert.Equal(t, "Wallet", created.Item.Name)
	assert.Equal(t, []string{"insert accounts"}, callNames(h.gw.writes()))
	_, sentID := h.gw.writes()[0].Payload["id"]
	assert.False(t, sentID, "id is never sent with an insert")

	item := created.Item
	item.Name = "Main wallet"
	updated := accounts.Update(ctx, item)
	require.NoError(t, updated.Err)
	assert.Equal(t, "Main wallet", updated.Item.Name)

	found, ok, err := accounts.Find(ctx, "srv-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Main wallet", found.Name)

	view := accounts.List(ctx)
	require.NoError(t, view.Err)
	require.Len(t, view.Items, 1)

	require.NoError(t, accounts.Remove(ctx, "srv-1"))
	_, ok, err = accounts.Find(ctx, "srv-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepository_QueuedInsertKeepsTemporaryID(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, false)
	txs, err := NewRepository[models.Transaction](h.coord, "transactions")
	require.NoError(t, err)

	res := txs.Insert(ctx, models.Transaction{AccountID: "acc-1", Amount: 12.5})

	require.NoError(t, res.Err)
	assert.True(t, res.Queued)
	assert.True(t, models.IsTempID(res.Item.ID))
	assert.Equal(t, "acc-1", res.Item.AccountID)
	assert.Equal(t, 1, h.coord.PendingCount())
}

func TestRepository_ListReportsUndecodableRecords(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)
	h.gw.seed(models.Goals,
		models.Record{"id": "g-1", "name": "Bike", "target": 500},
		models.Record{"id": "g-2", "name": "Car", "target": "a lot"},
	)
	require.NoError(t, h.coord.Refetch(ctx, models.Goals))

	goals, err := NewRepository[models.Goal](h.coord, "goals")
	require.NoError(t, err)

	view := goals.List(ctx)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "g-1", view.Items[0].ID)
	assert.ErrorIs(t, view.Err, app.ErrValidation)
}
