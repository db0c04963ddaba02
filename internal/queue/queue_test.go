package queue

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/MKhiriev/go-sync-keeper/internal/app"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/internal/mock"
	"github.com/MKhiriev/go-sync-keeper/internal/store"
	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var testNow = time.UnixMilli(1_700_000_000_000)

const tempAccount = "temp_1700000000000000000_ab12cd34"

func newSQLiteRepo(t *testing.T, path string) store.OperationRepository {
	t.Helper()
	db, err := store.NewConnectSQLite(context.Background(), path, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return store.NewOperationRepository(db, logger.Nop())
}

func opIDs(ops []models.PendingOperation) []string {
	out := make([]string, 0, len(ops))
	for _, op := range ops {
		out = append(out, op.ID)
	}
	return out
}

func sampleOperations() []models.PendingOperation {
	return []models.PendingOperation{
		models.NewInsertOperation(models.Accounts, models.Record{"id": tempAccount, "name": "Wallet", "balance": 0}, testNow),
		models.NewUpdateOperation(models.Accounts, "acc-1", models.Record{"name": "Cash"}, testNow.Add(time.Millisecond)),
		models.NewDeleteOperation(models.Accounts, "acc-2", testNow.Add(2*time.Millisecond)),
	}
}

// ── ordering ──

func TestPersistentQueue_FIFO(t *testing.T) {
	ctx := context.Background()
	q := New(ctx, "u", store.NewMemoryOperationRepository(), logger.Nop())

	for _, op := range sampleOperations() {
		require.NoError(t, q.Enqueue(ctx, op))
	}

	assert.Equal(t, 3, q.Count())
	assert.Equal(t, []string{
		"op-" + tempAccount,
		"op-update-acc-1-1700000000001",
		"op-delete-acc-2-1700000000002",
	}, opIDs(q.DequeueAll()))

	// DequeueAll does not consume.
	assert.Equal(t, 3, q.Count())

	require.NoError(t, q.Remove(ctx, "op-update-acc-1-1700000000001"))
	require.NoError(t, q.Remove(ctx, "unknown"))
	assert.Equal(t, []string{"op-" + tempAccount, "op-delete-acc-2-1700000000002"}, opIDs(q.DequeueAll()))
}

func TestPersistentQueue_DuplicateIDsAreDisambiguated(t *testing.T) {
	ctx := context.Background()
	q := New(ctx, "u", store.NewMemoryOperationRepository(), logger.Nop())

	first := models.NewUpdateOperation(models.Accounts, "acc-1", models.Record{"name": "A"}, testNow)
	second := models.NewUpdateOperation(models.Accounts, "acc-1", models.Record{"name": "B"}, testNow)
	require.NoError(t, q.Enqueue(ctx, first))
	require.NoError(t, q.Enqueue(ctx, second))

	ids := opIDs(q.DequeueAll())
	assert.Equal(t, []string{first.ID, first.ID + "-2"}, ids)
	assert.False(t, q.Degraded())
}

func TestPersistentQueue_RejectsInvalidOperation(t *testing.T) {
	q := New(context.Background(), "u", nil, logger.Nop())

	err := q.Enqueue(context.Background(), models.PendingOperation{ID: "x", Collection: "nope", Kind: models.OperationInsert})
	assert.ErrorIs(t, err, app.ErrValidation)
	assert.Zero(t, q.Count())
}

// ── queries ──

func TestPersistentQueue_PendingQueries(t *testing.T) {
	ctx := context.Background()
	q := New(ctx, "u", nil, logger.Nop())

	require.NoError(t, q.Enqueue(ctx, sampleOperations()[0]))
	require.NoError(t, q.Enqueue(ctx, models.NewInsertOperation(models.Transactions,
		models.Record{"id": "temp_2_0000beef", "accountId": tempAccount}, testNow)))

	assert.True(t, q.HasPending(models.Accounts))
	assert.True(t, q.HasPending(models.Transactions))
	assert.False(t, q.HasPending(models.Goals))
	assert.Len(t, q.Pending(models.Transactions), 1)

	assert.Equal(t, map[string]struct{}{tempAccount: {}, "temp_2_0000beef": {}}, q.PendingInsertIDs())
	assert.False(t, q.Degraded(), "a queue without repository is memory-only, not degraded")
}

func TestPersistentQueue_RewriteID(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemoryOperationRepository()
	q := New(ctx, "u", repo, logger.Nop())

	insertAccount := sampleOperations()[0]
	insertTx := models.NewInsertOperation(models.Transactions,
		models.Record{"id": "temp_2_0000beef", "accountId": tempAccount}, testNow)
	updateAccount := models.NewUpdateOperation(models.Accounts, tempAccount, models.Record{"name": "Cash"}, testNow)

	for _, op := range []models.PendingOperation{insertAccount, insertTx, updateAccount} {
		require.NoError(t, q.Enqueue(ctx, op))
	}
	require.NoError(t, q.Remove(ctx, insertAccount.ID))

	assert.Equal(t, 2, q.RewriteID(ctx, tempAccount, "acc-42"))

	ops := q.DequeueAll()
	assert.Equal(t, "acc-42", ops[0].Data["accountId"])
	assert.Equal(t, "acc-42", ops[1].TargetID())
	assert.Equal(t, updateAccount.ID, ops[1].ID, "operation id is stable")

	persisted, err := repo.List(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, ops, persisted)
}

// ── durability ──

func TestPersistentQueue_RestartRecovery(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "client.db")

	first := New(ctx, "u", newSQLiteRepo(t, path), logger.Nop())
	for _, op := range sampleOperations() {
		require.NoError(t, first.Enqueue(ctx, op))
	}
	require.NoError(t, first.Remove(ctx, "op-delete-acc-2-1700000000002"))

	restarted := New(ctx, "u", newSQLiteRepo(t, path), logger.Nop())
	assert.Equal(t, []string{"op-" + tempAccount, "op-update-acc-1-1700000000001"}, opIDs(restarted.DequeueAll()))

	other := New(ctx, "someone-else", newSQLiteRepo(t, path), logger.Nop())
	assert.Zero(t, other.Count())
}

func TestPersistentQueue_PersistedEntryFormat(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "client.db")

	q := New(ctx, "u", newSQLiteRepo(t, path), logger.Nop())
	for _, op := range sampleOperations() {
		require.NoError(t, q.Enqueue(ctx, op))
	}

	restored, err := newSQLiteRepo(t, path).List(ctx, "u")
	require.NoError(t, err)

	out, err := json.MarshalIndent(restored, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "persisted_entries", out)
}

func TestPersistentQueue_LoadFailureDegrades(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mock.NewMockOperationRepository(ctrl)
	repo.EXPECT().List(gomock.Any(), "u").Return(nil, errors.New("locked"))

	q := New(context.Background(), "u", repo, logger.Nop())
	assert.True(t, q.Degraded())

	// no repository calls once degraded
	require.NoError(t, q.Enqueue(context.Background(), sampleOperations()[1]))
	assert.Equal(t, 1, q.Count())
}

func TestPersistentQueue_WriteFailureKeepsOperation(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	repo := mock.NewMockOperationRepository(ctrl)

	gomock.InOrder(
		repo.EXPECT().List(gomock.Any(), "u").Return(nil, nil),
		repo.EXPECT().Append(gomock.Any(), "u", gomock.Any()).Return(errors.New("disk full")),
	)

	q := New(ctx, "u", repo, logger.Nop())
	require.NoError(t, q.Enqueue(ctx, sampleOperations()[0]))
	require.NoError(t, q.Enqueue(ctx, sampleOperations()[1]))

	assert.True(t, q.Degraded())
	assert.Equal(t, 2, q.Count())

	require.NoError(t, q.Remove(ctx, sampleOperations()[0].ID))
	assert.Equal(t, 1, q.Count())
}
