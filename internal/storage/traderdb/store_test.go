package traderdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/chartsage/internal/common"
	"github.com/bobmcallan/chartsage/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(common.NewSilentLogger(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestTraderCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	trader := &models.Trader{TraderID: "TRADER-AB12CD34", Email: " Ana@Example.com "}
	require.NoError(t, store.SaveTrader(ctx, trader))

	got, err := store.GetTrader(ctx, "TRADER-AB12CD34")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", got.Email)
	assert.False(t, got.Approved)
	assert.False(t, got.CreatedAt.IsZero())

	created := got.CreatedAt
	trader.Approved = true
	require.NoError(t, store.SaveTrader(ctx, trader))

	got, err = store.GetTrader(ctx, "TRADER-AB12CD34")
	require.NoError(t, err)
	assert.True(t, got.Approved)
	assert.True(t, got.CreatedAt.Equal(created), "CreatedAt survives updates")
	assert.False(t, got.ModifiedAt.Before(created))

	require.NoError(t, store.DeleteTrader(ctx, "TRADER-AB12CD34"))
	_, err = store.GetTrader(ctx, "TRADER-AB12CD34")
	assert.ErrorIs(t, err, models.ErrTraderNotFound)

	require.NoError(t, store.DeleteTrader(ctx, "TRADER-AB12CD34"), "deleting a missing trader is not an error")
}

func TestSaveTrader_RequiresID(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.SaveTrader(context.Background(), &models.Trader{Email: "x@example.com"}))
}

func TestFindByEmail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveTrader(ctx, &models.Trader{TraderID: "TRADER-00000001", Email: "one@example.com"}))
	require.NoError(t, store.SaveTrader(ctx, &models.Trader{TraderID: "TRADER-00000002", Email: "two@example.com"}))

	got, err := store.FindByEmail(ctx, "TWO@example.com")
	require.NoError(t, err)
	assert.Equal(t, "TRADER-00000002", got.TraderID)

	_, err = store.FindByEmail(ctx, "three@example.com")
	assert.ErrorIs(t, err, models.ErrTraderNotFound)
}

func TestListTraders(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	traders, err := store.ListTraders(ctx)
	require.NoError(t, err)
	assert.Empty(t, traders)

	for _, id := range []string{"TRADER-CCCCCCCC", "TRADER-AAAAAAAA", "TRADER-BBBBBBBB"} {
		require.NoError(t, store.SaveTrader(ctx, &models.Trader{TraderID: id, Email: id + "@example.com"}))
	}

	traders, err = store.ListTraders(ctx)
	require.NoError(t, err)
	require.Len(t, traders, 3)
	assert.Equal(t, "TRADER-AAAAAAAA", traders[0].TraderID)
	assert.Equal(t, "TRADER-CCCCCCCC", traders[2].TraderID)
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(common.NewSilentLogger(), dir)
	require.NoError(t, err)
	require.NoError(t, store.SaveTrader(ctx, &models.Trader{TraderID: "TRADER-PERSIST1", Email: "p@example.com", Approved: true}))
	require.NoError(t, store.Close())

	store, err = NewStore(common.NewSilentLogger(), dir)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.GetTrader(ctx, "TRADER-PERSIST1")
	require.NoError(t, err)
	assert.True(t, got.Approved)
}
