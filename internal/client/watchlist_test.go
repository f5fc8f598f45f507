package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchlist_Lifecycle(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	list, err := c.ListWatchlist(ctx)
	require.NoError(t, err)
	assert.Empty(t, list.Items)
	assert.Equal(t, 0, list.Total)

	moutai, err := c.AddToWatchlist(ctx, "600519", "")
	require.NoError(t, err)
	assert.NotZero(t, moutai.ID)
	assert.Equal(t, "600519", moutai.StockCode)
	assert.Equal(t, "Kweichow Moutai", moutai.StockName, "server resolves the name when none is sent")
	assert.False(t, moutai.CreatedAt.IsZero())

	custom, err := c.AddToWatchlist(ctx, " 000001 ", "PAB")
	require.NoError(t, err)
	assert.Equal(t, "000001", custom.StockCode)
	assert.Equal(t, "PAB", custom.StockName)

	again, err := c.AddToWatchlist(ctx, "600519", "")
	require.NoError(t, err)
	assert.Equal(t, moutai.ID, again.ID, "adding twice returns the existing entry")

	list, err = c.ListWatchlist(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)

	require.NoError(t, c.RemoveFromWatchlist(ctx, moutai.ID))
	list, err = c.ListWatchlist(ctx)
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "000001", list.Items[0].StockCode)

	err = c.RemoveFromWatchlist(ctx, moutai.ID)
	assert.True(t, IsNotFound(err))
}

func TestWatchlist_AddValidation(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.AddToWatchlist(context.Background(), "   ", "")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestSearchStocks(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	result, err := c.SearchStocks(ctx, "moutai")
	require.NoError(t, err)
	assert.Equal(t, "moutai", result.Query)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "600519", result.Results[0].StockCode)
	assert.Equal(t, "A", result.Results[0].Market)

	result, err = c.SearchStocks(ctx, "aapl")
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "US", result.Results[0].Market)

	result, err = c.SearchStocks(ctx, "zzz")
	require.NoError(t, err)
	assert.Empty(t, result.Results)

	_, err = c.SearchStocks(ctx, " ")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
