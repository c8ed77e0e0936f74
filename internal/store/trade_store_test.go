package store

import (
	"testing"
	"time"

	"trade-journal-go/internal/database"
	"trade-journal-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *TradeStore {
	t.Helper()
	db, err := database.NewDatabase(":memory:")
	require.NoError(t, err)
	return NewTradeStore(db)
}

func testTrade(address string) models.Trade {
	return models.Trade{
		CoinSlugOrAddress: address,
		EntryPrice:        1.5,
		TargetPrice:       3,
		StopLoss:          1,
		Quantity:          100,
		Notes:             "note",
		Date:              time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Status:            models.StatusOpen,
	}
}

func TestAddAssignsID(t *testing.T) {
	s := newTestStore(t)

	first := testTrade("0xaaa")
	second := testTrade("0xbbb")

	id1, err := s.Add(&first)
	require.NoError(t, err)
	id2, err := s.Add(&second)
	require.NoError(t, err)

	assert.NotZero(t, id1)
	assert.Greater(t, id2, id1, "ids auto-increment")
}

func TestTransientFieldsAreNeverPersisted(t *testing.T) {
	s := newTestStore(t)

	trade := testTrade("0xaaa")
	live := 2.5
	pnl := 100.0
	trade.LivePrice = &live
	trade.Pnl = &pnl
	trade.PnlPercent = &pnl
	trade.PairInfo = &models.PairInfo{PriceUsd: 2.5}

	id, err := s.Add(&trade)
	require.NoError(t, err)

	stored, err := s.Get(id)
	require.NoError(t, err)
	assert.Nil(t, stored.LivePrice)
	assert.Nil(t, stored.Pnl)
	assert.Nil(t, stored.PnlPercent)
	assert.Nil(t, stored.PairInfo)
	assert.Equal(t, "0xaaa", stored.CoinSlugOrAddress)
}

func TestUpdateAndDelete(t *testing.T) {
	s := newTestStore(t)

	trade := testTrade("0xaaa")
	id, err := s.Add(&trade)
	require.NoError(t, err)

	trade.Status = models.StatusClosedProfit
	trade.Notes = "closed at target"
	require.NoError(t, s.Update(&trade))

	stored, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosedProfit, stored.Status)
	assert.Equal(t, "closed at target", stored.Notes)

	require.NoError(t, s.Delete(id))
	_, err = s.Get(id)
	assert.Error(t, err)
}

func TestUpdateWithoutIDFails(t *testing.T) {
	s := newTestStore(t)
	trade := testTrade("0xaaa")
	assert.Error(t, s.Update(&trade))
}

func TestBulkOperations(t *testing.T) {
	s := newTestStore(t)

	trades := []models.Trade{testTrade("0xaaa"), testTrade("0xbbb"), testTrade("0xccc")}
	require.NoError(t, s.BulkAdd(trades))

	all, err := s.GetAll()
	require.NoError(t, err)
	require.Len(t, all, 3)

	for i := range all {
		all[i].Notes = "bulk edited"
	}
	require.NoError(t, s.BulkUpdate(all))

	all, err = s.GetAll()
	require.NoError(t, err)
	for _, tr := range all {
		assert.Equal(t, "bulk edited", tr.Notes)
	}

	require.NoError(t, s.BulkDelete([]uint{all[0].ID, all[2].ID}))
	remaining, err := s.GetAll()
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "0xbbb", remaining[0].CoinSlugOrAddress)

	// Empty inputs are no-ops.
	require.NoError(t, s.BulkAdd(nil))
	require.NoError(t, s.BulkUpdate(nil))
	require.NoError(t, s.BulkDelete(nil))
}

func TestOptionalMarketCapRoundTrip(t *testing.T) {
	s := newTestStore(t)

	withCap := testTrade("0xaaa")
	mcap := 1500000.0
	withCap.EntryMarketCap = &mcap

	withoutCap := testTrade("0xbbb")

	_, err := s.Add(&withCap)
	require.NoError(t, err)
	_, err = s.Add(&withoutCap)
	require.NoError(t, err)

	all, err := s.GetAll()
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.NotNil(t, all[0].EntryMarketCap)
	assert.Equal(t, 1500000.0, *all[0].EntryMarketCap)
	assert.Nil(t, all[1].EntryMarketCap, "unset stays unset, not zero")
}
