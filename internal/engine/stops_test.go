package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradesim/internal/common"
)

func placeStop(t *testing.T, book *OrderBook, side common.Side, stopPrice float64, qty uint64) int64 {
	t.Helper()
	order, err := common.NewStopOrder(testIDs.Next(), 1, book.Symbol(), side, qty, dec(stopPrice))
	require.NoError(t, err)
	trades, err := book.AddOrder(order)
	require.NoError(t, err)
	assert.Empty(t, trades, "staging a stop must not trade")
	return order.ID
}

func TestStopOrder_StagedInvisibleUntilTriggered(t *testing.T) {
	// Scenario: a sell stop at 9.00 while the best bid is 10.00 stays
	// staged; trades dragging the bid down to 9.00 release it within the
	// same AddOrder call that moved the price.
	book := NewOrderBook("AAPL")

	placeLimit(t, book, common.Buy, 10.00, 40)
	placeLimit(t, book, common.Buy, 9.00, 100)

	placeStop(t, book, common.Sell, 9.00, 30)
	assert.Empty(t, book.Snapshot().Asks, "staged stop must not appear in a ladder")
	assert.Equal(t, []flatLevel{{"10", 40}, {"9", 100}}, flatten(book.Snapshot().Bids))

	// A sell sweep consumes the 10.00 level; best bid becomes 9.00,
	// which satisfies the stop condition. The converted market sell then
	// fills against the 9.00 bids in the same call.
	_, trades := placeLimit(t, book, common.Sell, 9.50, 40)
	require.Len(t, trades, 2)
	assert.Equal(t, "10", trades[0].Price.String())
	assert.Equal(t, uint64(40), trades[0].Quantity)
	assert.Equal(t, "9", trades[1].Price.String())
	assert.Equal(t, uint64(30), trades[1].Quantity)

	assert.Equal(t, []flatLevel{{"9", 70}}, flatten(book.Snapshot().Bids))
	assert.Empty(t, book.stops)
}

func TestStopOrder_NotTriggeredOnInsertion(t *testing.T) {
	// Even a stop whose condition already holds produces no trade at
	// insertion; only a subsequent trade releases it.
	book := NewOrderBook("AAPL")

	placeLimit(t, book, common.Buy, 8.00, 50)
	placeStop(t, book, common.Sell, 9.00, 20)

	assert.Len(t, book.stops, 1)
	assert.Equal(t, []flatLevel{{"8", 50}}, flatten(book.Snapshot().Bids))
}

func TestStopLimitOrder_ConvertsToLimit(t *testing.T) {
	book := NewOrderBook("AAPL")

	placeLimit(t, book, common.Buy, 10.00, 50)
	placeLimit(t, book, common.Buy, 9.00, 50)

	// Sell stop-limit: trigger at 9.50, limit 9.25. Once the bid drops
	// to 9.00 it converts to a limit that does not cross, so it rests.
	stopLimit, err := common.NewStopLimitOrder(
		testIDs.Next(), 1, "AAPL", common.Sell, 25, dec(9.25), dec(9.50),
	)
	require.NoError(t, err)
	trades, err := book.AddOrder(stopLimit)
	require.NoError(t, err)
	assert.Empty(t, trades)

	_, trades = placeLimit(t, book, common.Sell, 10.00, 50)
	require.Len(t, trades, 1)

	assert.Equal(t, []flatLevel{{"9.25", 25}}, flatten(book.Snapshot().Asks))
	assert.Equal(t, []flatLevel{{"9", 50}}, flatten(book.Snapshot().Bids))
	assertNotCrossed(t, book)
}

func TestStopOrder_CascadeRunsToFixedPoint(t *testing.T) {
	// Two sell stops at descending trigger prices: the first one's fill
	// drags the bid down far enough to release the second.
	book := NewOrderBook("AAPL")

	placeLimit(t, book, common.Buy, 10.00, 10)
	placeLimit(t, book, common.Buy, 9.00, 10)
	placeLimit(t, book, common.Buy, 8.00, 100)

	placeStop(t, book, common.Sell, 9.00, 10)
	placeStop(t, book, common.Sell, 8.00, 10)

	// Take out the 10.00 bid: bid -> 9.00 fires the first stop, whose
	// fill moves the bid to 8.00 and fires the second, all in one call.
	_, trades := placeLimit(t, book, common.Sell, 10.00, 10)
	require.Len(t, trades, 3)
	assert.Equal(t, "10", trades[0].Price.String())
	assert.Equal(t, "9", trades[1].Price.String())
	assert.Equal(t, "8", trades[2].Price.String())

	assert.Empty(t, book.stops)
	assert.Equal(t, []flatLevel{{"8", 90}}, flatten(book.Snapshot().Bids))
}

func TestStopOrder_TriggerOrdering(t *testing.T) {
	// Two sell stops released by the same price move fire nearest the
	// market first: higher trigger price before lower.
	book := NewOrderBook("AAPL")

	placeLimit(t, book, common.Buy, 10.00, 10)
	placeLimit(t, book, common.Buy, 8.00, 200)

	lowID := placeStop(t, book, common.Sell, 8.50, 10)
	highID := placeStop(t, book, common.Sell, 9.00, 10)

	// Taking out the 10.00 bid drops the quote to 8.00, releasing both
	// stops at once. The 9.00 trigger was reached first on the way down
	// and must execute first despite being staged later.
	_, trades := placeLimit(t, book, common.Sell, 9.00, 10)
	require.Len(t, trades, 3)
	assert.Equal(t, highID, trades[1].AggressingOrderID)
	assert.Equal(t, lowID, trades[2].AggressingOrderID)
	assert.Empty(t, book.stops)
}

func TestStopOrder_BuySideTrigger(t *testing.T) {
	// Buy stop fires when the best ask has risen to the stop price.
	book := NewOrderBook("AAPL")

	placeLimit(t, book, common.Sell, 10.00, 10)
	placeLimit(t, book, common.Sell, 11.00, 50)

	placeStop(t, book, common.Buy, 11.00, 20)

	// Lifting the 10.00 ask moves the best ask to 11.00, releasing the
	// buy stop, which fills at 11.00 in the same call.
	_, trades := placeLimit(t, book, common.Buy, 10.00, 10)
	require.Len(t, trades, 2)
	assert.Equal(t, "10", trades[0].Price.String())
	assert.Equal(t, "11", trades[1].Price.String())
	assert.Equal(t, uint64(20), trades[1].Quantity)

	assert.Equal(t, []flatLevel{{"11", 30}}, flatten(book.Snapshot().Asks))
	assert.Empty(t, book.stops)
}

func TestCancelOrder_StagedStop(t *testing.T) {
	book := NewOrderBook("AAPL")

	placeLimit(t, book, common.Buy, 10.00, 10)
	id := placeStop(t, book, common.Sell, 9.00, 30)

	assert.True(t, book.CancelOrder(id))
	assert.Empty(t, book.stops)
	assert.False(t, book.CancelOrder(id))
}
