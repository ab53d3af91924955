package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"

	"tradesim/internal/common"
)

var ErrNotEnoughLiquidity = errors.New("not enough liquidity")

// PriceLevel holds the orders resting at one price, sorted by time added
// as they will be push-back'd.
type PriceLevel struct {
	price  decimal.Decimal
	orders []*common.Order
}

type PriceLevels = btree.BTreeG[*PriceLevel]

// OrderBook owns one symbol's ladders and stop staging. It is the unit of
// mutual exclusion: a full add, including any stop cascade, completes
// under the lock before its trades are returned. Books for different
// symbols share nothing and impose no ordering on each other.
type OrderBook struct {
	symbol string

	mu sync.RWMutex

	bids *PriceLevels
	asks *PriceLevels

	// Stop and stop-limit orders staged until the book trades through
	// their stop price, in arrival order.
	stops []*common.Order

	// Resting and staged orders by id, for cancellation. Orders leave
	// the map the moment they fill, so a cancel that lost the race to a
	// match simply misses.
	liveOrders map[int64]*common.Order

	lastTradeID int64
}

func NewOrderBook(symbol string) *OrderBook {
	// Sorted greatest first.
	bids := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.price.GreaterThan(b.price)
	})
	// Sorted least first.
	asks := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.price.LessThan(b.price)
	})
	return &OrderBook{
		symbol:     symbol,
		bids:       bids,
		asks:       asks,
		liveOrders: make(map[int64]*common.Order),
	}
}

func (book *OrderBook) Symbol() string { return book.symbol }

// AddOrder validates and executes one order to completion, returning every
// trade it caused, including trades from stop orders it triggered. The
// whole call runs under the book's exclusive lock; no partial result is
// ever visible.
//
// This method writes the Timestamp of the order to note the exact time at
// which the order reached the book. We do not care about the accuracy of
// the timestamp, just its relativity to other timestamps.
func (book *OrderBook) AddOrder(order common.Order) ([]common.Trade, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	order.Timestamp = time.Now()

	book.mu.Lock()
	defer book.mu.Unlock()

	// Fill-or-kill inspects the book before any mutation so a rejection
	// leaves no trace.
	if order.Type == common.LimitOrder && order.Tif == common.FillOrKill {
		if book.crossableQuantity(&order) < order.Quantity {
			return nil, ErrNotEnoughLiquidity
		}
	}

	// Triggered stops join an explicit worklist rather than recursing,
	// so cascade depth stays bounded and trigger order auditable. The
	// loop ends at a fixed point: no order left to process and no stop
	// newly triggered.
	var trades []common.Trade
	worklist := []*common.Order{&order}
	for len(worklist) > 0 {
		next := worklist[0]
		worklist = worklist[1:]

		switch next.Type {
		case common.StopOrder, common.StopLimitOrder:
			book.stageStop(next)
			continue
		}

		before := len(trades)
		trades = book.match(next, trades)
		if len(trades) > before {
			worklist = append(worklist, book.triggeredStops()...)
		}
	}
	return trades, nil
}

// match sweeps the opposite ladder while the aggressor still crosses,
// trading at the resting level's price. A limit remainder rests at the
// tail of its level; market and immediate-or-cancel remainders are
// discarded.
func (book *OrderBook) match(aggressor *common.Order, trades []common.Trade) []common.Trade {
	opposite := book.ladder(aggressor.Side.Opposite())

	for aggressor.Quantity > 0 {
		level, ok := opposite.MinMut()
		if !ok {
			break
		}
		if aggressor.Type == common.LimitOrder && !crosses(aggressor, level.price) {
			break
		}

		// Consume the level head first; FIFO within a level is strict,
		// so a later order never fills while an earlier one has
		// quantity left.
		consumed := 0
		for _, resting := range level.orders {
			if aggressor.Quantity == 0 {
				break
			}
			matchQty := min(aggressor.Quantity, resting.Quantity)
			aggressor.Quantity -= matchQty
			resting.Quantity -= matchQty
			trades = append(trades, book.recordTrade(aggressor, resting, level.price, matchQty))

			if resting.Quantity == 0 {
				consumed++
				delete(book.liveOrders, resting.ID)
			}
		}

		if consumed == len(level.orders) {
			opposite.Delete(level)
		} else if consumed > 0 {
			level.orders = level.orders[consumed:]
		}
	}

	if aggressor.Quantity > 0 &&
		aggressor.Type == common.LimitOrder &&
		aggressor.Tif == common.GoodTillCancel {
		book.rest(aggressor)
	}
	return trades
}

// rest appends the order to its price level's queue, creating the level
// if absent.
func (book *OrderBook) rest(order *common.Order) {
	ladder := book.ladder(order.Side)
	level, ok := ladder.GetMut(&PriceLevel{price: order.Price})
	if ok {
		level.orders = append(level.orders, order)
	} else {
		ladder.Set(&PriceLevel{
			price:  order.Price,
			orders: []*common.Order{order},
		})
	}
	book.liveOrders[order.ID] = order
}

// CancelOrder removes a still-resting or still-staged order by id. It
// returns false if the id is unknown, already filled or already
// cancelled. Trades already made are never touched.
func (book *OrderBook) CancelOrder(orderID int64) bool {
	book.mu.Lock()
	defer book.mu.Unlock()

	order, ok := book.liveOrders[orderID]
	if !ok {
		return false
	}
	delete(book.liveOrders, orderID)

	switch order.Type {
	case common.StopOrder, common.StopLimitOrder:
		for i, stop := range book.stops {
			if stop.ID == orderID {
				book.stops = append(book.stops[:i], book.stops[i+1:]...)
				break
			}
		}
		return true
	}

	ladder := book.ladder(order.Side)
	level, ok := ladder.GetMut(&PriceLevel{price: order.Price})
	if !ok {
		return false
	}
	for i, resting := range level.orders {
		if resting.ID == orderID {
			level.orders = append(level.orders[:i], level.orders[i+1:]...)
			if len(level.orders) == 0 {
				ladder.Delete(level)
			}
			return true
		}
	}
	return false
}

// crossableQuantity sums opposite-side liquidity at prices the order's
// limit reaches, stopping as soon as the order is covered.
func (book *OrderBook) crossableQuantity(order *common.Order) uint64 {
	var total uint64
	book.ladder(order.Side.Opposite()).Scan(func(level *PriceLevel) bool {
		if !crosses(order, level.price) {
			return false
		}
		for _, resting := range level.orders {
			total += resting.Quantity
		}
		return total < order.Quantity
	})
	return total
}

func (book *OrderBook) recordTrade(aggressor, resting *common.Order, price decimal.Decimal, quantity uint64) common.Trade {
	book.lastTradeID++
	return common.Trade{
		TradeID:           book.lastTradeID,
		AggressingOrderID: aggressor.ID,
		RestingOrderID:    resting.ID,
		Symbol:            book.symbol,
		Price:             price,
		Quantity:          quantity,
		Timestamp:         time.Now(),
	}
}

func (book *OrderBook) ladder(side common.Side) *PriceLevels {
	if side == common.Buy {
		return book.bids
	}
	return book.asks
}

// bestPrice is the top of the given side, if the side is non-empty. Both
// ladders sort best-first, so Min is the top for either side.
func (book *OrderBook) bestPrice(side common.Side) (decimal.Decimal, bool) {
	level, ok := book.ladder(side).Min()
	if !ok {
		return decimal.Decimal{}, false
	}
	return level.price, true
}

// crosses reports whether a limit order transacts at the given opposite
// best price.
func crosses(order *common.Order, best decimal.Decimal) bool {
	if order.Side == common.Buy {
		return order.Price.GreaterThanOrEqual(best)
	}
	return order.Price.LessThanOrEqual(best)
}
