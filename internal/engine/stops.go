package engine

import (
	"sort"

	"tradesim/internal/common"
)

// stageStop parks a stop order until the book trades through its stop
// price. Staged orders never appear in a ladder or a snapshot, and no
// trade is produced on insertion even if the trigger condition already
// holds; only a subsequent trade releases them.
func (book *OrderBook) stageStop(order *common.Order) {
	book.stops = append(book.stops, order)
	book.liveOrders[order.ID] = order
}

// triggeredStops removes every staged stop whose condition now holds
// against the best quotes, converts it to its live type and returns the
// batch for the caller's worklist. A buy stop releases when the best ask
// has risen to its stop price; a sell stop when the best bid has fallen
// to it.
func (book *OrderBook) triggeredStops() []*common.Order {
	if len(book.stops) == 0 {
		return nil
	}

	bestBid, bidOk := book.bestPrice(common.Buy)
	bestAsk, askOk := book.bestPrice(common.Sell)

	var buys, sells []*common.Order
	remaining := book.stops[:0]
	for _, stop := range book.stops {
		switch {
		case stop.Side == common.Buy && askOk && bestAsk.GreaterThanOrEqual(stop.StopPrice):
			buys = append(buys, stop)
		case stop.Side == common.Sell && bidOk && bestBid.LessThanOrEqual(stop.StopPrice):
			sells = append(sells, stop)
		default:
			remaining = append(remaining, stop)
		}
	}
	book.stops = remaining

	// Release in (trigger price, arrival) order: the stop nearest the
	// market first, ties kept in staging order. Stops nearest the market
	// were reached first as the price moved.
	sort.SliceStable(buys, func(i, j int) bool {
		return buys[i].StopPrice.LessThan(buys[j].StopPrice)
	})
	sort.SliceStable(sells, func(i, j int) bool {
		return sells[i].StopPrice.GreaterThan(sells[j].StopPrice)
	})

	fired := append(buys, sells...)
	for _, stop := range fired {
		delete(book.liveOrders, stop.ID)
		if stop.Type == common.StopOrder {
			stop.Type = common.MarketOrder
		} else {
			stop.Type = common.LimitOrder
		}
	}
	return fired
}
