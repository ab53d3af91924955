package engine

import (
	"github.com/shopspring/decimal"
)

// Level is one aggregated price level in a snapshot.
type Level struct {
	Price decimal.Decimal
	Size  uint64
}

// Snapshot is a read-only aggregation of a book's ladders. Individual
// order identities and queue positions are not exposed.
type Snapshot struct {
	Bids []Level // Descending by price
	Asks []Level // Ascending by price
}

// Snapshot aggregates both ladders by price under the book's shared lock.
// Two consecutive snapshots with no mutation in between are identical.
func (book *OrderBook) Snapshot() Snapshot {
	book.mu.RLock()
	defer book.mu.RUnlock()

	return Snapshot{
		Bids: flattenLadder(book.bids),
		Asks: flattenLadder(book.asks),
	}
}

func flattenLadder(ladder *PriceLevels) []Level {
	out := make([]Level, 0, ladder.Len())
	ladder.Scan(func(level *PriceLevel) bool {
		var size uint64
		for _, order := range level.orders {
			size += order.Quantity
		}
		out = append(out, Level{Price: level.price, Size: size})
		return true
	})
	return out
}
