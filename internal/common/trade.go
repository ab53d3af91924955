package common

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Trade records one execution between an aggressing and a resting order.
// Trades are created inside the matching engine and immutable once returned.
type Trade struct {
	TradeID           int64
	AggressingOrderID int64
	RestingOrderID    int64
	Symbol            string
	Price             decimal.Decimal // Always the resting order's price
	Quantity          uint64
	Timestamp         time.Time
}

func (t Trade) String() string {
	return fmt.Sprintf("<Trade %d %s %d @ %s (%d x %d)>",
		t.TradeID,
		t.Symbol,
		t.Quantity,
		t.Price,
		t.AggressingOrderID,
		t.RestingOrderID,
	)
}
