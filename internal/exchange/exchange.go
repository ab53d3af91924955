package exchange

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"tradesim/internal/common"
	"tradesim/internal/engine"
	"tradesim/internal/publish"
)

// Exchange is the surface collaborators call. It allocates order ids,
// resolves the per-symbol book through the registry and hands finalized
// trades to the publisher. Publishing happens strictly after the book's
// lock has been released, so external observers may see a trade slightly
// later than it became effective inside the book.
type Exchange struct {
	registry *engine.Registry
	ids      engine.IDSource
	pub      *publish.Publisher
}

func New(registry *engine.Registry, pub *publish.Publisher) *Exchange {
	return &Exchange{
		registry: registry,
		pub:      pub,
	}
}

// OrderRequest carries everything a caller supplies; the exchange assigns
// the order id itself.
type OrderRequest struct {
	TraderID  int64
	Symbol    string
	Side      common.Side
	Type      common.OrderType
	Tif       common.TimeInForce
	Quantity  uint64
	Price     decimal.Decimal
	StopPrice decimal.Decimal
}

// SubmitOrder validates, matches and publishes one order. The returned id
// identifies the order for later cancellation; the trade slice is the
// complete, final result of the call.
func (ex *Exchange) SubmitOrder(req OrderRequest) (int64, []common.Trade, error) {
	book, err := ex.registry.Book(req.Symbol)
	if err != nil {
		return 0, nil, err
	}

	order, err := ex.buildOrder(req)
	if err != nil {
		return 0, nil, err
	}

	trades, err := book.AddOrder(order)
	if err != nil {
		return 0, nil, err
	}

	if len(trades) > 0 {
		log.Info().
			Str("symbol", req.Symbol).
			Int64("order", order.ID).
			Int("trades", len(trades)).
			Msg("order matched")
		if ex.pub != nil {
			ex.pub.PublishTrades(req.Symbol, trades)
			ex.pub.PublishBook(req.Symbol, book.Snapshot())
		}
	}
	return order.ID, trades, nil
}

// CancelOrder removes a resting or staged order. A false result means the
// id was unknown, already filled or already cancelled; losing the race to
// a match is not an error.
func (ex *Exchange) CancelOrder(symbol string, orderID int64) (bool, error) {
	book, err := ex.registry.Book(symbol)
	if err != nil {
		return false, err
	}
	return book.CancelOrder(orderID), nil
}

// Snapshot returns the aggregated book for a registered symbol.
func (ex *Exchange) Snapshot(symbol string) (engine.Snapshot, error) {
	book, err := ex.registry.Book(symbol)
	if err != nil {
		return engine.Snapshot{}, err
	}
	return book.Snapshot(), nil
}

func (ex *Exchange) buildOrder(req OrderRequest) (common.Order, error) {
	id := ex.ids.Next()

	var (
		order common.Order
		err   error
	)
	switch req.Type {
	case common.LimitOrder:
		order, err = common.NewLimitOrder(id, req.TraderID, req.Symbol, req.Side, req.Quantity, req.Price)
	case common.MarketOrder:
		order, err = common.NewMarketOrder(id, req.TraderID, req.Symbol, req.Side, req.Quantity)
	case common.StopOrder:
		order, err = common.NewStopOrder(id, req.TraderID, req.Symbol, req.Side, req.Quantity, req.StopPrice)
	case common.StopLimitOrder:
		order, err = common.NewStopLimitOrder(id, req.TraderID, req.Symbol, req.Side, req.Quantity, req.Price, req.StopPrice)
	default:
		return common.Order{}, fmt.Errorf("unsupported order type: %v", req.Type)
	}
	if err != nil {
		return common.Order{}, err
	}
	order.Tif = req.Tif
	return order, nil
}
