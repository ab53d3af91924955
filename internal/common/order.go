package common

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrPriceRequired     = errors.New("limit price required")
	ErrStopPriceRequired = errors.New("stop price required")
)

type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// Opposite is the side an order matches against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

type OrderType int

const (
	// Limit orders are an order to buy or sell at a specified price or
	// better. Limit orders may rest on the order book until filled.
	LimitOrder OrderType = iota
	// Market orders are instructions to buy or sell immediately at the
	// best available price. Any remainder after sweeping the book is
	// discarded, never rested.
	MarketOrder
	// Stop orders stage a market order that goes live once the book
	// trades through the stop price.
	StopOrder
	// StopLimit orders stage a limit order the same way.
	StopLimitOrder
)

func (t OrderType) String() string {
	switch t {
	case LimitOrder:
		return "limit"
	case MarketOrder:
		return "market"
	case StopOrder:
		return "stop"
	case StopLimitOrder:
		return "stop-limit"
	}
	return "unknown"
}

type TimeInForce int

const (
	GoodTillCancel TimeInForce = iota
	ImmediateOrCancel
	FillOrKill
)

// Order is one submitted instruction. Identity fields never change after
// construction; Quantity is the remaining amount and is decremented by the
// matching engine while the order is live.
type Order struct {
	ID        int64           // Externally allocated, strictly increasing
	TraderID  int64           // Submitting party
	Symbol    string          // Instrument identifier
	Side      Side            // Order side
	Type      OrderType       // Order type
	Tif       TimeInForce     // Applies to limit orders only
	Quantity  uint64          // Remaining quantity
	Price     decimal.Decimal // Limit price (Limit / StopLimit)
	StopPrice decimal.Decimal // Trigger price (Stop / StopLimit)
	Timestamp time.Time       // Time of arrival into the book
}

// NewLimitOrder builds a resting-capable order at the given price.
func NewLimitOrder(id, traderID int64, symbol string, side Side, quantity uint64, price decimal.Decimal) (Order, error) {
	o := Order{
		ID:       id,
		TraderID: traderID,
		Symbol:   symbol,
		Side:     side,
		Type:     LimitOrder,
		Quantity: quantity,
		Price:    price,
	}
	return o, o.Validate()
}

// NewMarketOrder builds an immediate-execution order with no price bound.
func NewMarketOrder(id, traderID int64, symbol string, side Side, quantity uint64) (Order, error) {
	o := Order{
		ID:       id,
		TraderID: traderID,
		Symbol:   symbol,
		Side:     side,
		Type:     MarketOrder,
		Quantity: quantity,
	}
	return o, o.Validate()
}

// NewStopOrder builds a staged market order released at stopPrice.
func NewStopOrder(id, traderID int64, symbol string, side Side, quantity uint64, stopPrice decimal.Decimal) (Order, error) {
	o := Order{
		ID:        id,
		TraderID:  traderID,
		Symbol:    symbol,
		Side:      side,
		Type:      StopOrder,
		Quantity:  quantity,
		StopPrice: stopPrice,
	}
	return o, o.Validate()
}

// NewStopLimitOrder builds a staged limit order released at stopPrice.
func NewStopLimitOrder(id, traderID int64, symbol string, side Side, quantity uint64, price, stopPrice decimal.Decimal) (Order, error) {
	o := Order{
		ID:        id,
		TraderID:  traderID,
		Symbol:    symbol,
		Side:      side,
		Type:      StopLimitOrder,
		Quantity:  quantity,
		Price:     price,
		StopPrice: stopPrice,
	}
	return o, o.Validate()
}

// Validate enforces the per-type mandatory fields. Each order type fixes
// which prices must be present; anything else is rejected before the book
// is touched.
func (order Order) Validate() error {
	if order.Quantity == 0 {
		return ErrInvalidQuantity
	}
	switch order.Type {
	case LimitOrder, StopLimitOrder:
		if !order.Price.IsPositive() {
			return ErrPriceRequired
		}
	}
	switch order.Type {
	case StopOrder, StopLimitOrder:
		if !order.StopPrice.IsPositive() {
			return ErrStopPriceRequired
		}
	}
	return nil
}

func (order Order) String() string {
	return fmt.Sprintf("<Order %d %s %s %d %s @ %s>",
		order.ID,
		order.Side,
		order.Type,
		order.Quantity,
		order.Symbol,
		order.Price,
	)
}
