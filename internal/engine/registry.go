package engine

import (
	"errors"
	"fmt"
	"sync"
)

var ErrUnknownSymbol = errors.New("unknown symbol")

// Registry owns the symbol to book mapping. Books are registered
// explicitly at bootstrap; looking up an unregistered symbol fails rather
// than growing the map, so a typo in a symbol cannot mint a ghost market.
// The registry provides no coordination across books.
type Registry struct {
	mu    sync.RWMutex
	books map[string]*OrderBook
}

func NewRegistry(symbols ...string) *Registry {
	r := &Registry{books: make(map[string]*OrderBook)}
	for _, symbol := range symbols {
		r.Register(symbol)
	}
	return r
}

// Register creates the book for symbol, or returns the existing one.
func (r *Registry) Register(symbol string) *OrderBook {
	r.mu.Lock()
	defer r.mu.Unlock()

	if book, ok := r.books[symbol]; ok {
		return book
	}
	book := NewOrderBook(symbol)
	r.books[symbol] = book
	return book
}

// Book resolves a registered symbol.
func (r *Registry) Book(symbol string) (*OrderBook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	book, ok := r.books[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	return book, nil
}

func (r *Registry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	symbols := make([]string, 0, len(r.books))
	for symbol := range r.books {
		symbols = append(symbols, symbol)
	}
	return symbols
}
