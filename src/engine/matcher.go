package engine

import (
	"fmt"

	"github.com/google/btree"
	"github.com/rs/zerolog/log"
)

// Matcher routes messages to per-symbol books and stamps arrival sequence
// numbers. Like the books it owns, it is driven by a single goroutine.
type Matcher struct {
	sink TradeSink

	// incremented on receipt of every message, whatever its type
	sequence uint64

	// ordered by symbol so dumps come out in symbol order
	books *btree.BTreeG[*OrderBook]
}

func NewMatcher(sink TradeSink) *Matcher {
	return &Matcher{
		sink: sink,
		books: btree.NewG(btreeDegree, func(a, b *OrderBook) bool {
			return a.symbol < b.symbol
		}),
	}
}

// OnMessage consumes the next sequence number and dispatches msg.
func (m *Matcher) OnMessage(msg Message) error {
	m.sequence++

	switch msg := msg.(type) {
	case NewOrder:
		return m.onNewOrder(msg)
	case Trade:
		return fmt.Errorf("%w: trade %s/%s on %s", ErrUnexpectedMessage, msg.OrderID, msg.ContraOrderID, msg.Symbol)
	default:
		return fmt.Errorf("%w: %T", ErrUnexpectedMessage, msg)
	}
}

func (m *Matcher) OnNewOrder(req NewOrder) error {
	return m.OnMessage(req)
}

func (m *Matcher) onNewOrder(req NewOrder) error {
	if req.Side != SideBuy && req.Side != SideSell {
		return fmt.Errorf("%w: order %s on %s", ErrUnknownSide, req.OrderID, req.Symbol)
	}

	order := MakeOrder(m.sequence, req)
	m.GetOrCreateOrderBook(order.Symbol()).AddOrder(order)
	return nil
}

func (m *Matcher) emit(trade Trade) {
	if m.sink != nil {
		m.sink(trade)
	}
}

// Sequence is the last sequence number handed out.
func (m *Matcher) Sequence() uint64 {
	return m.sequence
}

func (m *Matcher) GetOrCreateOrderBook(symbol string) *OrderBook {
	if ob, ok := m.books.Get(&OrderBook{symbol: symbol}); ok {
		return ob
	}

	ob := NewOrderBook(symbol, m.emit)
	m.books.ReplaceOrInsert(ob)

	log.Debug().
		Str("symbol", symbol).
		Int("books", m.books.Len()).
		Msg("Order book created")
	return ob
}

func (m *Matcher) Book(symbol string) (*OrderBook, bool) {
	return m.books.Get(&OrderBook{symbol: symbol})
}

func (m *Matcher) Symbols() []string {
	symbols := make([]string, 0, m.books.Len())
	m.books.Ascend(func(ob *OrderBook) bool {
		symbols = append(symbols, ob.symbol)
		return true
	})
	return symbols
}

// Dump concatenates every book's dump in ascending symbol order.
func (m *Matcher) Dump() []OrderView {
	var views []OrderView
	m.books.Ascend(func(ob *OrderBook) bool {
		views = append(views, ob.Dump()...)
		return true
	})
	return views
}

// RestingOrders counts resting orders across all books.
func (m *Matcher) RestingOrders() int {
	n := 0
	m.books.Ascend(func(ob *OrderBook) bool {
		n += ob.Len()
		return true
	})
	return n
}
