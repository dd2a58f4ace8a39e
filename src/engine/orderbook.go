package engine

import (
	"fmt"

	"github.com/google/btree"
)

const btreeDegree = 32

// bookSide holds one side's resting orders under two indices over the same
// handles: price-time priority for matching, arrival sequence for removal
// and dumps.
type bookSide struct {
	side       Side
	byPriority *btree.BTreeG[priorityEntry]
	bySequence *btree.BTreeG[sequenceEntry]
}

func newBookSide(side Side) *bookSide {
	return &bookSide{
		side:       side,
		byPriority: btree.NewG(btreeDegree, lessPriority),
		bySequence: btree.NewG(btreeDegree, lessSequence),
	}
}

func (s *bookSide) len() int {
	return s.byPriority.Len()
}

// OrderBook holds every resting order of one symbol. It is not safe for
// concurrent use; one goroutine owns a book.
type OrderBook struct {
	symbol  string
	onMatch TradeSink
	orders  arena
	bids    *bookSide
	asks    *bookSide
}

func NewOrderBook(symbol string, onMatch TradeSink) *OrderBook {
	return &OrderBook{
		symbol:  symbol,
		onMatch: onMatch,
		bids:    newBookSide(SideBuy),
		asks:    newBookSide(SideSell),
	}
}

func (ob *OrderBook) Symbol() string { return ob.symbol }

// Len is the number of resting orders on both sides.
func (ob *OrderBook) Len() int { return ob.orders.len() }

// AddOrder matches order against the contra side, hands each trade to the
// book's sink in generation order and rests any remainder on the order's own
// side. The trades are also returned.
func (ob *OrderBook) AddOrder(order Order) []Trade {
	trades := ob.generateTrades(&order)

	if ob.onMatch != nil {
		for _, trade := range trades {
			ob.onMatch(trade)
		}
	}

	if order.Quantity() > 0 {
		ob.rest(order)
	}
	return trades
}

// Dump lists asks then bids, each in arrival order.
func (ob *OrderBook) Dump() []OrderView {
	views := make([]OrderView, 0, ob.Len())
	for _, s := range []*bookSide{ob.asks, ob.bids} {
		s.bySequence.Ascend(func(e sequenceEntry) bool {
			views = append(views, ob.orders.get(e.handle).View())
			return true
		})
	}
	return views
}

func (ob *OrderBook) sideFor(side Side) *bookSide {
	switch side {
	case SideBuy:
		return ob.bids
	case SideSell:
		return ob.asks
	}
	panic(fmt.Sprintf("engine: book %s has no %s side", ob.symbol, side))
}

// crosses reports whether resting is at least as good as inbound's own limit.
func crosses(inbound, resting *Order) bool {
	if inbound.Side() == SideBuy {
		return resting.Price() <= inbound.Price()
	}
	return inbound.Price() <= resting.Price()
}

func (ob *OrderBook) generateTrades(inbound *Order) []Trade {
	contra := ob.sideFor(inbound.Side().Contra())
	if inbound.Quantity() == 0 || contra.len() == 0 {
		return nil
	}

	var (
		trades []Trade
		filled []priorityEntry
	)

	// removal is deferred until the scan ends; the tree must not change
	// underneath Ascend
	contra.byPriority.Ascend(func(e priorityEntry) bool {
		resting := ob.orders.get(e.handle)
		if !crosses(inbound, resting) {
			return false
		}

		qty := min(inbound.Quantity(), resting.Quantity())
		trades = append(trades, Trade{
			Symbol:        ob.symbol,
			OrderID:       inbound.ID(),
			ContraOrderID: resting.ID(),
			Quantity:      qty,
			Price:         resting.Price(),
		})

		inbound.DecreaseQuantity(qty)
		resting.DecreaseQuantity(qty)

		if resting.Quantity() == 0 {
			filled = append(filled, e)
		}
		return inbound.Quantity() > 0
	})

	for _, e := range filled {
		ob.remove(contra, e)
	}
	return trades
}

func (ob *OrderBook) rest(order Order) {
	s := ob.sideFor(order.Side())
	h := ob.orders.insert(order)

	pe := priorityEntry{key: order.Key(), sequence: order.Sequence(), handle: h}
	if _, found := s.byPriority.ReplaceOrInsert(pe); found {
		panic(fmt.Sprintf("engine: book %s already holds sequence %d", ob.symbol, order.Sequence()))
	}
	if _, found := s.bySequence.ReplaceOrInsert(sequenceEntry{sequence: order.Sequence(), handle: h}); found {
		panic(fmt.Sprintf("engine: book %s sequence index already holds %d", ob.symbol, order.Sequence()))
	}
}

func (ob *OrderBook) remove(s *bookSide, e priorityEntry) {
	if _, ok := s.bySequence.Delete(sequenceEntry{sequence: e.sequence}); !ok {
		panic(fmt.Sprintf("engine: book %s sequence %d missing from sequence index", ob.symbol, e.sequence))
	}
	if _, ok := s.byPriority.Delete(e); !ok {
		panic(fmt.Sprintf("engine: book %s sequence %d missing from priority index", ob.symbol, e.sequence))
	}
	ob.orders.release(e.handle)
}

// Level aggregates the resting quantity at one price.
type Level struct {
	Price    Price
	Quantity Quantity
	Orders   int
}

// Depth returns up to n aggregated levels per side, best first.
func (ob *OrderBook) Depth(n int) (bids, asks []Level) {
	return ob.levels(ob.bids, n), ob.levels(ob.asks, n)
}

func (ob *OrderBook) BestBid() (Level, bool) {
	return ob.best(ob.bids)
}

func (ob *OrderBook) BestAsk() (Level, bool) {
	return ob.best(ob.asks)
}

func (ob *OrderBook) best(s *bookSide) (Level, bool) {
	levels := ob.levels(s, 1)
	if len(levels) == 0 {
		return Level{}, false
	}
	return levels[0], true
}

func (ob *OrderBook) levels(s *bookSide, n int) []Level {
	if n <= 0 {
		return []Level{}
	}
	levels := make([]Level, 0, min(n, s.len()))

	s.byPriority.Ascend(func(e priorityEntry) bool {
		o := ob.orders.get(e.handle)
		if k := len(levels); k > 0 && levels[k-1].Price == o.Price() {
			levels[k-1].Quantity += o.Quantity()
			levels[k-1].Orders++
			return true
		}
		// edge case: stop once the n+1th level shows up
		if len(levels) == n {
			return false
		}
		levels = append(levels, Level{Price: o.Price(), Quantity: o.Quantity(), Orders: 1})
		return true
	})
	return levels
}
