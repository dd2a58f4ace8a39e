package engine

import "fmt"

// checkIndexes panics if the arena and the four indices disagree.
func (ob *OrderBook) checkIndexes() {
	total := 0
	for _, s := range []*bookSide{ob.bids, ob.asks} {
		if s.byPriority.Len() != s.bySequence.Len() {
			panic(fmt.Sprintf("engine: book %s %s side has %d priority entries and %d sequence entries",
				ob.symbol, s.side, s.byPriority.Len(), s.bySequence.Len()))
		}
		s.bySequence.Ascend(func(e sequenceEntry) bool {
			o := ob.orders.get(e.handle)
			if o.Side() != s.side || o.Quantity() == 0 {
				panic(fmt.Sprintf("engine: book %s holds invalid order %s", ob.symbol, o))
			}
			if _, ok := s.byPriority.Get(priorityEntry{key: o.Key(), sequence: e.sequence}); !ok {
				panic(fmt.Sprintf("engine: book %s sequence %d missing from priority index", ob.symbol, e.sequence))
			}
			return true
		})
		total += s.len()
	}
	if total != ob.orders.len() {
		panic(fmt.Sprintf("engine: book %s indexes hold %d orders, arena %d", ob.symbol, total, ob.orders.len()))
	}
}
