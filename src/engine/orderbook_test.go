package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bookOrder(seq uint64, id string, side Side, qty Quantity, price Price) Order {
	return MakeOrder(seq, NewOrder{OrderID: id, Side: side, Symbol: btcusd, Quantity: qty, Price: price})
}

func TestOrderBookAddOrderRests(t *testing.T) {
	ob := NewOrderBook(btcusd, nil)
	trades := ob.AddOrder(bookOrder(1, "1", SideBuy, 100, 1234))

	assert.Empty(t, trades)
	assert.Equal(t, 1, ob.Len())
	ob.checkIndexes()
}

func TestOrderBookReturnsAndEmitsTrades(t *testing.T) {
	var emitted []Trade
	ob := NewOrderBook(btcusd, func(tr Trade) { emitted = append(emitted, tr) })

	ob.AddOrder(bookOrder(1, "1", SideSell, 40, 100))
	ob.AddOrder(bookOrder(2, "2", SideSell, 40, 101))
	trades := ob.AddOrder(bookOrder(3, "3", SideBuy, 60, 105))

	want := []Trade{
		newTestTrade("3", "1", 40, 100),
		newTestTrade("3", "2", 20, 101),
	}
	assert.Equal(t, want, trades)
	assert.Equal(t, want, emitted)

	require.Len(t, ob.Dump(), 1)
	assert.Equal(t, "2 SELL BTCUSD 20 101", ob.Dump()[0].String())
	ob.checkIndexes()
}

func TestOrderBookStopsAtFirstIneligible(t *testing.T) {
	ob := NewOrderBook(btcusd, nil)
	ob.AddOrder(bookOrder(1, "1", SideBuy, 10, 100))
	ob.AddOrder(bookOrder(2, "2", SideBuy, 10, 98))

	trades := ob.AddOrder(bookOrder(3, "3", SideSell, 50, 99))
	assert.Equal(t, []Trade{newTestTrade("3", "1", 10, 100)}, trades)

	dump := ob.Dump()
	require.Len(t, dump, 2)
	assert.Equal(t, "3 SELL BTCUSD 40 99", dump[0].String())
	assert.Equal(t, "2 BUY BTCUSD 10 98", dump[1].String())
	ob.checkIndexes()
}

func TestOrderBookDumpUsesArrivalOrder(t *testing.T) {
	ob := NewOrderBook(btcusd, nil)
	ob.AddOrder(bookOrder(1, "b-low", SideBuy, 1, 90))
	ob.AddOrder(bookOrder(2, "a-high", SideSell, 1, 120))
	ob.AddOrder(bookOrder(3, "b-high", SideBuy, 1, 95))
	ob.AddOrder(bookOrder(4, "a-low", SideSell, 1, 110))

	var ids []string
	for _, v := range ob.Dump() {
		ids = append(ids, v.OrderID)
	}
	// arrival order, not price order
	assert.Equal(t, []string{"a-high", "a-low", "b-low", "b-high"}, ids)
}

func TestOrderBookDepthAggregatesLevels(t *testing.T) {
	ob := NewOrderBook(btcusd, nil)
	ob.AddOrder(bookOrder(1, "1", SideBuy, 100, 15050))
	ob.AddOrder(bookOrder(2, "2", SideBuy, 200, 15050))
	ob.AddOrder(bookOrder(3, "3", SideBuy, 300, 15040))
	ob.AddOrder(bookOrder(4, "4", SideBuy, 50, 15030))
	ob.AddOrder(bookOrder(5, "5", SideSell, 150, 15070))
	ob.AddOrder(bookOrder(6, "6", SideSell, 250, 15060))

	bids, asks := ob.Depth(2)
	assert.Equal(t, []Level{
		{Price: 15050, Quantity: 300, Orders: 2},
		{Price: 15040, Quantity: 300, Orders: 1},
	}, bids)
	assert.Equal(t, []Level{
		{Price: 15060, Quantity: 250, Orders: 1},
		{Price: 15070, Quantity: 150, Orders: 1},
	}, asks)

	bid, ok := ob.BestBid()
	require.True(t, ok)
	assert.Equal(t, Level{Price: 15050, Quantity: 300, Orders: 2}, bid)

	ask, ok := ob.BestAsk()
	require.True(t, ok)
	assert.Equal(t, Price(15060), ask.Price)

	bids, asks = ob.Depth(0)
	assert.Empty(t, bids)
	assert.Empty(t, asks)
}

func TestOrderBookBestOnEmptySide(t *testing.T) {
	ob := NewOrderBook(btcusd, nil)
	_, ok := ob.BestBid()
	assert.False(t, ok)
	_, ok = ob.BestAsk()
	assert.False(t, ok)
}

func TestOrderBookReusesArenaSlots(t *testing.T) {
	ob := NewOrderBook(btcusd, nil)
	for i := uint64(1); i <= 100; i += 2 {
		ob.AddOrder(bookOrder(i, "s", SideSell, 1, 10))
		ob.AddOrder(bookOrder(i+1, "b", SideBuy, 1, 10))
	}

	assert.Zero(t, ob.Len())
	assert.LessOrEqual(t, len(ob.orders.slots), 1)
	ob.checkIndexes()
}

func TestOrderBookPanicsOnUnknownSide(t *testing.T) {
	ob := NewOrderBook(btcusd, nil)
	assert.Panics(t, func() {
		ob.AddOrder(bookOrder(1, "1", SideUnknown, 1, 1))
	})
}

func TestOrderBookPanicsOnDuplicateSequence(t *testing.T) {
	ob := NewOrderBook(btcusd, nil)
	ob.AddOrder(bookOrder(7, "1", SideBuy, 1, 1))
	assert.Panics(t, func() {
		ob.AddOrder(bookOrder(7, "2", SideBuy, 1, 1))
	})
}
