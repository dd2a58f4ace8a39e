package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const btcusd = "BTCUSD"

func newTestRequest(id string, side Side, qty Quantity, price Price) NewOrder {
	return NewOrder{OrderID: id, Side: side, Symbol: btcusd, Quantity: qty, Price: price}
}

func newTestTrade(id, contra string, qty Quantity, price Price) Trade {
	return Trade{Symbol: btcusd, OrderID: id, ContraOrderID: contra, Quantity: qty, Price: price}
}

// recordingMatcher returns a matcher whose trades land in the returned slice.
func recordingMatcher() (*Matcher, *[]Trade) {
	var trades []Trade
	m := NewMatcher(func(t Trade) { trades = append(trades, t) })
	return m, &trades
}

func submitAll(t *testing.T, m *Matcher, reqs ...NewOrder) {
	t.Helper()
	for _, req := range reqs {
		require.NoError(t, m.OnNewOrder(req))
	}
}

func TestMatcherStartsEmpty(t *testing.T) {
	m := NewMatcher(nil)
	assert.Empty(t, m.Dump())
	assert.Zero(t, m.Sequence())
}

func TestMatcherRestsSingleOrder(t *testing.T) {
	m, trades := recordingMatcher()
	buy := newTestRequest("1", SideBuy, 100, 1234)
	submitAll(t, m, buy)

	assert.Empty(t, *trades)
	require.Len(t, m.Dump(), 1)
	want := MakeOrder(1, buy)
	assert.Equal(t, want.View(), m.Dump()[0])
	assert.Equal(t, "1 BUY BTCUSD 100 1234", m.Dump()[0].String())
}

func TestMatcherFullFill(t *testing.T) {
	m, trades := recordingMatcher()
	submitAll(t, m,
		newTestRequest("1", SideBuy, 100, 1234),
		newTestRequest("2", SideSell, 100, 1234),
	)

	assert.Equal(t, []Trade{newTestTrade("2", "1", 100, 1234)}, *trades)
	assert.Empty(t, m.Dump())
}

func TestMatcherPartialFill(t *testing.T) {
	m, trades := recordingMatcher()
	submitAll(t, m,
		newTestRequest("1", SideBuy, 100, 1234),
		newTestRequest("2", SideSell, 99, 1234),
	)

	assert.Equal(t, []Trade{newTestTrade("2", "1", 99, 1234)}, *trades)
	require.Len(t, m.Dump(), 1)
	assert.Equal(t, "1 BUY BTCUSD 1 1234", m.Dump()[0].String())
}

func TestMatcherNonCrossingOrdersBothRest(t *testing.T) {
	m, trades := recordingMatcher()
	submitAll(t, m,
		newTestRequest("1", SideBuy, 100, 1234),
		newTestRequest("2", SideSell, 100, 1235),
	)

	assert.Empty(t, *trades)
	dump := m.Dump()
	require.Len(t, dump, 2)
	// asks are dumped before bids
	assert.Equal(t, "2 SELL BTCUSD 100 1235", dump[0].String())
	assert.Equal(t, "1 BUY BTCUSD 100 1234", dump[1].String())
}

func TestMatcherInboundHitsMultipleResting(t *testing.T) {
	m, trades := recordingMatcher()
	submitAll(t, m,
		newTestRequest("1", SideBuy, 100, 1234),
		newTestRequest("2", SideBuy, 100, 1234),
		newTestRequest("3", SideSell, 200, 1234),
	)

	assert.Equal(t, []Trade{
		newTestTrade("3", "1", 100, 1234),
		newTestTrade("3", "2", 100, 1234),
	}, *trades)
	assert.Empty(t, m.Dump())
}

func TestMatcherInboundRemainderRests(t *testing.T) {
	m, trades := recordingMatcher()
	submitAll(t, m,
		newTestRequest("1", SideBuy, 100, 1234),
		newTestRequest("2", SideBuy, 100, 1234),
		newTestRequest("3", SideSell, 300, 1234),
	)

	assert.Equal(t, []Trade{
		newTestTrade("3", "1", 100, 1234),
		newTestTrade("3", "2", 100, 1234),
	}, *trades)
	dump := m.Dump()
	require.Len(t, dump, 1)
	assert.Equal(t, "3 SELL BTCUSD 100 1234", dump[0].String())
	assert.Equal(t, uint64(3), dump[0].Sequence)
}

func TestMatcherTradesAtRestingPrice(t *testing.T) {
	m, trades := recordingMatcher()
	submitAll(t, m,
		newTestRequest("1", SideBuy, 100, 1234),
		newTestRequest("2", SideSell, 100, 1230),
	)

	assert.Equal(t, []Trade{newTestTrade("2", "1", 100, 1234)}, *trades)
}

func TestMatcherBestPriceFirst(t *testing.T) {
	m, trades := recordingMatcher()
	submitAll(t, m,
		newTestRequest("1", SideBuy, 100, 1234),
		newTestRequest("2", SideBuy, 100, 1235),
		newTestRequest("3", SideSell, 200, 1230),
	)

	assert.Equal(t, []Trade{
		newTestTrade("3", "2", 100, 1235),
		newTestTrade("3", "1", 100, 1234),
	}, *trades)
	assert.Empty(t, m.Dump())
}

func TestMatcherPriceLevelsByTimePriority(t *testing.T) {
	m, trades := recordingMatcher()
	submitAll(t, m,
		newTestRequest("1", SideBuy, 100, 1234),
		newTestRequest("2", SideBuy, 100, 1234),
		newTestRequest("3", SideBuy, 100, 1235),
		newTestRequest("4", SideBuy, 100, 1235),
		newTestRequest("5", SideSell, 400, 1234),
	)

	assert.Equal(t, []Trade{
		newTestTrade("5", "3", 100, 1235),
		newTestTrade("5", "4", 100, 1235),
		newTestTrade("5", "1", 100, 1234),
		newTestTrade("5", "2", 100, 1234),
	}, *trades)
	assert.Empty(t, m.Dump())
}

func TestMatcherBuyAggressorWalksAsks(t *testing.T) {
	m, trades := recordingMatcher()
	submitAll(t, m,
		newTestRequest("a1", SideSell, 50, 101),
		newTestRequest("a2", SideSell, 50, 100),
		newTestRequest("a3", SideSell, 50, 103),
		newTestRequest("b1", SideBuy, 120, 102),
	)

	assert.Equal(t, []Trade{
		newTestTrade("b1", "a2", 50, 100),
		newTestTrade("b1", "a1", 50, 101),
	}, *trades)

	dump := m.Dump()
	require.Len(t, dump, 2)
	assert.Equal(t, "a3 SELL BTCUSD 50 103", dump[0].String())
	assert.Equal(t, "b1 BUY BTCUSD 20 102", dump[1].String())
}

func TestMatcherSellOnlyRests(t *testing.T) {
	m, trades := recordingMatcher()
	submitAll(t, m, newTestRequest("1", SideSell, 100, 1235))

	assert.Empty(t, *trades)
	require.Len(t, m.Dump(), 1)
	assert.Equal(t, "1 SELL BTCUSD 100 1235", m.Dump()[0].String())
}

func TestMatcherDumpOrdersSymbols(t *testing.T) {
	m := NewMatcher(nil)
	submitAll(t, m,
		NewOrder{OrderID: "e1", Side: SideBuy, Symbol: "ETHUSD", Quantity: 5, Price: 10},
		NewOrder{OrderID: "b1", Side: SideBuy, Symbol: "BTCUSD", Quantity: 5, Price: 10},
		NewOrder{OrderID: "a1", Side: SideSell, Symbol: "ADAUSD", Quantity: 5, Price: 10},
		NewOrder{OrderID: "b2", Side: SideSell, Symbol: "BTCUSD", Quantity: 5, Price: 11},
	)

	var got []string
	for _, v := range m.Dump() {
		got = append(got, v.String())
	}
	assert.Equal(t, []string{
		"a1 SELL ADAUSD 5 10",
		"b2 SELL BTCUSD 5 11",
		"b1 BUY BTCUSD 5 10",
		"e1 BUY ETHUSD 5 10",
	}, got)
	assert.Equal(t, []string{"ADAUSD", "BTCUSD", "ETHUSD"}, m.Symbols())
	assert.Equal(t, 4, m.RestingOrders())
}

func TestMatcherBooksAreIndependent(t *testing.T) {
	m, trades := recordingMatcher()
	submitAll(t, m,
		NewOrder{OrderID: "1", Side: SideBuy, Symbol: "BTCUSD", Quantity: 10, Price: 100},
		NewOrder{OrderID: "2", Side: SideSell, Symbol: "ETHUSD", Quantity: 10, Price: 90},
	)

	assert.Empty(t, *trades)
	assert.Len(t, m.Dump(), 2)
}

func TestMatcherRejectsUnknownSide(t *testing.T) {
	m, trades := recordingMatcher()
	submitAll(t, m, newTestRequest("1", SideBuy, 100, 1234))

	err := m.OnNewOrder(newTestRequest("2", SideUnknown, 100, 1234))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownSide))

	assert.Empty(t, *trades)
	assert.Len(t, m.Dump(), 1)
	// the rejected message still consumed a sequence number
	assert.Equal(t, uint64(2), m.Sequence())
}

func TestMatcherRejectsInboundTrade(t *testing.T) {
	m := NewMatcher(nil)
	err := m.OnMessage(newTestTrade("1", "2", 1, 1))
	assert.ErrorIs(t, err, ErrUnexpectedMessage)
	assert.Equal(t, uint64(1), m.Sequence())

	assert.ErrorIs(t, m.OnMessage(nil), ErrUnexpectedMessage)
	assert.Equal(t, uint64(2), m.Sequence())
}

func TestMatcherSequenceSharedAcrossSymbols(t *testing.T) {
	m := NewMatcher(nil)
	submitAll(t, m,
		NewOrder{OrderID: "1", Side: SideBuy, Symbol: "BTCUSD", Quantity: 1, Price: 1},
		NewOrder{OrderID: "2", Side: SideBuy, Symbol: "ETHUSD", Quantity: 1, Price: 1},
		NewOrder{OrderID: "3", Side: SideBuy, Symbol: "BTCUSD", Quantity: 1, Price: 1},
	)

	var seqs []uint64
	for _, v := range m.Dump() {
		seqs = append(seqs, v.Sequence)
	}
	assert.Equal(t, []uint64{1, 3, 2}, seqs)
}

func TestMatcherZeroQuantityNeitherTradesNorRests(t *testing.T) {
	m, trades := recordingMatcher()
	submitAll(t, m,
		newTestRequest("1", SideBuy, 100, 1234),
		newTestRequest("2", SideSell, 0, 1234),
	)

	assert.Empty(t, *trades)
	require.Len(t, m.Dump(), 1)
	assert.Equal(t, "1 BUY BTCUSD 100 1234", m.Dump()[0].String())
}

func TestMatcherDumpIsRepeatable(t *testing.T) {
	m := NewMatcher(nil)
	submitAll(t, m,
		newTestRequest("1", SideBuy, 10, 99),
		newTestRequest("2", SideSell, 10, 101),
		newTestRequest("3", SideBuy, 10, 100),
	)

	assert.Equal(t, m.Dump(), m.Dump())
}
