package engine

// Message is the closed set of values the engine exchanges: NewOrder inbound,
// Trade outbound.
type Message interface {
	isMessage()
}

// NewOrder is an already-decoded limit order request.
type NewOrder struct {
	OrderID  string
	Side     Side
	Symbol   string
	Quantity Quantity
	Price    Price
}

// Trade is one match. OrderID is the aggressor, ContraOrderID the resting
// order whose limit price the trade executes at.
type Trade struct {
	Symbol        string
	OrderID       string
	ContraOrderID string
	Quantity      Quantity
	Price         Price
}

func (NewOrder) isMessage() {}
func (Trade) isMessage()    {}

// TradeSink receives each trade synchronously, one call per trade.
type TradeSink func(Trade)
