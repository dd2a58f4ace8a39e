package engine

import (
	"fmt"
	"strconv"
)

type Side uint8

const (
	SideUnknown Side = iota
	SideBuy
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "<UNKNOWN>"
	}
}

// ParseSide maps the case-sensitive tokens "BUY" and "SELL"; anything else is SideUnknown.
func ParseSide(s string) Side {
	switch s {
	case "BUY":
		return SideBuy
	case "SELL":
		return SideSell
	}
	return SideUnknown
}

// Contra returns the side an inbound order of side s trades against.
func (s Side) Contra() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Price in ticks, Quantity in units.
type (
	Price    uint64
	Quantity uint64
)

// Order is a resting or in-flight limit order. Only the remaining quantity
// changes after construction, and only downwards through DecreaseQuantity.
type Order struct {
	sequence uint64
	id       string
	symbol   string
	side     Side
	price    Price
	quantity Quantity
}

// MakeOrder stamps req with its arrival sequence.
func MakeOrder(sequence uint64, req NewOrder) Order {
	return Order{
		sequence: sequence,
		id:       req.OrderID,
		symbol:   req.Symbol,
		side:     req.Side,
		price:    req.Price,
		quantity: req.Quantity,
	}
}

func (o *Order) Sequence() uint64   { return o.sequence }
func (o *Order) ID() string         { return o.id }
func (o *Order) Symbol() string     { return o.symbol }
func (o *Order) Side() Side         { return o.side }
func (o *Order) Price() Price       { return o.price }
func (o *Order) Quantity() Quantity { return o.quantity }

func (o *Order) Key() PriorityKey {
	return PriorityKey{Price: o.price, Side: o.side}
}

// DecreaseQuantity consumes q units. Consuming more than remains means the
// matcher is broken, so it panics instead of wrapping around.
func (o *Order) DecreaseQuantity(q Quantity) {
	if q > o.quantity {
		panic(fmt.Sprintf("engine: order %s (seq %d) decrease by %d exceeds remaining %d",
			o.id, o.sequence, q, o.quantity))
	}
	o.quantity -= q
}

func (o *Order) View() OrderView {
	return OrderView{
		Sequence: o.sequence,
		OrderID:  o.id,
		Side:     o.side,
		Symbol:   o.symbol,
		Quantity: o.quantity,
		Price:    o.price,
	}
}

func (o *Order) String() string {
	return o.View().String()
}

// OrderView is the dump descriptor of a resting order.
type OrderView struct {
	Sequence uint64
	OrderID  string
	Side     Side
	Symbol   string
	Quantity Quantity
	Price    Price
}

func (v OrderView) String() string {
	return v.OrderID + " " + v.Side.String() + " " + v.Symbol + " " +
		strconv.FormatUint(uint64(v.Quantity), 10) + " " +
		strconv.FormatUint(uint64(v.Price), 10)
}
