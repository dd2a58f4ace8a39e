package engine

import (
	"context"
)

type OrderStatus string

const (
	StatusAccepted    OrderStatus = "ACCEPTED"
	StatusPartialFill OrderStatus = "PARTIAL_FILL"
	StatusFilled      OrderStatus = "FILLED"
)

type SubmitResult struct {
	Sequence  uint64
	Status    OrderStatus
	Trades    []Trade
	Filled    Quantity
	Remaining Quantity
}

type BookSnapshot struct {
	Symbol string
	Bids   []Level
	Asks   []Level
	Orders []OrderView
}

type Stats struct {
	Sequence       uint64
	OrdersReceived uint64
	OrdersRejected uint64
	TradesExecuted uint64
	RestingOrders  int
	Books          int
}

type commandType int

const (
	cmdSubmit commandType = iota
	cmdDump
	cmdBook
	cmdStats
)

type command struct {
	typ    commandType
	order  NewOrder
	symbol string
	depth  int
	resp   chan reply
}

type reply struct {
	result SubmitResult
	orders []OrderView
	book   BookSnapshot
	stats  Stats
	err    error
}

// Loop gives a Matcher a single owning goroutine so it can be shared by
// concurrent callers. Every call is a command answered on its own channel.
type Loop struct {
	matcher    *Matcher
	cmds       chan command
	done       chan struct{}
	downstream TradeSink

	// trades generated by the command being handled
	pending []Trade
	stats   Stats
}

// NewLoop builds a loop with a command buffer of the given size. downstream,
// if set, sees every trade after the caller-facing result is assembled.
func NewLoop(buffer int, downstream TradeSink) *Loop {
	l := &Loop{
		cmds:       make(chan command, buffer),
		done:       make(chan struct{}),
		downstream: downstream,
	}
	l.matcher = NewMatcher(l.onTrade)
	return l
}

func (l *Loop) onTrade(trade Trade) {
	l.pending = append(l.pending, trade)
	if l.downstream != nil {
		l.downstream(trade)
	}
}

// Run processes commands until ctx is done. Call it from exactly one goroutine.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)

	for {
		select {
		case cmd := <-l.cmds:
			cmd.resp <- l.handle(cmd)
		case <-ctx.Done():
			return
		}
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) handle(cmd command) reply {
	switch cmd.typ {
	case cmdSubmit:
		return l.submit(cmd.order)
	case cmdDump:
		return reply{orders: l.matcher.Dump()}
	case cmdBook:
		return reply{book: l.snapshot(cmd.symbol, cmd.depth)}
	case cmdStats:
		s := l.stats
		s.Sequence = l.matcher.Sequence()
		s.RestingOrders = l.matcher.RestingOrders()
		s.Books = len(l.matcher.Symbols())
		return reply{stats: s}
	}
	return reply{err: ErrUnexpectedMessage}
}

func (l *Loop) submit(req NewOrder) reply {
	l.pending = l.pending[:0]
	l.stats.OrdersReceived++

	if err := l.matcher.OnNewOrder(req); err != nil {
		l.stats.OrdersRejected++
		return reply{err: err}
	}

	res := SubmitResult{
		Sequence: l.matcher.Sequence(),
		Trades:   make([]Trade, len(l.pending)),
	}
	copy(res.Trades, l.pending)

	for _, t := range res.Trades {
		res.Filled += t.Quantity
	}
	res.Remaining = req.Quantity - res.Filled
	l.stats.TradesExecuted += uint64(len(res.Trades))

	switch {
	case len(res.Trades) == 0:
		res.Status = StatusAccepted
	case res.Remaining > 0:
		res.Status = StatusPartialFill
	default:
		res.Status = StatusFilled
	}
	return reply{result: res}
}

func (l *Loop) snapshot(symbol string, depth int) BookSnapshot {
	snap := BookSnapshot{Symbol: symbol, Bids: []Level{}, Asks: []Level{}, Orders: []OrderView{}}

	// edge case: unknown symbols read as empty without creating a book
	ob, ok := l.matcher.Book(symbol)
	if !ok {
		return snap
	}
	snap.Bids, snap.Asks = ob.Depth(depth)
	snap.Orders = ob.Dump()
	return snap
}

func (l *Loop) do(ctx context.Context, cmd command) (reply, error) {
	cmd.resp = make(chan reply, 1)

	select {
	case l.cmds <- cmd:
	case <-l.done:
		return reply{}, ErrLoopStopped
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}

	select {
	case r := <-cmd.resp:
		return r, r.err
	case <-l.done:
		// edge case: the loop may have answered right before stopping
		select {
		case r := <-cmd.resp:
			return r, r.err
		default:
			return reply{}, ErrLoopStopped
		}
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
}

func (l *Loop) Submit(ctx context.Context, req NewOrder) (SubmitResult, error) {
	r, err := l.do(ctx, command{typ: cmdSubmit, order: req})
	return r.result, err
}

func (l *Loop) Dump(ctx context.Context) ([]OrderView, error) {
	r, err := l.do(ctx, command{typ: cmdDump})
	return r.orders, err
}

func (l *Loop) Book(ctx context.Context, symbol string, depth int) (BookSnapshot, error) {
	r, err := l.do(ctx, command{typ: cmdBook, symbol: symbol, depth: depth})
	return r.book, err
}

func (l *Loop) Stats(ctx context.Context) (Stats, error) {
	r, err := l.do(ctx, command{typ: cmdStats})
	return r.stats, err
}
