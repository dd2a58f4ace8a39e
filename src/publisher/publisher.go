// Package publisher ships trades to Kafka off the matching goroutine.
package publisher

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"matchbook/src/config"
	"matchbook/src/engine"
)

const drainTimeout = 5 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// TradeEvent is the JSON value written for each trade; the message key is
// the symbol so one symbol's trades stay in one partition.
type TradeEvent struct {
	Symbol        string `json:"symbol"`
	OrderID       string `json:"order_id"`
	ContraOrderID string `json:"contra_order_id"`
	Quantity      uint64 `json:"quantity"`
	Price         uint64 `json:"price"`
}

type Publisher struct {
	writer    messageWriter
	queue     chan engine.Trade
	batchSize int

	published atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

func New(cfg config.Kafka) *Publisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
	}
	return newPublisher(w, cfg.QueueSize, cfg.BatchSize)
}

func newPublisher(w messageWriter, queueSize, batchSize int) *Publisher {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Publisher{
		writer:    w,
		queue:     make(chan engine.Trade, queueSize),
		batchSize: batchSize,
	}
}

// Publish queues a trade without blocking; it has the engine.TradeSink
// signature. A full queue drops the trade.
func (p *Publisher) Publish(t engine.Trade) {
	select {
	case p.queue <- t:
	default:
		if p.dropped.Add(1)%1000 == 1 {
			log.Warn().
				Str("symbol", t.Symbol).
				Uint64("dropped", p.dropped.Load()).
				Msg("Trade publish queue full, dropping trades")
		}
	}
}

// Run writes queued trades until ctx is done, then drains what is left.
func (p *Publisher) Run(ctx context.Context) {
	batch := make([]kafka.Message, 0, p.batchSize)

	for {
		select {
		case t := <-p.queue:
			batch = append(batch[:0], encode(t))
			batch = p.fill(batch)
			p.write(ctx, batch)
		case <-ctx.Done():
			p.drain()
			return
		}
	}
}

func (p *Publisher) fill(batch []kafka.Message) []kafka.Message {
	for len(batch) < p.batchSize {
		select {
		case t := <-p.queue:
			batch = append(batch, encode(t))
		default:
			return batch
		}
	}
	return batch
}

func (p *Publisher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	batch := make([]kafka.Message, 0, p.batchSize)
	for {
		batch = p.fill(batch[:0])
		if len(batch) == 0 {
			return
		}
		p.write(ctx, batch)
	}
}

func (p *Publisher) write(ctx context.Context, batch []kafka.Message) {
	if err := p.writer.WriteMessages(ctx, batch...); err != nil {
		p.failed.Add(uint64(len(batch)))
		log.Error().
			Err(err).
			Int("trades", len(batch)).
			Msg("Failed to publish trades")
		return
	}
	p.published.Add(uint64(len(batch)))
}

func encode(t engine.Trade) kafka.Message {
	// a struct of strings and integers always marshals
	value, _ := json.Marshal(TradeEvent{
		Symbol:        t.Symbol,
		OrderID:       t.OrderID,
		ContraOrderID: t.ContraOrderID,
		Quantity:      uint64(t.Quantity),
		Price:         uint64(t.Price),
	})
	return kafka.Message{
		Key:   []byte(t.Symbol),
		Value: value,
		Time:  time.Now(),
	}
}

type Stats struct {
	Published uint64
	Dropped   uint64
	Failed    uint64
}

func (p *Publisher) Stats() Stats {
	return Stats{
		Published: p.published.Load(),
		Dropped:   p.dropped.Load(),
		Failed:    p.failed.Load(),
	}
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
