// Package feed is the line-oriented adapter around the matcher: it decodes
// "<id> <side> <symbol> <qty> <price>" lines, prints trades as they happen
// and dumps the resting orders when input ends.
package feed

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"matchbook/src/engine"
)

const exitCommand = "exit"

const (
	fieldOrderID = iota
	fieldSide
	fieldSymbol
	fieldQuantity
	fieldPrice
	fieldCount
)

// DecodeError reports a line that could not become an order.
type DecodeError struct {
	Field string
	Value string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Value == "" {
		return "decode " + e.Field + ": " + e.Err.Error()
	}
	return fmt.Sprintf("decode %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

var ErrFieldCount = errors.New("wrong number of fields")

// ParseLine splits a line on whitespace.
func ParseLine(line string) []string {
	return strings.Fields(line)
}

// DecodeNewOrder builds a request from exactly five fields. The side token is
// passed through; an unknown side is left for the matcher to reject.
func DecodeNewOrder(fields []string) (engine.NewOrder, error) {
	if len(fields) != fieldCount {
		return engine.NewOrder{}, &DecodeError{
			Field: "line",
			Err:   fmt.Errorf("%w: want %d, got %d", ErrFieldCount, fieldCount, len(fields)),
		}
	}

	qty, err := strconv.ParseUint(fields[fieldQuantity], 10, 64)
	if err != nil {
		return engine.NewOrder{}, &DecodeError{Field: "quantity", Value: fields[fieldQuantity], Err: err}
	}
	price, err := strconv.ParseUint(fields[fieldPrice], 10, 64)
	if err != nil {
		return engine.NewOrder{}, &DecodeError{Field: "price", Value: fields[fieldPrice], Err: err}
	}

	return engine.NewOrder{
		OrderID:  fields[fieldOrderID],
		Side:     engine.ParseSide(fields[fieldSide]),
		Symbol:   fields[fieldSymbol],
		Quantity: engine.Quantity(qty),
		Price:    engine.Price(price),
	}, nil
}

func FormatTrade(t engine.Trade) string {
	return fmt.Sprintf("TRADE %s %s %s %d %d", t.Symbol, t.OrderID, t.ContraOrderID, t.Quantity, t.Price)
}

// Session reads order lines into a matcher and writes trade lines.
type Session struct {
	matcher *engine.Matcher
	out     *bufio.Writer
	werr    error

	Lines    int
	Rejected int
	Trades   int
}

// NewSession wires a fresh matcher whose trades are written to w. extra, if
// set, also sees every trade.
func NewSession(w io.Writer, extra engine.TradeSink) *Session {
	s := &Session{out: bufio.NewWriter(w)}
	s.matcher = engine.NewMatcher(func(t engine.Trade) {
		s.Trades++
		s.writeLine(FormatTrade(t))
		if extra != nil {
			extra(t)
		}
	})
	return s
}

func (s *Session) Matcher() *engine.Matcher {
	return s.matcher
}

func (s *Session) writeLine(line string) {
	if s.werr != nil {
		return
	}
	if _, err := s.out.WriteString(line + "\n"); err != nil {
		s.werr = err
	}
}

// HandleLine processes one input line. It reports false once the exit
// command is seen.
func (s *Session) HandleLine(line string) bool {
	// only the bare word ends input; a padded "exit" is a bad order line
	if line == exitCommand {
		return false
	}
	fields := ParseLine(line)
	if len(fields) == 0 {
		return true
	}
	s.Lines++

	req, err := DecodeNewOrder(fields)
	if err != nil {
		s.Rejected++
		log.Warn().
			Err(err).
			Str("line", line).
			Msg("Invalid order line")
		return true
	}

	if err := s.matcher.OnNewOrder(req); err != nil {
		s.Rejected++
		log.Warn().
			Err(err).
			Str("order_id", req.OrderID).
			Str("symbol", req.Symbol).
			Msg("Order rejected")
	}
	return true
}

// Finish writes an empty line followed by every resting order and flushes.
func (s *Session) Finish() error {
	s.writeLine("")
	for _, o := range s.matcher.Dump() {
		s.writeLine(o.String())
	}
	if s.werr != nil {
		return s.werr
	}
	return s.out.Flush()
}

// Run feeds r through a new session until EOF, the exit command, a read
// error or ctx is cancelled, then writes the final dump to w. Lines have no
// length limit.
func Run(ctx context.Context, r io.Reader, w io.Writer, extra engine.TradeSink) (*Session, error) {
	s := NewSession(w, extra)
	reader := bufio.NewReader(r)

	var readErr error
	for ctx.Err() == nil {
		line, err := reader.ReadString('\n')
		if line != "" {
			line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
			if !s.HandleLine(line) {
				break
			}
			// trades show up line by line for interactive use
			if ferr := s.out.Flush(); ferr != nil && s.werr == nil {
				s.werr = ferr
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				readErr = fmt.Errorf("read orders: %w", err)
			}
			break
		}
	}

	// the dump is written even when reading failed part way
	if err := s.Finish(); err != nil {
		return s, fmt.Errorf("write output: %w", err)
	}
	if readErr != nil {
		log.Error().
			Err(readErr).
			Int("lines", s.Lines).
			Msg("Order feed stopped on read error")
		return s, readErr
	}

	log.Info().
		Int("lines", s.Lines).
		Int("rejected", s.Rejected).
		Int("trades", s.Trades).
		Uint64("sequence", s.matcher.Sequence()).
		Msg("Order feed finished")
	return s, nil
}
