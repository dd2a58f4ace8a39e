package engine

import "errors"

var (
	// ErrUnknownSide rejects an order whose side is neither BUY nor SELL.
	ErrUnknownSide = errors.New("unknown order side")

	// ErrUnexpectedMessage is returned for inbound messages the matcher does not accept.
	ErrUnexpectedMessage = errors.New("unexpected message type")

	ErrLoopStopped = errors.New("matching loop stopped")
)
