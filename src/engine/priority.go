package engine

import "fmt"

// PriorityKey orders one side of a book best price first: highest bid,
// lowest ask.
type PriorityKey struct {
	Price Price
	Side  Side
}

// Less panics when the sides differ; each side has its own index so a mixed
// comparison is a bug.
func (k PriorityKey) Less(other PriorityKey) bool {
	if k.Side != other.Side {
		panic(fmt.Sprintf("engine: comparing %s key with %s key", k.Side, other.Side))
	}
	if k.Side == SideBuy {
		return k.Price > other.Price
	}
	return k.Price < other.Price
}

// priorityEntry is an element of a side's primary index. Equal keys fall back
// to arrival sequence, which keeps same-price orders FIFO.
type priorityEntry struct {
	key      PriorityKey
	sequence uint64
	handle   handle
}

func lessPriority(a, b priorityEntry) bool {
	if a.key.Less(b.key) {
		return true
	}
	if b.key.Less(a.key) {
		return false
	}
	return a.sequence < b.sequence
}

type sequenceEntry struct {
	sequence uint64
	handle   handle
}

func lessSequence(a, b sequenceEntry) bool {
	return a.sequence < b.sequence
}
