package engine

import "fmt"

// handle addresses an order slot. The generation is bumped on every release
// so a stale handle can never reach the slot's next occupant.
type handle struct {
	index      uint32
	generation uint32
}

type slot struct {
	order      Order
	generation uint32
	occupied   bool
}

// arena owns every order resting in a book; indices hold handles only.
type arena struct {
	slots []slot
	free  []uint32
	live  int
}

func (a *arena) insert(o Order) handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, slot{})
	}

	s := &a.slots[idx]
	s.order = o
	s.occupied = true
	a.live++
	return handle{index: idx, generation: s.generation}
}

func (a *arena) get(h handle) *Order {
	return &a.slot(h).order
}

func (a *arena) release(h handle) Order {
	s := a.slot(h)
	o := s.order
	s.order = Order{}
	s.occupied = false
	s.generation++
	a.free = append(a.free, h.index)
	a.live--
	return o
}

func (a *arena) len() int { return a.live }

func (a *arena) slot(h handle) *slot {
	if int(h.index) >= len(a.slots) {
		panic(fmt.Sprintf("engine: handle %d out of range", h.index))
	}
	s := &a.slots[h.index]
	if !s.occupied || s.generation != h.generation {
		panic(fmt.Sprintf("engine: stale handle %d/%d", h.index, h.generation))
	}
	return s
}
