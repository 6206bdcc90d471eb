package engine

import (
	"fmt"

	"marlin/internal/domain"
)

// Book is the fixed-capacity set of asset slots. Slot identity (the index) is
// stable across a run and used only for bookkeeping, never as a trading
// decision input. A slot holds at most one position at a time.
type Book struct {
	slots []*domain.Position
}

// NewBook creates an empty book with maxPositions slots.
func NewBook(maxPositions int) *Book {
	return &Book{slots: make([]*domain.Position, maxPositions)}
}

// Clone returns a deep copy, used to carry yesterday's book forward into
// today's working state.
func (b *Book) Clone() *Book {
	out := NewBook(len(b.slots))
	for i, p := range b.slots {
		if p != nil {
			cp := *p
			out.slots[i] = &cp
		}
	}
	return out
}

// FreeSlot returns the lowest-indexed free slot, or -1 when the book is full.
func (b *Book) FreeSlot() int {
	for i, p := range b.slots {
		if p == nil {
			return i
		}
	}
	return -1
}

// Find returns the slot holding symbol, or -1 when the symbol has no open
// position.
func (b *Book) Find(sym domain.SymbolID) int {
	for i, p := range b.slots {
		if p != nil && p.Symbol == sym {
			return i
		}
	}
	return -1
}

// Occupied returns the indices of all occupied slots in ascending order.
func (b *Book) Occupied() []int {
	var out []int
	for i, p := range b.slots {
		if p != nil {
			out = append(out, i)
		}
	}
	return out
}

// Position returns the position in a slot, or nil when the slot is free.
func (b *Book) Position(slot int) *domain.Position {
	return b.slots[slot]
}

// Open places a position into a free slot. Occupying a taken slot or opening
// a second position for the same symbol is an engine bug.
func (b *Book) Open(slot int, pos *domain.Position) error {
	if b.slots[slot] != nil {
		return fmt.Errorf("slot %d already holds %s", slot, b.slots[slot].Symbol)
	}
	if i := b.Find(pos.Symbol); i >= 0 {
		return fmt.Errorf("symbol %s already open in slot %d", pos.Symbol, i)
	}
	b.slots[slot] = pos
	return nil
}

// Close frees a slot.
func (b *Book) Close(slot int) {
	b.slots[slot] = nil
}

// StockValue sums the mark-to-market balances of all occupied slots.
func (b *Book) StockValue() float64 {
	var total float64
	for _, p := range b.slots {
		if p != nil {
			total += p.MarketValue
		}
	}
	return total
}

// checkInvariants verifies that no symbol occupies two slots. Returns a
// description of the first violation, or "" when the book is consistent.
func (b *Book) checkInvariants() string {
	seen := make(map[domain.SymbolID]int)
	for i, p := range b.slots {
		if p == nil {
			continue
		}
		if j, dup := seen[p.Symbol]; dup {
			return fmt.Sprintf("symbol %s occupies slots %d and %d", p.Symbol, j, i)
		}
		seen[p.Symbol] = i
	}
	return ""
}
