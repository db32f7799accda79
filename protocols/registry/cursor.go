package registry

import (
	"errors"
	"fmt"

	"github.com/defistate/clmm-oracle-go/bitset"
	"github.com/defistate/clmm-oracle-go/engine"
)

// ErrCursorExhausted is returned when a cursor is asked for more items than remain.
var ErrCursorExhausted = fmt.Errorf("%w: state handles exhausted", engine.ErrInvalidConfiguration)

// Cursor walks a flat list of accounts the way a registry lays them out:
// a pool handle followed by its dependencies. Every item returned by Read
// or Take is marked as used, so callers can report handles a query never
// looked at.
type Cursor[T any] struct {
	items []T
	pos   int
	used  bitset.BitSet
}

// NewCursor returns a cursor positioned at the first item.
func NewCursor[T any](items []T) *Cursor[T] {
	return &Cursor[T]{
		items: items,
		used:  bitset.NewBitSet(len(items)),
	}
}

// Read returns the item at the current position without advancing.
func (c *Cursor[T]) Read() (T, error) {
	var zero T
	if c.pos >= len(c.items) {
		return zero, fmt.Errorf("%w: read at %d of %d", ErrCursorExhausted, c.pos, len(c.items))
	}
	c.used.Set(c.pos)
	return c.items[c.pos], nil
}

// Take returns the next n items and advances past them.
func (c *Cursor[T]) Take(n int) ([]T, error) {
	if n < 0 {
		return nil, errors.New("cursor: negative take")
	}
	if c.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d at %d, have %d", ErrCursorExhausted, n, c.pos, c.Remaining())
	}
	out := c.items[c.pos : c.pos+n : c.pos+n]
	for i := c.pos; i < c.pos+n; i++ {
		c.used.Set(i)
	}
	c.pos += n
	return out, nil
}

// Advance moves the cursor forward n items without marking them used.
func (c *Cursor[T]) Advance(n int) error {
	if n < 0 {
		return errors.New("cursor: negative advance")
	}
	if c.Remaining() < n {
		return fmt.Errorf("%w: advance %d at %d, have %d", ErrCursorExhausted, n, c.pos, c.Remaining())
	}
	c.pos += n
	return nil
}

// Remaining is the number of items at or after the current position.
func (c *Cursor[T]) Remaining() int { return len(c.items) - c.pos }

// Used is the number of distinct items returned so far.
func (c *Cursor[T]) Used() int { return c.used.Count() }

// Unused returns the indices of items never returned by Read or Take.
func (c *Cursor[T]) Unused() []int {
	var out []int
	for i := range c.items {
		if !c.used.IsSet(i) {
			out = append(out, i)
		}
	}
	return out
}
