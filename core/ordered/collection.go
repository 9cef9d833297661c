// Package ordered implements a sequence addressed by fractional positions.
//
// Every value is stored under a rational key. Inserting between two
// neighbours picks the midpoint of their keys, so existing entries never
// need renumbering. Keys are big.Rat, which keeps adjacent keys distinct
// under any number of bisections.
//
// Entries live in a slice sorted by key. Position lookups are O(1) and an
// insert finds its slot in O(log n) key comparisons, but shifting the slice
// makes inserts and removes O(n) copies in the worst case. That is cheap at
// playlist sizes; a larger collection would want an order statistic tree.
package ordered

import (
	"errors"
	"math/big"
	"sort"
)

// End as an insert position appends after the last entry.
const End = -1

// ErrOutOfBounds is returned for positions outside the collection.
var ErrOutOfBounds = errors.New("position out of bounds")

var (
	one = big.NewRat(1, 1)
	two = big.NewRat(2, 1)
)

type entry[V any] struct {
	key   *big.Rat
	value V
}

// Collection is a sequence of values kept in ascending key order.
// The zero value is an empty collection. It is not safe for concurrent use.
type Collection[V any] struct {
	entries []entry[V]
}

// New returns an empty collection.
func New[V any]() *Collection[V] {
	return &Collection[V]{}
}

func (c *Collection[V]) Len() int {
	return len(c.entries)
}

// Insert places value so that it ends up at position and returns its key.
// A negative position, or one at or past the end, appends.
func (c *Collection[V]) Insert(value V, position int) *big.Rat {
	key := c.keyFor(position)

	i := sort.Search(len(c.entries), func(i int) bool {
		return c.entries[i].key.Cmp(key) > 0
	})
	c.entries = append(c.entries, entry[V]{})
	copy(c.entries[i+1:], c.entries[i:])
	c.entries[i] = entry[V]{key: key, value: value}

	return new(big.Rat).Set(key)
}

func (c *Collection[V]) keyFor(position int) *big.Rat {
	n := len(c.entries)
	switch {
	case n == 0:
		return new(big.Rat).Set(one)
	case position < 0 || position >= n:
		return new(big.Rat).Add(c.entries[n-1].key, one)
	case position == 0:
		return new(big.Rat).Quo(c.entries[0].key, two)
	default:
		mid := new(big.Rat).Add(c.entries[position-1].key, c.entries[position].key)
		return mid.Quo(mid, two)
	}
}

// Remove deletes and returns the value at position.
func (c *Collection[V]) Remove(position int) (V, error) {
	var zero V
	if position < 0 || position >= len(c.entries) {
		return zero, ErrOutOfBounds
	}

	value := c.entries[position].value
	c.entries = append(c.entries[:position], c.entries[position+1:]...)
	return value, nil
}

// Move takes the value at origin and reinserts it before the value that was
// at target. target may equal Len to move to the end. Moves that would not
// change the order report moved == false.
func (c *Collection[V]) Move(origin, target int) (moved bool, err error) {
	n := len(c.entries)
	if origin < 0 || origin >= n || target < 0 || target > n {
		return false, ErrOutOfBounds
	}
	if origin == target || origin+1 == target {
		return false, nil
	}

	value, err := c.Remove(origin)
	if err != nil {
		return false, err
	}
	if origin < target {
		target--
	}
	c.Insert(value, target)
	return true, nil
}

// At returns the value at position.
func (c *Collection[V]) At(position int) (V, error) {
	if position < 0 || position >= len(c.entries) {
		var zero V
		return zero, ErrOutOfBounds
	}
	return c.entries[position].value, nil
}

// Key returns a copy of the key at position.
func (c *Collection[V]) Key(position int) (*big.Rat, error) {
	if position < 0 || position >= len(c.entries) {
		return nil, ErrOutOfBounds
	}
	return new(big.Rat).Set(c.entries[position].key), nil
}

// Index returns the position of the first value matching fn, or -1.
func (c *Collection[V]) Index(fn func(V) bool) int {
	for i, e := range c.entries {
		if fn(e.value) {
			return i
		}
	}
	return -1
}

// Values returns the values in order.
func (c *Collection[V]) Values() []V {
	values := make([]V, len(c.entries))
	for i, e := range c.entries {
		values[i] = e.value
	}
	return values
}

// All iterates positions and values in order.
func (c *Collection[V]) All(yield func(int, V) bool) {
	for i, e := range c.entries {
		if !yield(i, e.value) {
			return
		}
	}
}

// Clear removes every entry.
func (c *Collection[V]) Clear() {
	c.entries = nil
}

// Clone returns an independent copy. Keys are shared; they are never mutated.
func (c *Collection[V]) Clone() *Collection[V] {
	clone := &Collection[V]{entries: make([]entry[V], len(c.entries))}
	copy(clone.entries, c.entries)
	return clone
}
