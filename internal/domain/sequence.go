package domain

import "sort"

// SequenceCache remembers which sequences were handed out per quadrant during
// the current import run, so codes generated before any of them are persisted
// never collide. It is not safe for concurrent use; a manager owns one and
// resets it at the start of each run.
type SequenceCache struct {
	allocated map[string]map[int]struct{}
}

// NewSequenceCache returns an empty cache.
func NewSequenceCache() *SequenceCache {
	return &SequenceCache{allocated: make(map[string]map[int]struct{})}
}

// Reset drops every allocation.
func (c *SequenceCache) Reset() {
	c.allocated = make(map[string]map[int]struct{})
}

// Add records seq as taken in prefix. Values outside [1, MaxSequence] are ignored.
func (c *SequenceCache) Add(prefix string, seq int) {
	if seq < 1 || seq > MaxSequence {
		return
	}
	set, ok := c.allocated[prefix]
	if !ok {
		set = make(map[int]struct{})
		c.allocated[prefix] = set
	}
	set[seq] = struct{}{}
}

// Sequences returns the sequences allocated to prefix in ascending order.
func (c *SequenceCache) Sequences(prefix string) []int {
	set := c.allocated[prefix]
	out := make([]int, 0, len(set))
	for seq := range set {
		out = append(out, seq)
	}
	sort.Ints(out)
	return out
}

// Len reports the number of quadrants with at least one allocation.
func (c *SequenceCache) Len() int {
	return len(c.allocated)
}
