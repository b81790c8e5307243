package graph

import "github.com/bits-and-blooms/bitset"

// WalkSet is the visitation set of one self-avoiding walk, keyed by node
// index. Each walk owns its set, so walks in different repetitions can run
// concurrently over the same read-only topology.
type WalkSet struct {
	bits    *bitset.BitSet
	touched []int
}

// NewWalkSet returns an empty visitation set sized for g.
func (g *Graph) NewWalkSet() *WalkSet {
	return &WalkSet{
		bits:    bitset.New(uint(len(g.nodes))),
		touched: make([]int, 0, 16),
	}
}

// Visit marks the node at index i as visited.
func (w *WalkSet) Visit(i int) {
	if w.bits.Test(uint(i)) {
		return
	}
	w.bits.Set(uint(i))
	w.touched = append(w.touched, i)
}

// Visited reports whether the node at index i was visited in this walk.
func (w *WalkSet) Visited(i int) bool {
	if w == nil || i < 0 {
		return false
	}
	return w.bits.Test(uint(i))
}

// Len returns the number of visited nodes.
func (w *WalkSet) Len() int {
	return len(w.touched)
}

// Reset clears every visited node. Cost is proportional to the walk length,
// not to the graph size.
func (w *WalkSet) Reset() {
	for _, i := range w.touched {
		w.bits.Clear(uint(i))
	}
	w.touched = w.touched[:0]
}
