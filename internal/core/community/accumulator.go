package community

import "sync"

// Accumulator collects similar pairs into disjoint clusters. Merge may be
// called from many goroutines at once.
type Accumulator struct {
	mu     sync.Mutex
	set    *DisjointSet
	merges int
}

// NewAccumulator returns an accumulator for n items indexed 0..n-1.
func NewAccumulator(n int) *Accumulator {
	return &Accumulator{set: NewDisjointSet(n)}
}

// Merge records that items a and b are similar. Repeated or reversed pairs
// are no-ops once the two items share a cluster.
func (acc *Accumulator) Merge(a, b int) {
	acc.mu.Lock()
	defer acc.mu.Unlock()

	if acc.set.Union(a, b) {
		acc.merges++
	}
}

// Connected reports whether a and b are already in the same cluster.
func (acc *Accumulator) Connected(a, b int) bool {
	acc.mu.Lock()
	defer acc.mu.Unlock()

	return acc.set.Connected(a, b)
}

// Merges is the number of Merge calls that joined two distinct clusters.
func (acc *Accumulator) Merges() int {
	acc.mu.Lock()
	defer acc.mu.Unlock()

	return acc.merges
}

// Collect returns every cluster of two or more items exactly once. Members
// are ascending and clusters are ordered by their smallest member.
func (acc *Accumulator) Collect() [][]int {
	acc.mu.Lock()
	defer acc.mu.Unlock()

	n := acc.set.Len()
	slot := make(map[int]int)
	var groups [][]int
	for i := 0; i < n; i++ {
		if acc.set.SizeOf(i) < 2 {
			continue
		}
		root := acc.set.Find(i)
		idx, ok := slot[root]
		if !ok {
			idx = len(groups)
			slot[root] = idx
			groups = append(groups, make([]int, 0, acc.set.SizeOf(i)))
		}
		groups[idx] = append(groups[idx], i)
	}
	return groups
}
