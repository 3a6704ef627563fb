package model

import "sort"

// Cluster is a group of at least two articles linked by a chain of
// pairwise similar contents.
type Cluster []*Article

func (c Cluster) Len() int {
	return len(c)
}

// IDs returns the article ids in ascending order.
func (c Cluster) IDs() []int {
	ids := make([]int, 0, len(c))
	for _, a := range c {
		ids = append(ids, a.ID)
	}
	sort.Ints(ids)
	return ids
}

// Contains reports whether an article with the given id is a member.
func (c Cluster) Contains(id int) bool {
	for _, a := range c {
		if a.ID == id {
			return true
		}
	}
	return false
}

// CountArticles sums the cluster sizes.
func CountArticles(clusters []Cluster) int {
	n := 0
	for _, c := range clusters {
		n += len(c)
	}
	return n
}
