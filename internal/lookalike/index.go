package lookalike

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Index finds the trusted domain with the smallest edit distance to a query.
// Ties go to the domain inserted first.
type Index interface {
	// Nearest returns the closest domain and its distance; ok is false when the
	// index is empty.
	Nearest(query string) (domain string, distance int, ok bool)
	Len() int
}

// Distance is the case-insensitive Levenshtein distance between a and b
func Distance(a, b string) int {
	return levenshtein.ComputeDistance(strings.ToLower(a), strings.ToLower(b))
}

// LinearIndex scans every domain in insertion order
type LinearIndex struct {
	domains []string
}

// NewLinearIndex creates a linear index over domains
func NewLinearIndex(domains []string) *LinearIndex {
	idx := &LinearIndex{domains: make([]string, 0, len(domains))}
	for _, d := range domains {
		idx.domains = append(idx.domains, strings.ToLower(d))
	}
	return idx
}

// Nearest implements Index
func (l *LinearIndex) Nearest(query string) (string, int, bool) {
	if len(l.domains) == 0 {
		return "", 0, false
	}
	query = strings.ToLower(query)
	best, bestDist := "", -1
	for _, d := range l.domains {
		dist := levenshtein.ComputeDistance(query, d)
		if bestDist < 0 || dist < bestDist {
			best, bestDist = d, dist
			if dist == 0 {
				break
			}
		}
	}
	return best, bestDist, true
}

// Len implements Index
func (l *LinearIndex) Len() int {
	return len(l.domains)
}

type bkNode struct {
	domain   string
	order    int
	children map[int]*bkNode
}

// BKTree is a Burkhard-Keller tree over the Levenshtein metric. It returns the same
// answers as LinearIndex, including the first-inserted tie-break.
type BKTree struct {
	root *bkNode
	size int
}

// NewBKTree builds a tree from domains in order
func NewBKTree(domains []string) *BKTree {
	t := &BKTree{}
	for _, d := range domains {
		t.Insert(d)
	}
	return t
}

// Insert adds domain to the tree. Exact duplicates are ignored.
func (t *BKTree) Insert(domain string) {
	domain = strings.ToLower(domain)
	node := &bkNode{domain: domain, order: t.size}
	if t.root == nil {
		t.root = node
		t.size++
		return
	}

	cur := t.root
	for {
		d := levenshtein.ComputeDistance(domain, cur.domain)
		if d == 0 {
			return
		}
		child, ok := cur.children[d]
		if !ok {
			if cur.children == nil {
				cur.children = make(map[int]*bkNode)
			}
			cur.children[d] = node
			t.size++
			return
		}
		cur = child
	}
}

// Nearest implements Index
func (t *BKTree) Nearest(query string) (string, int, bool) {
	if t.root == nil {
		return "", 0, false
	}
	query = strings.ToLower(query)

	var best *bkNode
	bestDist := -1
	stack := []*bkNode{t.root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		d := levenshtein.ComputeDistance(query, node.domain)
		if bestDist < 0 || d < bestDist || (d == bestDist && node.order < best.order) {
			best, bestDist = node, d
		}

		for edge, child := range node.children {
			// every domain under child is exactly edge away from node, so it is at
			// least |d-edge| away from query
			if abs(d-edge) <= bestDist {
				stack = append(stack, child)
			}
		}
	}
	return best.domain, bestDist, true
}

// Len implements Index
func (t *BKTree) Len() int {
	return t.size
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
