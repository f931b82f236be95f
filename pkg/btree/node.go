// pkg/btree/node.go
package btree

import (
	"github.com/Abogeerick/minidb-complete-project/pkg/types"
)

// entry is one key with its posting list of row ids, kept in insertion order
type entry struct {
	key    types.Value
	rowIDs []uint64
}

// node is a B-tree node. Invariant for non-root nodes: at least t-1 and at
// most 2t-1 entries; internal nodes have len(entries)+1 children.
type node struct {
	leaf     bool
	entries  []entry
	children []*node
}

func newNode(leaf bool) *node {
	return &node{leaf: leaf}
}

// full reports whether the node holds the maximum 2t-1 entries
func (n *node) full(t int) bool {
	return len(n.entries) == 2*t-1
}

// findKey returns the index of the first entry whose key is >= key
func (n *node) findKey(key types.Value) int {
	lo, hi := 0, len(n.entries)
	for lo < hi {
		mid := (lo + hi) / 2
		if compareKeys(n.entries[mid].key, key) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// insertEntryAt places e at index i, shifting the tail right
func (n *node) insertEntryAt(i int, e entry) {
	n.entries = append(n.entries, entry{})
	copy(n.entries[i+1:], n.entries[i:])
	n.entries[i] = e
}

// removeEntryAt removes the entry at index i
func (n *node) removeEntryAt(i int) entry {
	e := n.entries[i]
	n.entries = append(n.entries[:i], n.entries[i+1:]...)
	return e
}

// insertChildAt places c at index i, shifting the tail right
func (n *node) insertChildAt(i int, c *node) {
	n.children = append(n.children, nil)
	copy(n.children[i+1:], n.children[i:])
	n.children[i] = c
}

// removeChildAt removes the child at index i
func (n *node) removeChildAt(i int) *node {
	c := n.children[i]
	n.children = append(n.children[:i], n.children[i+1:]...)
	return c
}

// maxEntry returns the rightmost entry of the subtree rooted at n
func (n *node) maxEntry() entry {
	cur := n
	for !cur.leaf {
		cur = cur.children[len(cur.children)-1]
	}
	return cur.entries[len(cur.entries)-1]
}

// minEntry returns the leftmost entry of the subtree rooted at n
func (n *node) minEntry() entry {
	cur := n
	for !cur.leaf {
		cur = cur.children[0]
	}
	return cur.entries[0]
}
