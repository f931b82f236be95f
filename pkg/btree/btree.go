// pkg/btree/btree.go
package btree

import (
	"errors"

	"github.com/Abogeerick/minidb-complete-project/pkg/types"
)

var (
	ErrDuplicateKey = errors.New("duplicate key in unique index")
	ErrKeyNotFound  = errors.New("key not found")
)

// DefaultDegree is the minimum degree used when none is configured, so
// nodes hold between t-1 and 2t-1 keys.
const DefaultDegree = 3

// BTree is an ordered multimap from key to a posting list of row ids.
// Keys follow value ordering; null keys are never inserted. A unique tree
// allows at most one row id per key.
type BTree struct {
	root   *node
	t      int
	unique bool
	keys   int // number of distinct keys
}

// New creates an empty B-tree with minimum degree t (t >= 2)
func New(t int, unique bool) *BTree {
	if t < 2 {
		t = DefaultDegree
	}
	return &BTree{root: newNode(true), t: t, unique: unique}
}

// Unique reports whether the tree enforces one row id per key
func (bt *BTree) Unique() bool {
	return bt.unique
}

// Len returns the number of distinct keys
func (bt *BTree) Len() int {
	return bt.keys
}

// compareKeys orders two non-null keys. Integer and float keys compare
// numerically through types.Compare; any pair Compare rejects falls back to
// type-tag order so the tree stays totally ordered.
func compareKeys(a, b types.Value) int {
	cmp, err := types.Compare(a, b)
	if err != nil {
		switch {
		case a.Type() < b.Type():
			return -1
		case a.Type() > b.Type():
			return 1
		}
		return 0
	}
	return cmp
}

// Insert adds row id under key. Null keys are rejected by the caller.
// Inserting an existing key appends to its posting list, unless the tree
// is unique, in which case ErrDuplicateKey is returned.
func (bt *BTree) Insert(key types.Value, rowID uint64) error {
	if bt.unique {
		if ids := bt.Search(key); len(ids) > 0 {
			return ErrDuplicateKey
		}
	}

	if bt.root.full(bt.t) {
		newRoot := newNode(false)
		newRoot.children = append(newRoot.children, bt.root)
		bt.splitChild(newRoot, 0)
		bt.root = newRoot
	}
	bt.insertNonFull(bt.root, key, rowID)
	return nil
}

// splitChild splits the full child at index i of parent, promoting the median
func (bt *BTree) splitChild(parent *node, i int) {
	t := bt.t
	child := parent.children[i]

	sibling := newNode(child.leaf)
	median := child.entries[t-1]

	sibling.entries = append(sibling.entries, child.entries[t:]...)
	child.entries = child.entries[:t-1]

	if !child.leaf {
		sibling.children = append(sibling.children, child.children[t:]...)
		child.children = child.children[:t]
	}

	parent.insertEntryAt(i, median)
	parent.insertChildAt(i+1, sibling)
}

// insertNonFull descends to the leaf where key belongs, splitting full
// children on the way down
func (bt *BTree) insertNonFull(n *node, key types.Value, rowID uint64) {
	for {
		i := n.findKey(key)
		if i < len(n.entries) && compareKeys(n.entries[i].key, key) == 0 {
			n.entries[i].rowIDs = append(n.entries[i].rowIDs, rowID)
			return
		}

		if n.leaf {
			n.insertEntryAt(i, entry{key: key, rowIDs: []uint64{rowID}})
			bt.keys++
			return
		}

		if n.children[i].full(bt.t) {
			bt.splitChild(n, i)
			cmp := compareKeys(n.entries[i].key, key)
			if cmp == 0 {
				n.entries[i].rowIDs = append(n.entries[i].rowIDs, rowID)
				return
			}
			if cmp < 0 {
				i++
			}
		}
		n = n.children[i]
	}
}

// Search returns a copy of the posting list for key, empty when absent
func (bt *BTree) Search(key types.Value) []uint64 {
	n := bt.root
	for {
		i := n.findKey(key)
		if i < len(n.entries) && compareKeys(n.entries[i].key, key) == 0 {
			ids := make([]uint64, len(n.entries[i].rowIDs))
			copy(ids, n.entries[i].rowIDs)
			return ids
		}
		if n.leaf {
			return nil
		}
		n = n.children[i]
	}
}

// Delete removes row id from key's posting list. When the list becomes
// empty the key is removed and the tree rebalanced. Returns ErrKeyNotFound
// when the key or row id is not present.
func (bt *BTree) Delete(key types.Value, rowID uint64) error {
	n := bt.root
	var target *entry
	for {
		i := n.findKey(key)
		if i < len(n.entries) && compareKeys(n.entries[i].key, key) == 0 {
			target = &n.entries[i]
			break
		}
		if n.leaf {
			return ErrKeyNotFound
		}
		n = n.children[i]
	}

	found := false
	for i, id := range target.rowIDs {
		if id == rowID {
			target.rowIDs = append(target.rowIDs[:i], target.rowIDs[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return ErrKeyNotFound
	}

	if len(target.rowIDs) > 0 {
		return nil
	}

	bt.removeKey(bt.root, key)
	bt.keys--

	// Shrink the root when it empties out
	if len(bt.root.entries) == 0 && !bt.root.leaf {
		bt.root = bt.root.children[0]
	}
	return nil
}

// removeKey removes the whole entry for key from the subtree rooted at n,
// maintaining minimum occupancy (>= t-1 entries) below the root
func (bt *BTree) removeKey(n *node, key types.Value) {
	t := bt.t
	i := n.findKey(key)

	if i < len(n.entries) && compareKeys(n.entries[i].key, key) == 0 {
		if n.leaf {
			n.removeEntryAt(i)
			return
		}

		left, right := n.children[i], n.children[i+1]
		switch {
		case len(left.entries) >= t:
			pred := left.maxEntry()
			n.entries[i] = pred
			bt.removeKey(left, pred.key)
		case len(right.entries) >= t:
			succ := right.minEntry()
			n.entries[i] = succ
			bt.removeKey(right, succ.key)
		default:
			bt.mergeChildren(n, i)
			bt.removeKey(left, key)
		}
		return
	}

	if n.leaf {
		return
	}

	// Descending: make sure the target child can lose an entry
	if len(n.children[i].entries) < t {
		i = bt.fillChild(n, i)
	}
	bt.removeKey(n.children[i], key)
}

// fillChild brings child i up to >= t entries by borrowing from a sibling
// or merging, and returns the index to descend into
func (bt *BTree) fillChild(n *node, i int) int {
	t := bt.t

	if i > 0 && len(n.children[i-1].entries) >= t {
		bt.borrowFromLeft(n, i)
		return i
	}
	if i < len(n.children)-1 && len(n.children[i+1].entries) >= t {
		bt.borrowFromRight(n, i)
		return i
	}

	if i == len(n.children)-1 {
		bt.mergeChildren(n, i-1)
		return i - 1
	}
	bt.mergeChildren(n, i)
	return i
}

// borrowFromLeft rotates an entry through the parent from the left sibling
func (bt *BTree) borrowFromLeft(n *node, i int) {
	child, sibling := n.children[i], n.children[i-1]

	child.insertEntryAt(0, n.entries[i-1])
	n.entries[i-1] = sibling.removeEntryAt(len(sibling.entries) - 1)

	if !child.leaf {
		child.insertChildAt(0, sibling.removeChildAt(len(sibling.children)-1))
	}
}

// borrowFromRight rotates an entry through the parent from the right sibling
func (bt *BTree) borrowFromRight(n *node, i int) {
	child, sibling := n.children[i], n.children[i+1]

	child.entries = append(child.entries, n.entries[i])
	n.entries[i] = sibling.removeEntryAt(0)

	if !child.leaf {
		child.children = append(child.children, sibling.removeChildAt(0))
	}
}

// mergeChildren folds child i+1 and the separating entry into child i
func (bt *BTree) mergeChildren(n *node, i int) {
	child, sibling := n.children[i], n.children[i+1]

	child.entries = append(child.entries, n.removeEntryAt(i))
	child.entries = append(child.entries, sibling.entries...)
	child.children = append(child.children, sibling.children...)

	n.removeChildAt(i + 1)
}

// Range returns all row ids whose keys fall in [low, high] in ascending key
// order. A nil bound is unbounded; inclusivity follows inclLow/inclHigh.
func (bt *BTree) Range(low, high *types.Value, inclLow, inclHigh bool) []uint64 {
	var ids []uint64
	bt.walk(bt.root, func(e entry) {
		ids = append(ids, e.rowIDs...)
	}, low, high, inclLow, inclHigh)
	return ids
}

// ForEach visits every (key, posting list) pair in ascending key order
func (bt *BTree) ForEach(fn func(key types.Value, rowIDs []uint64)) {
	bt.walk(bt.root, func(e entry) {
		fn(e.key, e.rowIDs)
	}, nil, nil, false, false)
}

// walk performs a bounded in-order traversal
func (bt *BTree) walk(n *node, visit func(entry), low, high *types.Value, inclLow, inclHigh bool) {
	inLow := func(e entry) bool {
		if low == nil {
			return true
		}
		cmp := compareKeys(e.key, *low)
		if inclLow {
			return cmp >= 0
		}
		return cmp > 0
	}
	inHigh := func(e entry) bool {
		if high == nil {
			return true
		}
		cmp := compareKeys(e.key, *high)
		if inclHigh {
			return cmp <= 0
		}
		return cmp < 0
	}

	for i := 0; i < len(n.entries); i++ {
		e := n.entries[i]
		if !n.leaf && (low == nil || compareKeys(e.key, *low) >= 0) {
			bt.walk(n.children[i], visit, low, high, inclLow, inclHigh)
		}
		if inLow(e) && inHigh(e) {
			visit(e)
		}
		if high != nil && compareKeys(e.key, *high) > 0 {
			return
		}
	}
	if !n.leaf {
		bt.walk(n.children[len(n.children)-1], visit, low, high, inclLow, inclHigh)
	}
}
