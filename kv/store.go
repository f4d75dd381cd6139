package kv

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/crypto/sha3"

	"github.com/dashpay/drive-feepool/errs"
)

// Store owns the current committed root and serializes writers. Reads
// never block: a Tx is a snapshot of an immutable Node tree, so it
// keeps working unaffected by later commits.
type Store struct {
	mu   sync.Mutex // single-writer guard (spec.md §5: callers must not overlap block_begin/block_end)
	root atomic.Pointer[Node]
}

// NewStore returns an empty store: a single, empty root subtree. Callers
// build the real five-root-subtree layout via chain.Driver.InitChain,
// not here — an empty Store is not yet "initialized" in spec.md's sense.
func NewStore() *Store {
	s := &Store{}
	s.root.Store(newTreeNode())
	return s
}

// View returns a read-only snapshot of the currently committed state.
func (s *Store) View() *Tx {
	return &Tx{root: s.root.Load()}
}

// Tx is an immutable snapshot of the store, rooted at a single Node.
type Tx struct {
	root *Node
}

func pathString(path [][]byte) string {
	return fmt.Sprintf("%x", path)
}

// NodeAt walks path from the root and returns the Node found there.
func (t *Tx) NodeAt(path ...[]byte) (*Node, error) {
	cur := t.root
	for i, k := range path {
		if cur.Kind != NodeTree {
			return nil, &errs.Corrupted{Kind: errs.CorruptedType, Path: pathString(path[:i])}
		}
		child, ok := cur.get(k)
		if !ok {
			return nil, &errs.NotInitialized{Path: pathString(path[:i+1])}
		}
		cur = child
	}
	return cur, nil
}

// GetItem reads an item's value at path. Fails with Corrupted{NotItem}
// if path resolves to a subtree instead.
func (t *Tx) GetItem(path ...[]byte) ([]byte, error) {
	n, err := t.NodeAt(path...)
	if err != nil {
		return nil, err
	}
	if n.Kind != NodeItem {
		return nil, &errs.Corrupted{Kind: errs.CorruptedNotItem, Path: pathString(path)}
	}
	return n.Value, nil
}

// Has reports whether path resolves to anything at all, without
// distinguishing item from subtree.
func (t *Tx) Has(path ...[]byte) bool {
	_, err := t.NodeAt(path...)
	return err == nil
}

// Cursor opens a forward iterator over the subtree at path.
func (t *Tx) Cursor(path ...[]byte) (*Cursor, error) {
	n, err := t.NodeAt(path...)
	if err != nil {
		return nil, err
	}
	if n.Kind != NodeTree {
		return nil, &errs.Corrupted{Kind: errs.CorruptedType, Path: pathString(path)}
	}
	return &Cursor{n: n}, nil
}

// Cursor iterates a subtree's children in byte-lexicographic key order.
type Cursor struct {
	n *Node
}

// Ascend visits every (key, child) pair in order until fn returns false.
func (c *Cursor) Ascend(fn func(key []byte, child *Node) bool) {
	c.n.Children.Ascend(func(e Entry) bool {
		return fn(e.Key, e.Child)
	})
}

// Len returns the number of direct children.
func (c *Cursor) Len() int { return c.n.Len() }

// RootCommitment returns the 32-byte content hash of the currently
// committed root. Two stores that applied the same batch sequence from
// the same starting state always agree on this value.
func (s *Store) RootCommitment() [32]byte {
	return commitmentOf(s.root.Load())
}

func commitmentOf(n *Node) [32]byte {
	if n.Kind == NodeItem {
		return sha3.Sum256(n.Value)
	}
	h := sha3.New256()
	n.Children.Ascend(func(e Entry) bool {
		h.Write(e.Key)
		childHash := commitmentOf(e.Child)
		h.Write(childHash[:])
		return true
	})
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// setPath rebuilds the path from n down to the operation's key,
// copy-on-write, leaving every node not on the path untouched (and
// therefore shared with whatever snapshot n came from). mutate receives
// the existing child at the final key (nil if absent) and returns its
// replacement (nil to delete).
func setPath(n *Node, path [][]byte, mutate func(existing *Node) (*Node, error)) (*Node, error) {
	if len(path) == 0 {
		return mutate(n)
	}
	if n.Kind != NodeTree {
		return nil, &errs.Corrupted{Kind: errs.CorruptedType}
	}
	key := path[0]
	cloned := n.cloneShallow()
	existing, ok := cloned.get(key)

	if len(path) == 1 {
		var next *Node
		if ok {
			next = existing
		}
		replacement, err := mutate(next)
		if err != nil {
			return nil, err
		}
		if replacement == nil {
			cloned.remove(key)
		} else {
			cloned.set(key, replacement)
		}
		return cloned, nil
	}

	if !ok {
		return nil, &errs.NotInitialized{Path: pathString(path[:1])}
	}
	newChild, err := setPath(existing, path[1:], mutate)
	if err != nil {
		return nil, err
	}
	cloned.set(key, newChild)
	return cloned, nil
}
