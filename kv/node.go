package kv

import (
	"bytes"

	"github.com/google/btree"
)

// NodeKind distinguishes a leaf item from a nested subtree, mirroring
// the two node kinds a real authenticated KV store exposes.
type NodeKind uint8

const (
	NodeItem NodeKind = iota
	NodeTree
)

// Entry is one (key, child) pair inside a subtree, ordered by raw key
// bytes. Proposer iteration relies on this byte-lexicographic order —
// it is consensus-critical and must never change.
type Entry struct {
	Key   []byte
	Child *Node
}

func lessEntry(a, b Entry) bool {
	return bytes.Compare(a.Key, b.Key) < 0
}

// Node is either an item (opaque value bytes) or a subtree (an ordered
// set of Entry). Nodes are treated as immutable once built: mutation
// always produces a new Node via cloneShallow, giving transactions
// copy-on-write snapshot semantics for free.
type Node struct {
	Kind     NodeKind
	Value    []byte
	Children *btree.BTreeG[Entry]
}

func newItemNode(value []byte) *Node {
	v := make([]byte, len(value))
	copy(v, value)
	return &Node{Kind: NodeItem, Value: v}
}

func newTreeNode() *Node {
	return &Node{Kind: NodeTree, Children: btree.NewG(32, lessEntry)}
}

// cloneShallow returns a new Node sharing no mutable state with n: for
// a tree node this is a google/btree Clone() (an O(1) copy-on-write
// snapshot of the index), for an item node it's a copy of the value
// bytes.
func (n *Node) cloneShallow() *Node {
	if n.Kind == NodeTree {
		return &Node{Kind: NodeTree, Children: n.Children.Clone()}
	}
	return newItemNode(n.Value)
}

func (n *Node) get(key []byte) (*Node, bool) {
	e, ok := n.Children.Get(Entry{Key: key})
	if !ok {
		return nil, false
	}
	return e.Child, true
}

func (n *Node) set(key []byte, child *Node) {
	n.Children.ReplaceOrInsert(Entry{Key: key, Child: child})
}

func (n *Node) remove(key []byte) {
	n.Children.Delete(Entry{Key: key})
}

func (n *Node) Len() int {
	if n.Kind != NodeTree {
		return 0
	}
	return n.Children.Len()
}
