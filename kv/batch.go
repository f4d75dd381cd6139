package kv

import (
	"github.com/dashpay/drive-feepool/errs"
)

type opKind int

const (
	opInsertItem opKind = iota
	opInsertTree
	opDelete
)

// Op is one store mutation inside a Batch: insert-item, insert-empty-
// tree, or delete. Path is the full path to the key, i.e. the parent
// subtree's path with the key appended as the last element.
type Op struct {
	path  [][]byte
	kind  opKind
	value []byte
}

// Batch is a growable, ordered sequence of store ops applied as a
// single atomic transaction. It supports two passes over the same ops:
// EstimateCost (no side effects, a byte-cost total) and Apply
// (transactional write against a Store).
type Batch struct {
	ops []Op
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

func clonePath(path [][]byte) [][]byte {
	out := make([][]byte, len(path))
	copy(out, path)
	return out
}

// InsertItem appends an op writing value at path (path's last element
// is the item's key within its parent subtree).
func (b *Batch) InsertItem(path [][]byte, value []byte) {
	v := make([]byte, len(value))
	copy(v, value)
	b.ops = append(b.ops, Op{path: clonePath(path), kind: opInsertItem, value: v})
}

// InsertTree appends an op creating an empty subtree at path, if one
// does not already exist there (idempotent).
func (b *Batch) InsertTree(path [][]byte) {
	b.ops = append(b.ops, Op{path: clonePath(path), kind: opInsertTree})
}

// Delete appends an op removing whatever is at path.
func (b *Batch) Delete(path [][]byte) {
	b.ops = append(b.ops, Op{path: clonePath(path), kind: opDelete})
}

// Len returns the number of queued ops.
func (b *Batch) Len() int { return len(b.ops) }

// EstimateCost sums the value length of every insert-item op plus one
// per insert-tree op (deletes cost nothing), without touching the
// store. This is the "cost estimation" pass named in spec.md §4.3:
// chain.Driver.BlockEnd runs it before committing and reports the total
// as BlockEndResponse.BatchWriteCost; no fees are debited from it.
func (b *Batch) EstimateCost() uint64 {
	var total uint64
	for _, op := range b.ops {
		switch op.kind {
		case opInsertItem:
			total += uint64(len(op.value))
		case opInsertTree:
			total += 1 // a bare marker cost for creating a subtree
		case opDelete:
			// deletes free space; no debit.
		}
	}
	return total
}

// applyOps folds b's queued ops onto root, copy-on-write, without
// touching any Store. Shared by Store.Apply (which commits the result)
// and PreviewTx (which hands the result back as a read-only Tx so a
// caller can read its own batch's pending writes before it commits).
func applyOps(root *Node, ops []Op) (*Node, error) {
	for _, op := range ops {
		var err error
		switch op.kind {
		case opInsertItem:
			value := op.value
			root, err = setPath(root, op.path, func(_ *Node) (*Node, error) {
				return newItemNode(value), nil
			})
		case opInsertTree:
			root, err = setPath(root, op.path, func(existing *Node) (*Node, error) {
				if existing != nil {
					return existing, nil
				}
				return newTreeNode(), nil
			})
		case opDelete:
			root, err = setPath(root, op.path, func(_ *Node) (*Node, error) {
				return nil, nil
			})
		}
		if err != nil {
			return nil, err
		}
	}
	return root, nil
}

// Apply runs every queued op against store as one atomic transaction:
// on any error the store's committed root is left completely unchanged.
// An empty batch is rejected with errs.BatchIsEmpty — the caller must
// detect the no-op case itself (spec.md §4.3).
func (s *Store) Apply(b *Batch) ([32]byte, error) {
	if b.Len() == 0 {
		return [32]byte{}, &errs.BatchIsEmpty{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	root, err := applyOps(s.root.Load(), b.ops)
	if err != nil {
		return [32]byte{}, err
	}

	s.root.Store(root)
	return commitmentOf(root), nil
}

// PreviewTx folds b's queued ops onto base and returns the result as a
// read-only Tx, without committing anything to a Store. A caller
// building up a single block's batch across several stages (e.g.
// chain.Driver.BlockEnd) uses this for read-your-writes: a later stage
// that needs to see an earlier stage's not-yet-committed write (within
// the same eventual Store.Apply) reads through the previewed Tx instead
// of the original pre-batch snapshot. An empty batch just returns base.
func PreviewTx(base *Tx, b *Batch) (*Tx, error) {
	if b.Len() == 0 {
		return base, nil
	}
	root, err := applyOps(base.root, b.ops)
	if err != nil {
		return nil, err
	}
	return &Tx{root: root}, nil
}
