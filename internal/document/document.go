package document

import (
	"fmt"
	"sync"
)

// RevisionID identifies a document revision. It advances monotonically
// with every applied transaction and never repeats within a document.
type RevisionID uint64

// Document is an ordered tree of blocks with revision tracking.
// All methods are thread-safe.
type Document struct {
	mu       sync.RWMutex
	roots    []*Block
	index    map[BlockID]*Block
	parents  map[BlockID]BlockID // zero value means top level
	revision RevisionID

	// agentWriting gates document-maintenance transactions while an
	// AI operation is being applied. See Apply.
	agentWriting bool
}

// New creates an empty document at revision zero.
func New() *Document {
	return &Document{
		index:   make(map[BlockID]*Block),
		parents: make(map[BlockID]BlockID),
	}
}

// FromBlocks creates a document holding the given top-level blocks.
// The blocks are deep-copied; the caller retains ownership of its tree.
func FromBlocks(blocks ...*Block) (*Document, error) {
	d := New()
	tx := Transaction{
		Label: "load",
		Edits: []Edit{{Kind: EditInsert, Anchor: Anchor{Placement: PlaceDocEnd}, Blocks: blocks}},
	}
	if _, err := d.Apply(tx); err != nil {
		return nil, err
	}
	return d, nil
}

// Revision returns the current revision ID.
func (d *Document) Revision() RevisionID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.revision
}

// Contains reports whether a block with the given ID exists.
func (d *Document) Contains(id BlockID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.index[id]
	return ok
}

// Block returns a deep copy of the block with the given ID.
func (d *Document) Block(id BlockID) (*Block, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.index[id]
	if !ok {
		return nil, false
	}
	return b.Clone(), true
}

// Parent returns the ID of a block's parent, or the zero ID for
// top-level blocks. The second result is false if the block is unknown.
func (d *Document) Parent(id BlockID) (BlockID, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if _, ok := d.index[id]; !ok {
		return "", false
	}
	return d.parents[id], true
}

// BlockCount returns the total number of blocks in the document.
func (d *Document) BlockCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.index)
}

// Blocks returns deep copies of the top-level blocks, in order.
func (d *Document) Blocks() []*Block {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Block, len(d.roots))
	for i, b := range d.roots {
		out[i] = b.Clone()
	}
	return out
}

// Walk visits every block in document order until fn returns false.
// The visited blocks are live; fn must not retain or mutate them.
func (d *Document) Walk(fn func(*Block) bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, b := range d.roots {
		if !b.walk(fn) {
			return
		}
	}
}

// SetAgentWriting marks the start or end of an AI write phase.
// While set, transactions with OriginMaintenance are filtered (dropped
// with ErrMaintenanceFiltered) so background structural fixups cannot
// interleave with agent steps.
func (d *Document) SetAgentWriting(writing bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.agentWriting = writing
}

// register indexes a block subtree under the given parent.
// Caller holds the write lock and has already validated ID uniqueness.
func (d *Document) register(b *Block, parent BlockID) {
	d.index[b.ID] = b
	d.parents[b.ID] = parent
	for _, child := range b.Children {
		d.register(child, b.ID)
	}
}

// unregister removes a block subtree from the indexes.
func (d *Document) unregister(b *Block) {
	delete(d.index, b.ID)
	delete(d.parents, b.ID)
	for _, child := range b.Children {
		d.unregister(child)
	}
}

// validateNew checks that a block subtree can be inserted: every ID is
// non-empty and not already present, and no ID repeats within the batch.
func (d *Document) validateNew(blocks []*Block, seen map[BlockID]struct{}) error {
	for _, b := range blocks {
		if b.ID.IsZero() {
			return ErrEmptyID
		}
		if _, exists := d.index[b.ID]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateID, b.ID)
		}
		if _, dup := seen[b.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateID, b.ID)
		}
		seen[b.ID] = struct{}{}
		if err := d.validateNew(b.Children, seen); err != nil {
			return err
		}
	}
	return nil
}

// siblingsOf returns the slice holding the given block's siblings and
// the block's index within it. Caller holds the lock.
func (d *Document) siblingsOf(id BlockID) (*[]*Block, int, error) {
	if _, ok := d.index[id]; !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	var siblings *[]*Block
	if parent := d.parents[id]; parent.IsZero() {
		siblings = &d.roots
	} else {
		siblings = &d.index[parent].Children
	}
	for i, b := range *siblings {
		if b.ID == id {
			return siblings, i, nil
		}
	}
	return nil, 0, fmt.Errorf("%w: %s", ErrBlockNotFound, id)
}
