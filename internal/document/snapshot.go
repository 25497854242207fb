package document

// Snapshot is an immutable copy of a document at a single revision.
// Snapshots are safe for concurrent use and never change after creation.
type Snapshot struct {
	roots    []*Block
	index    map[BlockID]*Block
	parents  map[BlockID]BlockID
	revision RevisionID
}

// Snapshot captures the document's current state.
func (d *Document) Snapshot() *Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s := &Snapshot{
		roots:    make([]*Block, len(d.roots)),
		index:    make(map[BlockID]*Block, len(d.index)),
		parents:  make(map[BlockID]BlockID, len(d.parents)),
		revision: d.revision,
	}
	for i, b := range d.roots {
		s.roots[i] = b.Clone()
	}
	for _, root := range s.roots {
		s.reindex(root, "")
	}
	return s
}

// SnapshotOf builds a snapshot directly from blocks, outside any live
// document. Used for projected views.
func SnapshotOf(revision RevisionID, blocks []*Block) *Snapshot {
	s := &Snapshot{
		roots:    make([]*Block, len(blocks)),
		index:    make(map[BlockID]*Block),
		parents:  make(map[BlockID]BlockID),
		revision: revision,
	}
	for i, b := range blocks {
		s.roots[i] = b.Clone()
	}
	for _, root := range s.roots {
		s.reindex(root, "")
	}
	return s
}

func (s *Snapshot) reindex(b *Block, parent BlockID) {
	s.index[b.ID] = b
	s.parents[b.ID] = parent
	for _, child := range b.Children {
		s.reindex(child, b.ID)
	}
}

// Revision returns the revision the snapshot was taken at.
func (s *Snapshot) Revision() RevisionID { return s.revision }

// Contains reports whether the snapshot holds a block with the given ID.
func (s *Snapshot) Contains(id BlockID) bool {
	_, ok := s.index[id]
	return ok
}

// Block returns the snapshot's block with the given ID.
// The returned block is shared snapshot state; callers must not mutate it.
func (s *Snapshot) Block(id BlockID) (*Block, bool) {
	b, ok := s.index[id]
	return b, ok
}

// Parent returns the ID of a block's parent within the snapshot.
func (s *Snapshot) Parent(id BlockID) (BlockID, bool) {
	if _, ok := s.index[id]; !ok {
		return "", false
	}
	return s.parents[id], true
}

// Blocks returns the snapshot's top-level blocks.
// The returned slice and blocks are shared snapshot state.
func (s *Snapshot) Blocks() []*Block { return s.roots }

// BlockCount returns the total number of blocks in the snapshot.
func (s *Snapshot) BlockCount() int { return len(s.index) }

// Walk visits every block in document order until fn returns false.
func (s *Snapshot) Walk(fn func(*Block) bool) {
	for _, b := range s.roots {
		if !b.walk(fn) {
			return
		}
	}
}
