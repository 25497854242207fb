package rebase

import (
	"errors"
	"fmt"

	"github.com/dshills/draftpilot/internal/document"
	"github.com/dshills/draftpilot/internal/suggest"
)

// Errors returned by rebase operations.
var (
	// ErrStaleRebase indicates the live document changed after the
	// projection was taken. The operation must not be applied.
	ErrStaleRebase = errors.New("rebase: live document diverged from projection basis")

	// ErrUnknownBlock indicates a position references a block absent
	// from both the projection and the live document.
	ErrUnknownBlock = errors.New("rebase: block not found")

	// ErrInvalidPosition indicates an offset outside the block's text.
	ErrInvalidPosition = errors.New("rebase: position out of range")
)

// Position is a location in a document view: a block plus a byte offset
// into the block's flattened text.
type Position struct {
	Block  document.BlockID
	Offset int
}

// Context pairs a projected document snapshot with the mapping needed
// to translate projected positions back to the live document.
// A context is created per operation and discarded after use.
type Context struct {
	doc       *document.Document
	projected *document.Snapshot
	basis     document.RevisionID

	// deleteMarked holds blocks omitted from the projection because a
	// pending suggestion proposes their removal.
	deleteMarked map[document.BlockID]struct{}
}

// Project builds a rebase context for the document's current revision.
// Pending suggestions are provisionally resolved in the projection:
// update and insert marks already carry their proposed content in the
// live tree, and delete-marked blocks are omitted.
func Project(doc *document.Document, marks *suggest.Set) *Context {
	ctx := &Context{
		doc:          doc,
		deleteMarked: make(map[document.BlockID]struct{}),
	}

	if marks != nil {
		for _, m := range marks.Pending() {
			if m.Kind == suggest.MarkDelete {
				ctx.deleteMarked[m.Block] = struct{}{}
			}
		}
	}

	live := doc.Snapshot()
	ctx.basis = live.Revision()

	if len(ctx.deleteMarked) == 0 {
		// No pending removals: the projection is the live view and the
		// mapping is the identity function.
		ctx.projected = live
		return ctx
	}

	ctx.projected = document.SnapshotOf(live.Revision(), pruneBlocks(live.Blocks(), ctx.deleteMarked))
	return ctx
}

// pruneBlocks returns the block forest with marked subtree roots removed.
func pruneBlocks(blocks []*document.Block, omit map[document.BlockID]struct{}) []*document.Block {
	out := make([]*document.Block, 0, len(blocks))
	for _, b := range blocks {
		if _, skip := omit[b.ID]; skip {
			continue
		}
		clone := b.Clone()
		clone.Children = pruneBlocks(clone.Children, omit)
		out = append(out, clone)
	}
	return out
}

// Projected returns the projected snapshot the model authors against.
func (c *Context) Projected() *document.Snapshot { return c.projected }

// Basis returns the live revision the projection was taken at.
func (c *Context) Basis() document.RevisionID { return c.basis }

// Valid reports whether the live document still matches the basis.
func (c *Context) Valid() bool {
	return c.doc.Revision() == c.basis
}

// check fails closed if the live document has moved past the basis.
func (c *Context) check() error {
	if rev := c.doc.Revision(); rev != c.basis {
		return fmt.Errorf("%w: basis %d, live %d", ErrStaleRebase, c.basis, rev)
	}
	return nil
}

// MapBlock translates a projected block reference to the live document.
// With a valid context this is the identity on every projected block;
// the call exists to enforce staleness and existence checks at the
// moment of application.
func (c *Context) MapBlock(id document.BlockID) (document.BlockID, error) {
	if err := c.check(); err != nil {
		return "", err
	}
	if !c.projected.Contains(id) {
		return "", fmt.Errorf("%w: %s not in projection", ErrUnknownBlock, id)
	}
	if !c.doc.Contains(id) {
		// Projected but gone from live: only possible if the live tree
		// changed without a revision bump, which is a bug upstream.
		return "", fmt.Errorf("%w: %s missing from live document", ErrStaleRebase, id)
	}
	return id, nil
}

// MapPosition translates a projected position to a live position.
func (c *Context) MapPosition(pos Position) (Position, error) {
	id, err := c.MapBlock(pos.Block)
	if err != nil {
		return Position{}, err
	}
	b, ok := c.doc.Block(id)
	if !ok {
		return Position{}, fmt.Errorf("%w: %s", ErrUnknownBlock, id)
	}
	if pos.Offset < 0 || pos.Offset > len(b.Text()) {
		return Position{}, fmt.Errorf("%w: offset %d in block %s (len %d)",
			ErrInvalidPosition, pos.Offset, id, len(b.Text()))
	}
	return Position{Block: id, Offset: pos.Offset}, nil
}

// MapAnchor translates a projected insertion anchor to the live
// document. Anchors naming a delete-marked block are redirected past
// the marked block so new content never lands inside a pending removal.
func (c *Context) MapAnchor(a document.Anchor) (document.Anchor, error) {
	if err := c.check(); err != nil {
		return document.Anchor{}, err
	}

	switch a.Placement {
	case document.PlaceDocStart, document.PlaceDocEnd:
		return a, nil
	}

	if a.Block.IsZero() {
		return document.Anchor{}, fmt.Errorf("%w: anchor has no block", ErrUnknownBlock)
	}
	if !c.projected.Contains(a.Block) {
		return document.Anchor{}, fmt.Errorf("%w: anchor %s not in projection", ErrUnknownBlock, a.Block)
	}
	if !c.doc.Contains(a.Block) {
		return document.Anchor{}, fmt.Errorf("%w: anchor %s missing from live document", ErrStaleRebase, a.Block)
	}
	return a, nil
}

// Invalidate marks the context as unusable regardless of revision.
// Used when the caller knows the projection basis no longer holds.
func (c *Context) Invalidate() {
	c.basis = ^document.RevisionID(0)
}
