package document

import (
	"errors"
	"fmt"
)

// ErrMaintenanceFiltered indicates a maintenance transaction was dropped
// because an AI write phase is active.
var ErrMaintenanceFiltered = errors.New("document: maintenance transaction filtered during agent write")

// Origin identifies who authored a transaction. History treats origins
// differently: agent steps are excluded from user-facing undo, and
// maintenance transactions are filtered during agent writes.
type Origin uint8

const (
	// OriginUser is a transaction authored by direct user editing.
	OriginUser Origin = iota

	// OriginAgent is a micro-edit applied by the AI step executor.
	OriginAgent

	// OriginMaintenance is a background structural fixup.
	OriginMaintenance
)

// String returns a human-readable origin name.
func (o Origin) String() string {
	switch o {
	case OriginUser:
		return "user"
	case OriginAgent:
		return "agent"
	case OriginMaintenance:
		return "maintenance"
	default:
		return "unknown"
	}
}

// Placement specifies where an Anchor positions inserted blocks.
type Placement uint8

const (
	// PlaceBefore inserts immediately before the anchor block.
	PlaceBefore Placement = iota

	// PlaceAfter inserts immediately after the anchor block.
	PlaceAfter

	// PlaceFirstChild inserts as the anchor block's first child.
	PlaceFirstChild

	// PlaceDocStart inserts at the start of the top level.
	PlaceDocStart

	// PlaceDocEnd inserts at the end of the top level.
	PlaceDocEnd
)

// Anchor is a position reference for block insertion.
// Block is required for PlaceBefore, PlaceAfter, and PlaceFirstChild,
// and ignored for the document-level placements.
type Anchor struct {
	Block     BlockID
	Placement Placement
}

// EditKind discriminates the edit variants.
type EditKind uint8

const (
	// EditInsert inserts new block subtrees at an anchor.
	EditInsert EditKind = iota

	// EditReplace replaces a block's content, table, props, or type.
	EditReplace

	// EditRemove removes block subtrees.
	EditRemove
)

// Edit is a single block-level edit. Kind selects the variant; only the
// fields belonging to that variant are consulted.
type Edit struct {
	Kind EditKind

	// EditInsert
	Anchor Anchor
	Blocks []*Block

	// EditReplace. Nil fields keep the block's existing value;
	// ReplaceType is empty to keep the existing type.
	Target      BlockID
	Content     InlineContent
	Table       *TableContent
	Props       Props
	ReplaceType string

	// ReplaceAll makes a replace overwrite every field, treating nil
	// Content, Table, and Props as "clear" instead of "keep". Inverse
	// edits use it to restore blocks whose fields were originally unset.
	ReplaceAll bool

	// EditRemove
	Targets []BlockID
}

// Transaction is an atomic batch of edits applied as one revision step.
type Transaction struct {
	// Label names the transaction for history display.
	Label string

	// Origin identifies the transaction's author.
	Origin Origin

	// Edits are applied in order. If any edit fails, none are kept.
	Edits []Edit
}

// TxResult describes an applied transaction.
type TxResult struct {
	// Revision is the document revision after the transaction.
	Revision RevisionID

	// Inverse undoes the transaction when applied to the new revision.
	Inverse Transaction

	// Changed lists the IDs of blocks inserted, replaced, or removed.
	Changed []BlockID
}

// Apply runs a transaction atomically. On any edit failure the document
// is restored to its pre-transaction state and the error is returned.
// Maintenance transactions are dropped while an AI write is active.
func (d *Document) Apply(tx Transaction) (TxResult, error) {
	if len(tx.Edits) == 0 {
		return TxResult{}, ErrEmptyTransaction
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.agentWriting && tx.Origin == OriginMaintenance {
		return TxResult{}, ErrMaintenanceFiltered
	}

	var (
		inverse []Edit
		changed []BlockID
	)
	for i, e := range tx.Edits {
		inv, ids, err := d.applyEdit(e)
		if err != nil {
			// Roll back the edits already applied, newest first.
			for j := len(inverse) - 1; j >= 0; j-- {
				if _, _, rbErr := d.applyEdit(inverse[j]); rbErr != nil {
					panic(fmt.Sprintf("document: rollback failed: %v", rbErr))
				}
			}
			return TxResult{}, fmt.Errorf("edit %d: %w", i, err)
		}
		inverse = append(inverse, inv...)
		changed = append(changed, ids...)
	}

	// Inverse edits undo in reverse application order.
	for i, j := 0, len(inverse)-1; i < j; i, j = i+1, j-1 {
		inverse[i], inverse[j] = inverse[j], inverse[i]
	}

	d.revision++
	return TxResult{
		Revision: d.revision,
		Inverse: Transaction{
			Label:  tx.Label,
			Origin: tx.Origin,
			Edits:  inverse,
		},
		Changed: changed,
	}, nil
}

// applyEdit applies one edit and returns the inverse edits that undo it
// (a multi-block removal inverts to one insert per removed block).
// Caller holds the write lock. The switch is closed: an unhandled kind
// is a programming error, not an extensible case.
func (d *Document) applyEdit(e Edit) ([]Edit, []BlockID, error) {
	switch e.Kind {
	case EditInsert:
		return d.applyInsert(e)
	case EditReplace:
		return d.applyReplace(e)
	case EditRemove:
		return d.applyRemove(e)
	default:
		return nil, nil, fmt.Errorf("document: unknown edit kind %d", e.Kind)
	}
}

func (d *Document) applyInsert(e Edit) ([]Edit, []BlockID, error) {
	if len(e.Blocks) == 0 {
		return nil, nil, ErrEmptyTransaction
	}
	if err := d.validateNew(e.Blocks, make(map[BlockID]struct{})); err != nil {
		return nil, nil, err
	}

	blocks := make([]*Block, len(e.Blocks))
	ids := make([]BlockID, len(e.Blocks))
	for i, b := range e.Blocks {
		blocks[i] = b.Clone()
		ids[i] = b.ID
	}

	var (
		siblings *[]*Block
		at       int
		parent   BlockID
	)
	switch e.Anchor.Placement {
	case PlaceDocStart:
		siblings, at = &d.roots, 0
	case PlaceDocEnd:
		siblings, at = &d.roots, len(d.roots)
	case PlaceFirstChild:
		anchor, ok := d.index[e.Anchor.Block]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrInvalidAnchor, e.Anchor.Block)
		}
		siblings, at, parent = &anchor.Children, 0, anchor.ID
	case PlaceBefore, PlaceAfter:
		sibs, idx, err := d.siblingsOf(e.Anchor.Block)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s", ErrInvalidAnchor, e.Anchor.Block)
		}
		siblings, at, parent = sibs, idx, d.parents[e.Anchor.Block]
		if e.Anchor.Placement == PlaceAfter {
			at++
		}
	default:
		return nil, nil, fmt.Errorf("%w: unknown placement %d", ErrInvalidAnchor, e.Anchor.Placement)
	}

	*siblings = append((*siblings)[:at], append(append([]*Block{}, blocks...), (*siblings)[at:]...)...)
	for _, b := range blocks {
		d.register(b, parent)
	}

	return []Edit{{Kind: EditRemove, Targets: ids}}, ids, nil
}

func (d *Document) applyReplace(e Edit) ([]Edit, []BlockID, error) {
	b, ok := d.index[e.Target]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrBlockNotFound, e.Target)
	}

	inv := Edit{
		Kind:        EditReplace,
		Target:      e.Target,
		Content:     b.Content,
		Table:       b.Table,
		Props:       b.Props,
		ReplaceType: b.Type,
		ReplaceAll:  true,
	}

	if e.ReplaceAll {
		b.Content = e.Content.Clone()
		b.Table = e.Table.Clone()
		b.Props = e.Props.Clone()
		b.Type = e.ReplaceType
		return []Edit{inv}, []BlockID{e.Target}, nil
	}

	if e.Content != nil {
		b.Content = e.Content.Clone()
	}
	if e.Table != nil {
		b.Table = e.Table.Clone()
	}
	if e.Props != nil {
		b.Props = e.Props.Clone()
	}
	if e.ReplaceType != "" {
		b.Type = e.ReplaceType
	}

	return []Edit{inv}, []BlockID{e.Target}, nil
}

func (d *Document) applyRemove(e Edit) ([]Edit, []BlockID, error) {
	if len(e.Targets) == 0 {
		return nil, nil, ErrEmptyTransaction
	}

	// Resolve every target before touching the tree so a bad target
	// cannot leave the edit half applied.
	targeted := make(map[BlockID]struct{}, len(e.Targets))
	for _, id := range e.Targets {
		if _, ok := d.index[id]; !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrBlockNotFound, id)
		}
		targeted[id] = struct{}{}
	}

	// Build one inverse insert per removed block so each is restored at
	// its original position. Inverses run in reverse order, so later
	// removals are restored first. Targets inside an also-targeted
	// subtree are skipped: removing the ancestor already removes them,
	// and a separate removal would fail once the parent is gone.
	var (
		invEdits []Edit
		removed  []BlockID
		seen     = make(map[BlockID]struct{}, len(e.Targets))
	)
	for _, id := range e.Targets {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if d.hasTargetedAncestor(id, targeted) {
			continue
		}
		siblings, idx, err := d.siblingsOf(id)
		if err != nil {
			return nil, nil, err
		}
		b := (*siblings)[idx]

		anchor := Anchor{Placement: PlaceDocStart}
		switch {
		case idx > 0:
			anchor = Anchor{Block: (*siblings)[idx-1].ID, Placement: PlaceAfter}
		case idx+1 < len(*siblings):
			anchor = Anchor{Block: (*siblings)[idx+1].ID, Placement: PlaceBefore}
		case !d.parents[id].IsZero():
			anchor = Anchor{Block: d.parents[id], Placement: PlaceFirstChild}
		}

		*siblings = append((*siblings)[:idx], (*siblings)[idx+1:]...)
		d.unregister(b)

		invEdits = append(invEdits, Edit{Kind: EditInsert, Anchor: anchor, Blocks: []*Block{b}})
		removed = append(removed, id)
	}

	// The caller reverses the collected inverse list, which restores
	// blocks in reverse removal order as required.
	return invEdits, removed, nil
}

// hasTargetedAncestor reports whether any ancestor of id is in the
// targeted set. Caller holds the write lock.
func (d *Document) hasTargetedAncestor(id BlockID, targeted map[BlockID]struct{}) bool {
	for p := d.parents[id]; !p.IsZero(); p = d.parents[p] {
		if _, ok := targeted[p]; ok {
			return true
		}
	}
	return false
}
