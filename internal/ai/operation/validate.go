package operation

import (
	"fmt"

	"github.com/dshills/draftpilot/internal/document"
)

// Validate checks an operation against the document view it was
// generated against. A nil return means the operation is structurally
// and referentially sound for that view; it says nothing about whether
// the live document still matches the view (the rebase context owns
// that check).
func Validate(op Operation, view *document.Snapshot) error {
	switch v := op.(type) {
	case *Add:
		return validateAdd(v, view)
	case *Update:
		return validateUpdate(v, view)
	case *Delete:
		return validateDelete(v, view)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownTool, op)
	}
}

func validateAdd(op *Add, view *document.Snapshot) error {
	if len(op.Blocks) == 0 {
		return fmt.Errorf("%w: add has no blocks", ErrEmptyOperation)
	}

	switch op.Anchor.Placement {
	case document.PlaceDocStart, document.PlaceDocEnd:
	case document.PlaceBefore, document.PlaceAfter, document.PlaceFirstChild:
		if op.Anchor.Block.IsZero() {
			return fmt.Errorf("%w: placement requires an anchor block", ErrBadAnchor)
		}
		if !view.Contains(op.Anchor.Block) {
			return fmt.Errorf("%w: anchor %s", ErrTargetNotFound, op.Anchor.Block)
		}
	default:
		return fmt.Errorf("%w: placement %d", ErrBadAnchor, op.Anchor.Placement)
	}

	seen := make(map[document.BlockID]struct{})
	return checkNewBlocks(op.Blocks, view, seen)
}

func checkNewBlocks(blocks []*document.Block, view *document.Snapshot, seen map[document.BlockID]struct{}) error {
	for _, b := range blocks {
		if b.ID.IsZero() {
			return fmt.Errorf("%w: block id", ErrMissingField)
		}
		if b.Type == "" {
			return fmt.Errorf("%w: block type for %s", ErrMissingField, b.ID)
		}
		if view.Contains(b.ID) {
			return fmt.Errorf("%w: %s", ErrDuplicateIdentity, b.ID)
		}
		if _, dup := seen[b.ID]; dup {
			return fmt.Errorf("%w: %s repeated in add", ErrDuplicateIdentity, b.ID)
		}
		seen[b.ID] = struct{}{}
		if err := checkNewBlocks(b.Children, view, seen); err != nil {
			return err
		}
	}
	return nil
}

func validateUpdate(op *Update, view *document.Snapshot) error {
	if op.Target.IsZero() {
		return fmt.Errorf("%w: update target", ErrMissingField)
	}
	if !view.Contains(op.Target) {
		return fmt.Errorf("%w: %s", ErrTargetNotFound, op.Target)
	}
	if op.Content == nil && op.Table == nil && op.Props == nil && op.BlockType == "" {
		return fmt.Errorf("%w: update changes nothing", ErrEmptyOperation)
	}
	return nil
}

func validateDelete(op *Delete, view *document.Snapshot) error {
	if len(op.Targets) == 0 {
		return fmt.Errorf("%w: delete has no targets", ErrEmptyOperation)
	}
	seen := make(map[document.BlockID]struct{})
	for _, id := range op.Targets {
		if id.IsZero() {
			return fmt.Errorf("%w: delete target id", ErrMissingField)
		}
		if !view.Contains(id) {
			return fmt.Errorf("%w: %s", ErrTargetNotFound, id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s repeated in delete", ErrDuplicateIdentity, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
