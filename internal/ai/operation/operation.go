package operation

import (
	"fmt"

	"github.com/dshills/draftpilot/internal/document"
)

// Tool names on the wire. Each operation variant is exposed to the
// model as one tool.
const (
	ToolAdd    = "add_blocks"
	ToolUpdate = "update_block"
	ToolDelete = "delete_blocks"
)

// Operation is a structured edit instruction targeting one or more
// blocks. The set of implementations is closed: Add, Update, Delete.
type Operation interface {
	// Name returns the operation's tool name on the wire.
	Name() string

	isOperation()
}

// Add inserts new blocks at a position reference.
type Add struct {
	// Anchor positions the new blocks.
	Anchor document.Anchor

	// Blocks are the new block subtrees, in insertion order.
	Blocks []*document.Block
}

// Name implements Operation.
func (*Add) Name() string { return ToolAdd }

func (*Add) isOperation() {}

// Update replaces a block's content, properties, or type.
type Update struct {
	// Target is the block to update.
	Target document.BlockID

	// Content is the replacement inline content. Nil keeps existing.
	Content document.InlineContent

	// Table is the replacement table content. Nil keeps existing.
	Table *document.TableContent

	// Props are replacement properties. Nil keeps existing.
	Props document.Props

	// BlockType is the replacement type tag. Empty keeps existing.
	BlockType string
}

// Name implements Operation.
func (*Update) Name() string { return ToolUpdate }

func (*Update) isOperation() {}

// Delete removes a set of blocks.
type Delete struct {
	// Targets are the blocks to remove.
	Targets []document.BlockID
}

// Name implements Operation.
func (*Delete) Name() string { return ToolDelete }

func (*Delete) isOperation() {}

// String returns a short description of an operation for diagnostics.
func String(op Operation) string {
	switch v := op.(type) {
	case *Add:
		return fmt.Sprintf("add %d block(s)", len(v.Blocks))
	case *Update:
		return fmt.Sprintf("update block %s", v.Target)
	case *Delete:
		return fmt.Sprintf("delete %d block(s)", len(v.Targets))
	default:
		return fmt.Sprintf("unknown operation %T", op)
	}
}
