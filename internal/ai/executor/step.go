package executor

import (
	"fmt"

	"github.com/dshills/draftpilot/internal/document"
)

// StepKind discriminates agent steps.
type StepKind uint8

const (
	// StepSelect highlights the target range without editing.
	StepSelect StepKind = iota

	// StepReplace substitutes content on an existing block.
	StepReplace

	// StepInsert adds a new block or appends inline content.
	StepInsert
)

// String returns a human-readable step kind.
func (k StepKind) String() string {
	switch k {
	case StepSelect:
		return "select"
	case StepReplace:
		return "replace"
	case StepInsert:
		return "insert"
	default:
		return "unknown"
	}
}

// Step is one atomic sub-edit of an operation. Steps are ephemeral:
// produced by decomposition, consumed immediately by Apply, never
// persisted.
type Step struct {
	Kind StepKind

	// Target is the block the step touches (select, replace, append).
	Target document.BlockID

	// Anchor positions a block insertion. Only for StepInsert with Block.
	Anchor document.Anchor

	// Block is a whole new block to insert.
	Block *document.Block

	// Content is replacement inline content for StepReplace, or a span
	// run to append for StepInsert on an existing block.
	Content document.InlineContent

	// Table, Props, BlockType carry the non-inline parts of a replace.
	Table     *document.TableContent
	Props     document.Props
	BlockType string

	// Cursor is the selection range the agent cursor shows during the
	// step, as byte offsets into the target block's text. Nil when the
	// step has no meaningful range.
	Cursor *CursorRange
}

// CursorRange is a highlighted range within a block for the agent cursor.
type CursorRange struct {
	Block document.BlockID
	Start int
	End   int
}

// StepError reports a step that failed to apply. Remaining steps of the
// operation were abandoned; Applied steps stay in the document.
type StepError struct {
	// Step is the step that failed.
	Step Step

	// Index is the step's position in the operation's sequence.
	Index int

	// Applied is how many steps of the operation had already applied.
	Applied int

	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("executor: step %d (%s) failed after %d applied: %v",
		e.Index, e.Step.Kind, e.Applied, e.Err)
}

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error { return e.Err }
