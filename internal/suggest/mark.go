package suggest

import (
	"github.com/google/uuid"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/dshills/draftpilot/internal/document"
)

// MarkID uniquely identifies a suggestion mark.
type MarkID string

// NewMarkID generates a fresh mark identity.
func NewMarkID() MarkID {
	return MarkID(uuid.NewString())
}

// MarkKind categorizes what the AI did to the marked block.
type MarkKind uint8

const (
	// MarkUpdate marks a block whose content was replaced. The live
	// block holds the proposed content; Original holds the prior state.
	MarkUpdate MarkKind = iota

	// MarkInsert marks a newly added block. Reject removes it.
	MarkInsert

	// MarkDelete marks a block proposed for removal. The block stays in
	// the live document until the suggestion is accepted.
	MarkDelete
)

// String returns a human-readable kind name.
func (k MarkKind) String() string {
	switch k {
	case MarkUpdate:
		return "update"
	case MarkInsert:
		return "insert"
	case MarkDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// SpanOp categorizes one display span of a marked block's text.
type SpanOp uint8

const (
	// SpanEqual is text present in both original and proposed content.
	SpanEqual SpanOp = iota

	// SpanInserted is text present only in the proposed content.
	SpanInserted

	// SpanDeleted is text present only in the original content.
	SpanDeleted
)

// DiffSpan is one run of text in the original-vs-proposed diff,
// used by review UIs to highlight what the suggestion changes.
type DiffSpan struct {
	Op   SpanOp
	Text string
}

// Mark is a pending suggestion on one block.
type Mark struct {
	// ID identifies the mark.
	ID MarkID

	// Block is the marked block's identity in the live document.
	Block document.BlockID

	// Kind is what the suggestion does to the block.
	Kind MarkKind

	// Original is the block's state before the AI edit.
	// Nil for MarkInsert.
	Original *document.Block

	// Spans is the original-vs-proposed text diff for display.
	// Nil for kinds where a diff is meaningless.
	Spans []DiffSpan
}

// diffSpans computes display spans between original and proposed text.
func diffSpans(original, proposed string) []DiffSpan {
	if original == proposed {
		return nil
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(original, proposed, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	spans := make([]DiffSpan, 0, len(diffs))
	for _, d := range diffs {
		var op SpanOp
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			op = SpanEqual
		case diffmatchpatch.DiffInsert:
			op = SpanInserted
		case diffmatchpatch.DiffDelete:
			op = SpanDeleted
		}
		spans = append(spans, DiffSpan{Op: op, Text: d.Text})
	}
	return spans
}

// NewUpdateMark creates a mark for a block whose content was replaced.
// original is the block's pre-edit state; proposedText is the flattened
// text now live in the document.
func NewUpdateMark(original *document.Block, proposedText string) *Mark {
	return &Mark{
		ID:       NewMarkID(),
		Block:    original.ID,
		Kind:     MarkUpdate,
		Original: original.Clone(),
		Spans:    diffSpans(original.Text(), proposedText),
	}
}

// NewInsertMark creates a mark for a newly inserted block.
func NewInsertMark(id document.BlockID, proposedText string) *Mark {
	return &Mark{
		ID:    NewMarkID(),
		Block: id,
		Kind:  MarkInsert,
		Spans: diffSpans("", proposedText),
	}
}

// NewDeleteMark creates a mark for a block proposed for removal.
func NewDeleteMark(original *document.Block) *Mark {
	return &Mark{
		ID:       NewMarkID(),
		Block:    original.ID,
		Kind:     MarkDelete,
		Original: original.Clone(),
		Spans:    diffSpans(original.Text(), ""),
	}
}
