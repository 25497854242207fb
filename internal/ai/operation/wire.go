package operation

import (
	"encoding/json"
	"fmt"

	"github.com/dshills/draftpilot/internal/document"
)

// Wire format for tool-call arguments. The model fills these shapes;
// DecodeArgs converts them into validated-ready operations.

// wireSpan mirrors document.InlineSpan on the wire.
type wireSpan struct {
	Text   string             `json:"text"`
	Styles *document.StyleSet `json:"styles,omitempty"`
	Href   string             `json:"href,omitempty"`
}

// wireBlock is the model-facing block shape. Either Text (plain
// shorthand) or Content (styled spans) carries the inline content.
type wireBlock struct {
	ID       string          `json:"id,omitempty"`
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	Content  []wireSpan      `json:"content,omitempty"`
	Props    document.Props  `json:"props,omitempty"`
	Rows     [][]wireSpanRow `json:"rows,omitempty"`
	Children []wireBlock     `json:"children,omitempty"`
}

type wireSpanRow []wireSpan

// wirePosition is the Add position reference.
type wirePosition struct {
	Anchor    string `json:"anchor,omitempty"`
	Placement string `json:"placement"`
}

type wireAdd struct {
	Position wirePosition `json:"position"`
	Blocks   []wireBlock  `json:"blocks"`
}

type wireUpdate struct {
	ID        string         `json:"id"`
	Text      *string        `json:"text,omitempty"`
	Content   []wireSpan     `json:"content,omitempty"`
	Props     document.Props `json:"props,omitempty"`
	BlockType string         `json:"blockType,omitempty"`
}

type wireDelete struct {
	IDs []string `json:"ids"`
}

// DecodeArgs converts a complete tool-call argument payload into an
// operation. The tool name selects the variant; unknown names fail with
// ErrUnknownTool. DecodeArgs assumes the payload is complete JSON; the
// stream parser gates on completeness before calling it.
func DecodeArgs(toolName string, raw []byte) (Operation, error) {
	switch toolName {
	case ToolAdd:
		var w wireAdd
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("operation: decode add: %w", err)
		}
		return decodeAdd(&w)
	case ToolUpdate:
		var w wireUpdate
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("operation: decode update: %w", err)
		}
		return decodeUpdate(&w)
	case ToolDelete:
		var w wireDelete
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("operation: decode delete: %w", err)
		}
		return decodeDelete(&w)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, toolName)
	}
}

func decodeAdd(w *wireAdd) (*Add, error) {
	anchor, err := decodePlacement(w.Position)
	if err != nil {
		return nil, err
	}
	blocks := make([]*document.Block, 0, len(w.Blocks))
	for i := range w.Blocks {
		blocks = append(blocks, decodeBlock(&w.Blocks[i]))
	}
	return &Add{Anchor: anchor, Blocks: blocks}, nil
}

func decodeUpdate(w *wireUpdate) (*Update, error) {
	op := &Update{
		Target:    document.BlockID(w.ID),
		Props:     w.Props,
		BlockType: w.BlockType,
	}
	switch {
	case len(w.Content) > 0:
		op.Content = decodeSpans(w.Content)
	case w.Text != nil:
		op.Content = document.PlainText(*w.Text)
		if op.Content == nil {
			// Explicit empty text clears the block.
			op.Content = document.InlineContent{}
		}
	}
	return op, nil
}

func decodeDelete(w *wireDelete) (*Delete, error) {
	ids := make([]document.BlockID, len(w.IDs))
	for i, id := range w.IDs {
		ids[i] = document.BlockID(id)
	}
	return &Delete{Targets: ids}, nil
}

func decodePlacement(p wirePosition) (document.Anchor, error) {
	var placement document.Placement
	switch p.Placement {
	case "before":
		placement = document.PlaceBefore
	case "after":
		placement = document.PlaceAfter
	case "first-child":
		placement = document.PlaceFirstChild
	case "doc-start":
		placement = document.PlaceDocStart
	case "doc-end":
		placement = document.PlaceDocEnd
	default:
		return document.Anchor{}, fmt.Errorf("%w: placement %q", ErrBadAnchor, p.Placement)
	}
	return document.Anchor{Block: document.BlockID(p.Anchor), Placement: placement}, nil
}

func decodeBlock(w *wireBlock) *document.Block {
	b := &document.Block{
		ID:    document.BlockID(w.ID),
		Type:  w.Type,
		Props: w.Props,
	}
	if b.ID.IsZero() {
		b.ID = document.NewBlockID()
	}
	switch {
	case len(w.Rows) > 0:
		rows := make([][]document.InlineContent, len(w.Rows))
		for i, row := range w.Rows {
			cells := make([]document.InlineContent, len(row))
			for j, cell := range row {
				cells[j] = decodeSpans(cell)
			}
			rows[i] = cells
		}
		b.Table = &document.TableContent{Rows: rows}
	case len(w.Content) > 0:
		b.Content = decodeSpans(w.Content)
	default:
		b.Content = document.PlainText(w.Text)
	}
	for i := range w.Children {
		b.Children = append(b.Children, decodeBlock(&w.Children[i]))
	}
	return b
}

func decodeSpans(spans []wireSpan) document.InlineContent {
	out := make(document.InlineContent, 0, len(spans))
	for _, s := range spans {
		span := document.InlineSpan{Text: s.Text, Href: s.Href}
		if s.Styles != nil {
			span.Styles = *s.Styles
		}
		out = append(out, span)
	}
	return out
}
