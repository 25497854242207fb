package document

import (
	"strings"

	"github.com/google/uuid"
)

// BlockID uniquely identifies a block within a document.
// IDs are stable across edits: updating a block's content or moving it
// never changes its ID.
type BlockID string

// NewBlockID generates a fresh block identity.
func NewBlockID() BlockID {
	return BlockID(uuid.NewString())
}

// String returns the ID as a string.
func (id BlockID) String() string { return string(id) }

// IsZero reports whether the ID is empty.
func (id BlockID) IsZero() bool { return id == "" }

// StyleSet holds the inline styles applied to a text span.
type StyleSet struct {
	Bold      bool `json:"bold,omitempty"`
	Italic    bool `json:"italic,omitempty"`
	Underline bool `json:"underline,omitempty"`
	Strike    bool `json:"strike,omitempty"`
	Code      bool `json:"code,omitempty"`
}

// IsPlain reports whether no styles are set.
func (s StyleSet) IsPlain() bool {
	return s == StyleSet{}
}

// InlineSpan is one run of styled text within a block.
// A span with a non-empty Href renders as a link.
type InlineSpan struct {
	Text   string   `json:"text"`
	Styles StyleSet `json:"styles,omitempty"`
	Href   string   `json:"href,omitempty"`
}

// InlineContent is the ordered sequence of spans making up a block's text.
type InlineContent []InlineSpan

// PlainText creates inline content holding a single unstyled span.
// Empty text yields nil content.
func PlainText(text string) InlineContent {
	if text == "" {
		return nil
	}
	return InlineContent{{Text: text}}
}

// Text returns the flattened text of the content.
func (c InlineContent) Text() string {
	if len(c) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, span := range c {
		sb.WriteString(span.Text)
	}
	return sb.String()
}

// Len returns the flattened byte length of the content.
func (c InlineContent) Len() int {
	n := 0
	for _, span := range c {
		n += len(span.Text)
	}
	return n
}

// Clone returns a deep copy of the content.
func (c InlineContent) Clone() InlineContent {
	if c == nil {
		return nil
	}
	out := make(InlineContent, len(c))
	copy(out, c)
	return out
}

// TableContent holds the cell grid of a table block.
// Each row has the same number of cells; each cell is inline content.
type TableContent struct {
	Rows [][]InlineContent `json:"rows"`
}

// Clone returns a deep copy of the table content.
func (t *TableContent) Clone() *TableContent {
	if t == nil {
		return nil
	}
	rows := make([][]InlineContent, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]InlineContent, len(row))
		for j, cell := range row {
			cells[j] = cell.Clone()
		}
		rows[i] = cells
	}
	return &TableContent{Rows: rows}
}

// Props is a block's property map (e.g. heading level, checked state).
type Props map[string]any

// Clone returns a shallow copy of the property map.
// Property values are treated as immutable scalars.
func (p Props) Clone() Props {
	if p == nil {
		return nil
	}
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Block is one node in the document tree.
type Block struct {
	// ID is the stable identity of the block.
	ID BlockID `json:"id"`

	// Type is the block's type tag ("paragraph", "heading", "table", ...).
	Type string `json:"type"`

	// Props holds type-specific properties.
	Props Props `json:"props,omitempty"`

	// Content is the block's inline content. Nil for table blocks.
	Content InlineContent `json:"content,omitempty"`

	// Table holds cell content for table blocks. Nil otherwise.
	Table *TableContent `json:"table,omitempty"`

	// Children are the block's nested child blocks, in order.
	Children []*Block `json:"children,omitempty"`
}

// NewBlock creates a block of the given type with a fresh ID.
func NewBlock(blockType string, content InlineContent) *Block {
	return &Block{
		ID:      NewBlockID(),
		Type:    blockType,
		Content: content,
	}
}

// Text returns the block's flattened inline text.
// Table blocks return the concatenation of their cells, tab- and
// newline-separated.
func (b *Block) Text() string {
	if b.Table != nil {
		var sb strings.Builder
		for i, row := range b.Table.Rows {
			if i > 0 {
				sb.WriteByte('\n')
			}
			for j, cell := range row {
				if j > 0 {
					sb.WriteByte('\t')
				}
				sb.WriteString(cell.Text())
			}
		}
		return sb.String()
	}
	return b.Content.Text()
}

// Clone returns a deep copy of the block and its subtree.
func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	out := &Block{
		ID:      b.ID,
		Type:    b.Type,
		Props:   b.Props.Clone(),
		Content: b.Content.Clone(),
		Table:   b.Table.Clone(),
	}
	if len(b.Children) > 0 {
		out.Children = make([]*Block, len(b.Children))
		for i, child := range b.Children {
			out.Children[i] = child.Clone()
		}
	}
	return out
}

// walk visits b and every descendant in document order.
// The visitor returns false to stop the walk.
func (b *Block) walk(fn func(*Block) bool) bool {
	if !fn(b) {
		return false
	}
	for _, child := range b.Children {
		if !child.walk(fn) {
			return false
		}
	}
	return true
}
