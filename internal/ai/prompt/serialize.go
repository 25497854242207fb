package prompt

import (
	"fmt"
	"html"
	"strings"

	"github.com/tidwall/sjson"

	"github.com/dshills/draftpilot/internal/document"
)

// Format selects the document serialization handed to the model.
type Format uint8

const (
	// FormatMarkdown serializes blocks as markdown with ID comments.
	FormatMarkdown Format = iota

	// FormatJSON serializes the block tree as a JSON array.
	FormatJSON

	// FormatHTML serializes blocks as HTML with id attributes.
	FormatHTML
)

// String returns the format's config name.
func (f Format) String() string {
	switch f {
	case FormatMarkdown:
		return "markdown"
	case FormatJSON:
		return "json"
	case FormatHTML:
		return "html"
	default:
		return "unknown"
	}
}

// ParseFormat converts a config string into a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "markdown", "":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "html":
		return FormatHTML, nil
	default:
		return 0, fmt.Errorf("prompt: unknown document format %q", s)
	}
}

// SerializeDocument renders a document view in the given format.
func SerializeDocument(view *document.Snapshot, format Format) (string, error) {
	switch format {
	case FormatMarkdown:
		return serializeMarkdown(view), nil
	case FormatJSON:
		return serializeJSON(view)
	case FormatHTML:
		return serializeHTML(view), nil
	default:
		return "", fmt.Errorf("prompt: unknown format %d", format)
	}
}

func serializeMarkdown(view *document.Snapshot) string {
	var sb strings.Builder
	var walk func(blocks []*document.Block, depth int)
	walk = func(blocks []*document.Block, depth int) {
		for _, b := range blocks {
			indent := strings.Repeat("  ", depth)
			sb.WriteString(fmt.Sprintf("%s<!-- id:%s -->\n", indent, b.ID))
			switch b.Type {
			case "heading":
				level := 1
				if l, ok := b.Props["level"].(int); ok && l >= 1 && l <= 6 {
					level = l
				} else if l, ok := b.Props["level"].(float64); ok && l >= 1 && l <= 6 {
					level = int(l)
				}
				sb.WriteString(indent + strings.Repeat("#", level) + " " + b.Text() + "\n")
			case "bulletListItem":
				sb.WriteString(indent + "- " + b.Text() + "\n")
			case "numberedListItem":
				sb.WriteString(indent + "1. " + b.Text() + "\n")
			case "codeBlock":
				sb.WriteString(indent + "```\n" + b.Text() + "\n" + indent + "```\n")
			case "table":
				sb.WriteString(indent + markdownTable(b) + "\n")
			default:
				sb.WriteString(indent + b.Text() + "\n")
			}
			sb.WriteByte('\n')
			walk(b.Children, depth+1)
		}
	}
	walk(view.Blocks(), 0)
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func markdownTable(b *document.Block) string {
	if b.Table == nil || len(b.Table.Rows) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, row := range b.Table.Rows {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = cell.Text()
		}
		sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
		if i == 0 {
			seps := make([]string, len(row))
			for j := range seps {
				seps[j] = "---"
			}
			sb.WriteString("| " + strings.Join(seps, " | ") + " |\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// serializeJSON builds the block array incrementally with sjson so the
// output field order is stable regardless of map iteration.
func serializeJSON(view *document.Snapshot) (string, error) {
	out := "[]"
	var err error
	for i, b := range view.Blocks() {
		out, err = appendBlockJSON(out, fmt.Sprintf("%d", i), b)
		if err != nil {
			return "", err
		}
	}
	return out, nil
}

func appendBlockJSON(doc, path string, b *document.Block) (string, error) {
	var err error
	if doc, err = sjson.Set(doc, path+".id", string(b.ID)); err != nil {
		return "", fmt.Errorf("prompt: serialize block %s: %w", b.ID, err)
	}
	if doc, err = sjson.Set(doc, path+".type", b.Type); err != nil {
		return "", fmt.Errorf("prompt: serialize block %s: %w", b.ID, err)
	}
	if len(b.Props) > 0 {
		if doc, err = sjson.Set(doc, path+".props", map[string]any(b.Props)); err != nil {
			return "", fmt.Errorf("prompt: serialize block %s: %w", b.ID, err)
		}
	}
	if b.Table != nil {
		for i, row := range b.Table.Rows {
			for j, cell := range row {
				cellPath := fmt.Sprintf("%s.rows.%d.%d", path, i, j)
				if doc, err = sjson.Set(doc, cellPath, cell.Text()); err != nil {
					return "", fmt.Errorf("prompt: serialize table %s: %w", b.ID, err)
				}
			}
		}
	} else {
		if doc, err = sjson.Set(doc, path+".text", b.Text()); err != nil {
			return "", fmt.Errorf("prompt: serialize block %s: %w", b.ID, err)
		}
	}
	for i, child := range b.Children {
		if doc, err = appendBlockJSON(doc, fmt.Sprintf("%s.children.%d", path, i), child); err != nil {
			return "", err
		}
	}
	return doc, nil
}

func serializeHTML(view *document.Snapshot) string {
	var sb strings.Builder
	var walk func(blocks []*document.Block)
	walk = func(blocks []*document.Block) {
		for _, b := range blocks {
			tag := "p"
			switch b.Type {
			case "heading":
				level := 1
				if l, ok := b.Props["level"].(int); ok && l >= 1 && l <= 6 {
					level = l
				} else if l, ok := b.Props["level"].(float64); ok && l >= 1 && l <= 6 {
					level = int(l)
				}
				tag = fmt.Sprintf("h%d", level)
			case "bulletListItem", "numberedListItem":
				tag = "li"
			case "codeBlock":
				tag = "pre"
			case "table":
				sb.WriteString(htmlTable(b))
				walk(b.Children)
				continue
			}
			sb.WriteString(fmt.Sprintf("<%s id=%q>%s</%s>\n", tag, b.ID, htmlInline(b.Content), tag))
			walk(b.Children)
		}
	}
	walk(view.Blocks())
	return sb.String()
}

func htmlInline(content document.InlineContent) string {
	var sb strings.Builder
	for _, span := range content {
		text := html.EscapeString(span.Text)
		if span.Styles.Bold {
			text = "<strong>" + text + "</strong>"
		}
		if span.Styles.Italic {
			text = "<em>" + text + "</em>"
		}
		if span.Styles.Code {
			text = "<code>" + text + "</code>"
		}
		if span.Href != "" {
			text = fmt.Sprintf("<a href=%q>%s</a>", span.Href, text)
		}
		sb.WriteString(text)
	}
	return sb.String()
}

func htmlTable(b *document.Block) string {
	if b.Table == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<table id=%q>\n", b.ID))
	for _, row := range b.Table.Rows {
		sb.WriteString("<tr>")
		for _, cell := range row {
			sb.WriteString("<td>" + htmlInline(cell) + "</td>")
		}
		sb.WriteString("</tr>\n")
	}
	sb.WriteString("</table>\n")
	return sb.String()
}
