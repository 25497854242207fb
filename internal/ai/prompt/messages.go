package prompt

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/draftpilot/internal/document"
)

// Role identifies a message author.
type Role string

// Message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in the conversation sent to the model.
type Message struct {
	Role    Role
	Content string
}

// Templates holds the overridable prompt text. Placeholders: {document}
// is the serialized document, {format} the serialization format name,
// {prompt} the user request, {selection} the selected block IDs.
type Templates struct {
	// System frames the assistant's role and the operation tools.
	System string `yaml:"system"`

	// Request wraps the user's edit request.
	Request string `yaml:"request"`

	// Correction re-asks the model after a failed operation.
	Correction string `yaml:"correction"`
}

// DefaultTemplates returns the built-in prompt templates.
func DefaultTemplates() Templates {
	return Templates{
		System: "You are a document editing assistant. The current document, in {format} form, " +
			"is below. Every block carries a stable id; reference blocks only by those ids. " +
			"Apply the user's request by calling the provided tools. Emit one tool call per " +
			"logical edit and nothing else.\n\n{document}",
		Request: "{prompt}\n\nSelected blocks: {selection}",
		Correction: "The operation {failed} could not be applied: {error}. " +
			"Re-issue a corrected tool call for that edit only.",
	}
}

// LoadTemplates parses a YAML template overlay. Empty fields keep the
// built-in defaults.
func LoadTemplates(data []byte) (Templates, error) {
	t := DefaultTemplates()
	var overlay Templates
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return Templates{}, fmt.Errorf("prompt: parse templates: %w", err)
	}
	if overlay.System != "" {
		t.System = overlay.System
	}
	if overlay.Request != "" {
		t.Request = overlay.Request
	}
	if overlay.Correction != "" {
		t.Correction = overlay.Correction
	}
	return t, nil
}

// Formatter assembles model messages from document views and requests.
type Formatter struct {
	format    Format
	templates Templates
}

// NewFormatter creates a formatter for the given serialization format.
func NewFormatter(format Format, templates Templates) *Formatter {
	return &Formatter{format: format, templates: templates}
}

// expand substitutes {name} placeholders.
func expand(template string, vars map[string]string) string {
	out := template
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}

// Messages builds the conversation for an edit request. selection lists
// the block IDs the user had selected; empty means the whole document.
func (f *Formatter) Messages(view *document.Snapshot, userPrompt string, selection []document.BlockID) ([]Message, error) {
	doc, err := SerializeDocument(view, f.format)
	if err != nil {
		return nil, err
	}

	sel := "entire document"
	if len(selection) > 0 {
		ids := make([]string, len(selection))
		for i, id := range selection {
			ids[i] = string(id)
		}
		sel = strings.Join(ids, ", ")
	}

	return []Message{
		{Role: RoleSystem, Content: expand(f.templates.System, map[string]string{
			"document": doc,
			"format":   f.format.String(),
		})},
		{Role: RoleUser, Content: expand(f.templates.Request, map[string]string{
			"prompt":    userPrompt,
			"selection": sel,
		})},
	}, nil
}

// CorrectionMessage builds the re-ask message sent after an operation
// failed to apply.
func (f *Formatter) CorrectionMessage(failedOp string, cause error) Message {
	return Message{
		Role: RoleUser,
		Content: expand(f.templates.Correction, map[string]string{
			"failed": failedOp,
			"error":  cause.Error(),
		}),
	}
}
