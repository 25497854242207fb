// Package request assembles complete model invocations: serialized
// document context, user prompt, selection scope, and the operation
// tool definitions, bound to the configured model parameters.
package request

import (
	"errors"
	"fmt"

	"github.com/dshills/draftpilot/internal/ai/operation"
	"github.com/dshills/draftpilot/internal/ai/prompt"
	"github.com/dshills/draftpilot/internal/ai/transport"
	"github.com/dshills/draftpilot/internal/document"
)

// Errors returned by the builder.
var (
	// ErrEmptyPrompt indicates the user prompt is blank.
	ErrEmptyPrompt = errors.New("request: empty prompt")

	// ErrNoModel indicates no model name is configured.
	ErrNoModel = errors.New("request: no model configured")

	// ErrBadSelection indicates a selected block is not in the document.
	ErrBadSelection = errors.New("request: selection block not found")
)

// Params are the model parameters applied to every request.
type Params struct {
	// Model names the provider model.
	Model string

	// MaxTokens bounds the response. Zero selects a provider default.
	MaxTokens int

	// Temperature is the sampling temperature.
	Temperature float64
}

// Builder turns prompts into transport requests.
type Builder struct {
	formatter *prompt.Formatter
	params    Params
}

// NewBuilder creates a builder with the given formatter and parameters.
func NewBuilder(formatter *prompt.Formatter, params Params) *Builder {
	return &Builder{formatter: formatter, params: params}
}

// Build assembles the initial request for a user prompt. selection lists
// the block IDs in scope; empty means the whole document.
func (b *Builder) Build(view *document.Snapshot, userPrompt string, selection []document.BlockID) (transport.Request, error) {
	if userPrompt == "" {
		return transport.Request{}, ErrEmptyPrompt
	}
	if b.params.Model == "" {
		return transport.Request{}, ErrNoModel
	}
	for _, id := range selection {
		if !view.Contains(id) {
			return transport.Request{}, fmt.Errorf("%w: %s", ErrBadSelection, id)
		}
	}

	messages, err := b.formatter.Messages(view, userPrompt, selection)
	if err != nil {
		return transport.Request{}, fmt.Errorf("request: %w", err)
	}

	return transport.Request{
		Model:       b.params.Model,
		Messages:    messages,
		Tools:       operation.Definitions(),
		MaxTokens:   b.params.MaxTokens,
		Temperature: b.params.Temperature,
	}, nil
}

// BuildCorrection extends a prior request's conversation with a
// corrective message after an operation failed to apply. The document
// context is rebuilt against the current view so the model sees the
// effects of any operations that did land.
func (b *Builder) BuildCorrection(prior transport.Request, view *document.Snapshot, failedOp string, cause error) (transport.Request, error) {
	refreshed, err := b.formatter.Messages(view, "", nil)
	if err != nil {
		return transport.Request{}, fmt.Errorf("request: %w", err)
	}

	// Keep the original conversation but swap in the refreshed system
	// message, then append the correction.
	messages := make([]prompt.Message, 0, len(prior.Messages)+1)
	for i, m := range prior.Messages {
		if i == 0 && m.Role == prompt.RoleSystem {
			messages = append(messages, refreshed[0])
			continue
		}
		messages = append(messages, m)
	}
	messages = append(messages, b.formatter.CorrectionMessage(failedOp, cause))

	req := prior
	req.Messages = messages
	return req, nil
}
