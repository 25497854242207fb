// Package transport sends edit requests to a language model backend and
// streams back tool-call deltas.
//
// All providers reduce to the same chunk stream: tool-call argument
// fragments keyed by call ID, optional free text, and a terminal done
// or error chunk. The stream channel is closed after the terminal
// chunk. Cancelling the context aborts the stream; the provider goroutine
// always closes the channel on exit.
package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/draftpilot/internal/ai/operation"
	"github.com/dshills/draftpilot/internal/ai/prompt"
)

// Errors returned by transports.
var (
	// ErrNoAPIKey indicates the provider has no credential configured.
	ErrNoAPIKey = errors.New("transport: missing API key")

	// ErrUnknownProvider indicates an unrecognized provider name.
	ErrUnknownProvider = errors.New("transport: unknown provider")

	// ErrStreamClosed indicates the backend ended the stream without a
	// terminal event.
	ErrStreamClosed = errors.New("transport: stream closed unexpectedly")
)

// ChunkKind discriminates streamed events.
type ChunkKind uint8

const (
	// ChunkText is free assistant text outside any tool call.
	ChunkText ChunkKind = iota

	// ChunkToolDelta carries an argument fragment for a tool call.
	ChunkToolDelta

	// ChunkToolDone signals a tool call's arguments are complete.
	ChunkToolDone

	// ChunkDone signals the response finished normally.
	ChunkDone

	// ChunkError signals a transport failure. Terminal.
	ChunkError
)

// Chunk is one streamed event from the model.
type Chunk struct {
	Kind ChunkKind

	// CallID identifies the tool call for ChunkToolDelta/ChunkToolDone.
	CallID string

	// ToolName is set on the first delta of a call and on ChunkToolDone.
	ToolName string

	// ArgumentDelta is a fragment of the call's JSON arguments.
	ArgumentDelta string

	// Text is free assistant text for ChunkText.
	Text string

	// Err is the transport failure for ChunkError.
	Err error
}

// Request is one model invocation.
type Request struct {
	// Model names the provider model.
	Model string

	// Messages is the conversation, system message first.
	Messages []prompt.Message

	// Tools are the operation tool definitions offered to the model.
	Tools []operation.ToolDefinition

	// MaxTokens bounds the response. Zero selects a provider default.
	MaxTokens int

	// Temperature is the sampling temperature.
	Temperature float64
}

// Transport streams a model response for a request.
// Implementations must close the returned channel after the terminal
// chunk and must respect context cancellation.
type Transport interface {
	Stream(ctx context.Context, req Request) (<-chan Chunk, error)
}

// Config selects and configures a provider transport.
type Config struct {
	Provider string
	APIKey   string
}

// New creates the transport named by cfg.Provider.
func New(cfg Config) (Transport, error) {
	switch cfg.Provider {
	case "anthropic":
		return NewAnthropic(cfg.APIKey)
	case "openai":
		return NewOpenAI(cfg.APIKey)
	case "gemini":
		return NewGemini(cfg.APIKey)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// splitSystem separates the system message from the rest of the
// conversation, for providers that carry it out of band.
func splitSystem(messages []prompt.Message) (system string, rest []prompt.Message) {
	for _, m := range messages {
		if m.Role == prompt.RoleSystem && system == "" {
			system = m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
