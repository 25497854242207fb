package transport

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dshills/draftpilot/internal/ai/prompt"
)

const defaultAnthropicMaxTokens = 4096

// Anthropic streams responses from the Anthropic Messages API.
type Anthropic struct {
	client anthropic.Client
}

// NewAnthropic creates an Anthropic transport.
func NewAnthropic(apiKey string) (*Anthropic, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: anthropic", ErrNoAPIKey)
	}
	return &Anthropic{client: anthropic.NewClient(option.WithAPIKey(apiKey))}, nil
}

// Stream implements Transport.
func (a *Anthropic) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	system, rest := splitSystem(req.Messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(req.MaxTokens),
	}
	if params.MaxTokens <= 0 {
		params.MaxTokens = defaultAnthropicMaxTokens
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	for _, m := range rest {
		switch m.Role {
		case prompt.RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	for _, tool := range req.Tools {
		props, _ := tool.Schema["properties"].(map[string]any)
		var required []string
		if r, ok := tool.Schema["required"].([]string); ok {
			required = r
		}
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        tool.Name,
				Description: anthropic.String(tool.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: props,
					Required:   required,
				},
			},
		})
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)

		stream := a.client.Messages.NewStreaming(ctx, params)
		// Tool calls are keyed by content-block index in the event
		// stream; remember each block's call ID and tool name.
		type toolBlock struct {
			callID string
			name   string
		}
		blocks := make(map[int64]toolBlock)

		for stream.Next() {
			event := stream.Current()
			switch ev := event.AsAny().(type) {
			case anthropic.ContentBlockStartEvent:
				if tu, ok := ev.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
					blocks[ev.Index] = toolBlock{callID: tu.ID, name: tu.Name}
					if !emit(ctx, out, Chunk{Kind: ChunkToolDelta, CallID: tu.ID, ToolName: tu.Name}) {
						return
					}
				}
			case anthropic.ContentBlockDeltaEvent:
				switch d := ev.Delta.AsAny().(type) {
				case anthropic.InputJSONDelta:
					tb, ok := blocks[ev.Index]
					if !ok {
						continue
					}
					if !emit(ctx, out, Chunk{Kind: ChunkToolDelta, CallID: tb.callID, ToolName: tb.name, ArgumentDelta: d.PartialJSON}) {
						return
					}
				case anthropic.TextDelta:
					if !emit(ctx, out, Chunk{Kind: ChunkText, Text: d.Text}) {
						return
					}
				}
			case anthropic.ContentBlockStopEvent:
				if tb, ok := blocks[ev.Index]; ok {
					delete(blocks, ev.Index)
					if !emit(ctx, out, Chunk{Kind: ChunkToolDone, CallID: tb.callID, ToolName: tb.name}) {
						return
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			emit(ctx, out, Chunk{Kind: ChunkError, Err: fmt.Errorf("anthropic stream: %w", err)})
			return
		}
		emit(ctx, out, Chunk{Kind: ChunkDone})
	}()
	return out, nil
}

// emit sends a chunk unless the context is done. Reports whether the
// send happened.
func emit(ctx context.Context, out chan<- Chunk, c Chunk) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}
