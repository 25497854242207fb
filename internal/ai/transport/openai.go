package transport

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/dshills/draftpilot/internal/ai/prompt"
)

// OpenAI streams responses from the OpenAI Chat Completions API.
type OpenAI struct {
	client openai.Client
}

// NewOpenAI creates an OpenAI transport.
func NewOpenAI(apiKey string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: openai", ErrNoAPIKey)
	}
	return &OpenAI{client: openai.NewClient(option.WithAPIKey(apiKey))}, nil
}

// Stream implements Transport.
func (o *OpenAI) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	for _, m := range req.Messages {
		switch m.Role {
		case prompt.RoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		case prompt.RoleAssistant:
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}
	for _, tool := range req.Tools {
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        tool.Name,
				Description: openai.String(tool.Description),
				Parameters:  openai.FunctionParameters(tool.Schema),
			},
		})
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)

		stream := o.client.Chat.Completions.NewStreaming(ctx, params)
		// Tool-call deltas are keyed by index within the choice; the
		// call ID and function name arrive only on the first delta.
		type toolCall struct {
			callID string
			name   string
		}
		calls := make(map[int64]toolCall)

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			choice := chunk.Choices[0]

			if choice.Delta.Content != "" {
				if !emit(ctx, out, Chunk{Kind: ChunkText, Text: choice.Delta.Content}) {
					return
				}
			}
			for _, tc := range choice.Delta.ToolCalls {
				cur, ok := calls[tc.Index]
				if !ok || tc.ID != "" {
					if tc.ID != "" {
						cur.callID = tc.ID
					}
					if tc.Function.Name != "" {
						cur.name = tc.Function.Name
					}
					calls[tc.Index] = cur
				}
				if tc.Function.Arguments == "" && tc.ID == "" {
					continue
				}
				if !emit(ctx, out, Chunk{
					Kind:          ChunkToolDelta,
					CallID:        cur.callID,
					ToolName:      cur.name,
					ArgumentDelta: tc.Function.Arguments,
				}) {
					return
				}
			}
			if choice.FinishReason != "" {
				for _, tc := range calls {
					if !emit(ctx, out, Chunk{Kind: ChunkToolDone, CallID: tc.callID, ToolName: tc.name}) {
						return
					}
				}
				calls = make(map[int64]toolCall)
			}
		}
		if err := stream.Err(); err != nil {
			emit(ctx, out, Chunk{Kind: ChunkError, Err: fmt.Errorf("openai stream: %w", err)})
			return
		}
		emit(ctx, out, Chunk{Kind: ChunkDone})
	}()
	return out, nil
}
