package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/dshills/draftpilot/internal/ai/prompt"
)

// Gemini streams responses from the Google Generative AI API.
//
// Gemini delivers function-call arguments whole rather than as JSON
// deltas, so each call surfaces as a single ChunkToolDelta followed
// immediately by ChunkToolDone.
type Gemini struct {
	apiKey string
}

// NewGemini creates a Gemini transport.
func NewGemini(apiKey string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini", ErrNoAPIKey)
	}
	return &Gemini{apiKey: apiKey}, nil
}

// Stream implements Transport.
func (g *Gemini) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	model := client.GenerativeModel(req.Model)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.Temperature > 0 {
		model.SetTemperature(float32(req.Temperature))
	}

	system, rest := splitSystem(req.Messages)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if len(req.Tools) > 0 {
		tool := &genai.Tool{}
		for _, t := range req.Tools {
			tool.FunctionDeclarations = append(tool.FunctionDeclarations, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  genaiSchema(t.Schema),
			})
		}
		model.Tools = []*genai.Tool{tool}
	}

	// Gemini takes prior turns as history and the last user message as
	// the prompt.
	session := model.StartChat()
	var last string
	for i, m := range rest {
		if i == len(rest)-1 {
			last = m.Content
			break
		}
		role := "user"
		if m.Role == prompt.RoleAssistant {
			role = "model"
		}
		session.History = append(session.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)
		defer client.Close()

		iter := session.SendMessageStream(ctx, genai.Text(last))
		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				break
			}
			if err != nil {
				emit(ctx, out, Chunk{Kind: ChunkError, Err: fmt.Errorf("gemini stream: %w", err)})
				return
			}
			for _, cand := range resp.Candidates {
				if cand.Content == nil {
					continue
				}
				for _, part := range cand.Content.Parts {
					switch p := part.(type) {
					case genai.Text:
						if !emit(ctx, out, Chunk{Kind: ChunkText, Text: string(p)}) {
							return
						}
					case genai.FunctionCall:
						args, err := json.Marshal(p.Args)
						if err != nil {
							emit(ctx, out, Chunk{Kind: ChunkError, Err: fmt.Errorf("gemini args: %w", err)})
							return
						}
						callID := uuid.NewString()
						if !emit(ctx, out, Chunk{Kind: ChunkToolDelta, CallID: callID, ToolName: p.Name, ArgumentDelta: string(args)}) {
							return
						}
						if !emit(ctx, out, Chunk{Kind: ChunkToolDone, CallID: callID, ToolName: p.Name}) {
							return
						}
					}
				}
			}
		}
		emit(ctx, out, Chunk{Kind: ChunkDone})
	}()
	return out, nil
}

// genaiSchema converts a JSON-schema map into the genai schema type.
// Only the subset the operation tools use is mapped.
func genaiSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}
	out := &genai.Schema{}

	switch t, _ := schema["type"].(string); t {
	case "object":
		out.Type = genai.TypeObject
	case "array":
		out.Type = genai.TypeArray
	case "string":
		out.Type = genai.TypeString
	case "number":
		out.Type = genai.TypeNumber
	case "integer":
		out.Type = genai.TypeInteger
	case "boolean":
		out.Type = genai.TypeBoolean
	default:
		out.Type = genai.TypeUnspecified
	}
	if d, ok := schema["description"].(string); ok {
		out.Description = d
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, sub := range props {
			if subMap, ok := sub.(map[string]any); ok {
				out.Properties[name] = genaiSchema(subMap)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		out.Items = genaiSchema(items)
	}
	if req, ok := schema["required"].([]string); ok {
		out.Required = req
	}
	if enum, ok := schema["enum"].([]string); ok {
		out.Enum = enum
	}
	return out
}
