package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/de-tools/lakespend/pkg/tools"
	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
)

const DefaultMaxTurns = 10

var ErrTooManyTurns = errors.New("agent exceeded the maximum number of turns")

type Loop struct {
	model    llms.Model
	source   ToolSource
	maxTurns int
	prompt   string
}

func NewLoop(model llms.Model, source ToolSource, maxTurns int) *Loop {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Loop{model: model, source: source, maxTurns: maxTurns, prompt: systemPrompt}
}

// Run alternates model turns and tool turns until the model answers without
// requesting a tool. Every tool call of a turn completes before the next model
// turn. It returns the items produced, in order, and reports each completed item
// and text delta to emit when emit is not nil.
func (l *Loop) Run(ctx context.Context, input []Item, emit func(Event)) ([]Item, error) {
	logger := zerolog.Ctx(ctx)
	if emit == nil {
		emit = func(Event) {}
	}

	descriptors, err := l.source.Tools(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to discover tools: %w", err)
	}
	known := make(map[string]tools.Descriptor, len(descriptors))
	for _, d := range descriptors {
		known[d.Name] = d
	}

	messages, err := toMessages(l.prompt, input)
	if err != nil {
		return nil, err
	}
	opts := []llms.CallOption{}
	if len(descriptors) > 0 {
		opts = append(opts, llms.WithTools(toLLMTools(descriptors)), llms.WithToolChoice("auto"))
	}

	var output []Item
	for turn := 0; turn < l.maxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			return output, err
		}

		resp, err := l.model.GenerateContent(ctx, messages, opts...)
		if err != nil {
			return output, fmt.Errorf("failed to generate content: %w", err)
		}
		if len(resp.Choices) == 0 {
			return output, errors.New("model returned no choices")
		}
		choice := resp.Choices[0]

		reply := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		if choice.Content != "" {
			msg := assistantMessage(NewID("msg"), choice.Content)
			emit(Event{Type: EventOutputTextDelta, ItemID: msg.ID, Delta: choice.Content})
			emit(Event{Type: EventOutputItemDone, Item: &msg})
			output = append(output, msg)
			reply.Parts = append(reply.Parts, llms.TextContent{Text: choice.Content})
		}

		if len(choice.ToolCalls) == 0 {
			logger.Debug().Int("turns", turn+1).Msg("agent finished")
			return output, nil
		}

		calls := make([]Item, 0, len(choice.ToolCalls))
		for _, tc := range choice.ToolCalls {
			if tc.FunctionCall == nil {
				continue
			}
			call := functionCall(tc.ID, tc.FunctionCall.Name, tc.FunctionCall.Arguments)
			if call.CallID == "" {
				call.CallID = NewID("call")
			}
			emit(Event{Type: EventOutputItemDone, Item: &call})
			output = append(output, call)
			calls = append(calls, call)
			reply.Parts = append(reply.Parts, llms.ToolCall{
				ID:           call.CallID,
				Type:         "function",
				FunctionCall: &llms.FunctionCall{Name: call.Name, Arguments: call.Arguments},
			})
		}
		if len(calls) == 0 {
			logger.Debug().Int("turns", turn+1).Msg("agent finished, no runnable tool calls")
			return output, nil
		}
		messages = append(messages, reply)

		results := l.execute(ctx, known, calls)
		for i, res := range results {
			emit(Event{Type: EventOutputItemDone, Item: &results[i]})
			output = append(output, res)
			messages = append(messages, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: res.CallID,
					Name:       calls[i].Name,
					Content:    res.Output,
				}},
			})
		}
	}

	logger.Warn().Int("max_turns", l.maxTurns).Msg("agent stopped at turn limit")
	return output, ErrTooManyTurns
}

// execute runs calls concurrently and returns their outputs in call order. A failed
// call yields an output carrying the error text.
func (l *Loop) execute(ctx context.Context, known map[string]tools.Descriptor, calls []Item) []Item {
	logger := zerolog.Ctx(ctx)
	results := make([]Item, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call Item) {
			defer wg.Done()

			text, err := l.call(ctx, known, call)
			if err != nil {
				logger.Warn().Err(err).Str("tool", call.Name).Msg("tool call failed")
				text = "Error: " + err.Error()
			}
			results[i] = functionCallOutput(call.CallID, text)
		}(i, call)
	}
	wg.Wait()
	return results
}

func (l *Loop) call(ctx context.Context, known map[string]tools.Descriptor, call Item) (string, error) {
	d, ok := known[call.Name]
	if !ok {
		return "", fmt.Errorf("unknown tool %q", call.Name)
	}

	raw := json.RawMessage(call.Arguments)
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("invalid arguments for %s: %w", call.Name, err)
	}
	if err := d.Validate(args); err != nil {
		return "", err
	}
	return l.source.Call(ctx, call.Name, raw)
}

// toMessages converts responses-format items into model messages. Consecutive
// function calls join the preceding assistant message.
func toMessages(prompt string, input []Item) ([]llms.MessageContent, error) {
	messages := []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeSystem, prompt)}
	names := map[string]string{}

	for i, item := range input {
		switch item.Kind() {
		case ItemTypeMessage:
			role, err := chatRole(item.Role)
			if err != nil {
				return nil, fmt.Errorf("input item %d: %w", i, err)
			}
			messages = append(messages, llms.TextParts(role, item.Content.Text()))
		case ItemTypeFunctionCall:
			names[item.CallID] = item.Name
			part := llms.ToolCall{
				ID:           item.CallID,
				Type:         "function",
				FunctionCall: &llms.FunctionCall{Name: item.Name, Arguments: item.Arguments},
			}
			last := &messages[len(messages)-1]
			if last.Role == llms.ChatMessageTypeAI {
				last.Parts = append(last.Parts, part)
			} else {
				messages = append(messages, llms.MessageContent{Role: llms.ChatMessageTypeAI, Parts: []llms.ContentPart{part}})
			}
		case ItemTypeFunctionCallOutput:
			messages = append(messages, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: item.CallID,
					Name:       names[item.CallID],
					Content:    item.Output,
				}},
			})
		default:
			return nil, fmt.Errorf("input item %d: unsupported type %q", i, item.Type)
		}
	}
	return messages, nil
}

func chatRole(role string) (llms.ChatMessageType, error) {
	switch role {
	case RoleUser:
		return llms.ChatMessageTypeHuman, nil
	case RoleAssistant:
		return llms.ChatMessageTypeAI, nil
	case RoleSystem:
		return llms.ChatMessageTypeSystem, nil
	default:
		return "", fmt.Errorf("unsupported role %q", role)
	}
}

func toLLMTools(descriptors []tools.Descriptor) []llms.Tool {
	out := make([]llms.Tool, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Schema(),
			},
		})
	}
	return out
}
