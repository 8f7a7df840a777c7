package api

import (
	"sort"
	"strings"
)

// toolCallBuffer tracks incremental tool call argument assembly across
// chunks for a single tool call index.
type toolCallBuffer struct {
	ID   string
	Type string
	Name string
	Args strings.Builder
}

type choiceBuffer struct {
	role         string
	content      strings.Builder
	reasoning    strings.Builder
	finishReason string
	toolCalls    map[int]*toolCallBuffer
}

// ChatCompletionAccumulator folds streamed chunks into the response the
// non-streaming endpoint would have returned. The zero value is ready to use.
type ChatCompletionAccumulator struct {
	id      string
	model   string
	created int64
	usage   *ChatUsage
	choices map[int]*choiceBuffer
}

// Add merges one chunk.
func (a *ChatCompletionAccumulator) Add(chunk *ChatCompletionChunk) {
	if a.id == "" {
		a.id = chunk.ID
	}
	if a.model == "" {
		a.model = chunk.Model
	}
	if a.created == 0 {
		a.created = chunk.Created
	}
	// A usage-only chunk arrives last when stream_options.include_usage is set.
	if chunk.Usage != nil {
		u := *chunk.Usage
		a.usage = &u
	}
	if a.choices == nil {
		a.choices = make(map[int]*choiceBuffer)
	}

	for _, c := range chunk.Choices {
		buf, ok := a.choices[c.Index]
		if !ok {
			buf = &choiceBuffer{toolCalls: make(map[int]*toolCallBuffer)}
			a.choices[c.Index] = buf
		}
		if c.Delta.Role != "" {
			buf.role = c.Delta.Role
		}
		if c.Delta.Content != nil {
			buf.content.WriteString(*c.Delta.Content)
		}
		if c.Delta.ReasoningContent != nil {
			buf.reasoning.WriteString(*c.Delta.ReasoningContent)
		}
		for _, tc := range c.Delta.ToolCalls {
			tb, exists := buf.toolCalls[tc.Index]
			if !exists {
				// First chunk for this tool call index carries id and name.
				tb = &toolCallBuffer{ID: tc.ID, Type: tc.Type, Name: tc.Function.Name}
				buf.toolCalls[tc.Index] = tb
			}
			if tb.ID == "" {
				tb.ID = tc.ID
			}
			if tb.Name == "" {
				tb.Name = tc.Function.Name
			}
			tb.Args.WriteString(tc.Function.Arguments)
		}
		if c.FinishReason != nil && *c.FinishReason != "" {
			buf.finishReason = *c.FinishReason
		}
	}
}

// Response returns the accumulated completion. Choices are ordered by index.
func (a *ChatCompletionAccumulator) Response() *ChatCompletionResponse {
	resp := &ChatCompletionResponse{
		ID:      a.id,
		Object:  "chat.completion",
		Created: a.created,
		Model:   a.model,
		Usage:   a.usage,
	}

	indexes := make([]int, 0, len(a.choices))
	for i := range a.choices {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	for _, i := range indexes {
		buf := a.choices[i]
		role := buf.role
		if role == "" {
			role = "assistant"
		}
		msg := ChatMessage{Role: role, Content: buf.content.String()}
		if buf.reasoning.Len() > 0 {
			r := buf.reasoning.String()
			msg.ReasoningContent = &r
		}

		tcIdx := make([]int, 0, len(buf.toolCalls))
		for j := range buf.toolCalls {
			tcIdx = append(tcIdx, j)
		}
		sort.Ints(tcIdx)
		for _, j := range tcIdx {
			tb := buf.toolCalls[j]
			typ := tb.Type
			if typ == "" {
				typ = "function"
			}
			msg.ToolCalls = append(msg.ToolCalls, ChatToolCall{
				ID:       tb.ID,
				Type:     typ,
				Function: ChatFunctionCall{Name: tb.Name, Arguments: tb.Args.String()},
			})
		}

		resp.Choices = append(resp.Choices, ChatChoice{
			Index:        i,
			Message:      msg,
			FinishReason: buf.finishReason,
		})
	}
	return resp
}
