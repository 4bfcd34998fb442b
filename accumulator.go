package ollama

import (
	"encoding/json"
	"strings"
)

// ChatAccumulator rebuilds a complete assistant message from a sequence of
// streaming chat chunks.
//
// Content and thinking text are concatenated as they arrive. Tool-call
// fragments are grouped by index and their argument text appended until the
// stream reports done, at which point Message parses each accumulated text
// as a JSON argument object. State is scoped to one stream; use a fresh
// accumulator per call.
type ChatAccumulator struct {
	role     string
	content  strings.Builder
	thinking strings.Builder

	calls map[int]*pendingToolCall
	order []int

	done       bool
	doneReason string
}

type pendingToolCall struct {
	name string
	args strings.Builder
}

// Add applies one chunk. Fragments with an index already seen extend that
// call; a fragment naming an already-named call overwrites the name (last
// writer wins; the conflict is observable through the final call list, not
// corrected here).
func (a *ChatAccumulator) Add(chunk ChatChunk) {
	if chunk.Message.Role != "" {
		a.role = chunk.Message.Role
	}
	a.content.WriteString(chunk.Message.Content)
	a.thinking.WriteString(chunk.Message.Thinking)

	for _, fr := range chunk.Message.ToolCalls {
		f := fr.Function
		if a.calls == nil {
			a.calls = make(map[int]*pendingToolCall)
		}
		pc := a.calls[f.Index]
		if pc == nil {
			pc = &pendingToolCall{}
			a.calls[f.Index] = pc
			a.order = append(a.order, f.Index)
		}
		if f.Name != "" {
			pc.name = f.Name
		}
		pc.args.WriteString(f.Arguments)
	}

	if chunk.Done {
		a.done = true
		a.doneReason = chunk.DoneReason
	}
}

func (a *ChatAccumulator) Content() string  { return a.content.String() }
func (a *ChatAccumulator) Thinking() string { return a.thinking.String() }

// Done reports whether a chunk with the done flag has been applied.
func (a *ChatAccumulator) Done() bool { return a.done }

func (a *ChatAccumulator) DoneReason() string { return a.doneReason }

// Message flushes the accumulated state into a final assistant message.
//
// Calls whose argument text does not parse as a JSON object are dropped from
// the message and reported as *ToolCallError values in first-seen index
// order; the message and the remaining calls are still returned.
func (a *ChatAccumulator) Message() (Message, []error) {
	role := a.role
	if role == "" {
		role = RoleAssistant
	}
	msg := Message{
		Role:     role,
		Content:  a.content.String(),
		Thinking: a.thinking.String(),
	}

	var errs []error
	for _, idx := range a.order {
		pc := a.calls[idx]

		args := ToolCallArguments{}
		if text := strings.TrimSpace(pc.args.String()); text != "" {
			if err := json.Unmarshal([]byte(text), &args); err != nil {
				errs = append(errs, &ToolCallError{Index: idx, Name: pc.name, Err: err})
				continue
			}
		}
		msg.ToolCalls = append(msg.ToolCalls, ToolCall{
			Function: ToolCallFunction{Name: pc.name, Arguments: args},
		})
	}
	return msg, errs
}
