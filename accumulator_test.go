package ollama

import (
	"errors"
	"testing"
)

func textChunk(content string) ChatChunk {
	return ChatChunk{
		Model:   "m",
		Message: MessageDelta{Role: RoleAssistant, Content: content},
	}
}

func toolChunk(index int, name, args string) ChatChunk {
	return ChatChunk{
		Model: "m",
		Message: MessageDelta{
			Role: RoleAssistant,
			ToolCalls: []ToolCallFragment{{
				Function: ToolCallFunctionFragment{Index: index, Name: name, Arguments: args},
			}},
		},
	}
}

func doneChunk(reason string) ChatChunk {
	return ChatChunk{Model: "m", Done: true, DoneReason: reason}
}

func TestChatAccumulator_Content(t *testing.T) {
	var acc ChatAccumulator
	acc.Add(textChunk("The sky "))
	acc.Add(textChunk("is blue."))
	acc.Add(doneChunk("stop"))

	if got := acc.Content(); got != "The sky is blue." {
		t.Fatalf("content=%q", got)
	}
	if !acc.Done() || acc.DoneReason() != "stop" {
		t.Fatalf("done=%v reason=%q", acc.Done(), acc.DoneReason())
	}

	msg, errs := acc.Message()
	if len(errs) != 0 {
		t.Fatalf("errs=%v", errs)
	}
	if msg.Role != RoleAssistant || msg.Content != "The sky is blue." {
		t.Fatalf("msg=%+v", msg)
	}
}

func TestChatAccumulator_ToolCallFragments(t *testing.T) {
	var acc ChatAccumulator
	acc.Add(toolChunk(0, "get_weather", `{"ci`))
	acc.Add(toolChunk(0, "", `ty":"Port`))
	acc.Add(toolChunk(0, "", `land"}`))
	acc.Add(doneChunk("tool_calls"))

	msg, errs := acc.Message()
	if len(errs) != 0 {
		t.Fatalf("errs=%v", errs)
	}
	if len(msg.ToolCalls) != 1 {
		t.Fatalf("calls=%+v", msg.ToolCalls)
	}

	call := msg.ToolCalls[0]
	if call.Function.Name != "get_weather" {
		t.Fatalf("name=%q", call.Function.Name)
	}
	if got := call.Function.Arguments["city"]; got != "Portland" {
		t.Fatalf("args=%v", call.Function.Arguments)
	}
}

func TestChatAccumulator_ParallelToolCalls(t *testing.T) {
	var acc ChatAccumulator
	acc.Add(toolChunk(0, "get_weather", `{"city":`))
	acc.Add(toolChunk(1, "get_time", `{"zone":`))
	acc.Add(toolChunk(0, "", `"Portland"}`))
	acc.Add(toolChunk(1, "", `"PST"}`))
	acc.Add(doneChunk("tool_calls"))

	msg, errs := acc.Message()
	if len(errs) != 0 {
		t.Fatalf("errs=%v", errs)
	}
	if len(msg.ToolCalls) != 2 {
		t.Fatalf("calls=%+v", msg.ToolCalls)
	}
	if msg.ToolCalls[0].Function.Name != "get_weather" || msg.ToolCalls[1].Function.Name != "get_time" {
		t.Fatalf("order=%+v", msg.ToolCalls)
	}
	if msg.ToolCalls[1].Function.Arguments["zone"] != "PST" {
		t.Fatalf("args=%v", msg.ToolCalls[1].Function.Arguments)
	}
}

func TestChatAccumulator_NameConflictLastWins(t *testing.T) {
	var acc ChatAccumulator
	acc.Add(toolChunk(0, "first_name", `{}`))
	acc.Add(toolChunk(0, "second_name", ``))
	acc.Add(doneChunk("tool_calls"))

	msg, errs := acc.Message()
	if len(errs) != 0 {
		t.Fatalf("errs=%v", errs)
	}
	if got := msg.ToolCalls[0].Function.Name; got != "second_name" {
		t.Fatalf("name=%q", got)
	}
}

func TestChatAccumulator_InvalidArguments(t *testing.T) {
	var acc ChatAccumulator
	acc.Add(toolChunk(0, "good_call", `{"a":1}`))
	acc.Add(toolChunk(1, "bad_call", `{"a":`))
	acc.Add(doneChunk("tool_calls"))

	msg, errs := acc.Message()
	if len(errs) != 1 {
		t.Fatalf("errs=%v", errs)
	}

	var tce *ToolCallError
	if !errors.As(errs[0], &tce) {
		t.Fatalf("errs[0]=%v", errs[0])
	}
	if tce.Index != 1 || tce.Name != "bad_call" {
		t.Fatalf("tce=%+v", tce)
	}

	// The parse failure drops only the bad call.
	if len(msg.ToolCalls) != 1 || msg.ToolCalls[0].Function.Name != "good_call" {
		t.Fatalf("calls=%+v", msg.ToolCalls)
	}
}

func TestChatAccumulator_EmptyArguments(t *testing.T) {
	var acc ChatAccumulator
	acc.Add(toolChunk(0, "no_args", ``))
	acc.Add(doneChunk("tool_calls"))

	msg, errs := acc.Message()
	if len(errs) != 0 {
		t.Fatalf("errs=%v", errs)
	}
	if len(msg.ToolCalls) != 1 || len(msg.ToolCalls[0].Function.Arguments) != 0 {
		t.Fatalf("calls=%+v", msg.ToolCalls)
	}
}

func TestChatAccumulator_Thinking(t *testing.T) {
	var acc ChatAccumulator
	acc.Add(ChatChunk{Message: MessageDelta{Role: RoleAssistant, Thinking: "Let me"}})
	acc.Add(ChatChunk{Message: MessageDelta{Thinking: " think."}})
	acc.Add(textChunk("Answer."))
	acc.Add(doneChunk("stop"))

	if got := acc.Thinking(); got != "Let me think." {
		t.Fatalf("thinking=%q", got)
	}
	msg, _ := acc.Message()
	if msg.Thinking != "Let me think." || msg.Content != "Answer." {
		t.Fatalf("msg=%+v", msg)
	}
}
