package ollama

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewTool(t *testing.T) {
	tool := NewTool("get_weather", "Look up current weather",
		json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}},"required":["city"]}`))

	if tool.Type != "function" {
		t.Fatalf("type=%q", tool.Type)
	}
	if tool.Function.Name != "get_weather" {
		t.Fatalf("name=%q", tool.Function.Name)
	}

	b, err := json.Marshal(tool)
	if err != nil {
		t.Fatalf("marshal err=%v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	if m["type"] != "function" {
		t.Fatalf("wire=%s", b)
	}
}

func TestToolCallArguments_String(t *testing.T) {
	args := ToolCallArguments{"city": "Portland"}
	if got := args.String(); got != `{"city":"Portland"}` {
		t.Fatalf("string=%q", got)
	}
}

func TestShowResponse_HasCapability(t *testing.T) {
	resp := ShowResponse{Capabilities: []string{CapabilityCompletion, CapabilityTools, "future-capability"}}

	if !resp.HasCapability(CapabilityTools) {
		t.Fatal("tools missing")
	}
	if !resp.HasCapability("future-capability") {
		t.Fatal("unknown tags must still match")
	}
	if resp.HasCapability(CapabilityVision) {
		t.Fatal("vision reported")
	}
}

func TestMetrics_TokensPerSecond(t *testing.T) {
	m := Metrics{EvalCount: 100, EvalDuration: 2 * time.Second}
	if got := m.TokensPerSecond(); got != 50 {
		t.Fatalf("tps=%v", got)
	}
	if got := (Metrics{}).TokensPerSecond(); got != 0 {
		t.Fatalf("zero tps=%v", got)
	}
}

func TestImageData_Base64(t *testing.T) {
	req := GenerateRequest{Model: "llava", Prompt: "what is this?", Images: []ImageData{[]byte{0xff, 0xd8}}}

	b, err := json.Marshal(&req)
	if err != nil {
		t.Fatal(err)
	}
	var m struct {
		Images []string `json:"images"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	if len(m.Images) != 1 || m.Images[0] != "/9g=" {
		t.Fatalf("images=%v", m.Images)
	}
}
