package ollama

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDuration_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		d    *Duration
		want string
	}{
		{"positive whole seconds", KeepAlive(5 * time.Minute), "300"},
		{"subsecond rounds down", KeepAlive(1500 * time.Millisecond), "1"},
		{"zero unloads now", KeepAliveNone(), "0"},
		{"forever", KeepAliveForever(), "-1"},
		{"any negative is forever", KeepAlive(-5 * time.Second), "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.d)
			if err != nil {
				t.Fatalf("marshal err=%v", err)
			}
			if string(b) != tt.want {
				t.Fatalf("marshal=%s, want %s", b, tt.want)
			}
		})
	}
}

func TestDuration_OmittedWhenNil(t *testing.T) {
	b, err := json.Marshal(&GenerateRequest{Model: "m", Prompt: "p"})
	if err != nil {
		t.Fatalf("marshal err=%v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	if _, ok := m["keep_alive"]; ok {
		t.Fatalf("keep_alive present in %s", b)
	}
}

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Duration
	}{
		{"seconds number", "300", 300 * time.Second},
		{"fractional seconds", "1.5", 1500 * time.Millisecond},
		{"negative number", "-1", -1},
		{"duration string", `"5m"`, 5 * time.Minute},
		{"negative duration string", `"-10s"`, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			if err := json.Unmarshal([]byte(tt.input), &d); err != nil {
				t.Fatalf("unmarshal err=%v", err)
			}
			if d.Duration != tt.want {
				t.Fatalf("duration=%v, want %v", d.Duration, tt.want)
			}
		})
	}
}

func TestDuration_UnmarshalJSON_Invalid(t *testing.T) {
	var d Duration
	if err := json.Unmarshal([]byte(`"not-a-duration"`), &d); err == nil {
		t.Fatal("expected error")
	}
}
