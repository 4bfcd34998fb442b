package ollama

import (
	"encoding/json"
	"time"
)

// ImageData is raw image bytes attached to a prompt or message. It is
// serialized as base64 on the wire.
type ImageData []byte

// GenerateRequest describes a completion request for /api/generate.
//
// Suffix enables fill-in-the-middle completion for models that support it.
// Think asks the model to emit its reasoning in the Thinking field of the
// response in addition to Response.
type GenerateRequest struct {
	Model    string `json:"model"`
	Prompt   string `json:"prompt,omitempty"`
	Suffix   string `json:"suffix,omitempty"`
	System   string `json:"system,omitempty"`
	Template string `json:"template,omitempty"`

	// Context is the conversation state returned by a previous call.
	Context []int `json:"context,omitempty"`

	// Raw bypasses the model's prompt template.
	Raw bool `json:"raw,omitempty"`

	Images []ImageData     `json:"images,omitempty"`
	Format json.RawMessage `json:"format,omitempty"`
	Think  *bool           `json:"think,omitempty"`

	KeepAlive *Duration `json:"keep_alive,omitempty"`
	Options   Options   `json:"options,omitempty"`

	// Stream is owned by the driver; Generate forces false and
	// GenerateStream forces true.
	Stream *bool `json:"stream,omitempty"`
}

type GenerateResponse struct {
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`

	Response string `json:"response"`
	Thinking string `json:"thinking,omitempty"`

	Done       bool   `json:"done"`
	DoneReason string `json:"done_reason,omitempty"`

	Context []int `json:"context,omitempty"`

	Metrics
}

// Message is a complete chat message, either supplied by the caller or
// returned by a non-streaming chat exchange.
type Message struct {
	Role     string `json:"role"`
	Content  string `json:"content"`
	Thinking string `json:"thinking,omitempty"`

	Images    []ImageData `json:"images,omitempty"`
	ToolCalls []ToolCall  `json:"tool_calls,omitempty"`

	// ToolName names the tool a RoleTool message is answering for.
	ToolName string `json:"tool_name,omitempty"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCallArguments is the parsed argument object of a finalized tool call.
type ToolCallArguments map[string]any

func (a ToolCallArguments) String() string {
	b, err := json.Marshal(a)
	if err != nil {
		return ""
	}
	return string(b)
}

// ToolCall is a finalized function call requested by the model. Invoking the
// tool and feeding its result back as a RoleTool message is the caller's
// responsibility.
type ToolCall struct {
	Function ToolCallFunction `json:"function"`
}

type ToolCallFunction struct {
	Name      string            `json:"name"`
	Arguments ToolCallArguments `json:"arguments"`
}

// ToolCallFragment is a partial piece of an in-progress tool call inside a
// streaming chat chunk. Fragments sharing an index belong to the same call;
// Arguments may hold an arbitrary slice of the call's argument JSON text.
type ToolCallFragment struct {
	Function ToolCallFunctionFragment `json:"function"`
}

type ToolCallFunctionFragment struct {
	Index     int    `json:"index"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// Tool declares a function the model may call.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

type ToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

func NewTool(name, description string, parameters json.RawMessage) Tool {
	return Tool{
		Type: "function",
		Function: ToolFunction{
			Name:        name,
			Description: description,
			Parameters:  append(json.RawMessage(nil), parameters...),
		},
	}
}

type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`

	Tools  []Tool          `json:"tools,omitempty"`
	Format json.RawMessage `json:"format,omitempty"`
	Think  *bool           `json:"think,omitempty"`

	KeepAlive *Duration `json:"keep_alive,omitempty"`
	Options   Options   `json:"options,omitempty"`

	Stream *bool `json:"stream,omitempty"`
}

// ChatResponse is the single payload of a non-streaming chat exchange.
type ChatResponse struct {
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`

	Message Message `json:"message"`

	Done       bool   `json:"done"`
	DoneReason string `json:"done_reason,omitempty"`

	Metrics
}

// MessageDelta is the partial message carried by one streaming chat chunk.
type MessageDelta struct {
	Role     string `json:"role,omitempty"`
	Content  string `json:"content,omitempty"`
	Thinking string `json:"thinking,omitempty"`

	ToolCalls []ToolCallFragment `json:"tool_calls,omitempty"`
}

// ChatChunk is one decoded record of a streaming chat exchange. The final
// chunk has Done set and carries the completion reason and metrics.
type ChatChunk struct {
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`

	Message MessageDelta `json:"message"`

	Done       bool   `json:"done"`
	DoneReason string `json:"done_reason,omitempty"`

	Metrics
}

// ProgressResponse is one record of a pull, push or create stream. Total and
// Completed are zero when the server has not reported them; the server may
// also re-send earlier statuses or regress Completed, and both are passed
// through untouched.
type ProgressResponse struct {
	Status    string `json:"status"`
	Digest    string `json:"digest,omitempty"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
}

// StatusSuccess is the terminal status of pull/push/create streams.
const StatusSuccess = "success"

type PullRequest struct {
	Model    string `json:"model"`
	Insecure bool   `json:"insecure,omitempty"`
	Stream   *bool  `json:"stream,omitempty"`
}

type PushRequest struct {
	Model    string `json:"model"`
	Insecure bool   `json:"insecure,omitempty"`
	Stream   *bool  `json:"stream,omitempty"`
}

// CreateRequest builds a model either from an inline Modelfile definition or
// from a server-side Path reference. Exactly one of the two must be set.
type CreateRequest struct {
	Model     string `json:"model"`
	Modelfile string `json:"modelfile,omitempty"`
	Path      string `json:"path,omitempty"`
	Quantize  string `json:"quantize,omitempty"`
	Stream    *bool  `json:"stream,omitempty"`
}

// EmbedRequest computes embeddings for a single input (string) or a batch
// ([]string). Dimensions, when non-zero, is forwarded verbatim; whether the
// model supports it is the server's concern.
type EmbedRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`

	Truncate   *bool `json:"truncate,omitempty"`
	Dimensions int   `json:"dimensions,omitempty"`

	KeepAlive *Duration `json:"keep_alive,omitempty"`
	Options   Options   `json:"options,omitempty"`
}

type EmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`

	TotalDuration   time.Duration `json:"total_duration,omitempty"`
	LoadDuration    time.Duration `json:"load_duration,omitempty"`
	PromptEvalCount int           `json:"prompt_eval_count,omitempty"`
}

// EmbeddingRequest is the legacy single-prompt embedding endpoint.
type EmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`

	KeepAlive *Duration `json:"keep_alive,omitempty"`
	Options   Options   `json:"options,omitempty"`
}

type EmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

type ModelDetails struct {
	ParentModel       string   `json:"parent_model,omitempty"`
	Format            string   `json:"format,omitempty"`
	Family            string   `json:"family,omitempty"`
	Families          []string `json:"families,omitempty"`
	ParameterSize     string   `json:"parameter_size,omitempty"`
	QuantizationLevel string   `json:"quantization_level,omitempty"`
}

type ListResponse struct {
	Models []ListModelResponse `json:"models"`
}

type ListModelResponse struct {
	Name       string       `json:"name"`
	Model      string       `json:"model,omitempty"`
	ModifiedAt time.Time    `json:"modified_at"`
	Size       int64        `json:"size"`
	Digest     string       `json:"digest"`
	Details    ModelDetails `json:"details,omitempty"`
}

// ProcessResponse lists models currently loaded in memory.
type ProcessResponse struct {
	Models []ProcessModelResponse `json:"models"`
}

type ProcessModelResponse struct {
	Name      string       `json:"name"`
	Model     string       `json:"model,omitempty"`
	Size      int64        `json:"size"`
	Digest    string       `json:"digest"`
	Details   ModelDetails `json:"details,omitempty"`
	ExpiresAt time.Time    `json:"expires_at"`
	SizeVRAM  int64        `json:"size_vram,omitempty"`
}

type ShowRequest struct {
	Model   string `json:"model"`
	Verbose bool   `json:"verbose,omitempty"`
}

type ShowResponse struct {
	License    string `json:"license,omitempty"`
	Modelfile  string `json:"modelfile,omitempty"`
	Parameters string `json:"parameters,omitempty"`
	Template   string `json:"template,omitempty"`
	System     string `json:"system,omitempty"`

	Details ModelDetails `json:"details,omitempty"`

	// Capabilities is an open set of tags; the server may add new ones at
	// any time. A few well-known values are exported as Capability
	// constants.
	Capabilities []string `json:"capabilities,omitempty"`

	ModelInfo  map[string]any `json:"model_info,omitempty"`
	ModifiedAt time.Time      `json:"modified_at,omitempty"`
}

// HasCapability reports whether the model advertises the given tag.
func (r *ShowResponse) HasCapability(tag string) bool {
	for _, c := range r.Capabilities {
		if c == tag {
			return true
		}
	}
	return false
}

// Well-known capability tags. The set on the wire is open.
const (
	CapabilityCompletion = "completion"
	CapabilityTools      = "tools"
	CapabilityThinking   = "thinking"
	CapabilityVision     = "vision"
	CapabilityEmbedding  = "embedding"
)

type CopyRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

type DeleteRequest struct {
	Model string `json:"model"`
}

// Metrics are the timing counters attached to final generate/chat payloads.
// Durations arrive as nanosecond integers.
type Metrics struct {
	TotalDuration      time.Duration `json:"total_duration,omitempty"`
	LoadDuration       time.Duration `json:"load_duration,omitempty"`
	PromptEvalCount    int           `json:"prompt_eval_count,omitempty"`
	PromptEvalDuration time.Duration `json:"prompt_eval_duration,omitempty"`
	EvalCount          int           `json:"eval_count,omitempty"`
	EvalDuration       time.Duration `json:"eval_duration,omitempty"`
}

// TokensPerSecond derives the generation rate, or 0 when unknown.
func (m Metrics) TokensPerSecond() float64 {
	if m.EvalDuration <= 0 {
		return 0
	}
	return float64(m.EvalCount) / m.EvalDuration.Seconds()
}
