package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/bisonbet/ollama-go/internal/transport"
	"github.com/bisonbet/ollama-go/version"
)

// DefaultHost is the server address used when none is configured. The
// explicit IPv4 loopback avoids IPv6 resolution surprises with "localhost".
const DefaultHost = "http://127.0.0.1:11434"

// RetryPolicy bounds re-attempts of non-streaming exchanges. Streaming
// exchanges are never retried.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Config carries the client's construction-time settings. It is read-only
// after New and safe to share across concurrent calls.
type Config struct {
	// Host is the server base URL. Bare "host", "host:port", ":port" and
	// "scheme://host[:port]" forms are all accepted.
	Host string

	// UserAgent overrides the default identity string
	// (version.UserAgent()).
	UserAgent string

	HTTPClient *http.Client
	Headers    http.Header
	Logger     *slog.Logger
	Retry      RetryPolicy

	// KeepAlive is applied to requests that leave their own policy unset.
	KeepAlive *Duration

	// Options are default tuning values, overridden key-by-key by each
	// request's own bag.
	Options Options
}

// Client talks to one server. All methods are safe for concurrent use; each
// streaming call owns exactly one in-flight exchange and shares no state
// with any other call.
type Client struct {
	t         *transport.Client
	keepAlive *Duration
	options   Options
}

func New(cfg Config) (*Client, error) {
	host, err := parseHost(cfg.Host)
	if err != nil {
		return nil, err
	}

	t, err := transport.New(host, cfg.HTTPClient)
	if err != nil {
		return nil, err
	}

	t.UserAgent = cfg.UserAgent
	if t.UserAgent == "" {
		t.UserAgent = version.UserAgent()
	}
	if cfg.Headers != nil {
		t.DefaultHeaders = cfg.Headers.Clone()
	}
	if cfg.Logger != nil {
		t.Logger = cfg.Logger
	}
	if cfg.Retry.MaxAttempts > 0 {
		t.Retry = transport.RetryConfig{
			MaxAttempts:    cfg.Retry.MaxAttempts,
			InitialBackoff: cfg.Retry.InitialBackoff,
			MaxBackoff:     cfg.Retry.MaxBackoff,
		}
	}

	return &Client{
		t:         t,
		keepAlive: cfg.KeepAlive,
		options:   cfg.Options.Clone(),
	}, nil
}

// FromEnvironment builds a client from OLLAMA_HOST, falling back to
// DefaultHost when unset.
func FromEnvironment() (*Client, error) {
	return New(Config{Host: os.Getenv("OLLAMA_HOST")})
}

// parseHost normalizes the accepted host spellings into a base URL.
func parseHost(host string) (string, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return DefaultHost, nil
	}
	if strings.HasPrefix(host, ":") {
		host = "http://127.0.0.1" + host
	} else if !strings.Contains(host, "://") {
		host = "http://" + host
	}

	u, err := url.Parse(host)
	if err != nil {
		return "", invalidf("parse host %q: %v", host, err)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return "", invalidf("unsupported scheme %q", u.Scheme)
	}
	if u.Port() == "" {
		port := "11434"
		if u.Scheme == "https" {
			port = "443"
		}
		u.Host = u.Hostname() + ":" + port
	}
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String(), nil
}

func (c *Client) keepAliveFor(d *Duration) *Duration {
	if d != nil {
		return d
	}
	return c.keepAlive
}

var (
	streamTrue  = true
	streamFalse = false
)

// wrapErr converts transport status failures into *StatusError, decoding the
// server's JSON error body when present. Transport-level failures pass
// through unmodified.
func (c *Client) wrapErr(err error) error {
	var se *transport.HTTPStatusError
	if !errors.As(err, &se) {
		return err
	}

	out := &StatusError{
		StatusCode: se.StatusCode,
		Status:     http.StatusText(se.StatusCode),
		RequestID:  se.Header.Get("X-Request-Id"),
	}
	var body struct {
		Error string `json:"error"`
	}
	if jerr := json.Unmarshal(se.Body, &body); jerr == nil && body.Error != "" {
		out.ErrorMessage = body.Error
	} else if msg := strings.TrimSpace(string(se.Body)); msg != "" {
		out.ErrorMessage = msg
	}
	return out
}

func (c *Client) postJSON(ctx context.Context, path string, reqBody, out any) error {
	_, raw, err := c.t.DoJSON(ctx, http.MethodPost, path, nil, reqBody)
	if err != nil {
		return c.wrapErr(err)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	_, raw, err := c.t.DoJSON(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return c.wrapErr(err)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func streamJSON[T any](c *Client, ctx context.Context, path string, reqBody any, finish func(*T) bool) (Stream[T], error) {
	resp, err := c.t.DoStream(ctx, http.MethodPost, path, nil, reqBody)
	if err != nil {
		return nil, c.wrapErr(err)
	}
	return newJSONStream(resp.Body, finish), nil
}

// Generate runs a single non-streaming completion.
func (c *Client) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	if err := validateGenerate(req); err != nil {
		return nil, err
	}
	r := *req
	r.Stream = &streamFalse
	r.KeepAlive = c.keepAliveFor(r.KeepAlive)
	r.Options = r.Options.merged(c.options)

	var out GenerateResponse
	if err := c.postJSON(ctx, "/api/generate", &r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateStream runs a completion and yields one GenerateResponse per
// generated token batch. The final event has Done set; the stream ends after
// it.
func (c *Client) GenerateStream(ctx context.Context, req *GenerateRequest) (Stream[GenerateResponse], error) {
	if err := validateGenerate(req); err != nil {
		return nil, err
	}
	r := *req
	r.Stream = &streamTrue
	r.KeepAlive = c.keepAliveFor(r.KeepAlive)
	r.Options = r.Options.merged(c.options)

	return streamJSON(c, ctx, "/api/generate", &r, func(g *GenerateResponse) bool { return g.Done })
}

func validateGenerate(req *GenerateRequest) error {
	if req == nil || req.Model == "" {
		return invalidf("generate: model required")
	}
	if req.Suffix != "" && req.Raw {
		return invalidf("generate: suffix cannot be combined with raw")
	}
	return nil
}

// Chat runs a single non-streaming chat exchange.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if err := validateChat(req); err != nil {
		return nil, err
	}
	r := *req
	r.Stream = &streamFalse
	r.KeepAlive = c.keepAliveFor(r.KeepAlive)
	r.Options = r.Options.merged(c.options)

	var out ChatResponse
	if err := c.postJSON(ctx, "/api/chat", &r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChatStream runs a chat exchange and yields one ChatChunk per streamed
// record. Use a ChatAccumulator to rebuild the final message and any tool
// calls from the chunks.
func (c *Client) ChatStream(ctx context.Context, req *ChatRequest) (Stream[ChatChunk], error) {
	if err := validateChat(req); err != nil {
		return nil, err
	}
	r := *req
	r.Stream = &streamTrue
	r.KeepAlive = c.keepAliveFor(r.KeepAlive)
	r.Options = r.Options.merged(c.options)

	return streamJSON(c, ctx, "/api/chat", &r, func(ch *ChatChunk) bool { return ch.Done })
}

func validateChat(req *ChatRequest) error {
	if req == nil || req.Model == "" {
		return invalidf("chat: model required")
	}
	return nil
}

// Pull downloads a model, returning only the final status.
func (c *Client) Pull(ctx context.Context, req *PullRequest) (*ProgressResponse, error) {
	if req == nil || req.Model == "" {
		return nil, invalidf("pull: model required")
	}
	r := *req
	r.Stream = &streamFalse

	var out ProgressResponse
	if err := c.postJSON(ctx, "/api/pull", &r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PullStream downloads a model and yields progress records as the server
// reports them. Statuses may repeat and Completed may regress; both are
// passed through. The stream ends after a "success" status or when the
// server closes it cleanly.
func (c *Client) PullStream(ctx context.Context, req *PullRequest) (Stream[ProgressResponse], error) {
	if req == nil || req.Model == "" {
		return nil, invalidf("pull: model required")
	}
	r := *req
	r.Stream = &streamTrue

	return streamJSON(c, ctx, "/api/pull", &r, progressDone)
}

// Push uploads a model to a registry, returning only the final status.
func (c *Client) Push(ctx context.Context, req *PushRequest) (*ProgressResponse, error) {
	if req == nil || req.Model == "" {
		return nil, invalidf("push: model required")
	}
	r := *req
	r.Stream = &streamFalse

	var out ProgressResponse
	if err := c.postJSON(ctx, "/api/push", &r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PushStream uploads a model and yields progress records.
func (c *Client) PushStream(ctx context.Context, req *PushRequest) (Stream[ProgressResponse], error) {
	if req == nil || req.Model == "" {
		return nil, invalidf("push: model required")
	}
	r := *req
	r.Stream = &streamTrue

	return streamJSON(c, ctx, "/api/push", &r, progressDone)
}

// Create builds a model, returning only the final status.
func (c *Client) Create(ctx context.Context, req *CreateRequest) (*ProgressResponse, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}
	r := *req
	r.Stream = &streamFalse

	var out ProgressResponse
	if err := c.postJSON(ctx, "/api/create", &r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateStream builds a model and yields progress records.
func (c *Client) CreateStream(ctx context.Context, req *CreateRequest) (Stream[ProgressResponse], error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}
	r := *req
	r.Stream = &streamTrue

	return streamJSON(c, ctx, "/api/create", &r, progressDone)
}

func validateCreate(req *CreateRequest) error {
	if req == nil || req.Model == "" {
		return invalidf("create: model required")
	}
	if (req.Modelfile == "") == (req.Path == "") {
		return invalidf("create: exactly one of modelfile or path required")
	}
	return nil
}

func progressDone(p *ProgressResponse) bool {
	return p.Status == StatusSuccess
}

// Embed computes embeddings for a single input or a batch. The response
// embedding list preserves input order.
func (c *Client) Embed(ctx context.Context, req *EmbedRequest) (*EmbedResponse, error) {
	if req == nil || req.Model == "" {
		return nil, invalidf("embed: model required")
	}
	if req.Input == nil {
		return nil, invalidf("embed: input required")
	}
	if req.Dimensions < 0 {
		return nil, invalidf("embed: dimensions must be positive, got %d", req.Dimensions)
	}
	r := *req
	r.KeepAlive = c.keepAliveFor(r.KeepAlive)
	r.Options = r.Options.merged(c.options)

	var out EmbedResponse
	if err := c.postJSON(ctx, "/api/embed", &r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Embeddings is the legacy single-prompt embedding endpoint.
func (c *Client) Embeddings(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error) {
	if req == nil || req.Model == "" {
		return nil, invalidf("embeddings: model required")
	}
	r := *req
	r.KeepAlive = c.keepAliveFor(r.KeepAlive)
	r.Options = r.Options.merged(c.options)

	var out EmbeddingResponse
	if err := c.postJSON(ctx, "/api/embeddings", &r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns the models available locally.
func (c *Client) List(ctx context.Context) (*ListResponse, error) {
	var out ListResponse
	if err := c.getJSON(ctx, "/api/tags", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRunning returns the models currently loaded in memory, including each
// one's keep-alive expiry.
func (c *Client) ListRunning(ctx context.Context) (*ProcessResponse, error) {
	var out ProcessResponse
	if err := c.getJSON(ctx, "/api/ps", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Show returns model metadata, including its opaque capability tag set.
func (c *Client) Show(ctx context.Context, req *ShowRequest) (*ShowResponse, error) {
	if req == nil || req.Model == "" {
		return nil, invalidf("show: model required")
	}
	var out ShowResponse
	if err := c.postJSON(ctx, "/api/show", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Copy duplicates a model under a new name.
func (c *Client) Copy(ctx context.Context, req *CopyRequest) error {
	if req == nil || req.Source == "" || req.Destination == "" {
		return invalidf("copy: source and destination required")
	}
	return c.postJSON(ctx, "/api/copy", req, nil)
}

// Delete removes a local model.
func (c *Client) Delete(ctx context.Context, req *DeleteRequest) error {
	if req == nil || req.Model == "" {
		return invalidf("delete: model required")
	}
	_, _, err := c.t.DoJSON(ctx, http.MethodDelete, "/api/delete", nil, req)
	if err != nil {
		return c.wrapErr(err)
	}
	return nil
}

// Version returns the server version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	var out struct {
		Version string `json:"version"`
	}
	if err := c.getJSON(ctx, "/api/version", &out); err != nil {
		return "", err
	}
	return out.Version, nil
}

// Heartbeat reports whether the server is reachable.
func (c *Client) Heartbeat(ctx context.Context) error {
	return c.getJSON(ctx, "/", nil)
}

var digestPattern = regexp.MustCompile(`^sha256:[a-f0-9]{64}$`)

// HeadBlob reports whether a blob with the given digest exists on the
// server. A missing blob is (false, nil), not an error.
func (c *Client) HeadBlob(ctx context.Context, digest string) (bool, error) {
	if !digestPattern.MatchString(digest) {
		return false, invalidf("blob: malformed digest %q", digest)
	}
	status, err := c.t.Head(ctx, "/api/blobs/"+digest, nil)
	if err != nil {
		return false, err
	}
	switch {
	case status >= 200 && status < 300:
		return true, nil
	case status == http.StatusNotFound:
		return false, nil
	default:
		return false, &StatusError{StatusCode: status, Status: http.StatusText(status)}
	}
}

// CreateBlob uploads blob content under a caller-supplied digest. The digest
// is validated for shape only; the server verifies the content hash.
func (c *Client) CreateBlob(ctx context.Context, digest string, r io.Reader) error {
	if !digestPattern.MatchString(digest) {
		return invalidf("blob: malformed digest %q", digest)
	}
	hdr := http.Header{"Content-Type": []string{"application/octet-stream"}}
	_, _, err := c.t.DoRaw(ctx, http.MethodPost, "/api/blobs/"+digest, hdr, r)
	if err != nil {
		return c.wrapErr(err)
	}
	return nil
}
