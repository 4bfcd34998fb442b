package ollama

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bisonbet/ollama-go/internal/ndjson"
)

// ErrInvalidRequest is wrapped by every local validation failure, raised
// before any network I/O.
var ErrInvalidRequest = errors.New("ollama: invalid request")

// ErrTruncatedStream reports a stream that ended with an incomplete trailing
// record, as opposed to a clean end-of-stream.
var ErrTruncatedStream = ndjson.ErrTruncated

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// StatusError reports a non-2xx HTTP response. ErrorMessage carries the
// server's JSON error body when one was present.
type StatusError struct {
	StatusCode   int
	Status       string
	ErrorMessage string
	RequestID    string
}

func (e *StatusError) Error() string {
	var b strings.Builder
	b.WriteString("ollama: ")
	if e.Status != "" {
		b.WriteString(e.Status)
	} else {
		b.WriteString(fmt.Sprintf("http %d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.ErrorMessage); msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	if e.RequestID != "" {
		b.WriteString(" request_id=")
		b.WriteString(e.RequestID)
	}
	return b.String()
}

func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsNotFound reports whether err is a 404 response, e.g. for a model that is
// not present locally.
func IsNotFound(err error) bool {
	se, ok := AsStatusError(err)
	return ok && se.StatusCode == http.StatusNotFound
}

// StreamError is a server-side error payload embedded inside an otherwise
// well-formed stream. The message is surfaced verbatim and terminates the
// stream.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string { return e.Message }

// DecodeError reports a stream record whose bytes did not parse into the
// expected payload type. It terminates the stream; records yielded before it
// remain valid.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "ollama: decode stream record: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ToolCallError reports a finalized tool call whose accumulated argument
// text was not parseable. It is attributed to a single call and reported
// alongside the stream's successful completion, never instead of it.
type ToolCallError struct {
	Index int
	Name  string
	Err   error
}

func (e *ToolCallError) Error() string {
	return fmt.Sprintf("ollama: tool call %d (%s): invalid arguments: %v", e.Index, e.Name, e.Err)
}

func (e *ToolCallError) Unwrap() error { return e.Err }
