package ollama

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/bisonbet/ollama-go/internal/ndjson"
)

// Stream yields decoded records from one streaming exchange until io.EOF.
//
// A stream is finite and non-restartable: once Recv has returned an error,
// every later call returns io.EOF. Close releases the underlying connection
// and may be called at any point to abandon the stream early; no further
// bytes are read after it.
type Stream[T any] interface {
	Recv() (T, error)
	Close() error
}

// jsonStream decodes newline-delimited JSON records from a response body.
// finish is the driver's completion predicate; once it reports true the body
// is closed and the sequence ends.
type jsonStream[T any] struct {
	body   io.ReadCloser
	dec    *ndjson.Decoder
	finish func(*T) bool
	done   bool
}

func newJSONStream[T any](body io.ReadCloser, finish func(*T) bool) *jsonStream[T] {
	return &jsonStream[T]{
		body:   body,
		dec:    ndjson.NewDecoder(body),
		finish: finish,
	}
}

func (s *jsonStream[T]) Recv() (T, error) {
	var zero T
	if s.done {
		return zero, io.EOF
	}

	rec, err := s.dec.Next()
	if err != nil {
		s.stop()
		if errors.Is(err, io.EOF) {
			return zero, io.EOF
		}
		return zero, err
	}

	// A record may be a server error payload instead of a T.
	var probe struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec, &probe); err == nil && probe.Error != "" {
		s.stop()
		return zero, &StreamError{Message: probe.Error}
	}

	var v T
	if err := json.Unmarshal(rec, &v); err != nil {
		s.stop()
		return zero, &DecodeError{Err: err}
	}

	if s.finish != nil && s.finish(&v) {
		s.stop()
	}
	return v, nil
}

func (s *jsonStream[T]) stop() {
	if !s.done {
		s.done = true
		s.body.Close()
	}
}

func (s *jsonStream[T]) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	return s.body.Close()
}

// Collect drains a stream into a slice, closing it on return. Records
// received before an error are returned alongside it.
func Collect[T any](s Stream[T]) ([]T, error) {
	defer s.Close()

	var out []T
	for {
		v, err := s.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, err
		}
		out = append(out, v)
	}
}
