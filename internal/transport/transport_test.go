package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	c.Retry = RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
	return c
}

func TestDoJSON_RetriesOn500(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))

	_, raw, err := c.DoJSON(context.Background(), http.MethodGet, "/x", nil, nil)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if string(raw) != `{"ok":true}` {
		t.Fatalf("raw=%q", raw)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("calls=%d", got)
	}
}

func TestDoJSON_NoRetryOn400(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad"}`))
	}))

	_, raw, err := c.DoJSON(context.Background(), http.MethodPost, "/x", nil, map[string]string{"a": "b"})
	var se *HTTPStatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadRequest {
		t.Fatalf("err=%v", err)
	}
	if string(raw) != `{"error":"bad"}` {
		t.Fatalf("raw=%q", raw)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("calls=%d", got)
	}
}

func TestDoJSON_SetsHeaders(t *testing.T) {
	var (
		contentType string
		userAgent   string
		requestID   string
		custom      string
	)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		userAgent = r.Header.Get("User-Agent")
		requestID = r.Header.Get("X-Request-Id")
		custom = r.Header.Get("X-Custom")
		w.Write([]byte(`{}`))
	}))
	c.UserAgent = "test-agent/1.0"
	c.DefaultHeaders.Set("X-Custom", "yes")

	_, _, err := c.DoJSON(context.Background(), http.MethodPost, "/x", nil, map[string]string{"a": "b"})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if contentType != "application/json" {
		t.Fatalf("content-type=%q", contentType)
	}
	if userAgent != "test-agent/1.0" {
		t.Fatalf("user-agent=%q", userAgent)
	}
	if requestID == "" {
		t.Fatal("missing X-Request-Id")
	}
	if custom != "yes" {
		t.Fatalf("custom=%q", custom)
	}
}

func TestDoStream_LeavesBodyOpen(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/x-ndjson" {
			t.Errorf("accept=%q", got)
		}
		w.Write([]byte("{\"a\":1}\n{\"a\":2}\n"))
	}))

	resp, err := c.DoStream(context.Background(), http.MethodPost, "/x", nil, map[string]string{"a": "b"})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	defer resp.Body.Close()

	buf := make([]byte, 8)
	if _, err := resp.Body.Read(buf); err != nil {
		t.Fatalf("read err=%v", err)
	}
}

func TestDoStream_StatusError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model not found"}`))
	}))

	_, err := c.DoStream(context.Background(), http.MethodPost, "/x", nil, nil)
	var se *HTTPStatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Fatalf("err=%v", err)
	}
	if string(se.Body) != `{"error":"model not found"}` {
		t.Fatalf("body=%q", se.Body)
	}
}

func TestHead(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method=%q", r.Method)
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	status, err := c.Head(context.Background(), "/x", nil)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if status != http.StatusNotFound {
		t.Fatalf("status=%d", status)
	}
}

func TestJoinPath(t *testing.T) {
	tests := []struct {
		a, b, want string
	}{
		{"", "/api/generate", "/api/generate"},
		{"/", "/api/generate", "/api/generate"},
		{"/prefix", "/api/generate", "/prefix/api/generate"},
		{"/prefix/", "/api/generate", "/prefix/api/generate"},
		{"/prefix", "api/generate", "/prefix/api/generate"},
	}
	for _, tt := range tests {
		if got := joinPath(tt.a, tt.b); got != tt.want {
			t.Errorf("joinPath(%q, %q) = %q, want %q", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestShouldRetry(t *testing.T) {
	if shouldRetry(context.Canceled) {
		t.Error("canceled should not retry")
	}
	if shouldRetry(&HTTPStatusError{StatusCode: 400}) {
		t.Error("400 should not retry")
	}
	if !shouldRetry(&HTTPStatusError{StatusCode: 503}) {
		t.Error("503 should retry")
	}
	if !shouldRetry(errors.New("connection refused")) {
		t.Error("network error should retry")
	}
}

func TestBackoff_Capped(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		d := backoff(time.Millisecond, 10*time.Millisecond, attempt)
		if d > 12*time.Millisecond { // cap plus max jitter
			t.Fatalf("attempt=%d backoff=%v", attempt, d)
		}
	}
}
