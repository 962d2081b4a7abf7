package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

type ipv4Server struct {
	URL string
	srv *http.Server
	ln  net.Listener
}

func newIPv4Server(t *testing.T, handler http.Handler) *ipv4Server {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
			t.Skipf("skipping test: cannot open local listener (%v)", err)
		}
		t.Fatalf("listen tcp4: %v", err)
	}
	srv := &http.Server{Handler: handler}
	s := &ipv4Server{
		URL: "http://" + ln.Addr().String(),
		srv: srv,
		ln:  ln,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(fmt.Sprintf("test server serve: %v", err))
		}
	}()
	return s
}

func (s *ipv4Server) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}

func testServerSequence(t *testing.T, statuses []int, headers []http.Header, bodyOK any) *ipv4Server {
	t.Helper()
	var idx int32
	return newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		i := int(atomic.AddInt32(&idx, 1)) - 1
		if i >= len(statuses) {
			i = len(statuses) - 1
		}
		st := statuses[i]
		if headers != nil && i < len(headers) && headers[i] != nil {
			for k, vals := range headers[i] {
				for _, v := range vals {
					w.Header().Add(k, v)
				}
			}
		}
		if st >= 200 && st < 300 {
			w.WriteHeader(st)
			_ = json.NewEncoder(w).Encode(bodyOK)
			return
		}
		w.WriteHeader(st)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "rate limited"}})
	}))
}

func TestGenerateRetriesOn429(t *testing.T) {
	okBody := GenerateResponse{Choices: []Choice{{Message: Message{Role: "assistant", Content: "ok"}}}}
	srv := testServerSequence(t, []int{429, 200}, []http.Header{{"Retry-After": {"0"}}, {}}, okBody)
	defer srv.Close()

	c := NewClientWithBaseURL("test", 2*time.Second, 3, 10*time.Millisecond, 100*time.Millisecond, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := c.Generate(ctx, GenerateRequest{Model: "test-model", Messages: []Message{{Role: "user", Content: "hi"}}, MaxTokens: 1})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content != "ok" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestRetryAfterHonored(t *testing.T) {
	okBody := GenerateResponse{Choices: []Choice{{Message: Message{Role: "assistant", Content: "ok"}}}}
	// Ask server to instruct a 1-second Retry-After, then succeed.
	srv := testServerSequence(t, []int{429, 200}, []http.Header{{"Retry-After": {"1"}}, {}}, okBody)
	defer srv.Close()

	c := NewClientWithBaseURL("test", 5*time.Second, 3, 0, 0, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	_, err := c.Generate(ctx, GenerateRequest{Model: "test-model", Messages: []Message{{Role: "user", Content: "hi"}}, MaxTokens: 1})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	elapsed := time.Since(start)
	if elapsed < 900*time.Millisecond { // allow some scheduling variance
		t.Fatalf("expected at least ~1s delay due to Retry-After, got %v", elapsed)
	}
}

func TestErrorIncludesRequestID(t *testing.T) {
	// Server returns 400 with X-Request-Id header
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Request-Id", "req_test_123")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "bad req", "code": "bad_request"}})
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test", 2*time.Second, 1, 10*time.Millisecond, 50*time.Millisecond, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := c.Generate(ctx, GenerateRequest{Model: "test-model", Messages: []Message{{Role: "user", Content: "hi"}}, MaxTokens: 1})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "req_test_123") {
		t.Fatalf("expected request id in error, got: %v", err)
	}
}

func TestGenerateDoesNotRetryAuthErrors(t *testing.T) {
	var calls int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "no key"}})
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test", 2*time.Second, 3, 10*time.Millisecond, 50*time.Millisecond, srv.URL)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "m", Messages: []Message{{Role: "user", Content: "hi"}}})
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected 1 call, got %d", n)
	}
}

func TestGenerateServerErrorExhaustsRetries(t *testing.T) {
	srv := testServerSequence(t, []int{502, 502, 502}, nil, nil)
	defer srv.Close()

	c := NewClientWithBaseURL("test", 2*time.Second, 3, time.Millisecond, 5*time.Millisecond, srv.URL)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "m", Messages: []Message{{Role: "user", Content: "hi"}}})
	var srvErr *ServerError
	if !errors.As(err, &srvErr) {
		t.Fatalf("expected ServerError, got %v", err)
	}
}

func TestGenerateRequiresKeyAndModel(t *testing.T) {
	c := NewOpenRouterClient("")
	if _, err := c.Generate(context.Background(), GenerateRequest{Model: "m"}); err == nil || !strings.Contains(err.Error(), "OPENROUTER_API_KEY") {
		t.Fatalf("expected missing key error, got %v", err)
	}
	c = NewOpenRouterClient("k")
	if _, err := c.Generate(context.Background(), GenerateRequest{Messages: []Message{{Role: "user", Content: "x"}}}); err == nil {
		t.Fatalf("expected empty model error")
	}
}

func TestClassifyAPIError(t *testing.T) {
	resp := &http.Response{Header: http.Header{"Retry-After": {"7"}}}
	cases := []struct {
		status int
		code   string
		msg    string
		check  func(error) bool
	}{
		{403, "", "", func(err error) bool { var e *AuthError; return errors.As(err, &e) }},
		{404, "model_not_found", "", func(err error) bool { var e *ModelNotFoundError; return errors.As(err, &e) }},
		{400, "", "", func(err error) bool { var e *BadRequestError; return errors.As(err, &e) }},
		{402, "", "Billing quota reached", func(err error) bool { var e *QuotaExceededError; return errors.As(err, &e) }},
		{503, "", "", func(err error) bool { var e *ServerError; return errors.As(err, &e) }},
		{429, "", "", func(err error) bool {
			var e *RateLimitError
			return errors.As(err, &e) && e.RetryAfter == 7*time.Second
		}},
	}
	for _, tc := range cases {
		err := classifyAPIError(&APIError{StatusCode: tc.status, Code: tc.code, Message: tc.msg}, resp)
		if !tc.check(err) {
			t.Errorf("status %d: unexpected classification %T (%v)", tc.status, err, err)
		}
	}
}

func TestAPIErrorString(t *testing.T) {
	e := &APIError{StatusCode: 400, Code: "bad", RequestID: "r1", Message: "nope"}
	if got := e.Error(); got != "api error: status=400 code=bad request_id=r1 message=nope" {
		t.Fatalf("unexpected: %q", got)
	}
	if got := (&APIError{StatusCode: 500}).Error(); got != "api error: status=500" {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestRegistryKnowsProviders(t *testing.T) {
	for _, p := range []string{ProviderOpenRouter, ProviderAnthropic, ProviderOllama, "Local"} {
		if _, ok := GetRuntime(p, RuntimeConfig{}); !ok {
			t.Errorf("provider %s not registered", p)
		}
	}
	if _, err := MustRuntime("nope", RuntimeConfig{}); err == nil || !strings.Contains(err.Error(), "anthropic") {
		t.Fatalf("expected unknown provider error listing providers, got %v", err)
	}
}

func TestHint(t *testing.T) {
	if Hint(&AuthError{APIError: &APIError{StatusCode: 401}}) == "" {
		t.Fatal("expected auth hint")
	}
	if h := Hint(fmt.Errorf("wrapped: %w", &UnreachableError{Host: "h"})); !strings.Contains(h, "ollama_host") {
		t.Fatalf("unexpected hint %q", h)
	}
	if Hint(errors.New("other")) != "" {
		t.Fatal("expected no hint")
	}
}
