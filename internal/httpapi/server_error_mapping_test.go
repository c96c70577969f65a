package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"textgen/internal/conversation"
	"textgen/internal/textgen"
	"textgen/pkg/types"
)

func TestGenerateErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"http error", mockHTTPError{msg: "not ready", code: http.StatusServiceUnavailable}, http.StatusServiceUnavailable},
		{"dependency", textgen.DependencyUnavailable("llama support not built"), http.StatusServiceUnavailable},
		{"invalid prompt", textgen.InvalidPrompt("bad"), http.StatusBadRequest},
		{"generation", textgen.GenerationError("predict", io.EOF), http.StatusInternalServerError},
		{"deadline", fmt.Errorf("upstream: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"generic", io.EOF, http.StatusInternalServerError},
	}
	for _, c := range cases {
		w := postJSON(NewMux(&mockService{genErr: c.err}), "/text-generation/generate", `{"text":"hi"}`)
		if w.Code != c.want {
			t.Fatalf("%s: expected %d, got %d", c.name, c.want, w.Code)
		}
	}
}

func TestConversationNotFoundMaps404(t *testing.T) {
	svc := &mockService{convErr: fmt.Errorf("lookup: %w", conversation.ErrNotFound)}
	w := postJSON(NewMux(svc), "/conversation/conversation", `{"text":"hi","conversation_id":"gone"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestTooManyRequestsCountsBackpressure(t *testing.T) {
	before := testutil.ToFloat64(backpressureTotal.WithLabelValues("admission"))
	svc := &mockService{genErr: mockHTTPError{msg: "too busy", code: http.StatusTooManyRequests}}
	w := postJSON(NewMux(svc), "/text-generation/generate", `{"text":"hi"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d", w.Code)
	}
	if after := testutil.ToFloat64(backpressureTotal.WithLabelValues("admission")); after < before+1 {
		t.Fatalf("backpressure not counted: before=%v after=%v", before, after)
	}
}

// blockService blocks until the context is done.
type blockService struct{}

func (blockService) Generate(ctx context.Context, text string) (textgen.Result, error) {
	<-ctx.Done()
	return textgen.Result{}, ctx.Err()
}

func (blockService) Converse(ctx context.Context, id, text string) (*conversation.Conversation, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockService) Status() types.StatusResponse { return types.StatusResponse{} }
func (blockService) Ready() bool                  { return true }

func TestGenerateTimeoutReturns504(t *testing.T) {
	defer SetGenerateTimeout(0)
	SetGenerateTimeout(20 * time.Millisecond)
	w := postJSON(NewMux(blockService{}), "/text-generation/generate", `{"text":"x"}`)
	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504 on timeout, got %d", w.Code)
	}
}

func TestClientGoneWritesNoBody(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/conversation/conversation", nil).WithContext(ctx)
	req.Body = io.NopCloser(strings.NewReader(`{"text":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	NewMux(blockService{}).ServeHTTP(w, req)
	if w.Body.Len() != 0 {
		t.Fatalf("expected no body for a gone client, got %q", w.Body.String())
	}
}

func TestShutdownCancelsGeneration(t *testing.T) {
	base, cancel := context.WithCancel(context.Background())
	SetBaseContext(base)
	defer SetBaseContext(nil)
	done := make(chan int, 1)
	go func() {
		w := postJSON(NewMux(blockService{}), "/text-generation/generate", `{"text":"x"}`)
		done <- w.Body.Len()
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case n := <-done:
		if n != 0 {
			t.Fatalf("expected no body during shutdown, got %d bytes", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("generation was not canceled by the base context")
	}
}

func TestStatusForErrorUnwrapsHTTPError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", mockHTTPError{msg: "x", code: http.StatusTeapot})
	if got := statusForError(err); got != http.StatusTeapot {
		t.Fatalf("got %d", got)
	}
	if got := statusForError(errors.New("x")); got != http.StatusInternalServerError {
		t.Fatalf("got %d", got)
	}
}
