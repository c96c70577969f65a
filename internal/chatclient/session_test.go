package chatclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

type fakeGen struct {
	prompts []string
	reply   func(prompt string) (string, error)
}

func (f *fakeGen) Generate(_ context.Context, text string) (string, error) {
	f.prompts = append(f.prompts, text)
	if f.reply != nil {
		return f.reply(text)
	}
	return "", nil
}

func newSession(in string, gen Generator) (*Session, *bytes.Buffer) {
	var out bytes.Buffer
	return &Session{
		Host: "example:5000",
		Gen:  gen,
		In:   strings.NewReader(in),
		Out:  &out,
		Log:  zerolog.Nop(),
	}, &out
}

func TestSession_QuitSendsNothing(t *testing.T) {
	gen := &fakeGen{}
	s, out := newSession("q\n", gen)
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(gen.prompts) != 0 {
		t.Fatalf("expected no requests, got %v", gen.prompts)
	}
	want := "Making requests to host 'example:5000'\n[Enter 'q' to quit]\n[Enter 'c' to continue generating with the previous output]\nText prompt: "
	if out.String() != want {
		t.Fatalf("output:\n%q\nwant:\n%q", out.String(), want)
	}
}

func TestSession_FirstContinueSendsEmpty(t *testing.T) {
	gen := &fakeGen{}
	s, _ := newSession("c\nq\n", gen)
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(gen.prompts) != 1 || gen.prompts[0] != "" {
		t.Fatalf("prompts = %q", gen.prompts)
	}
}

func TestSession_ContinueSendsPromptPlusGenerated(t *testing.T) {
	gen := &fakeGen{reply: func(p string) (string, error) {
		if p == "Hello" {
			return " world", nil
		}
		return " again", nil
	}}
	s, out := newSession("Hello\nc\nc\nq\n", gen)
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"Hello", "Hello world", "Hello world again"}
	if len(gen.prompts) != len(want) {
		t.Fatalf("prompts = %q", gen.prompts)
	}
	for i := range want {
		if gen.prompts[i] != want[i] {
			t.Fatalf("prompt %d = %q, want %q", i, gen.prompts[i], want[i])
		}
	}
	if !strings.Contains(out.String(), " world\n") {
		t.Fatalf("generated text not printed: %q", out.String())
	}
	if s.Accumulated() != "Hello world again again" {
		t.Fatalf("accumulated = %q", s.Accumulated())
	}
}

func TestSession_EOFEndsLikeQuit(t *testing.T) {
	gen := &fakeGen{reply: func(string) (string, error) { return "!", nil }}
	s, _ := newSession("last line without newline", gen)
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(gen.prompts) != 1 || gen.prompts[0] != "last line without newline" {
		t.Fatalf("prompts = %q", gen.prompts)
	}
}

func TestSession_CRLFInput(t *testing.T) {
	gen := &fakeGen{}
	s, _ := newSession("hi\r\nq\r\n", gen)
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(gen.prompts) != 1 || gen.prompts[0] != "hi" {
		t.Fatalf("prompts = %q", gen.prompts)
	}
}

func TestSession_ErrorTerminates(t *testing.T) {
	boom := &StatusError{Code: 500, Message: "generation failed"}
	gen := &fakeGen{reply: func(string) (string, error) { return "", boom }}
	s, _ := newSession("a\nb\nq\n", gen)
	err := s.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Run err = %v", err)
	}
	if len(gen.prompts) != 1 {
		t.Fatalf("session kept going after failure: %q", gen.prompts)
	}
	if a := ActionFor(err); !a.Terminate || a.ExitCode != 1 {
		t.Fatalf("action = %+v", a)
	}
}

func TestSession_AgainstHTTPServer(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Text string `json:"text"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		seen = append(seen, body.Text)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"input":"`+body.Text+`","generated":" more"}`)
	}))
	defer ts.Close()

	host := strings.TrimPrefix(ts.URL, "http://")
	s, _ := newSession("c\nc\nq\n", New(host, 0))
	s.Host = host
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != "" || seen[1] != " more" {
		t.Fatalf("server saw %q", seen)
	}
}
