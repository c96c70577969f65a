package blackbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"textgen/internal/tokenizer/tokenizertest"
)

// findFreePort picks an available TCP port on localhost.
func findFreePort(t *testing.T) (int, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	return port, func() { _ = ln.Close() }
}

func projectRootFromThisFile(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	// this file: <root>/tests/blackbox/blackbox_test.go
	return filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
}

var (
	buildOnce sync.Once
	binDir    string
	buildErr  error
)

// buildBinaries compiles textgend and textgen-chat once per test run.
func buildBinaries(t *testing.T) (server, chat string) {
	t.Helper()
	if testing.Short() {
		t.Skip("black-box tests build binaries; skipped in -short mode")
	}
	buildOnce.Do(func() {
		root := projectRootFromThisFile(t)
		binDir, buildErr = os.MkdirTemp("", "textgen-bb-")
		if buildErr != nil {
			return
		}
		for _, name := range []string{"textgend", "textgen-chat"} {
			cmd := exec.Command("go", "build", "-o", filepath.Join(binDir, name), "./cmd/"+name)
			cmd.Dir = root
			cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
			if out, err := cmd.CombinedOutput(); err != nil {
				buildErr = fmt.Errorf("go build %s: %v\n%s", name, err, out)
				return
			}
		}
	})
	if buildErr != nil {
		t.Fatal(buildErr)
	}
	return filepath.Join(binDir, "textgend"), filepath.Join(binDir, "textgen-chat")
}

// fakeCompletions is an OpenAI-compatible upstream that always continues
// with the same text.
type fakeCompletions struct {
	mu      sync.Mutex
	prompts []string
	reply   string
}

func (f *fakeCompletions) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/completions" {
		http.NotFound(w, r)
		return
	}
	var req struct {
		Prompt    string `json:"prompt"`
		MaxTokens int    `json:"max_tokens"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	f.mu.Lock()
	f.prompts = append(f.prompts, req.Prompt)
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `{"choices":[{"text":%q}]}`, f.reply)
}

func (f *fakeCompletions) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

type serverProc struct {
	cmd  *exec.Cmd
	base string // http base URL, e.g. http://127.0.0.1:18080
	host string
}

func startServer(t *testing.T, bin, upstream string, extra ...string) *serverProc {
	t.Helper()
	modelDir := t.TempDir()
	tokenizertest.WriteDir(t, filepath.Join(modelDir, "acme", "tiny", "tokenizer"))

	port, release := findFreePort(t)
	release()
	host := fmt.Sprintf("127.0.0.1:%d", port)
	args := append([]string{
		"serve",
		"--addr", host,
		"--model-dir", modelDir,
		"--model", "acme/tiny",
		"--backend", "openai",
		"--openai-base-url", upstream + "/v1",
		"--log-level", "warn",
	}, extra...)
	cmd := exec.Command(bin, args...)
	cmd.Env = os.Environ()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() { _ = cmd.Process.Kill(); _ = cmd.Wait() })

	base := "http://" + host
	deadline := time.Now().Add(10 * time.Second)
	for {
		resp, err := http.Get(base + "/readyz")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not become ready in time")
		}
		time.Sleep(50 * time.Millisecond)
	}
	return &serverProc{cmd: cmd, base: base, host: host}
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func postJSON(t *testing.T, url string, payload string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, strings.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func TestBlackbox_Flow(t *testing.T) {
	bin, _ := buildBinaries(t)
	up := &fakeCompletions{reply: " is a"}
	upstream := httptest.NewServer(up)
	defer upstream.Close()
	sp := startServer(t, bin, upstream.URL)

	resp, body := get(t, sp.base+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/healthz %d %s", resp.StatusCode, body)
	}

	resp, body = postJSON(t, sp.base+"/text-generation/generate", `{"text":"the"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/text-generation/generate %d %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	var gen struct {
		Input     string `json:"input"`
		Generated string `json:"generated"`
	}
	if err := json.Unmarshal(body, &gen); err != nil {
		t.Fatalf("json: %v body=%s", err, body)
	}
	if gen.Input != "the" || gen.Generated != " is a" {
		t.Fatalf("response = %+v", gen)
	}

	resp, body = postJSON(t, sp.base+"/text-generation/generate", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing text: %d %s", resp.StatusCode, body)
	}

	resp, body = postJSON(t, sp.base+"/conversation/conversation", `{"text":"hi"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/conversation/conversation %d %s", resp.StatusCode, body)
	}
	var conv struct {
		Conversation   string `json:"conversation"`
		ConversationID string `json:"conversation_id"`
	}
	if err := json.Unmarshal(body, &conv); err != nil {
		t.Fatalf("json: %v body=%s", err, body)
	}
	if !strings.HasPrefix(conv.Conversation, "Conversation id: "+conv.ConversationID+"\n") ||
		!strings.Contains(conv.Conversation, "user >> hi\nbot >> is a\n") {
		t.Fatalf("conversation = %q", conv.Conversation)
	}

	resp, body = postJSON(t, sp.base+"/conversation/conversation", `{"text":"x","conversation_id":"nope"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown conversation: %d %s", resp.StatusCode, body)
	}

	resp, body = get(t, sp.base+"/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/status %d %s", resp.StatusCode, body)
	}
	var st struct {
		State            string `json:"state"`
		Backend          string `json:"backend"`
		Conversations    int    `json:"conversations"`
		GenerationsTotal uint64 `json:"generations_total"`
	}
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("/status json: %v body=%s", err, body)
	}
	if st.State != "ready" || st.Backend != "openai" || st.Conversations != 1 || st.GenerationsTotal != 2 {
		t.Fatalf("status = %+v", st)
	}

	resp, body = get(t, sp.base+"/metrics")
	if resp.StatusCode != http.StatusOK || !bytes.Contains(body, []byte("textgen_http_requests_total")) {
		t.Fatalf("/metrics %d", resp.StatusCode)
	}
}

func TestBlackbox_ChatClient(t *testing.T) {
	bin, chat := buildBinaries(t)
	up := &fakeCompletions{reply: " more"}
	upstream := httptest.NewServer(up)
	defer upstream.Close()
	sp := startServer(t, bin, upstream.URL)

	cmd := exec.Command(chat, sp.host)
	cmd.Stdin = strings.NewReader("c\nthe\nc\nq\n")
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("textgen-chat: %v\n%s", err, out.String())
	}

	want := []string{"", "the", "the more"}
	got := up.Prompts()
	if len(got) != len(want) {
		t.Fatalf("upstream prompts = %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("prompt %d = %q, want %q", i, got[i], want[i])
		}
	}
	if !strings.HasPrefix(out.String(), "Making requests to host '"+sp.host+"'\n") {
		t.Fatalf("banner = %q", out.String())
	}
}

func TestBlackbox_ChatClientMissingHost(t *testing.T) {
	_, chat := buildBinaries(t)
	cmd := exec.Command(chat)
	out, err := cmd.Output()
	exitErr, ok := err.(*exec.ExitError)
	if !ok || exitErr.ExitCode() != 255 {
		t.Fatalf("want exit status 255, got %v", err)
	}
	if !strings.Contains(string(out), "\t$ textgen-chat 192.168.0.1") {
		t.Fatalf("usage = %q", out)
	}
}

func TestBlackbox_UpstreamDown_503(t *testing.T) {
	bin, _ := buildBinaries(t)
	upstream := httptest.NewServer(http.NotFoundHandler())
	url := upstream.URL
	sp := startServer(t, bin, url)
	upstream.Close()

	resp, body := postJSON(t, sp.base+"/text-generation/generate", `{"text":"the"}`)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d, body=%s", resp.StatusCode, body)
	}
	var e struct {
		Error string `json:"error"`
		Code  int    `json:"code"`
	}
	if err := json.Unmarshal(body, &e); err != nil || e.Code != http.StatusServiceUnavailable || e.Error == "" {
		t.Fatalf("error body = %s", body)
	}
}
