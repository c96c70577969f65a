// Package tokenizertest provides a small byte-level BPE model for tests.
package tokenizertest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"textgen/internal/tokenizer"
)

// EOS is the end-of-text token of the fixture model.
const EOS = "<|endoftext|>"

// Merged symbols appended after the 256 byte symbols, in id order.
var merged = []string{"Ġt", "he", "Ġthe", "is", "Ġis", "in", "Ġa"}

// Merges in rank order.
var merges = [][2]string{
	{"Ġ", "t"},
	{"h", "e"},
	{"Ġt", "he"},
	{"i", "s"},
	{"Ġ", "is"},
	{"i", "n"},
	{"Ġ", "a"},
}

// EOSID is the id of EOS in the fixture vocabulary.
var EOSID = 256 + len(merged)

// Vocab returns the fixture vocabulary.
func Vocab() map[string]int {
	v := make(map[string]int, 256+len(merged))
	for id, sym := range tokenizer.ByteSymbols() {
		v[sym] = id
	}
	for i, sym := range merged {
		v[sym] = 256 + i
	}
	return v
}

// TokenizerJSON renders the fixture as a Hugging Face tokenizer.json document.
func TokenizerJSON() []byte {
	doc := map[string]any{
		"version": "1.0",
		"added_tokens": []map[string]any{
			{"id": EOSID, "content": EOS, "special": true},
		},
		"pre_tokenizer": map[string]any{"type": "ByteLevel", "add_prefix_space": false},
		"post_processor": map[string]any{"type": "ByteLevel"},
		"model": map[string]any{
			"type":   "BPE",
			"vocab":  Vocab(),
			"merges": merges,
		},
	}
	b, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return b
}

// New returns the fixture tokenizer.
func New(t testing.TB) *tokenizer.BPE {
	t.Helper()
	tok, err := tokenizer.Load(WriteDir(t, t.TempDir()))
	if err != nil {
		t.Fatalf("load fixture tokenizer: %v", err)
	}
	return tok
}

// WriteDir writes tokenizer.json and tokenizer_config.json into dir and returns dir.
func WriteDir(t testing.TB, dir string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	cfg := `{"add_bos_token": false, "eos_token": "` + EOS + `", "bos_token": "` + EOS + `"}`
	files := map[string][]byte{
		tokenizer.FileTokenizerJSON:   TokenizerJSON(),
		tokenizer.FileTokenizerConfig: []byte(cfg),
	}
	for name, b := range files {
		if err := os.WriteFile(filepath.Join(dir, name), b, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}
