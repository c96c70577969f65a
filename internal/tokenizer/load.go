package tokenizer

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
)

// Files written by a Hugging Face `save_pretrained` call for GPT-2 style
// tokenizers.
const (
	FileTokenizerJSON   = "tokenizer.json"
	FileVocabJSON       = "vocab.json"
	FileMergesTxt       = "merges.txt"
	FileTokenizerConfig = "tokenizer_config.json"
	FileSpecialTokens   = "special_tokens_map.json"
)

type hfTokenizerJSON struct {
	AddedTokens []struct {
		ID      int    `json:"id"`
		Content string `json:"content"`
		Special bool   `json:"special"`
	} `json:"added_tokens"`
	PreTokenizer struct {
		Type           string `json:"type"`
		AddPrefixSpace bool   `json:"add_prefix_space"`
		Pretokenizers  []struct {
			Type           string `json:"type"`
			AddPrefixSpace bool   `json:"add_prefix_space"`
			Pattern        struct {
				Regex string `json:"Regex"`
			} `json:"pattern"`
		} `json:"pretokenizers"`
	} `json:"pre_tokenizer"`
	PostProcessor struct {
		Type       string `json:"type"`
		Processors []struct {
			Type          string `json:"type"`
			SpecialTokens map[string]struct {
				IDs []int `json:"ids"`
			} `json:"special_tokens"`
		} `json:"processors"`
	} `json:"post_processor"`
	Model struct {
		Type     string          `json:"type"`
		Vocab    map[string]int  `json:"vocab"`
		Merges   json.RawMessage `json:"merges"`
		UnkToken string          `json:"unk_token"`
	} `json:"model"`
}

// tokenSpec is either "text" or {"content": "text", ...}.
type tokenSpec string

func (s *tokenSpec) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = tokenSpec(v)
		return nil
	}
	var obj struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*s = tokenSpec(obj.Content)
	return nil
}

type hfTokenizerConfig struct {
	AddBOS         bool      `json:"add_bos_token"`
	AddPrefixSpace bool      `json:"add_prefix_space"`
	BOS            tokenSpec `json:"bos_token"`
	EOS            tokenSpec `json:"eos_token"`
	UNK            tokenSpec `json:"unk_token"`
}

// Load reads a tokenizer directory. tokenizer.json is preferred; otherwise
// the slow-tokenizer pair vocab.json + merges.txt is used. Special token
// names come from tokenizer_config.json and special_tokens_map.json when
// present.
func Load(dir string) (*BPE, error) {
	var opts Options
	raw, err := os.ReadFile(filepath.Join(dir, FileTokenizerJSON))
	switch {
	case err == nil:
		if opts, err = parseTokenizerJSON(raw); err != nil {
			return nil, fmt.Errorf("%s: %w", FileTokenizerJSON, err)
		}
	case errors.Is(err, os.ErrNotExist):
		if opts, err = loadVocabMerges(dir); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	for _, name := range []string{FileSpecialTokens, FileTokenizerConfig} {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var cfg hfTokenizerConfig
		if err := json.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		applyConfig(&opts, cfg)
	}
	return New(opts)
}

func applyConfig(opts *Options, cfg hfTokenizerConfig) {
	if cfg.BOS != "" {
		opts.BOSToken = string(cfg.BOS)
	}
	if cfg.EOS != "" {
		opts.EOSToken = string(cfg.EOS)
	}
	if cfg.UNK != "" {
		opts.UnkToken = string(cfg.UNK)
	}
	opts.AddBOS = opts.AddBOS || cfg.AddBOS
	opts.AddPrefixSpace = opts.AddPrefixSpace || cfg.AddPrefixSpace
}

// ParseTokenizerJSON builds a tokenizer from the contents of a tokenizer.json file.
func ParseTokenizerJSON(raw []byte) (*BPE, error) {
	opts, err := parseTokenizerJSON(raw)
	if err != nil {
		return nil, err
	}
	return New(opts)
}

func parseTokenizerJSON(raw []byte) (Options, error) {
	var tj hfTokenizerJSON
	if err := json.Unmarshal(raw, &tj); err != nil {
		return Options{}, err
	}
	if !strings.EqualFold(tj.Model.Type, "BPE") {
		return Options{}, fmt.Errorf("unsupported tokenizer model: %q", tj.Model.Type)
	}
	merges, err := parseMerges(tj.Model.Merges)
	if err != nil {
		return Options{}, err
	}
	opts := Options{
		Vocab:          tj.Model.Vocab,
		Merges:         merges,
		UnkToken:       tj.Model.UnkToken,
		AddPrefixSpace: tj.PreTokenizer.AddPrefixSpace,
	}
	for _, at := range tj.AddedTokens {
		opts.AddedTokens = append(opts.AddedTokens, AddedToken{ID: at.ID, Content: at.Content, Special: at.Special})
	}
	if tj.PreTokenizer.Type == "Sequence" {
		for _, p := range tj.PreTokenizer.Pretokenizers {
			if p.Type == "Split" && p.Pattern.Regex != "" && opts.Pattern == "" {
				opts.Pattern = p.Pattern.Regex
			}
			if p.Type == "ByteLevel" && p.AddPrefixSpace {
				opts.AddPrefixSpace = true
			}
		}
	}
	if strings.Contains(opts.Pattern, "(?!") {
		opts.Pattern = llama3Pattern
	}
	for _, proc := range tj.PostProcessor.Processors {
		if proc.Type != "TemplateProcessing" {
			continue
		}
		for name, spec := range proc.SpecialTokens {
			if len(spec.IDs) > 0 && opts.BOSToken == "" {
				opts.BOSToken = name
				opts.AddBOS = true
			}
		}
	}
	return opts, nil
}

// parseMerges accepts both merge encodings: "a b" strings and ["a", "b"] pairs.
func parseMerges(raw json.RawMessage) ([][2]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("merges: %w", err)
	}
	out := make([][2]string, 0, len(items))
	for i, it := range items {
		var s string
		if err := json.Unmarshal(it, &s); err == nil {
			m, ok := splitMerge(s)
			if ok {
				out = append(out, m)
			}
			continue
		}
		var p []string
		if err := json.Unmarshal(it, &p); err != nil || len(p) != 2 {
			return nil, fmt.Errorf("merges[%d]: expected string or pair", i)
		}
		out = append(out, [2]string{p[0], p[1]})
	}
	return out, nil
}

func splitMerge(line string) ([2]string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return [2]string{}, false
	}
	parts := strings.Split(line, " ")
	if len(parts) != 2 {
		return [2]string{}, false
	}
	return [2]string{parts[0], parts[1]}, true
}

func loadVocabMerges(dir string) (Options, error) {
	raw, err := os.ReadFile(filepath.Join(dir, FileVocabJSON))
	if err != nil {
		return Options{}, fmt.Errorf("tokenizer files missing in %s: %w", dir, err)
	}
	var vocab map[string]int
	if err := json.Unmarshal(raw, &vocab); err != nil {
		return Options{}, fmt.Errorf("%s: %w", FileVocabJSON, err)
	}
	f, err := os.Open(filepath.Join(dir, FileMergesTxt))
	if err != nil {
		return Options{}, err
	}
	defer f.Close()
	var merges [][2]string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if m, ok := splitMerge(sc.Text()); ok {
			merges = append(merges, m)
		}
	}
	if err := sc.Err(); err != nil {
		return Options{}, fmt.Errorf("%s: %w", FileMergesTxt, err)
	}
	opts := Options{Vocab: vocab, Merges: merges}
	// GPT-2's slow tokenizer keeps <|endoftext|> inside vocab.json.
	if _, ok := vocab["<|endoftext|>"]; ok {
		opts.EOSToken = "<|endoftext|>"
	}
	return opts, nil
}
