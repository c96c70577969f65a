// Package modelstore resolves the on-disk layout of a downloaded model
// and fetches it from a Hugging Face compatible hub.
//
// A model with id "org/name" lives under <model-dir>/org/name/ with two
// subdirectories: tokenizer/ (HF tokenizer files) and model/ (backend
// weights such as a .gguf file).
package modelstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Subdirectory names under a model's directory.
const (
	TokenizerSubdir = "tokenizer"
	ModelSubdir     = "model"
)

// ErrNotDownloaded is returned when the expected files are missing.
var ErrNotDownloaded = errors.New("model not downloaded")

// Layout locates one model under a model directory.
type Layout struct {
	Root  string
	Model string
}

// NewLayout expands and absolutises root and validates the model id.
func NewLayout(root, model string) (Layout, error) {
	model = strings.Trim(strings.TrimSpace(model), "/")
	if model == "" {
		return Layout{}, fmt.Errorf("empty model id")
	}
	for _, seg := range strings.Split(model, "/") {
		if seg == "" || seg == "." || seg == ".." || strings.ContainsRune(seg, '\\') {
			return Layout{}, fmt.Errorf("invalid model id %q", model)
		}
	}
	base, err := ExpandHome(root)
	if err != nil {
		return Layout{}, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return Layout{}, fmt.Errorf("abs path: %w", err)
	}
	return Layout{Root: abs, Model: model}, nil
}

// Dir is <root>/<model>.
func (l Layout) Dir() string { return filepath.Join(l.Root, filepath.FromSlash(l.Model)) }

// TokenizerDir is <root>/<model>/tokenizer.
func (l Layout) TokenizerDir() string { return filepath.Join(l.Dir(), TokenizerSubdir) }

// ModelDir is <root>/<model>/model.
func (l Layout) ModelDir() string { return filepath.Join(l.Dir(), ModelSubdir) }

// CheckTokenizer reports ErrNotDownloaded when the tokenizer directory is
// missing or empty.
func (l Layout) CheckTokenizer() error {
	entries, err := os.ReadDir(l.TokenizerDir())
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(entries) == 0) {
		return fmt.Errorf("%w: %s has no tokenizer files (run `textgend download --model %s`)", ErrNotDownloaded, l.TokenizerDir(), l.Model)
	}
	return err
}

// FindWeights resolves the weights file for the llama backend. A non-empty
// explicit path is used as is (relative paths are taken from ModelDir);
// otherwise ModelDir must contain exactly one *.gguf file.
func (l Layout) FindWeights(explicit string) (string, error) {
	if explicit != "" {
		p, err := ExpandHome(explicit)
		if err != nil {
			return "", err
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(l.ModelDir(), p)
		}
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("weights: %w", err)
		}
		return p, nil
	}
	entries, err := os.ReadDir(l.ModelDir())
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s does not exist", ErrNotDownloaded, l.ModelDir())
	}
	if err != nil {
		return "", fmt.Errorf("read dir: %w", err)
	}
	var found []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".gguf") {
			found = append(found, e.Name())
		}
	}
	sort.Strings(found)
	switch len(found) {
	case 0:
		return "", fmt.Errorf("%w: no .gguf file in %s", ErrNotDownloaded, l.ModelDir())
	case 1:
		return filepath.Join(l.ModelDir(), found[0]), nil
	default:
		return "", fmt.Errorf("several .gguf files in %s (%s); set llama.weights", l.ModelDir(), strings.Join(found, ", "))
	}
}

// ExpandHome expands a leading '~' to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}
