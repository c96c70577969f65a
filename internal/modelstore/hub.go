package modelstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultEndpoint is the public Hugging Face hub.
const DefaultEndpoint = "https://huggingface.co"

// TokenizerFiles are fetched into tokenizer/. All are optional individually;
// the download fails unless tokenizer.json or vocab.json+merges.txt arrive.
var TokenizerFiles = []string{
	"tokenizer.json",
	"vocab.json",
	"merges.txt",
	"tokenizer_config.json",
	"special_tokens_map.json",
}

// errRemoteMissing marks a 404 from the hub.
var errRemoteMissing = errors.New("not found on hub")

// Downloader fetches model files from {Endpoint}/{model}/resolve/{Revision}/{file}.
type Downloader struct {
	Endpoint string
	Token    string
	Revision string
	// Parallel bounds concurrent file downloads (0 = 4).
	Parallel int
	// Force re-downloads files that already exist.
	Force  bool
	Client *http.Client
	Log    zerolog.Logger
}

// Report lists what a Download call did, by destination path.
type Report struct {
	Fetched []string
	Skipped []string
	Missing []string
}

type job struct {
	remote   string
	dest     string
	required bool
}

// Download fetches the tokenizer files plus config.json and the named
// weight files into the layout.
func (d *Downloader) Download(ctx context.Context, l Layout, weights []string) (Report, error) {
	var jobs []job
	for _, name := range TokenizerFiles {
		jobs = append(jobs, job{remote: name, dest: filepath.Join(l.TokenizerDir(), name)})
	}
	jobs = append(jobs, job{remote: "config.json", dest: filepath.Join(l.ModelDir(), "config.json")})
	for _, w := range weights {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		jobs = append(jobs, job{remote: w, dest: filepath.Join(l.ModelDir(), filepath.Base(w)), required: true})
	}
	for _, dir := range []string{l.TokenizerDir(), l.ModelDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Report{}, err
		}
	}

	var (
		mu  sync.Mutex
		rep Report
	)
	record := func(list *[]string, p string) {
		mu.Lock()
		*list = append(*list, p)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	limit := d.Parallel
	if limit <= 0 {
		limit = 4
	}
	g.SetLimit(limit)
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			if !d.Force && pathExists(j.dest) {
				record(&rep.Skipped, j.dest)
				return nil
			}
			err := d.fetch(gctx, l.Model, j.remote, j.dest)
			switch {
			case err == nil:
				record(&rep.Fetched, j.dest)
				d.Log.Info().Str("file", j.remote).Str("dest", j.dest).Msg("downloaded")
				return nil
			case errors.Is(err, errRemoteMissing) && !j.required:
				record(&rep.Missing, j.dest)
				d.Log.Debug().Str("file", j.remote).Msg("optional file not on hub")
				return nil
			default:
				return fmt.Errorf("%s: %w", j.remote, err)
			}
		})
	}
	if err := g.Wait(); err != nil {
		return rep, err
	}
	if err := l.checkTokenizerFiles(); err != nil {
		return rep, err
	}
	return rep, nil
}

func (l Layout) checkTokenizerFiles() error {
	dir := l.TokenizerDir()
	if pathExists(filepath.Join(dir, "tokenizer.json")) {
		return nil
	}
	if pathExists(filepath.Join(dir, "vocab.json")) && pathExists(filepath.Join(dir, "merges.txt")) {
		return nil
	}
	return fmt.Errorf("%w: hub has neither tokenizer.json nor vocab.json+merges.txt for %s", ErrNotDownloaded, l.Model)
}

func (d *Downloader) fileURL(model, file string) string {
	endpoint := strings.TrimRight(d.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	rev := d.Revision
	if rev == "" {
		rev = "main"
	}
	return endpoint + "/" + model + "/resolve/" + url.PathEscape(rev) + "/" + file
}

// fetch streams one file into dest through a temp file and a rename, so a
// partial download never looks complete.
func (d *Downloader) fetch(ctx context.Context, model, file, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.fileURL(model, file), nil)
	if err != nil {
		return err
	}
	if d.Token != "" {
		req.Header.Set("Authorization", "Bearer "+d.Token)
	}
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errRemoteMissing
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("hub returned status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".part-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
