package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"textgen/internal/modelstore"
)

func buildDownloadCmd(opts *options) *cobra.Command {
	var (
		files    string
		revision string
		force    bool
		parallel int
	)
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Fetch tokenizer and model files from the Hugging Face hub",
		Long: "download stores the tokenizer under <model-dir>/<model>/tokenizer and config.json plus\n" +
			"the weight files under <model-dir>/<model>/model, where `serve` expects them.",
		Example: "  textgend download --model microsoft/DialoGPT-medium --files dialogpt-medium.Q8_0.gguf",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			layout, err := modelstore.NewLayout(cfg.ModelDir, cfg.Model)
			if err != nil {
				return err
			}
			weights := splitCSV(files)
			if len(weights) == 0 && cfg.Llama.Weights != "" && !filepath.IsAbs(cfg.Llama.Weights) {
				weights = []string{filepath.ToSlash(cfg.Llama.Weights)}
			}
			rev := cfg.Hub.Revision
			if revision != "" {
				rev = revision
			}
			d := &modelstore.Downloader{
				Endpoint: cfg.Hub.Endpoint,
				Token:    cfg.Hub.Token,
				Revision: rev,
				Parallel: parallel,
				Force:    force,
				Log:      log,
			}
			rep, err := d.Download(cmd.Context(), layout, weights)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Downloaded %s into %s\n", cfg.Model, layout.Dir())
			fmt.Fprintf(out, "  fetched: %d, already present: %d, not on hub: %d\n", len(rep.Fetched), len(rep.Skipped), len(rep.Missing))
			return nil
		},
	}
	cmd.Flags().StringVar(&files, "files", "", "Comma-separated weight files to fetch into the model dir")
	cmd.Flags().StringVar(&revision, "revision", "", "Hub revision (branch, tag or commit)")
	cmd.Flags().BoolVar(&force, "force", false, "Re-download files that already exist")
	cmd.Flags().IntVar(&parallel, "parallel", 0, "Concurrent downloads (0 = 4)")
	return cmd
}
