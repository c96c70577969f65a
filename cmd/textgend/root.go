package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"textgen/internal/config"
	"textgen/internal/logging"
)

// options are the command-line settings shared by every subcommand.
// They override the config file and TEXTGEN_* variables when set.
type options struct {
	configPath    string
	addr          string
	modelDir      string
	model         string
	backend       string
	logLevel      string
	maxConcurrent int
	increment     int
	weights       string
	openaiURL     string
	corsOrigins   string
}

func buildRootCmd() *cobra.Command { return buildRootCmdWith(&options{}) }

// buildRootCmdWith constructs the command tree bound to opts.
func buildRootCmdWith(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "textgend",
		Short:         "Text generation service",
		Long:          "textgend serves prompt continuation and conversations over HTTP.\nRunning it without a subcommand is the same as `textgend serve`.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServeCmd(cmd, opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Config file (.yaml, .yml, .json or .toml)")
	pf.StringVar(&opts.addr, "addr", "", "HTTP listen address, e.g. :5000")
	pf.StringVar(&opts.modelDir, "model-dir", "", "Root directory for downloaded models")
	pf.StringVar(&opts.model, "model", "", "Model id, e.g. microsoft/DialoGPT-medium")
	pf.StringVar(&opts.backend, "backend", "", "Generation backend: llama|openai")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug|info|warn|error|off")
	pf.IntVar(&opts.maxConcurrent, "max-concurrent", 0, "Concurrent generations (0 = unlimited)")
	pf.IntVar(&opts.increment, "length-increment", 0, "Tokens generated on top of the prompt")
	pf.StringVar(&opts.weights, "weights", "", "llama backend weights file (default: the single .gguf in the model dir)")
	pf.StringVar(&opts.openaiURL, "openai-base-url", "", "Base URL of an OpenAI-compatible completions API")
	pf.StringVar(&opts.corsOrigins, "cors-origins", "", "Comma-separated allowed CORS origins; enables CORS")

	serveCmd := &cobra.Command{
		Use:     "serve",
		Short:   "Run the HTTP service (default)",
		Args:    cobra.NoArgs,
		Example: "  textgend serve --config textgen.yaml\n  textgend serve --backend openai --openai-base-url http://localhost:8080/v1",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServeCmd(cmd, opts)
		},
	}
	root.AddCommand(serveCmd, buildDownloadCmd(opts), buildGenerateCmd(opts))
	return root
}

// resolveConfig applies defaults < config file < environment < flags.
func resolveConfig(cmd *cobra.Command, opts *options, lookup func(string) (string, bool)) (config.Config, error) {
	cfg := config.Defaults()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return cfg, err
	}

	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if changed("addr") {
		cfg.Addr = opts.addr
	}
	if changed("model-dir") {
		cfg.ModelDir = opts.modelDir
	}
	if changed("model") {
		cfg.Model = opts.model
	}
	if changed("backend") {
		cfg.Backend = opts.backend
	}
	if changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if changed("max-concurrent") {
		cfg.MaxConcurrent = opts.maxConcurrent
	}
	if changed("length-increment") {
		cfg.LengthIncrement = opts.increment
	}
	if changed("weights") {
		cfg.Llama.Weights = opts.weights
	}
	if changed("openai-base-url") {
		cfg.OpenAI.BaseURL = opts.openaiURL
	}
	if changed("cors-origins") {
		cfg.CORS.Origins = splitCSV(opts.corsOrigins)
		cfg.CORS.Enabled = len(cfg.CORS.Origins) > 0
	}
	return cfg, cfg.Validate()
}

// setup resolves the configuration and builds the process logger.
func setup(cmd *cobra.Command, opts *options) (config.Config, zerolog.Logger, error) {
	cfg, err := resolveConfig(cmd, opts, os.LookupEnv)
	if err != nil {
		return cfg, zerolog.Nop(), err
	}
	log, err := logging.FromString(cfg.LogLevel)
	if err != nil {
		return cfg, log, err
	}
	return cfg, log, nil
}
