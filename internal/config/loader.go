package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
type Config struct {
	Addr            string   `json:"addr" yaml:"addr" toml:"addr"`
	ModelDir        string   `json:"model_dir" yaml:"model_dir" toml:"model_dir"`
	Model           string   `json:"model" yaml:"model" toml:"model"`
	Backend         string   `json:"backend" yaml:"backend" toml:"backend"`
	LengthIncrement int      `json:"length_increment" yaml:"length_increment" toml:"length_increment"`
	MaxConcurrent   int      `json:"max_concurrent" yaml:"max_concurrent" toml:"max_concurrent"`
	MaxWait         Duration `json:"max_wait" yaml:"max_wait" toml:"max_wait"`
	MaxBodyBytes    int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	GenerateTimeout Duration `json:"generate_timeout" yaml:"generate_timeout" toml:"generate_timeout"`
	ConversationTTL Duration `json:"conversation_ttl" yaml:"conversation_ttl" toml:"conversation_ttl"`
	LogLevel        string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	CORS            CORS     `json:"cors" yaml:"cors" toml:"cors"`
	Llama           Llama    `json:"llama" yaml:"llama" toml:"llama"`
	OpenAI          OpenAI   `json:"openai" yaml:"openai" toml:"openai"`
	Hub             Hub      `json:"hub" yaml:"hub" toml:"hub"`
}

// CORS is opt-in; nothing is mounted unless Enabled.
type CORS struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins"`
	Methods []string `json:"methods" yaml:"methods" toml:"methods"`
	Headers []string `json:"headers" yaml:"headers" toml:"headers"`
}

// Llama configures the in-process llama.cpp backend. An empty Weights
// means "the single *.gguf under the model directory".
type Llama struct {
	Weights       string  `json:"weights" yaml:"weights" toml:"weights"`
	Context       int     `json:"context" yaml:"context" toml:"context"`
	Threads       int     `json:"threads" yaml:"threads" toml:"threads"`
	GPULayers     int     `json:"gpu_layers" yaml:"gpu_layers" toml:"gpu_layers"`
	Temperature   float32 `json:"temperature" yaml:"temperature" toml:"temperature"`
	TopK          int     `json:"top_k" yaml:"top_k" toml:"top_k"`
	TopP          float32 `json:"top_p" yaml:"top_p" toml:"top_p"`
	RepeatPenalty float32 `json:"repeat_penalty" yaml:"repeat_penalty" toml:"repeat_penalty"`
	Seed          int     `json:"seed" yaml:"seed" toml:"seed"`
}

// OpenAI configures the remote completions backend.
type OpenAI struct {
	BaseURL     string   `json:"base_url" yaml:"base_url" toml:"base_url"`
	APIKey      string   `json:"api_key" yaml:"api_key" toml:"api_key"`
	Model       string   `json:"model" yaml:"model" toml:"model"`
	Temperature float64  `json:"temperature" yaml:"temperature" toml:"temperature"`
	Timeout     Duration `json:"timeout" yaml:"timeout" toml:"timeout"`
}

// Hub configures `textgend download`.
type Hub struct {
	Endpoint string `json:"endpoint" yaml:"endpoint" toml:"endpoint"`
	Token    string `json:"token" yaml:"token" toml:"token"`
	Revision string `json:"revision" yaml:"revision" toml:"revision"`
}

// Defaults returns the configuration used when nothing else is given.
func Defaults() Config {
	return Config{
		Addr:            ":5000",
		ModelDir:        "local_model",
		Model:           "microsoft/DialoGPT-medium",
		Backend:         "llama",
		LengthIncrement: 20,
		MaxConcurrent:   1,
		MaxWait:         Duration(30 * time.Second),
		MaxBodyBytes:    1 << 20,
		ConversationTTL: Duration(30 * time.Minute),
		LogLevel:        "info",
		CORS: CORS{
			Methods: []string{"GET", "POST", "OPTIONS"},
			Headers: []string{"Content-Type", "X-Log-Level"},
		},
		OpenAI: OpenAI{Timeout: Duration(60 * time.Second)},
		Hub: Hub{
			Endpoint: "https://huggingface.co",
			Revision: "main",
		},
	}
}

// Load reads a configuration file based on its extension and overlays it on
// Defaults. Keys absent from the file keep their default value.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Validate rejects values the service cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("addr is required")
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("model is required")
	}
	switch c.Backend {
	case "llama":
	case "openai":
		if strings.TrimSpace(c.OpenAI.BaseURL) == "" {
			return fmt.Errorf("openai.base_url is required for the openai backend")
		}
	default:
		return fmt.Errorf("unknown backend %q (want llama or openai)", c.Backend)
	}
	if c.LengthIncrement < 0 {
		return fmt.Errorf("length_increment must be >= 0, got %d", c.LengthIncrement)
	}
	if c.MaxConcurrent < 0 {
		return fmt.Errorf("max_concurrent must be >= 0, got %d", c.MaxConcurrent)
	}
	if c.MaxWait < 0 || c.GenerateTimeout < 0 || c.ConversationTTL < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}
