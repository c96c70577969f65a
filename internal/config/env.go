package config

import (
	"fmt"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TEXTGEN_"

// ApplyEnv overlays TEXTGEN_* variables onto c. lookup is usually
// os.LookupEnv. Invalid numbers or durations are reported, not ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	var errs []string
	num := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, EnvPrefix+name+": "+err.Error())
				return
			}
			*dst = n
		}
	}
	dur := func(name string, dst *Duration) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			if err := dst.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
				errs = append(errs, EnvPrefix+name+": "+err.Error())
			}
		}
	}

	str("ADDR", &c.Addr)
	str("MODEL_DIR", &c.ModelDir)
	str("MODEL", &c.Model)
	str("BACKEND", &c.Backend)
	str("LOG_LEVEL", &c.LogLevel)
	num("LENGTH_INCREMENT", &c.LengthIncrement)
	num("MAX_CONCURRENT", &c.MaxConcurrent)
	if v, ok := lookup(EnvPrefix + "MAX_BODY_BYTES"); ok && v != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			errs = append(errs, EnvPrefix+"MAX_BODY_BYTES: "+err.Error())
		} else {
			c.MaxBodyBytes = n
		}
	}
	dur("MAX_WAIT", &c.MaxWait)
	dur("GENERATE_TIMEOUT", &c.GenerateTimeout)
	dur("CONVERSATION_TTL", &c.ConversationTTL)
	str("LLAMA_WEIGHTS", &c.Llama.Weights)
	num("LLAMA_THREADS", &c.Llama.Threads)
	num("LLAMA_GPU_LAYERS", &c.Llama.GPULayers)
	str("OPENAI_BASE_URL", &c.OpenAI.BaseURL)
	str("OPENAI_API_KEY", &c.OpenAI.APIKey)
	str("OPENAI_MODEL", &c.OpenAI.Model)
	str("HUB_ENDPOINT", &c.Hub.Endpoint)
	str("HUB_TOKEN", &c.Hub.Token)
	if c.Hub.Token == "" {
		if v, ok := lookup("HF_TOKEN"); ok {
			c.Hub.Token = v
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("environment: %s", strings.Join(errs, "; "))
	}
	return nil
}
