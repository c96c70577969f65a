// Package llama runs generation in-process through go-llama.cpp.
//
// The real adapter needs cgo and a built llama.cpp and is compiled only
// with `-tags=llama`. Default builds get a stub whose constructor fails
// with a dependency-unavailable error.
package llama

// Config holds model and sampling parameters for the in-process runtime.
type Config struct {
	// Weights is the path to the model file (e.g. a .gguf).
	Weights string
	// Context is the context window in tokens (0 = runtime default).
	Context int
	// Threads used for prediction (0 = 1).
	Threads int
	// GPULayers offloaded to the GPU; 0 keeps everything on the CPU.
	GPULayers     int
	Temperature   float32
	TopK          int
	TopP          float32
	RepeatPenalty float32
	Seed          int
}

// Device names where the model runs, as the startup banner reports it.
func (c Config) Device() string {
	if c.GPULayers > 0 {
		return "gpu"
	}
	return "cpu"
}

// newTokens is the number of tokens to request for a prompt of promptLen
// tokens and a total budget of maxLength.
func newTokens(maxLength, promptLen int) int {
	return maxLength - promptLen
}

func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func zf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}
