// Package textgen holds the prompt/response framing around an opaque
// text-generation capability.
//
// The capability is split into three interfaces: Encoder and Decoder (the
// tokenizer) and Generator (the model runtime). A Pipeline binds one of each
// and is built once at startup; it is immutable afterwards and safe to share
// between request goroutines as long as the bound implementations are.
//
// For a prompt p the pipeline asks the generator for at most
// LengthIncrement + len(encode(p)) tokens, drops the first len(encode(p))
// ids of the result (the echoed prompt) and decodes the remainder with
// special tokens removed.
package textgen
