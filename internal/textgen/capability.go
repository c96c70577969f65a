package textgen

import "context"

// Encoder turns text into token ids.
type Encoder interface {
	Encode(text string) ([]int, error)
}

// Decoder turns token ids into text, optionally dropping special tokens.
type Decoder interface {
	Decode(ids []int, skipSpecial bool) (string, error)
}

// Tokenizer is the tokenizer half of the capability.
type Tokenizer interface {
	Encoder
	Decoder
	// EOSToken is the end-of-sequence marker text, "" when undefined.
	EOSToken() string
	VocabSize() int
}

// Generator is the model half of the capability. Generate returns the full
// output sequence, which for causal LMs starts with the prompt's own ids,
// and never more than maxLength ids.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxLength int) ([]int, error)
	Close() error
}

// Describer is implemented by generators that can report where they run.
type Describer interface {
	Backend() string
	Device() string
}

// ContinuationEncoder encodes text that follows an already encoded prompt,
// without the BOS token or leading space a full Encode may add.
type ContinuationEncoder interface {
	EncodeContinuation(text string) ([]int, error)
}

// EncodeContinuation encodes generated text for appending to prompt ids.
// Encoders without a continuation mode fall back to Encode.
func EncodeContinuation(enc Encoder, text string) ([]int, error) {
	if ce, ok := enc.(ContinuationEncoder); ok {
		return ce.EncodeContinuation(text)
	}
	return enc.Encode(text)
}
