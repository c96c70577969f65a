package textgen

import "errors"

var (
	// ErrGeneration marks failures raised by the generation backend.
	ErrGeneration = errors.New("generation failed")
	// ErrDependencyUnavailable marks a backend that is not compiled in or
	// cannot be reached.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	// ErrTokenizer marks prompt encoding or output decoding failures.
	ErrTokenizer = errors.New("tokenizer error")
)

type generationError struct {
	msg string
	err error
}

func (e generationError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e generationError) Unwrap() []error {
	if e.err == nil {
		return []error{ErrGeneration}
	}
	return []error{ErrGeneration, e.err}
}

// GenerationError wraps a backend failure so callers can test it with IsGeneration.
func GenerationError(msg string, err error) error { return generationError{msg: msg, err: err} }

// IsGeneration reports whether err came from the generation backend.
func IsGeneration(err error) bool { return errors.Is(err, ErrGeneration) }

type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

func (e dependencyUnavailableError) Unwrap() error { return ErrDependencyUnavailable }

// DependencyUnavailable constructs an error the HTTP layer maps to 503.
func DependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing runtime dependency.
func IsDependencyUnavailable(err error) bool { return errors.Is(err, ErrDependencyUnavailable) }

// tokenizerError wraps encode/decode failures. Failures on the caller's
// input also match ErrInvalidPrompt.
type tokenizerError struct {
	op    string
	input bool
	err   error
}

func (e tokenizerError) Error() string { return e.op + ": " + e.err.Error() }

func (e tokenizerError) Unwrap() []error {
	if e.input {
		return []error{ErrTokenizer, ErrInvalidPrompt, e.err}
	}
	return []error{ErrTokenizer, e.err}
}

// IsTokenizer reports whether err came from encoding or decoding.
func IsTokenizer(err error) bool { return errors.Is(err, ErrTokenizer) }

// ErrInvalidPrompt marks requests whose prompt cannot be processed.
var ErrInvalidPrompt = errors.New("invalid prompt")

type invalidPromptError struct{ msg string }

func (e invalidPromptError) Error() string { return e.msg }

func (e invalidPromptError) Unwrap() error { return ErrInvalidPrompt }

// InvalidPrompt constructs an error the HTTP layer maps to 400.
func InvalidPrompt(msg string) error { return invalidPromptError{msg: msg} }

// IsInvalidPrompt reports whether err rejects the caller's input.
func IsInvalidPrompt(err error) bool { return errors.Is(err, ErrInvalidPrompt) }
