package manager

import (
	"errors"
	"net/http"
	"strconv"

	"textgen/internal/conversation"
)

// tooBusyError signals admission timeout for 429 mapping.
type tooBusyError struct{ limit int }

func (e tooBusyError) Error() string {
	return "too busy: all " + strconv.Itoa(e.limit) + " generation slots in use"
}

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	var e tooBusyError
	return errors.As(err, &e)
}

// notReadyError is returned while the pipeline is loading or failed to load.
type notReadyError struct{ state State }

func (e notReadyError) Error() string { return "model not ready: " + string(e.state) }

// StatusCode maps to 503 Service Unavailable.
func (e notReadyError) StatusCode() int { return http.StatusServiceUnavailable }

// IsNotReady reports whether err was caused by a request before the model was ready.
func IsNotReady(err error) bool {
	var e notReadyError
	return errors.As(err, &e)
}

// conversationNotFoundError wraps conversation.ErrNotFound for 404 mapping.
type conversationNotFoundError struct{ id string }

func (e conversationNotFoundError) Error() string { return "conversation not found: " + e.id }

func (e conversationNotFoundError) Unwrap() error { return conversation.ErrNotFound }

// IsConversationNotFound reports whether the error indicates an unknown conversation id.
func IsConversationNotFound(err error) bool { return errors.Is(err, conversation.ErrNotFound) }
