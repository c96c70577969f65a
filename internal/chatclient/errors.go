package chatclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Action is what the session does after a failed exchange.
type Action struct {
	// Terminate ends the session.
	Terminate bool
	// ExitCode is the process status to exit with when terminating.
	ExitCode int
}

var terminate = Action{Terminate: true, ExitCode: 1}

// NetworkError means the request never got an HTTP response.
type NetworkError struct {
	Host string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("could not reach host '%s': %v", e.Host, e.Err)
}
func (e *NetworkError) Unwrap() error  { return e.Err }
func (e *NetworkError) Action() Action { return terminate }

// StatusError is a non-2xx answer. Message holds the server's JSON error
// text when the body carried one.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	s := fmt.Sprintf("server answered %d %s", e.Code, http.StatusText(e.Code))
	if e.Message != "" {
		s += ": " + e.Message
	}
	return s
}
func (e *StatusError) Action() Action { return terminate }

// MalformedResponseError is a 2xx answer whose body is not JSON.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("server response is not valid JSON: %v", e.Err)
}
func (e *MalformedResponseError) Unwrap() error  { return e.Err }
func (e *MalformedResponseError) Action() Action { return terminate }

// MissingFieldError is a JSON answer without the expected field.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("server response has no %q field", e.Field)
}
func (e *MissingFieldError) Action() Action { return terminate }

type actioner interface{ Action() Action }

// ActionFor returns the action for err. Errors outside the four request
// kinds (a broken stdin, for example) also terminate with status 1.
func ActionFor(err error) Action {
	if err == nil {
		return Action{}
	}
	var a actioner
	if errors.As(err, &a) {
		return a.Action()
	}
	return terminate
}
