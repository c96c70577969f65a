package chatclient

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// Commands recognised at the prompt.
const (
	CommandQuit     = "q"
	CommandContinue = "c"
)

// Prompt is printed before every read.
const Prompt = "Text prompt: "

// Generator is the part of Client a Session needs.
type Generator interface {
	Generate(ctx context.Context, text string) (string, error)
}

// Session is the interactive prompt loop. It is strictly sequential.
type Session struct {
	Host string
	Gen  Generator
	In   io.Reader
	Out  io.Writer
	Log  zerolog.Logger

	// accumulated is the last effective prompt plus its continuation.
	accumulated string
}

// Banner writes the greeting shown before the first prompt.
func (s *Session) Banner() {
	fmt.Fprintf(s.Out, "Making requests to host '%s'\n", s.Host)
	fmt.Fprintln(s.Out, "[Enter 'q' to quit]")
	fmt.Fprintln(s.Out, "[Enter 'c' to continue generating with the previous output]")
}

// Run prints the banner and loops until the user quits or input ends, in
// which case it returns nil. A failed exchange ends the loop with the
// request error; see ActionFor.
func (s *Session) Run(ctx context.Context) error {
	s.Banner()
	r := bufio.NewReader(s.In)
	for {
		fmt.Fprint(s.Out, Prompt)
		line, err := readLine(r)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.Out)
			return nil
		}
		if err != nil {
			return err
		}
		if line == CommandQuit {
			return nil
		}
		if err := s.exchange(ctx, line); err != nil {
			return err
		}
	}
}

func (s *Session) exchange(ctx context.Context, line string) error {
	prompt := line
	if line == CommandContinue {
		prompt = s.accumulated
	}
	s.Log.Debug().Int("prompt_len", len(prompt)).Msg("sending prompt")
	generated, err := s.Gen.Generate(ctx, prompt)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.Out, generated)
	s.accumulated = prompt + generated
	return nil
}

// Accumulated returns the text a "c" command would send next.
func (s *Session) Accumulated() string { return s.accumulated }

// readLine returns one line without its terminator. A final line without
// a newline is returned before io.EOF.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}
