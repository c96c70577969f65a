package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"textgen/internal/chatclient"
	"textgen/internal/logging"
)

// exitUsage is the status for a missing host argument.
const exitUsage = -1

type options struct {
	timeout  time.Duration
	logLevel string
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "An IP address or hostname has to be passed as the first argument, e.g.")
	fmt.Fprintln(w, "\t$ textgen-chat 192.168.0.1")
}

func buildRootCmd(opts *options, stdin io.Reader) *cobra.Command {
	root := &cobra.Command{
		Use:           "textgen-chat <host[:port]>",
		Short:         "Interactive prompt for a textgend service",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				usage(cmd.OutOrStdout())
				return errUsage
			}
			log, err := logging.FromString(opts.logLevel)
			if err != nil {
				return err
			}
			host := args[0]
			s := &chatclient.Session{
				Host: host,
				Gen:  chatclient.New(host, opts.timeout),
				In:   stdin,
				Out:  cmd.OutOrStdout(),
				Log:  log,
			}
			return s.Run(cmd.Context())
		},
	}
	root.Flags().DurationVar(&opts.timeout, "timeout", 0, "HTTP timeout per request (0 = none)")
	root.Flags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug|info|warn|error|off")
	return root
}

var errUsage = errors.New("missing host")

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout))
}

// run executes the client and returns the process exit status.
func run(args []string, stdin io.Reader, stdout io.Writer) int {
	root := buildRootCmd(&options{}, stdin)
	root.SetArgs(args)
	root.SetOut(stdout)
	err := root.Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		return exitUsage
	}
	fmt.Fprintln(stdout, err)
	return chatclient.ActionFor(err).ExitCode
}
