package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func buildGenerateCmd(opts *options) *cobra.Command {
	var tokensOnly, unescapeText bool
	cmd := &cobra.Command{
		Use:   "generate <text>",
		Short: "Continue a prompt once and print the result",
		Example: "  textgend generate \"Artificial Intelligence is a\"\n" +
			"  textgend generate --tokens \"Hello world\"",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			text := strings.Join(args, " ")
			if unescapeText {
				if text, err = unescape(text); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()

			if tokensOnly {
				tok, _, err := loadTokenizer(cfg, log)
				if err != nil {
					return err
				}
				ids, err := tok.Encode(text)
				if err != nil {
					return err
				}
				decoded, err := tok.Decode(ids, false)
				if err != nil {
					return err
				}
				parts := make([]string, len(ids))
				for i, id := range ids {
					parts[i] = strconv.Itoa(id)
				}
				fmt.Fprintf(out, "tokens: [%s]\n", strings.Join(parts, " "))
				fmt.Fprintf(out, "count: %d\n", len(ids))
				fmt.Fprintf(out, "decoded: %q\n", decoded)
				if decoded != text {
					return fmt.Errorf("round trip mismatch: %q != %q", decoded, text)
				}
				return nil
			}

			p, err := buildPipeline(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer p.Close()
			res, err := p.Generate(cmd.Context(), text)
			if err != nil {
				return err
			}
			log.Debug().
				Int("prompt_tokens", res.PromptTokens).
				Int("output_tokens", res.OutputTokens).
				Int("budget", res.Budget).
				Msg("generated")
			fmt.Fprintf(out, "Input: %s\n", res.Input)
			fmt.Fprintf(out, "Generated: %s\n", res.Generated)
			return nil
		},
	}
	cmd.Flags().BoolVar(&tokensOnly, "tokens", false, "Print the prompt's token ids instead of generating")
	cmd.Flags().BoolVar(&unescapeText, "unescape", false, `Interpret backslash escapes such as \n, \t and \u00e9 in the text`)
	return cmd
}

// unescape decodes backslash escapes in s. Text without escapes is
// returned unchanged.
func unescape(s string) (string, error) {
	var b strings.Builder
	in := s
	for {
		i := strings.IndexByte(in, '\\')
		if i < 0 {
			b.WriteString(in)
			return b.String(), nil
		}
		b.WriteString(in[:i])
		r, _, tail, err := strconv.UnquoteChar(in[i:], 0)
		if err != nil {
			return "", fmt.Errorf("unescape %q: %w", s, err)
		}
		b.WriteRune(r)
		in = tail
	}
}
