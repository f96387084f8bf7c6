package assistant

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/etnz/finsight"
)

const prompt = "ask> "

// Printer writes an answer, in markdown, to w.
type Printer func(w io.Writer, markdown string)

// Plain prints markdown as is.
func Plain(w io.Writer, markdown string) { fmt.Fprintln(w, markdown) }

// Run is the interactive loop: questions are read from r, or taken from
// prompts first, and answers are printed to w. It returns on "bye" or at the
// end of the input. Errors of a single question are printed and the loop
// goes on, except for a missing credential.
func (a *Assistant) Run(ctx context.Context, w io.Writer, r io.Reader, out Printer, prompts ...string) error {
	if out == nil {
		out = Plain
	}
	in := bufio.NewReader(r)

	out(w, Welcome+" Type 'bye' to exit.")

	for {
		fmt.Fprint(w, prompt)
		var input string

		// Flush prompts from the list and then ask for the user.
		if len(prompts) > 0 {
			input, prompts = strings.TrimSpace(prompts[0]), prompts[1:]
			if input == "" {
				continue
			}
			fmt.Fprintln(w, input)
		} else {
			var err error
			input, err = in.ReadString('\n')
			if err != nil && !(errors.Is(err, io.EOF) && strings.TrimSpace(input) != "") {
				if errors.Is(err, io.EOF) {
					fmt.Fprintln(w)
					return nil // Clean exit on Ctrl+D
				}
				return err
			}
			input = strings.TrimSpace(input)
		}

		switch input {
		case "":
			continue
		case "bye":
			return nil
		}

		answer, err := a.Ask(ctx, input)
		switch {
		case errors.Is(err, finsight.ErrConfiguration), errors.Is(err, context.Canceled):
			return err
		case err != nil:
			fmt.Fprintf(w, "I encountered an error processing your request: %v\n", err)
		default:
			out(w, answer)
		}
	}
}
