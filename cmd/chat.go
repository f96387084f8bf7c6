package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type chatCmd struct{}

func (*chatCmd) Name() string     { return "chat" }
func (*chatCmd) Synopsis() string { return "talk with the financial assistant" }
func (*chatCmd) Usage() string {
	return `finsight chat [<file>...] [-- <question>...]

  Starts an interactive session with the assistant. The files are attached
  to every question, the questions after -- are asked first.
`
}

func (*chatCmd) SetFlags(_ *flag.FlagSet) {}

func (c *chatCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	files, questions := f.Args(), []string(nil)
	for i, arg := range files {
		if arg == "--" {
			files, questions = files[:i], files[i+1:]
			break
		}
	}
	docs, _, err := readSources(files, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading files: %v\n", err)
		return subcommands.ExitFailure
	}

	a, err := openApp()
	if err != nil {
		return errStatus("Error opening workspace", err)
	}
	defer a.Close()

	assistant := a.newSession().Assistant()
	assistant.Attach(docs)
	if err := assistant.Run(ctx, os.Stdout, os.Stdin, printTo, questions...); err != nil {
		return errStatus("Assistant failed", err)
	}
	return subcommands.ExitSuccess
}
