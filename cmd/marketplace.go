package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/finsight/renderer"
	"github.com/google/subcommands"
)

type pluginsCmd struct{}

func (*pluginsCmd) Name() string     { return "plugins" }
func (*pluginsCmd) Synopsis() string { return "list the analytics plugins and data integrations" }
func (*pluginsCmd) Usage() string {
	return `finsight plugins

  Lists the plugins and integrations that can be enabled for an analysis
  with 'finsight analyze -plugin <id> -connect <id>'.
`
}

func (*pluginsCmd) SetFlags(_ *flag.FlagSet) {}

func (*pluginsCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		return errStatus("Error opening workspace", err)
	}
	defer a.Close()
	sess := a.newSession()
	printMarkdown(renderer.MarketplaceMarkdown(sess.Catalog.Plugins(), sess.Catalog.Integrations()))
	return subcommands.ExitSuccess
}

type connectCmd struct{}

func (*connectCmd) Name() string     { return "connect" }
func (*connectCmd) Synopsis() string { return "preview the live context of a data integration" }
func (*connectCmd) Usage() string {
	return `finsight connect <id>

  Connects an integration and prints the context it adds to analyses.
`
}

func (*connectCmd) SetFlags(_ *flag.FlagSet) {}

func (*connectCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: connect expects exactly one integration id")
		return subcommands.ExitUsageError
	}
	a, err := openApp()
	if err != nil {
		return errStatus("Error opening workspace", err)
	}
	defer a.Close()

	fmt.Fprintf(os.Stderr, "Connecting %s...\n", f.Arg(0))
	i, err := a.newSession().Connect(ctx, f.Arg(0))
	if err != nil {
		return errStatus("Error connecting", err)
	}
	fmt.Printf("%s is %s\n\n%s\n", i.Name, i.Status, i.Context)
	return subcommands.ExitSuccess
}
