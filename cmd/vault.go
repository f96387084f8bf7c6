package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/finsight/renderer"
	"github.com/google/subcommands"
)

type vaultCmd struct{}

func (*vaultCmd) Name() string     { return "vault" }
func (*vaultCmd) Synopsis() string { return "list, search or clear the memory vault" }
func (*vaultCmd) Usage() string {
	return `finsight vault list|context|search <term>|clear

  list     lists the indexed documents and their facts
  context  prints the context block sent with analyses
  search   finds documents by name, summary or fact
  clear    forgets every document
`
}

func (c *vaultCmd) SetFlags(f *flag.FlagSet) {}

func (c *vaultCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	action := "list"
	if f.NArg() > 0 {
		action = f.Arg(0)
	}

	a, err := openApp()
	if err != nil {
		return errStatus("Error opening workspace", err)
	}
	defer a.Close()

	switch action {
	case "list":
		printMarkdown(renderer.VaultMarkdown(a.vault.Items()))
	case "context":
		block := a.vault.Retrieve()
		if block == "" {
			fmt.Println("The vault is empty.")
			break
		}
		fmt.Print(block)
	case "search":
		query := strings.Join(f.Args()[1:], " ")
		if query == "" {
			fmt.Fprintln(os.Stderr, "Error: missing search term")
			return subcommands.ExitUsageError
		}
		printMarkdown(renderer.VaultMarkdown(a.vault.Search(query)))
	case "clear":
		if err := a.vault.Clear(); err != nil {
			return errStatus("Error clearing the vault", err)
		}
		fmt.Println("Vault cleared.")
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown vault action %q\n", action)
		return subcommands.ExitUsageError
	}
	return subcommands.ExitSuccess
}
