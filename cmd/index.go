package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/finsight"
	"github.com/etnz/finsight/renderer"
	"github.com/google/subcommands"
)

type indexCmd struct {
	docType string
}

func (*indexCmd) Name() string     { return "index" }
func (*indexCmd) Synopsis() string { return "add documents to the memory vault" }
func (*indexCmd) Usage() string {
	return `finsight index [-type <type>] <file>...

  Extracts a summary and the key facts of each file, in order, and keeps
  them in the memory vault. It stops at the first failure, the files before
  it stay indexed.
`
}

func (c *indexCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.docType, "type", string(finsight.FinancialReport), "Classification of the files")
}

func (c *indexCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: no file to index")
		return subcommands.ExitUsageError
	}
	t, err := finsight.ParseDocumentType(c.docType)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -type: %v\n", err)
		return subcommands.ExitUsageError
	}
	docs := make([]finsight.Document, 0, f.NArg())
	for _, path := range f.Args() {
		doc, err := finsight.ReadDocument(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %q: %v\n", path, err)
			return subcommands.ExitFailure
		}
		doc.Type = t
		docs = append(docs, doc)
	}

	a, err := openApp()
	if err != nil {
		return errStatus("Error opening workspace", err)
	}
	defer a.Close()

	items, err := a.newSession().Index(ctx, docs)
	if len(items) > 0 {
		printMarkdown(renderer.VaultMarkdown(items))
	}
	if err != nil {
		return errStatus(fmt.Sprintf("Error indexing (%d of %d indexed)", len(items), len(docs)), err)
	}
	return subcommands.ExitSuccess
}
