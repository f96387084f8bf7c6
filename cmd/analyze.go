package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/finsight"
	"github.com/etnz/finsight/renderer"
	"github.com/etnz/finsight/session"
	"github.com/google/subcommands"
)

type analyzeCmd struct {
	mode     finsight.AnalysisMode
	docType  string
	noVault  bool
	fetch    bool
	plugins  stringList
	connects stringList
	save     string
	json     bool
}

func (*analyzeCmd) Name() string     { return "analyze" }
func (*analyzeCmd) Synopsis() string { return "compare financial documents and links" }
func (*analyzeCmd) Usage() string {
	return `finsight analyze [-mode <mode>] [-type <type>] [-plugin <id>]... [-connect <id>]... [-save <title>] <file|url>...

  Sends the documents and links to Gemini and prints the comparison.
  See 'finsight topic analyze'.
`
}

func (c *analyzeCmd) SetFlags(f *flag.FlagSet) {
	c.mode = finsight.DefaultMode
	f.Var(&c.mode, "mode", "Analysis mode: PERIOD_VS_PERIOD, ENTITY_VS_ENTITY, ACTUAL_VS_BUDGET, CROSS_DOC_AUDIT or GENERAL")
	f.StringVar(&c.docType, "type", string(finsight.FinancialReport), "Classification of the files: FINANCIAL_REPORT, INVOICE, CONTRACT, BANK_STATEMENT or OTHER")
	f.BoolVar(&c.noVault, "no-vault", false, "Do not send the memory vault")
	f.BoolVar(&c.fetch, "fetch", false, "Send the readable text of the links")
	f.Var(&c.plugins, "plugin", "Activate an analytics plugin, can be repeated")
	f.Var(&c.connects, "connect", "Connect a data integration, can be repeated")
	f.StringVar(&c.save, "save", "", "Save the analysis as a report with this title")
	f.BoolVar(&c.json, "json", false, "Print the result as JSON")
}

func (c *analyzeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	t, err := finsight.ParseDocumentType(c.docType)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -type: %v\n", err)
		return subcommands.ExitUsageError
	}
	docs, links, err := readSources(f.Args(), t)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading sources: %v\n", err)
		return subcommands.ExitFailure
	}

	a, err := openApp()
	if err != nil {
		return errStatus("Error opening workspace", err)
	}
	defer a.Close()
	sess := a.newSession()

	for _, id := range c.plugins {
		if err := sess.Catalog.SetPlugin(id, true); err != nil {
			fmt.Fprintf(os.Stderr, "Error activating plugin: %v\n", err)
			return subcommands.ExitUsageError
		}
	}
	for _, id := range c.connects {
		fmt.Fprintf(os.Stderr, "Connecting %s...\n", id)
		if _, err := sess.Connect(ctx, id); err != nil {
			return errStatus("Error connecting integration", err)
		}
	}

	res, err := sess.Analyze(ctx, session.Request{
		Documents:  docs,
		Links:      links,
		Mode:       c.mode,
		UseVault:   a.cfg.Vault.UseInAnalysis && !c.noVault,
		FetchLinks: c.fetch,
	})
	if err != nil {
		return errStatus("Error analyzing", err)
	}

	var saved *finsight.SavedReport
	if c.save != "" {
		r, err := sess.Save(c.save, res.Result, res.Sources)
		if err != nil {
			return errStatus("Error saving report", err)
		}
		saved = &r
	}

	if c.json {
		if status := printJSON(res.Result); status != subcommands.ExitSuccess {
			return status
		}
	} else {
		printMarkdown(renderer.RenderComparison(res.Result, res.Sources, a.options()))
	}
	if saved != nil {
		fmt.Fprintf(os.Stderr, "Saved report %q with id %s\n", saved.Title, saved.ID)
	}
	return subcommands.ExitSuccess
}
