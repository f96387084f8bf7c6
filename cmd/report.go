package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/etnz/finsight"
	"github.com/etnz/finsight/export"
	"github.com/etnz/finsight/renderer"
	"github.com/etnz/finsight/report"
	"github.com/google/subcommands"
)

type reportCmd struct{}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "list, show, delete or export saved reports" }
func (*reportCmd) Usage() string {
	return `finsight report list
finsight report show [-q <jsonpath>] [-json] <id>
finsight report delete <id>
finsight report export [-format pdf|xlsx|md|html] [-kind <kind>] [-o <file>] <id>

  Reports are saved with 'finsight analyze -save <title>'.
  See 'finsight topic reports'.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {}

func (c *reportCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	action := "list"
	var args []string
	if f.NArg() > 0 {
		action, args = f.Arg(0), f.Args()[1:]
	}

	a, err := openApp()
	if err != nil {
		return errStatus("Error opening workspace", err)
	}
	defer a.Close()

	switch action {
	case "list":
		printMarkdown(renderer.ReportsMarkdown(a.reports.List()))
		return subcommands.ExitSuccess
	case "show":
		return a.showReport(args)
	case "delete":
		return a.deleteReport(args)
	case "export":
		return a.exportReport(args)
	}
	fmt.Fprintf(os.Stderr, "Error: unknown report action %q\n", action)
	return subcommands.ExitUsageError
}

// reportArg parses the flags of an action and returns its report.
func (a *app) reportArg(fs *flag.FlagSet, args []string) (finsight.SavedReport, subcommands.ExitStatus, bool) {
	if err := fs.Parse(args); err != nil {
		return finsight.SavedReport{}, subcommands.ExitUsageError, false
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: %s expects exactly one report id\n", fs.Name())
		return finsight.SavedReport{}, subcommands.ExitUsageError, false
	}
	r, ok := a.reports.Get(fs.Arg(0))
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: no saved report with id %q\n", fs.Arg(0))
		return finsight.SavedReport{}, subcommands.ExitFailure, false
	}
	return r, subcommands.ExitSuccess, true
}

func (a *app) showReport(args []string) subcommands.ExitStatus {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	query := fs.String("q", "", "JSONPath expression selecting part of the report")
	asJSON := fs.Bool("json", false, "Print the report as JSON")
	r, status, ok := a.reportArg(fs, args)
	if !ok {
		return status
	}

	switch {
	case *query != "":
		v, err := report.Query(r, *query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		return printJSON(v)
	case *asJSON:
		return printJSON(r)
	}
	printMarkdown(renderer.RenderSavedReport(r, a.options()))
	return subcommands.ExitSuccess
}

func (a *app) deleteReport(args []string) subcommands.ExitStatus {
	r, status, ok := a.reportArg(flag.NewFlagSet("delete", flag.ContinueOnError), args)
	if !ok {
		return status
	}
	a.reports.Delete(r.ID)
	fmt.Printf("Deleted report %q\n", r.Title)
	return subcommands.ExitSuccess
}

func (a *app) exportReport(args []string) subcommands.ExitStatus {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	format := fs.String("format", "pdf", "Export format: pdf, xlsx, md or html")
	kind := fs.String("kind", string(export.BoardDeck), "PDF kind: BOARD_DECK, INVESTOR_UPDATE or SWOT_ANALYSIS")
	output := fs.String("o", "", "Output file, FinSight_Report_<id>.<format> by default, - for stdout")
	r, status, ok := a.reportArg(fs, args)
	if !ok {
		return status
	}

	var buf bytes.Buffer
	switch *format {
	case "pdf":
		k, err := export.ParseKind(*kind)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
		date, _ := time.Parse(time.RFC3339, r.Date)
		if err := export.PDF(&buf, &r.Result, export.Options{Kind: k, Date: date, Currency: a.cfg.Report.Currency}); err != nil {
			return errStatus("Error exporting", err)
		}
	case "xlsx":
		if err := export.Workbook(&buf, &r.Result); err != nil {
			return errStatus("Error exporting", err)
		}
	case "md":
		buf.WriteString(renderer.RenderSavedReport(r, a.options()))
	case "html":
		page, err := renderer.HTML(r.Title, renderer.RenderSavedReport(r, a.options()))
		if err != nil {
			return errStatus("Error exporting", err)
		}
		buf.Write(page)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown export format %q\n", *format)
		return subcommands.ExitUsageError
	}

	path := *output
	if path == "" {
		path = fmt.Sprintf("FinSight_Report_%s.%s", r.ID, *format)
	}
	if path == "-" {
		os.Stdout.Write(buf.Bytes())
		return subcommands.ExitSuccess
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errStatus("Error writing export", err)
	}
	fmt.Fprintf(os.Stderr, "Exported %q to %s\n", r.Title, path)
	return subcommands.ExitSuccess
}

func printJSON(v any) subcommands.ExitStatus {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
