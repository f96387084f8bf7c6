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

type simulateCmd struct {
	revenue, cost, efficiency float64
}

func (*simulateCmd) Name() string     { return "simulate" }
func (*simulateCmd) Synopsis() string { return "run a what-if scenario on a saved report" }
func (*simulateCmd) Usage() string {
	return `finsight simulate [-revenue <pct>] [-cost <pct>] [-efficiency <pct>] <report-id>

  Projects net income, margin and risk of a saved analysis under
  hypothetical changes, in percent between -50 and 50.
`
}

func (c *simulateCmd) SetFlags(f *flag.FlagSet) {
	f.Float64Var(&c.revenue, "revenue", 0, "Revenue change in percent")
	f.Float64Var(&c.cost, "cost", 0, "Cost of goods and services change in percent")
	f.Float64Var(&c.efficiency, "efficiency", 0, "Operational efficiency change in percent")
}

func (c *simulateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	mods := finsight.ScenarioModifiers{
		RevenueChange:         finsight.Percent(c.revenue),
		CostChange:            finsight.Percent(c.cost),
		OperationalEfficiency: finsight.Percent(c.efficiency),
	}
	if err := mods.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: simulate expects exactly one report id")
		return subcommands.ExitUsageError
	}

	a, err := openApp()
	if err != nil {
		return errStatus("Error opening workspace", err)
	}
	defer a.Close()

	r, ok := a.reports.Get(f.Arg(0))
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: no saved report with id %q\n", f.Arg(0))
		return subcommands.ExitFailure
	}
	res, err := a.newSession().Simulate(ctx, &r.Result, mods)
	if err != nil {
		return errStatus("Error simulating", err)
	}
	printMarkdown(renderer.ScenarioMarkdown(mods, res, a.options()))
	return subcommands.ExitSuccess
}
