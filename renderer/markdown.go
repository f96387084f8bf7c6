package renderer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/etnz/finsight"
	"github.com/etnz/finsight/marketplace"
	md "github.com/nao1215/markdown"
)

// VaultMarkdown lists the vault items with their key facts.
func VaultMarkdown(items []finsight.VaultItem) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Memory Vault")
	if len(items) == 0 {
		doc.PlainText("The vault is empty. Index documents with `finsight index` to build a long-term memory.")
		return doc.String()
	}
	doc.PlainText(fmt.Sprintf("%d documents indexed.", len(items)))

	for _, item := range items {
		doc.H2(item.FileName)
		doc.PlainText(fmt.Sprintf("%s, indexed %s, id `%s`", item.DocType.OrOther(), item.DateIndexed, item.ID))
		doc.PlainText(item.Summary)
		if len(item.Facts) == 0 {
			continue
		}
		rows := make([][]string, 0, len(item.Facts))
		for _, f := range item.Facts {
			rows = append(rows, []string{f.Metric, f.Value, f.DateContext})
		}
		doc.Table(md.TableSet{
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight, md.AlignLeft},
			Header:    []string{"Metric", "Value", "Date"},
			Rows:      rows,
		})
	}
	return doc.String()
}

// ReportsMarkdown lists the saved reports, most recent first.
func ReportsMarkdown(reports []finsight.SavedReport) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Saved Reports")
	if len(reports) == 0 {
		doc.PlainText("No saved reports.")
		return doc.String()
	}
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		date := r.Date
		if t := r.Time(); !t.IsZero() {
			date = t.Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			r.ID,
			r.Title,
			date,
			string(r.Result.SentimentLabel),
			fmt.Sprintf("%d%%", r.Result.ConfidenceScore),
			strings.Join(r.FileNames, ", "),
		})
	}
	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignRight, md.AlignLeft},
		Header:    []string{"ID", "Title", "Date", "Sentiment", "Confidence", "Sources"},
		Rows:      rows,
	})
	return doc.String()
}

// ScenarioMarkdown renders a what-if projection.
func ScenarioMarkdown(mods finsight.ScenarioModifiers, res *finsight.ScenarioResult, opts Options) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Scenario Simulation")
	doc.BulletList(
		"Revenue: "+mods.RevenueChange.Exact(),
		"Cost of Goods/Services: "+mods.CostChange.Exact(),
		"Operational Efficiency: "+mods.OperationalEfficiency.Exact(),
	)
	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
		Header:    []string{"Projection", "Value"},
		Rows: [][]string{
			{"Net Income", md.Bold(res.ProjectedNetIncome)},
			{"Margin", res.ProjectedMargin},
			{"Risk Shift", res.RiskShift},
		},
	})
	if len(res.ChartData) > 0 {
		rows := make([][]string, 0, len(res.ChartData))
		for _, p := range res.ChartData {
			baseline := finsight.M(p.Baseline, opts.Currency)
			projected := finsight.M(p.Projected, opts.Currency)
			rows = append(rows, []string{p.Name, baseline.String(), projected.String(), projected.Sub(baseline).SignedString()})
		}
		doc.H2("Baseline vs Projected")
		doc.Table(md.TableSet{
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignRight},
			Header:    []string{"Metric", "Baseline", "Projected", "Change"},
			Rows:      rows,
		})
	}
	doc.H2("Impact Analysis")
	doc.PlainText(res.ImpactAnalysis)
	return doc.String()
}

// MarketplaceMarkdown lists the plugins and integrations of a catalog.
func MarketplaceMarkdown(plugins []marketplace.Plugin, integrations []marketplace.Integration) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Marketplace")
	doc.H2("Analytics Plugins")
	rows := make([][]string, 0, len(plugins))
	for _, p := range plugins {
		state := "off"
		if p.Active {
			state = md.Bold("on")
		}
		rows = append(rows, []string{p.ID, p.Name, string(p.Category), state, p.Description})
	}
	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignCenter, md.AlignLeft},
		Header:    []string{"ID", "Plugin", "Category", "Active", "Description"},
		Rows:      rows,
	})

	doc.H2("Data Integrations")
	rows = make([][]string, 0, len(integrations))
	for _, i := range integrations {
		rows = append(rows, []string{i.ID, i.Name, string(i.Status), i.Description})
	}
	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignLeft},
		Header:    []string{"ID", "Integration", "Status", "Description"},
		Rows:      rows,
	})
	return doc.String()
}
