package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/etnz/finsight"
	"github.com/go-pdf/fpdf"
)

// Kind is the flavour of a printable report.
type Kind string

const (
	BoardDeck      Kind = "BOARD_DECK"
	InvestorUpdate Kind = "INVESTOR_UPDATE"
	SWOTAnalysis   Kind = "SWOT_ANALYSIS"
)

// Kinds lists the report kinds.
var Kinds = []Kind{BoardDeck, InvestorUpdate, SWOTAnalysis}

// ParseKind parses a report kind, case-insensitively. Empty is BoardDeck.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return BoardDeck, nil
	}
	for _, k := range Kinds {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown report kind %q, want one of %v", s, Kinds)
}

// Title returns the cover page title.
func (k Kind) Title() string {
	switch k {
	case BoardDeck:
		return "Board Meeting Presentation"
	case InvestorUpdate:
		return "Investor Update"
	default:
		return "Strategic SWOT Analysis"
	}
}

// Options configures a PDF report.
type Options struct {
	Kind     Kind
	Date     time.Time // time.Now when zero
	Currency string    // currency of the chart values, plain numbers when empty
}

// Footer is printed at the bottom of every page.
const Footer = "Confidential - FinSight AI Generated Report"

// compress is turned off by tests to inspect the page content.
var compress = true

type rgb struct{ r, g, b int }

var (
	slate900 = rgb{15, 23, 42}
	slate800 = rgb{30, 41, 59}
	slate500 = rgb{100, 116, 139}
	blue600  = rgb{37, 99, 235}
	blue500  = rgb{59, 130, 246}
	green    = rgb{22, 163, 74}
	red      = rgb{220, 38, 38}
	amber    = rgb{217, 119, 6}
	emerald  = rgb{5, 150, 105}
	text     = rgb{50, 50, 50}
)

const (
	margin = 20.0
	lineH  = 5.0
)

// report holds the drawing state of a PDF.
type report struct {
	pdf  *fpdf.Fpdf
	tr   func(string) string
	w, h float64
	opts Options
}

// PDF writes r as a paginated report: a cover page, the executive summary,
// the key metrics, the risk profile, the actionable insights and the
// historical context. Every page but the cover has a header, all of them
// the page number and the confidentiality footer.
func PDF(w io.Writer, r *finsight.ComparisonResult, opts Options) error {
	if opts.Kind == "" {
		opts.Kind = BoardDeck
	}
	if opts.Date.IsZero() {
		opts.Date = time.Now()
	}
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(compress)
	pdf.SetTitle(opts.Kind.Title(), true)
	pdf.SetCreator("FinSight", true)
	pdf.SetMargins(margin, 30, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.AliasNbPages("")

	rep := &report{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), opts: opts}
	rep.w, rep.h = pdf.GetPageSize()
	pdf.SetHeaderFunc(rep.header)
	pdf.SetFooterFunc(rep.footer)

	rep.cover(r)
	pdf.AddPage()
	rep.summary(r)
	rep.metrics(r)
	rep.risk(r)
	rep.insights(r)
	rep.history(r)

	return pdf.Output(w)
}

func (rep *report) color(c rgb) { rep.pdf.SetTextColor(c.r, c.g, c.b) }
func (rep *report) fill(c rgb)  { rep.pdf.SetFillColor(c.r, c.g, c.b) }

func (rep *report) font(style string, size float64) { rep.pdf.SetFont("Helvetica", style, size) }

func (rep *report) header() {
	if rep.pdf.PageNo() == 1 {
		return
	}
	rep.fill(slate800)
	rep.pdf.Rect(0, 0, rep.w, 20, "F")
	rep.pdf.SetTextColor(255, 255, 255)
	rep.font("B", 12)
	rep.pdf.SetXY(margin, 7)
	rep.pdf.CellFormat(0, 6, "FinSight AI Executive Report", "", 0, "L", false, 0, "")
	rep.font("", 10)
	rep.pdf.SetXY(margin, 7)
	rep.pdf.CellFormat(rep.w-2*margin, 6, rep.opts.Date.Format("2006-01-02"), "", 0, "R", false, 0, "")
	rep.pdf.SetXY(margin, 30)
	rep.color(text)
}

func (rep *report) footer() {
	rep.pdf.SetY(-15)
	rep.font("", 8)
	rep.pdf.SetTextColor(150, 150, 150)
	rep.pdf.CellFormat(0, 5, Footer, "", 0, "L", false, 0, "")
	rep.pdf.SetX(margin)
	rep.pdf.CellFormat(rep.w-2*margin, 5, fmt.Sprintf("Page %d of {nb}", rep.pdf.PageNo()), "", 0, "R", false, 0, "")
}

func (rep *report) cover(r *finsight.ComparisonResult) {
	pdf := rep.pdf
	pdf.AddPage()
	pdf.SetFillColor(248, 250, 252)
	pdf.Rect(0, 0, rep.w, rep.h, "F")
	rep.fill(blue600)
	pdf.Circle(rep.w+20, -20, 80, "F")
	rep.fill(blue500)
	pdf.Circle(-20, rep.h+20, 60, "F")

	y := rep.h / 3
	rep.color(slate900)
	rep.font("B", 28)
	pdf.SetXY(0, y-10)
	pdf.CellFormat(rep.w, 12, rep.opts.Kind.Title(), "", 1, "C", false, 0, "")

	rep.color(slate500)
	rep.font("", 14)
	pdf.SetXY(0, y+4)
	pdf.CellFormat(rep.w, 8, fmt.Sprintf("Generated Analysis for %d Key Insights", len(r.SummaryPoints)), "", 1, "C", false, 0, "")

	pdf.SetDrawColor(203, 213, 225)
	pdf.SetFillColor(255, 255, 255)
	pdf.RoundedRect(rep.w/2-30, y+25, 60, 12, 3, "1234", "FD")
	rep.color(blue600)
	rep.font("B", 10)
	pdf.SetXY(rep.w/2-30, y+25)
	pdf.CellFormat(60, 12, fmt.Sprintf("AI Confidence: %d%%", r.ConfidenceScore), "", 1, "C", false, 0, "")

	pdf.SetTextColor(148, 163, 184)
	rep.font("", 10)
	pdf.SetXY(0, rep.h-30)
	pdf.CellFormat(rep.w, 6, "Date: "+rep.opts.Date.Format("January 2, 2006"), "", 1, "C", false, 0, "")
}

// ensure starts a new page when fewer than need millimeters are left.
func (rep *report) ensure(need float64) {
	if rep.pdf.GetY()+need > rep.h-margin {
		rep.pdf.AddPage()
	}
}

func (rep *report) section(title string) {
	pdf := rep.pdf
	rep.ensure(40)
	rep.color(slate800)
	rep.font("B", 16)
	pdf.SetX(margin)
	pdf.CellFormat(0, 8, rep.tr(title), "", 1, "L", false, 0, "")
	pdf.SetDrawColor(blue500.r, blue500.g, blue500.b)
	pdf.SetLineWidth(0.5)
	y := pdf.GetY()
	pdf.Line(margin, y, margin+20, y)
	pdf.Ln(6)
	rep.font("", 10)
	rep.color(text)
}

func (rep *report) paragraph(s string) {
	rep.pdf.SetX(margin)
	rep.pdf.MultiCell(rep.w-2*margin, lineH, rep.tr(s), "", "L", false)
	rep.pdf.Ln(3)
}

func (rep *report) summary(r *finsight.ComparisonResult) {
	rep.section("Executive Summary")
	for _, p := range r.SummaryPoints {
		rep.ensure(lineH * 2)
		rep.fill(blue500)
		rep.pdf.Circle(margin-4, rep.pdf.GetY()+lineH/2, 1, "F")
		rep.paragraph(p)
	}
	if r.FinancialImplications != "" {
		rep.paragraph(r.FinancialImplications)
	}
	rep.pdf.Ln(5)
}

// trendLabel is the wording used in the metrics table.
func trendLabel(t finsight.Trend) string {
	switch t {
	case finsight.TrendUp:
		return "INCREASE"
	case finsight.TrendDown:
		return "DECREASE"
	default:
		return "NEUTRAL"
	}
}

func (rep *report) metrics(r *finsight.ComparisonResult) {
	rep.section("Key Financial Metrics")
	rows := make([][]string, 0, len(r.KeyDifferences))
	for _, d := range r.KeyDifferences {
		rows = append(rows, []string{d.Parameter, d.ValueDoc1, d.ValueDoc2, trendLabel(d.Trend)})
	}
	rep.table(slate800, []float64{50, 40, 40, 40}, []string{"Metric", "Source A", "Source B", "Trend"}, rows,
		func(col int, v string) (rgb, bool) {
			if col != 3 {
				return text, col == 0
			}
			switch v {
			case "INCREASE":
				return green, true
			case "DECREASE":
				return red, true
			}
			return slate500, true
		})

	if len(r.ChartData) > 0 {
		rows = rows[:0]
		for _, p := range r.ChartData {
			rows = append(rows, []string{p.Name, finsight.M(p.Value, rep.opts.Currency).String()})
		}
		rep.table(slate800, []float64{90, 80}, []string{"Figure", "Value"}, rows, nil)
	}
}

func (rep *report) risk(r *finsight.ComparisonResult) {
	rep.section("Risk Profile & Assessment")
	rep.paragraph(r.RiskAssessment)
	s := r.PredictiveRisk
	rep.paragraph(fmt.Sprintf("Bankruptcy probability: %s. Altman Z-Score: %.2f. Fraud risk score: %.0f/100.",
		finsight.Percent(s.BankruptcyProbability), s.AltmanZScore, s.FraudRiskScore))
	if s.Details != "" {
		rep.paragraph(s.Details)
	}
	for _, a := range r.AlertsOf(finsight.Critical) {
		rep.color(red)
		rep.paragraph(fmt.Sprintf("CRITICAL [%s] %s", a.Category, a.Message))
	}
	rep.color(text)
	rep.pdf.Ln(5)
}

func (rep *report) insights(r *finsight.ComparisonResult) {
	if len(r.ActionableInsights) == 0 {
		return
	}
	rep.ensure(60)
	rep.section("Actionable Strategic Insights")
	rows := make([][]string, 0, len(r.ActionableInsights))
	for _, i := range r.ActionableInsights {
		rows = append(rows, []string{i.Title, string(i.Priority), i.ImpactValue, i.Description})
	}
	rep.table(emerald, []float64{40, 25, 30, 75}, []string{"Strategy", "Priority", "Est. Impact", "Description"}, rows,
		func(col int, v string) (rgb, bool) {
			if col != 1 {
				return text, col == 0
			}
			switch finsight.Priority(v) {
			case finsight.High:
				return red, true
			case finsight.Medium:
				return amber, true
			}
			return blue600, true
		})
}

func (rep *report) history(r *finsight.ComparisonResult) {
	if strings.TrimSpace(r.HistoricalContext) == "" {
		return
	}
	rep.section("Historical Vault Context")
	pdf := rep.pdf
	width := rep.w - 2*margin
	lines := pdf.SplitLines([]byte(rep.tr(r.HistoricalContext)), width-10)
	height := float64(len(lines))*lineH + 10
	rep.ensure(height)
	y := pdf.GetY()
	pdf.SetFillColor(243, 244, 246)
	pdf.RoundedRect(margin, y, width, height, 2, "1234", "F")
	pdf.SetTextColor(75, 85, 99)
	rep.font("", 9)
	pdf.SetXY(margin+5, y+5)
	for _, l := range lines {
		pdf.SetX(margin + 5)
		pdf.CellFormat(width-10, lineH, string(l), "", 1, "L", false, 0, "")
	}
	pdf.SetY(y + height + 5)
}

// style returns the text color of a body cell and whether it is bold.
type style func(col int, value string) (rgb, bool)

// cellFont sets the color and font of a body cell.
func (rep *report) cellFont(st style, col int, value string) {
	c, bold := text, false
	if st != nil {
		c, bold = st(col, value)
	}
	rep.color(c)
	if bold {
		rep.font("B", 9)
	} else {
		rep.font("", 9)
	}
}

// wrap splits every cell of row into lines fitting its column, measured in
// the font the cell is drawn with.
func (rep *report) wrap(row []string, widths []float64, st style) [][][]byte {
	lines := make([][][]byte, len(row))
	for i, v := range row {
		rep.cellFont(st, i, v)
		lines[i] = rep.pdf.SplitLines([]byte(rep.tr(v)), widths[i]-2)
	}
	return lines
}

// table draws a grid with a colored header, wrapping cells and breaking pages between rows.
func (rep *report) table(head rgb, widths []float64, header []string, rows [][]string, st style) {
	pdf := rep.pdf
	pdf.SetDrawColor(226, 232, 240)
	pdf.SetLineWidth(0.2)

	rep.ensure(2 * (lineH + 4))
	rep.fill(head)
	pdf.SetTextColor(255, 255, 255)
	rep.font("B", 9)
	pdf.SetX(margin)
	for i, h := range header {
		pdf.CellFormat(widths[i], lineH+4, rep.tr(h), "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	for _, row := range rows {
		lines := rep.wrap(row, widths, st)
		n := 1
		for _, l := range lines {
			n = max(n, len(l))
		}
		height := float64(n)*lineH + 2
		rep.ensure(height)
		x, y := margin, pdf.GetY()
		for i, v := range row {
			rep.cellFont(st, i, v)
			pdf.Rect(x, y, widths[i], height, "D")
			for j, l := range lines[i] {
				pdf.SetXY(x+1, y+1+float64(j)*lineH)
				pdf.CellFormat(widths[i]-2, lineH, string(l), "", 0, "L", false, 0, "")
			}
			x += widths[i]
		}
		pdf.SetXY(margin, y+height)
	}
	rep.color(text)
	rep.font("", 10)
	pdf.Ln(8)
}
