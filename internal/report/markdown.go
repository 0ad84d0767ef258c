package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/shpitdev/apollo-bulk-enricher/internal/enrich"
	"github.com/shpitdev/apollo-bulk-enricher/internal/pipeline"
)

const (
	// FormatMarkdown renders a results table with a status summary.
	FormatMarkdown = "markdown"
	// FormatJSON renders the results document as JSON.
	FormatJSON = "json"
	// FormatCSV renders the flat CSV export.
	FormatCSV = "csv"
)

// Formats lists the supported output formats.
func Formats() []string {
	return []string{FormatJSON, FormatCSV, FormatMarkdown}
}

// WriteMarkdown renders rows as a markdown table followed by a status summary.
func WriteMarkdown(w io.Writer, rows []pipeline.Row) error {
	md := markdown.NewMarkdown(w)

	md.H1("Company Enrichment Results")
	md.PlainText("")

	if len(rows) == 0 {
		md.PlainText("No domains were enriched.")
		return md.Build()
	}

	table := make([][]string, len(rows))
	for i, r := range rows {
		table[i] = []string{
			r.Domain,
			orDash(r.Name),
			orDash(r.Industry),
			orDash(r.Location),
			orDash(r.EmployeeCount),
			orDash(r.FoundedYear),
			orDash(r.Website),
			statusText(r),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Domain", "Name", "Industry", "Location", "Employees", "Founded", "Website", "Status"},
		Rows:   table,
	})
	md.PlainText("")

	writeSummary(md, pipeline.Summarize(rows))
	return md.Build()
}

func writeSummary(md *markdown.Markdown, s pipeline.Summary) {
	md.H2("Summary")
	md.PlainText("")

	rows := make([][]string, 0, len(enrich.Statuses())+1)
	for _, st := range enrich.Statuses() {
		if s.Counts[st] == 0 {
			continue
		}
		rows = append(rows, []string{string(st), strconv.Itoa(s.Counts[st])})
	}
	rows = append(rows, []string{"**total**", "**" + strconv.Itoa(s.Total) + "**"})

	md.Table(markdown.TableSet{
		Header: []string{"Status", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if s.Counts[enrich.StatusUnauthorized] > 0 {
		md.Warningf("%d domain(s) were rejected as unauthorized. Check the API key and plan access.", s.Counts[enrich.StatusUnauthorized])
		md.PlainText("")
	}
}

func statusText(r pipeline.Row) string {
	if r.Error == "" {
		return r.Status
	}
	return r.Error
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
