package report

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/shpitdev/apollo-bulk-enricher/internal/pipeline"
)

// Document is the JSON body returned for a finished run.
type Document struct {
	Results []pipeline.Row `json:"results"`
	Summary SummaryJSON    `json:"summary"`
}

type SummaryJSON struct {
	Total  int            `json:"total"`
	OK     int            `json:"ok"`
	Failed int            `json:"failed"`
	Counts map[string]int `json:"counts"`
}

// NewDocument builds the JSON view of rows. Results is never null.
func NewDocument(rows []pipeline.Row) Document {
	if rows == nil {
		rows = []pipeline.Row{}
	}
	s := pipeline.Summarize(rows)
	counts := make(map[string]int, len(s.Counts))
	for st, n := range s.Counts {
		counts[string(st)] = n
	}
	return Document{
		Results: rows,
		Summary: SummaryJSON{
			Total:  s.Total,
			OK:     s.OK(),
			Failed: s.Failed(),
			Counts: counts,
		},
	}
}

// WriteJSON writes the indented JSON document for rows.
func WriteJSON(w io.Writer, rows []pipeline.Row) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(rows))
}

// Write renders rows in the named format.
func Write(w io.Writer, format string, rows []pipeline.Row) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, rows)
	case FormatCSV:
		return pipeline.WriteCSV(w, rows)
	case FormatMarkdown, "":
		return WriteMarkdown(w, rows)
	default:
		return &UnsupportedFormatError{Format: format}
	}
}

// CheckFormat returns an UnsupportedFormatError unless Write accepts format.
func CheckFormat(format string) error {
	if format == "" || slices.Contains(Formats(), format) {
		return nil
	}
	return &UnsupportedFormatError{Format: format}
}

// UnsupportedFormatError reports an unknown output format.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format %q (want json, csv or markdown)", e.Format)
}
