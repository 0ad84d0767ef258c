package pipeline

import (
	"github.com/shpitdev/apollo-bulk-enricher/internal/enrich"
	"github.com/shpitdev/apollo-bulk-enricher/pkg/pipeline/redact"
)

const (
	// DefaultFilename is the download name used for CSV exports.
	DefaultFilename = "apollo_company_data.csv"
	// CSVContentType is the MIME type of CSV exports.
	CSVContentType = "text/csv"
)

// Row is the stable, flat output schema for one domain.
type Row struct {
	Domain        string `json:"domain"`
	Name          string `json:"name"`
	Website       string `json:"website"`
	Industry      string `json:"industry"`
	Location      string `json:"location"`
	EmployeeCount string `json:"employee_count"`
	FoundedYear   string `json:"founded_year"`
	LinkedInURL   string `json:"linkedin_url"`
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
}

// Header returns the stable CSV header for Row.
func Header() []string {
	return []string{
		"domain",
		"name",
		"website",
		"industry",
		"location",
		"employee_count",
		"founded_year",
		"linkedin_url",
		"status",
		"error",
	}
}

func (r Row) values() []string {
	return []string{
		r.Domain,
		r.Name,
		r.Website,
		r.Industry,
		r.Location,
		r.EmployeeCount,
		r.FoundedYear,
		r.LinkedInURL,
		r.Status,
		r.Error,
	}
}

// ToRow projects a result onto the flat schema. Failing results keep their
// company columns empty and carry the error text instead.
func ToRow(r enrich.Result) Row {
	if !r.OK() {
		return Row{
			Domain: r.Domain,
			Status: string(r.Status),
			Error:  redact.Secrets(r.Error()),
		}
	}
	return Row{
		Domain:        r.Domain,
		Name:          r.Company.Name,
		Website:       r.Company.Website,
		Industry:      r.Company.Industry,
		Location:      r.Company.Location,
		EmployeeCount: r.Company.EmployeeCount,
		FoundedYear:   r.Company.FoundedYear,
		LinkedInURL:   r.Company.LinkedInURL,
		Status:        string(r.Status),
	}
}

// ToRows projects results in order.
func ToRows(results []enrich.Result) []Row {
	rows := make([]Row, 0, len(results))
	for _, r := range results {
		rows = append(rows, ToRow(r))
	}
	return rows
}

// Summary counts rows per status.
type Summary struct {
	Total  int
	Counts map[enrich.Status]int
}

// OK is the number of successful lookups.
func (s Summary) OK() int {
	return s.Counts[enrich.StatusOK]
}

// Failed is the number of lookups that did not produce a company.
func (s Summary) Failed() int {
	return s.Total - s.OK()
}

func Summarize(rows []Row) Summary {
	s := Summary{Counts: make(map[enrich.Status]int)}
	for _, r := range rows {
		s.Total++
		s.Counts[enrich.Status(r.Status)]++
	}
	return s
}
