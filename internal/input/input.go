// Package input turns user-supplied domain lists into the ordered sequence the
// pipeline consumes.
package input

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DomainColumn is the required column of uploaded CSV files.
const DomainColumn = "domain"

// ErrEmptyInput is returned by Require when no domain survives cleaning.
var ErrEmptyInput = errors.New("please enter at least one domain")

// Clean trims every entry and drops blanks. Order and duplicates are kept and
// no case or format normalization is applied.
func Clean(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Require returns ErrEmptyInput for an empty domain list.
func Require(domains []string) error {
	if len(domains) == 0 {
		return ErrEmptyInput
	}
	return nil
}

// ParseText splits freeform text into domains, one per line.
func ParseText(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return Clean(strings.Split(s, "\n"))
}

// ReadDomainsCSV reads a CSV file and returns the values from the "domain" column.
func ReadDomainsCSV(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	domainIdx := -1
	for i, col := range header {
		col = strings.TrimPrefix(col, "\ufeff")
		if strings.EqualFold(strings.TrimSpace(col), DomainColumn) {
			domainIdx = i
			break
		}
	}
	if domainIdx < 0 {
		return nil, fmt.Errorf("missing required column %q", DomainColumn)
	}

	var domains []string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if domainIdx >= len(rec) {
			// Short rows count as blank.
			continue
		}
		domains = append(domains, rec[domainIdx])
	}
	return Clean(domains), nil
}

// ReadFile loads domains from path. Files ending in .csv must carry a domain
// column; anything else is read as newline-delimited text.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	return ReadNamed(filepath.Base(path), f)
}

// ReadNamed picks the parser from name's extension, the same way ReadFile does.
// Used for uploads where only the client-side file name is known.
func ReadNamed(name string, r io.Reader) ([]string, error) {
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		return ReadDomainsCSV(r)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseText(string(b)), nil
}
