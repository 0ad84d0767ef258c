package pipeline_test

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/shpitdev/apollo-bulk-enricher/internal/enrich"
	"github.com/shpitdev/apollo-bulk-enricher/internal/pipeline"
)

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := pipeline.WriteCSV(&buf, []pipeline.Row{{
		Domain: "hubspot.com",
		Status: "ok",
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header + 1 row, got %d records", len(records))
	}

	wantHeader := pipeline.Header()
	if len(records[0]) != len(wantHeader) {
		t.Fatalf("unexpected header len: got %d want %d", len(records[0]), len(wantHeader))
	}
	for i := range wantHeader {
		if records[0][i] != wantHeader[i] {
			t.Fatalf("header[%d]: want %q got %q", i, wantHeader[i], records[0][i])
		}
	}
	if records[1][0] != "hubspot.com" || records[1][8] != "ok" {
		t.Fatalf("unexpected row: %#v", records[1])
	}
}

func TestReadCSV(t *testing.T) {
	in := strings.Join([]string{
		strings.Join(pipeline.Header(), ",") + ",extra",
		"hubspot.com,HubSpot,http://www.hubspot.com,software,\"Cambridge, United States\",7400,2006,,ok,,x",
		"doesnotexist.zzz,,,,,,,,not_found,No company found,",
		"",
	}, "\n")

	rows, err := pipeline.ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Name != "HubSpot" || rows[0].Location != "Cambridge, United States" || rows[0].Status != "ok" {
		t.Fatalf("unexpected row[0]: %#v", rows[0])
	}
	if rows[1].Status != "not_found" || rows[1].Error != "No company found" {
		t.Fatalf("unexpected row[1]: %#v", rows[1])
	}
}

func TestReadCSV_MissingColumn(t *testing.T) {
	if _, err := pipeline.ReadCSV(strings.NewReader("domain,name\nx,y\n")); err == nil {
		t.Fatalf("expected error for missing columns")
	}
}

func TestToRowAndSummarize(t *testing.T) {
	results := []enrich.Result{
		enrich.Success("a.com", enrich.CompanyRecord{Name: "A", Location: enrich.Location("Berlin", "Germany")}),
		enrich.NotFound("b.com"),
		enrich.HTTPError("c.com", 500, "server error"),
		enrich.Unauthorized("d.com"),
	}
	rows := pipeline.ToRows(results)

	if rows[0].Name != "A" || rows[0].Location != "Berlin, Germany" || rows[0].Error != "" {
		t.Fatalf("unexpected row[0]: %#v", rows[0])
	}
	if rows[2].Name != "" || rows[2].Error != "HTTP 500: server error" || rows[2].Status != "http_error" {
		t.Fatalf("unexpected row[2]: %#v", rows[2])
	}
	if !strings.HasPrefix(rows[3].Error, "Unauthorized") {
		t.Fatalf("unexpected row[3]: %#v", rows[3])
	}

	s := pipeline.Summarize(rows)
	if s.Total != 4 || s.OK() != 1 || s.Failed() != 3 || s.Counts[enrich.StatusNotFound] != 1 {
		t.Fatalf("unexpected summary: %#v", s)
	}
}
