package pipeline_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/shpitdev/apollo-bulk-enricher/internal/enrich"
	"github.com/shpitdev/apollo-bulk-enricher/internal/enrich/apollo"
	"github.com/shpitdev/apollo-bulk-enricher/internal/pipeline"
	"github.com/shpitdev/apollo-bulk-enricher/pkg/mockapollo"
)

type testEnricher struct {
	mu    sync.Mutex
	calls []string
}

func (e *testEnricher) Enrich(_ context.Context, domain string) enrich.Result {
	e.mu.Lock()
	e.calls = append(e.calls, domain)
	e.mu.Unlock()

	switch {
	case strings.HasSuffix(domain, ".zzz"):
		return enrich.NotFound(domain)
	case strings.HasSuffix(domain, ".locked"):
		return enrich.Unauthorized(domain)
	case strings.HasSuffix(domain, ".broken"):
		return enrich.HTTPError(domain, 500, "server error")
	case strings.HasSuffix(domain, ".down"):
		return enrich.TransportError(domain, errors.New("dial tcp: connection refused"))
	}
	return enrich.Success(domain, enrich.CompanyRecord{Name: strings.ToUpper(domain)})
}

func TestRun_EmptyInput(t *testing.T) {
	e := &testEnricher{}
	called := false
	got, err := pipeline.Run(context.Background(), nil, e, pipeline.Options{}, func(pipeline.Progress) { called = true })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", got)
	}
	if len(e.calls) != 0 || called {
		t.Fatalf("expected no activity, calls=%v progress=%t", e.calls, called)
	}
}

func TestRun_PreservesOrderAndLength(t *testing.T) {
	e := &testEnricher{}
	in := []string{"a.com", "", "  b.zzz ", "c.locked", "d.broken", "e.down", "a.com"}

	var progress []pipeline.Progress
	got, err := pipeline.Run(context.Background(), in, e, pipeline.Options{}, func(p pipeline.Progress) {
		progress = append(progress, p)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantDomains := []string{"a.com", "b.zzz", "c.locked", "d.broken", "e.down", "a.com"}
	wantStatus := []enrich.Status{
		enrich.StatusOK,
		enrich.StatusNotFound,
		enrich.StatusUnauthorized,
		enrich.StatusHTTPError,
		enrich.StatusTransportError,
		enrich.StatusOK,
	}
	if len(got) != len(wantDomains) {
		t.Fatalf("expected %d results, got %d", len(wantDomains), len(got))
	}
	for i := range wantDomains {
		if got[i].Domain != wantDomains[i] || got[i].Status != wantStatus[i] {
			t.Fatalf("result[%d]=%#v want domain=%q status=%q", i, got[i], wantDomains[i], wantStatus[i])
		}
	}

	if len(progress) != len(wantDomains) {
		t.Fatalf("expected %d progress reports, got %d", len(wantDomains), len(progress))
	}
	for i, p := range progress {
		if p.Done != i+1 || p.Total != len(wantDomains) || p.Domain != wantDomains[i] {
			t.Fatalf("progress[%d]=%#v", i, p)
		}
	}
	if last := progress[len(progress)-1]; last.Fraction() != 1 {
		t.Fatalf("expected final fraction 1, got %v", last.Fraction())
	}
}

func TestRun_CancelReturnsPrefix(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := &testEnricher{}
	got, err := pipeline.Run(ctx, []string{"a.com", "b.com", "c.com"}, e, pipeline.Options{}, func(p pipeline.Progress) {
		if p.Done == 2 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(got) != 2 || got[1].Domain != "b.com" {
		t.Fatalf("unexpected prefix: %#v", got)
	}
}

func TestRun_HubSpotScenario(t *testing.T) {
	srv := mockapollo.New()
	srv.RequireAPIKey("test-key")
	srv.AddCompany("hubspot.com", mockapollo.Company{
		Name:                  "HubSpot",
		WebsiteURL:            "http://www.hubspot.com",
		Industry:              "computer software",
		City:                  "Cambridge",
		Country:               "United States",
		EstimatedNumEmployees: 7400,
		FoundedYear:           2006,
		LinkedInURL:           "http://www.linkedin.com/company/hubspot",
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client, err := apollo.New(apollo.Config{APIKey: "test-key", BaseURL: ts.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	var logs bytes.Buffer
	logger := zerolog.New(&logs).Level(zerolog.DebugLevel)
	opts := pipeline.Options{}

	results, err := pipeline.Run(context.Background(), []string{"hubspot.com", "doesnotexist.zzz"}, pipeline.Traced(client, logger, opts), opts, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Status != enrich.StatusOK || results[0].Company.Name != "HubSpot" || results[0].Company.Location != "Cambridge, United States" {
		t.Fatalf("unexpected result[0]: %#v", results[0])
	}
	if results[1].Status != enrich.StatusNotFound {
		t.Fatalf("unexpected result[1]: %#v", results[1])
	}

	var buf bytes.Buffer
	if err := pipeline.WriteCSV(&buf, pipeline.ToRows(results)); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d records", len(records))
	}
	if records[1][0] != "hubspot.com" || records[1][1] != "HubSpot" || records[1][5] != "7400" || records[1][6] != "2006" {
		t.Fatalf("unexpected row 1: %#v", records[1])
	}
	if records[2][0] != "doesnotexist.zzz" || records[2][8] != "not_found" || records[2][9] != "No company found" {
		t.Fatalf("unexpected row 2: %#v", records[2])
	}

	if !strings.Contains(logs.String(), `"domain":"hubspot.com"`) || strings.Contains(logs.String(), "test-key") {
		t.Fatalf("unexpected trace logs: %s", logs.String())
	}
	if calls := srv.Calls(); len(calls) != 2 {
		t.Fatalf("expected one upstream call per domain, got %d", len(calls))
	}
}
