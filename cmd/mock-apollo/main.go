package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/shpitdev/apollo-bulk-enricher/pkg/mockapollo"
)

func main() {
	addr := defaultString("MOCK_APOLLO_ADDR", ":8081")
	fixtures := defaultString("MOCK_APOLLO_FIXTURES", "")
	apiKey := defaultString("MOCK_APOLLO_API_KEY", "")
	delay := defaultString("MOCK_APOLLO_DELAY", "0s")

	fs := flag.NewFlagSet("mock-apollo", flag.ExitOnError)
	fs.StringVar(&addr, "addr", addr, "Listen address")
	fs.StringVar(&fixtures, "fixtures", fixtures, "YAML fixture file with companies and faults keyed by domain")
	fs.StringVar(&apiKey, "api-key", apiKey, "Require this api_key in request bodies (overrides the fixture file)")
	fs.StringVar(&delay, "delay", delay, "Artificial delay before every response")
	_ = fs.Parse(os.Args[1:])

	srv := mockapollo.New()
	if fixtures != "" {
		loaded, err := mockapollo.LoadFixtures(fixtures)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "fixtures error: %v\n", err)
			os.Exit(2)
		}
		srv = loaded
	}
	if apiKey != "" {
		srv.RequireAPIKey(apiKey)
	}
	d, err := time.ParseDuration(delay)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid delay %q: %v\n", delay, err)
		os.Exit(2)
	}
	srv.SetDelay(d)

	_, _ = fmt.Fprintf(os.Stdout, "mock-apollo listening on %s (enrich=%s fixtures=%s)\n", addr, mockapollo.EnrichPath, fixtures)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func defaultString(envVar string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return fallback
	}
	return v
}
