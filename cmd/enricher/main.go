// Package main provides the enricher CLI.
//
// enricher resolves company web domains to structured company records through
// the Apollo API, one domain at a time, and exports the results as CSV.
//
// Usage:
//
//	enricher fetch hubspot.com zoom.us
//	enricher fetch --input domains.csv --output apollo_company_data.csv
//	enricher serve
//
// See --help for all available options.
package main

func main() {
	Execute()
}
