package enrich

import (
	"context"
	"fmt"
	"strings"
)

// Status tags the terminal state reached for one domain.
type Status string

const (
	StatusOK             Status = "ok"
	StatusNotFound       Status = "not_found"
	StatusUnauthorized   Status = "unauthorized"
	StatusHTTPError      Status = "http_error"
	StatusTransportError Status = "transport_error"
)

// Statuses lists every terminal state in display order.
func Statuses() []Status {
	return []Status{
		StatusOK,
		StatusNotFound,
		StatusUnauthorized,
		StatusHTTPError,
		StatusTransportError,
	}
}

// CompanyRecord is the structured company data for a single domain.
//
// Everything is a string to keep CSV output simple and stable. Absent upstream
// fields are "" rather than missing.
type CompanyRecord struct {
	Name          string
	Website       string
	Industry      string
	Location      string
	EmployeeCount string
	FoundedYear   string
	LinkedInURL   string
}

// Result is the outcome for one domain. Company is set only for StatusOK;
// every other status carries a Detail instead.
type Result struct {
	Domain  string
	Status  Status
	Company CompanyRecord

	// HTTPStatus is the upstream status code for StatusHTTPError.
	HTTPStatus int
	Detail     string
}

// OK reports whether the lookup produced a company record.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

// Error returns the short human-readable failure description, or "" on success.
func (r Result) Error() string {
	switch r.Status {
	case StatusOK:
		return ""
	case StatusNotFound:
		return "No company found"
	case StatusUnauthorized:
		if r.Detail != "" {
			return "Unauthorized: " + r.Detail
		}
		return "Unauthorized: check the API key and plan access"
	case StatusHTTPError:
		if r.Detail == "" {
			return fmt.Sprintf("HTTP %d", r.HTTPStatus)
		}
		return fmt.Sprintf("HTTP %d: %s", r.HTTPStatus, r.Detail)
	case StatusTransportError:
		if r.Detail == "" {
			return "request failed"
		}
		return r.Detail
	default:
		return fmt.Sprintf("unknown status %q", string(r.Status))
	}
}

// Success builds an ok result.
func Success(domain string, c CompanyRecord) Result {
	return Result{Domain: domain, Status: StatusOK, Company: c}
}

// NotFound builds a result for a domain the provider has no company for.
func NotFound(domain string) Result {
	return Result{Domain: domain, Status: StatusNotFound}
}

// Unauthorized builds a credential/plan failure result. The detail is not
// surfaced so the outcome is the same regardless of the response body.
func Unauthorized(domain string) Result {
	return Result{Domain: domain, Status: StatusUnauthorized}
}

// HTTPError builds a result for any other non-200 response.
func HTTPError(domain string, status int, excerpt string) Result {
	return Result{Domain: domain, Status: StatusHTTPError, HTTPStatus: status, Detail: excerpt}
}

// TransportError builds a result for network, timeout and decoding failures.
func TransportError(domain string, err error) Result {
	msg := "request failed"
	if err != nil {
		msg = err.Error()
	}
	return Result{Domain: domain, Status: StatusTransportError, Detail: msg}
}

// Location joins city and country the way the export shows them.
func Location(city, country string) string {
	return strings.TrimSpace(city) + ", " + strings.TrimSpace(country)
}

// Enricher resolves a single domain to a Result.
//
// Implementations classify every failure into the Result; they do not return
// Go errors for per-domain problems.
type Enricher interface {
	Enrich(ctx context.Context, domain string) Result
}

// EnricherFunc adapts a function to the Enricher interface.
type EnricherFunc func(ctx context.Context, domain string) Result

func (f EnricherFunc) Enrich(ctx context.Context, domain string) Result {
	return f(ctx, domain)
}
