package apollo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shpitdev/apollo-bulk-enricher/internal/enrich"
	"github.com/shpitdev/apollo-bulk-enricher/internal/version"
	"github.com/shpitdev/apollo-bulk-enricher/pkg/pipeline/redact"
)

const (
	DefaultBaseURL = "https://api.apollo.io"
	DefaultTimeout = 20 * time.Second

	enrichPath = "v1/companies/enrich"

	// maxExcerpt bounds the error text kept from non-200 responses.
	maxExcerpt = 80
	// maxBody bounds how much of a response is read.
	maxBody = 1 << 20
)

// ErrMissingAPIKey is returned by New when no credential is configured.
var ErrMissingAPIKey = errors.New("apollo: API key is required")

type Config struct {
	APIKey string

	// BaseURL overrides the Apollo API base URL. Useful for proxies/testing.
	BaseURL string

	// Timeout bounds each enrichment request. Defaults to 20s.
	Timeout time.Duration

	// HTTPClient replaces the default client. Its Timeout is left untouched.
	HTTPClient *http.Client
}

// Client calls the Apollo company enrichment endpoint, one domain per request.
type Client struct {
	apiKey   string
	endpoint string
	http     *http.Client
}

func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse apollo base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("apollo base URL must include a host (got %q)", base)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/"
	u.RawQuery = ""
	u.Fragment = ""

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		apiKey:   apiKey,
		endpoint: u.ResolveReference(&url.URL{Path: enrichPath}).String(),
		http:     hc,
	}, nil
}

type enrichRequest struct {
	APIKey string `json:"api_key"`
	Domain string `json:"domain"`
}

// Enrich looks up one domain. Every outcome, including transport failures,
// is returned as a classified Result.
func (c *Client) Enrich(ctx context.Context, domain string) enrich.Result {
	body, err := json.Marshal(enrichRequest{APIKey: c.apiKey, Domain: domain})
	if err != nil {
		return enrich.TransportError(domain, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return enrich.TransportError(domain, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "apollo-bulk-enricher/"+version.Current)

	resp, err := c.http.Do(req)
	if err != nil {
		return enrich.TransportError(domain, sanitize(err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return enrich.TransportError(domain, sanitize(err))
	}
	return classify(domain, resp.StatusCode, b)
}

// classify maps one response onto exactly one terminal state.
func classify(domain string, status int, body []byte) enrich.Result {
	switch {
	case status == http.StatusUnauthorized:
		return enrich.Unauthorized(domain)
	case status != http.StatusOK:
		return enrich.HTTPError(domain, status, errorExcerpt(body))
	}

	var parsed enrichResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return enrich.TransportError(domain, fmt.Errorf("apollo: parse response: %w", err))
	}
	raw := parsed.primary()
	if isEmptyObject(raw) {
		return enrich.NotFound(domain)
	}
	var c company
	if err := json.Unmarshal(raw, &c); err != nil {
		return enrich.TransportError(domain, fmt.Errorf("apollo: parse company: %w", err))
	}
	return enrich.Success(domain, c.record())
}

type errorEnvelope struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// errorExcerpt prefers a server-supplied message and falls back to the raw body,
// collapsed to one line, redacted and truncated.
func errorExcerpt(body []byte) string {
	text := ""
	var env errorEnvelope
	if len(body) > 0 && json.Unmarshal(body, &env) == nil {
		text = strings.TrimSpace(env.Message)
		if text == "" {
			text = strings.TrimSpace(env.Error)
		}
	}
	if text == "" {
		text = string(body)
	}
	text = redact.Secrets(strings.Join(strings.Fields(text), " "))
	return truncate(text, maxExcerpt)
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

// sanitize keeps transport error messages free of the request body and key.
func sanitize(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		// url.Error repeats the method and full URL; the inner error is what matters.
		return fmt.Errorf("%s: %s", ue.Op, redact.Secrets(ue.Err.Error()))
	}
	return errors.New(redact.Secrets(err.Error()))
}

type enrichResponse struct {
	Company json.RawMessage `json:"company"`

	// Companies is the search-style payload shape. Only the first entry counts.
	Companies []json.RawMessage `json:"companies"`
}

func (r enrichResponse) primary() json.RawMessage {
	if !isNull(r.Company) {
		return r.Company
	}
	if len(r.Companies) > 0 {
		return r.Companies[0]
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}

// isEmptyObject reports whether raw is absent, null or {}. Any key at all,
// mapped or not, makes the company a hit.
func isEmptyObject(raw json.RawMessage) bool {
	if isNull(raw) {
		return true
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return false
	}
	return len(fields) == 0
}

type company struct {
	Name                  flexString `json:"name"`
	WebsiteURL            flexString `json:"website_url"`
	Industry              flexString `json:"industry"`
	City                  flexString `json:"city"`
	Country               flexString `json:"country"`
	EstimatedNumEmployees flexString `json:"estimated_num_employees"`
	FoundedYear           flexString `json:"founded_year"`
	LinkedInURL           flexString `json:"linkedin_url"`
}

func (c *company) record() enrich.CompanyRecord {
	return enrich.CompanyRecord{
		Name:          string(c.Name),
		Website:       string(c.WebsiteURL),
		Industry:      string(c.Industry),
		Location:      enrich.Location(string(c.City), string(c.Country)),
		EmployeeCount: string(c.EstimatedNumEmployees),
		FoundedYear:   string(c.FoundedYear),
		LinkedInURL:   string(c.LinkedInURL),
	}
}

// flexString accepts JSON strings, numbers, booleans and null. Null and
// absent both decode to "".
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	switch {
	case raw == "" || raw == "null":
		*f = ""
	case strings.HasPrefix(raw, `"`):
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
	case raw == "true" || raw == "false":
		*f = flexString(raw)
	default:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("unsupported value %s", raw)
		}
		*f = flexString(strconv.FormatFloat(n, 'f', -1, 64))
	}
	return nil
}
