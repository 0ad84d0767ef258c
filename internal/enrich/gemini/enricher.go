package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"google.golang.org/genai"

	"github.com/shpitdev/apollo-bulk-enricher/internal/enrich"
	"github.com/shpitdev/apollo-bulk-enricher/pkg/pipeline/redact"
)

const DefaultModel = "gemini-2.5-flash"

var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is required")

type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string
}

// Enricher looks companies up through Gemini with Google Search grounding.
type Enricher struct {
	client *genai.Client
	model  string
}

func New(ctx context.Context, cfg Config) (*Enricher, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &Enricher{client: client, model: model}, nil
}

type responseSchema struct {
	Name          string `json:"name"`
	Website       string `json:"website"`
	Industry      string `json:"industry"`
	City          string `json:"city"`
	Country       string `json:"country"`
	EmployeeCount string `json:"employee_count"`
	FoundedYear   string `json:"founded_year"`
	LinkedInURL   string `json:"linkedin_url"`
}

var outputSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"name":           {Type: genai.TypeString},
		"website":        {Type: genai.TypeString},
		"industry":       {Type: genai.TypeString},
		"city":           {Type: genai.TypeString},
		"country":        {Type: genai.TypeString},
		"employee_count": {Type: genai.TypeString},
		"founded_year":   {Type: genai.TypeString},
		"linkedin_url":   {Type: genai.TypeString},
	},
	Required: []string{
		"name",
		"website",
		"industry",
		"city",
		"country",
		"employee_count",
		"founded_year",
		"linkedin_url",
	},
}

func (e *Enricher) Enrich(ctx context.Context, domain string) enrich.Result {
	domain = strings.TrimSpace(domain)

	resp, err := e.client.Models.GenerateContent(
		ctx,
		e.model,
		genai.Text(buildPrompt(domain)),
		&genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{GoogleSearch: &genai.GoogleSearch{}},
			},
			CandidateCount:   1,
			ResponseMIMEType: "application/json",
			ResponseSchema:   outputSchema,
		},
	)
	if err != nil {
		return classifyErr(domain, err)
	}
	return parseResponse(domain, resp.Text())
}

func buildPrompt(domain string) string {
	return strings.TrimSpace(`
You are a company data enrichment tool. Given a company web domain, use web search to find the company that owns it.

Return ONLY a single JSON object with these keys:
- name (string; the company's name)
- website (string; the canonical website URL)
- industry (string)
- city (string; headquarters city)
- country (string; headquarters country)
- employee_count (string; estimated number of employees, digits only)
- founded_year (string; four digit year)
- linkedin_url (string)

Rules:
- If you cannot find a field, set it to an empty string.
- If no company owns this domain, set every field to an empty string.
- Do not include extra keys.

Domain: ` + domain + `
`)
}

func parseResponse(domain, text string) enrich.Result {
	var parsed responseSchema
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return enrich.TransportError(domain, fmt.Errorf("gemini: parse structured json: %w", err))
	}
	name := strings.TrimSpace(parsed.Name)
	if name == "" {
		return enrich.NotFound(domain)
	}
	return enrich.Success(domain, enrich.CompanyRecord{
		Name:          name,
		Website:       strings.TrimSpace(parsed.Website),
		Industry:      strings.TrimSpace(parsed.Industry),
		Location:      enrich.Location(parsed.City, parsed.Country),
		EmployeeCount: strings.TrimSpace(parsed.EmployeeCount),
		FoundedYear:   strings.TrimSpace(parsed.FoundedYear),
		LinkedInURL:   strings.TrimSpace(parsed.LinkedInURL),
	})
}

func classifyErr(domain string, err error) enrich.Result {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 401 || apiErr.Code == 403 {
			return enrich.Unauthorized(domain)
		}
		return enrich.HTTPError(domain, apiErr.Code, excerpt(apiErr.Message))
	}
	return enrich.TransportError(domain, errors.New(redact.Secrets(err.Error())))
}

func excerpt(msg string) string {
	msg = redact.Secrets(strings.Join(strings.Fields(msg), " "))
	if utf8.RuneCountInString(msg) <= 80 {
		return msg
	}
	return string([]rune(msg)[:80])
}
