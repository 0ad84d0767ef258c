package mockapollo

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const EnrichPath = "/v1/companies/enrich"

// Company is the upstream company payload served for a domain.
//
// EstimatedNumEmployees and FoundedYear are numbers upstream; they are kept as
// `any` so fixtures can exercise both numeric and string encodings.
type Company struct {
	Name                  string `json:"name,omitempty" yaml:"name"`
	WebsiteURL            string `json:"website_url,omitempty" yaml:"website_url"`
	Industry              string `json:"industry,omitempty" yaml:"industry"`
	City                  string `json:"city,omitempty" yaml:"city"`
	Country               string `json:"country,omitempty" yaml:"country"`
	EstimatedNumEmployees any    `json:"estimated_num_employees,omitempty" yaml:"estimated_num_employees"`
	FoundedYear           any    `json:"founded_year,omitempty" yaml:"founded_year"`
	LinkedInURL           string `json:"linkedin_url,omitempty" yaml:"linkedin_url"`
}

// Fault forces a non-200 response for a domain.
type Fault struct {
	Status int    `yaml:"status"`
	Body   string `yaml:"body"`
}

// Call records a request made to the mock service.
type Call struct {
	Method string
	Path   string
	Domain string
	APIKey string
}

// Fixtures is the on-disk format loaded by LoadFixtures.
//
// Example (YAML):
//
//	api_key: test-key
//	companies:
//	  hubspot.com:
//	    name: HubSpot
//	    city: Cambridge
//	    country: United States
//	faults:
//	  broken.test:
//	    status: 500
//	    body: server error
type Fixtures struct {
	APIKey    string             `yaml:"api_key"`
	Companies map[string]Company `yaml:"companies"`
	Faults    map[string]Fault   `yaml:"faults"`
}

// Server implements the Apollo company enrichment endpoint.
type Server struct {
	mu        sync.Mutex
	calls     []Call
	companies map[string]Company
	faults    map[string]Fault
	apiKey    string
	delay     time.Duration
}

// New constructs an empty mock server. Unknown domains return an empty payload.
func New() *Server {
	return &Server{
		companies: make(map[string]Company),
		faults:    make(map[string]Fault),
	}
}

// LoadFixtures reads a YAML fixture file into a new server.
func LoadFixtures(path string) (*Server, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	var fx Fixtures
	if err := yaml.Unmarshal(b, &fx); err != nil {
		return nil, fmt.Errorf("parse fixtures YAML: %w", err)
	}
	s := New()
	s.RequireAPIKey(fx.APIKey)
	for domain, c := range fx.Companies {
		s.AddCompany(domain, c)
	}
	for domain, f := range fx.Faults {
		s.SetFault(domain, f.Status, f.Body)
	}
	return s, nil
}

// AddCompany registers the company returned for domain.
func (s *Server) AddCompany(domain string, c Company) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companies[domain] = c
}

// SetFault makes every request for domain answer with status and body.
func (s *Server) SetFault(domain string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[domain] = Fault{Status: status, Body: body}
}

// RequireAPIKey enforces that request bodies carry the given api_key.
// If key is empty, the key is not checked.
func (s *Server) RequireAPIKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKey = strings.TrimSpace(key)
}

// SetDelay sleeps before every response. Used to exercise client timeouts.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Handler returns an http.Handler that serves the mock API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(EnrichPath, s.handleEnrich)
	return mux
}

// Calls returns a snapshot of calls made to the server.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

type enrichReq struct {
	APIKey string `json:"api_key"`
	Domain string `json:"domain"`
}

func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"message": "method not allowed"})
		return
	}

	var req enrichReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.record(Call{Method: r.Method, Path: r.URL.Path})
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"message": "invalid JSON body"})
		return
	}
	s.record(Call{Method: r.Method, Path: r.URL.Path, Domain: req.Domain, APIKey: req.APIKey})

	s.mu.Lock()
	delay := s.delay
	expectedKey := s.apiKey
	fault, faulted := s.faults[req.Domain]
	c, found := s.companies[req.Domain]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if expectedKey != "" && req.APIKey != expectedKey {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid access credentials."})
		return
	}
	if faulted {
		w.WriteHeader(fault.Status)
		_, _ = w.Write([]byte(fault.Body))
		return
	}
	if !found {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"company": c})
}

func (s *Server) record(c Call) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
