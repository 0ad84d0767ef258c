package main

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shpitdev/apollo-bulk-enricher/internal/config"
	"github.com/shpitdev/apollo-bulk-enricher/pkg/mockapollo"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"APOLLO_PROVIDER", "APOLLO_API_KEY", "APOLLO_BASE_URL",
		"GEMINI_API_KEY", "REQUEST_TIMEOUT", "RATE_LIMIT_RPS",
		"LOG_LEVEL", "LOG_FILE", "LOG_CONSOLE",
	} {
		t.Setenv(k, "")
	}
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	if cmd.Use != "enricher" {
		t.Errorf("expected use 'enricher', got %q", cmd.Use)
	}
	if cmd.Version == "" {
		t.Error("expected non-empty version")
	}

	want := map[string]bool{"fetch [domain...]": false, "serve": false, "init": false, "show": false, "version": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Use]; ok {
			want[sub.Use] = true
		}
	}
	for use, found := range want {
		if !found {
			t.Errorf("expected %q subcommand", use)
		}
	}

	for _, name := range []string{"config", "provider", "timeout", "rate-limit-rps", "log-level"} {
		if cmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("expected persistent flag %q", name)
		}
	}
}

func TestFetch_MissingAPIKey(t *testing.T) {
	clearEnv(t)
	cfgPath := writeConfig(t, "provider: apollo\n")

	_, _, err := execute(t, "--config", cfgPath, "fetch", "hubspot.com")
	if !errors.Is(err, config.ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestFetch_EmptyInput(t *testing.T) {
	clearEnv(t)
	cfgPath := writeConfig(t, "apollo:\n  api_key: k\n")

	_, _, err := execute(t, "--config", cfgPath, "fetch", " ", "")
	if err == nil || !strings.Contains(err.Error(), "please enter at least one domain") {
		t.Fatalf("expected empty input error, got %v", err)
	}
}

func TestFetch_AgainstMock(t *testing.T) {
	clearEnv(t)

	mock := mockapollo.New()
	mock.RequireAPIKey("k")
	mock.AddCompany("hubspot.com", mockapollo.Company{Name: "HubSpot", City: "Cambridge", Country: "United States"})
	ts := httptest.NewServer(mock.Handler())
	defer ts.Close()

	cfgPath := writeConfig(t, "apollo:\n  api_key: k\n  base_url: "+ts.URL+"\nlog:\n  level: error\n")
	outPath := filepath.Join(t.TempDir(), "apollo_company_data.csv")

	stdout, stderr, err := execute(t, "--config", cfgPath, "fetch", "--format", "csv", "-o", outPath, "hubspot.com", "doesnotexist.zzz")
	if err != nil {
		t.Fatalf("fetch failed: %v\nstderr:\n%s", err, stderr)
	}

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows on stdout, got:\n%s", stdout)
	}
	if !strings.HasPrefix(lines[1], "hubspot.com,HubSpot,") || !strings.HasPrefix(lines[2], "doesnotexist.zzz,") {
		t.Fatalf("unexpected rows:\n%s", stdout)
	}
	if !strings.Contains(stderr, "(2/2)") {
		t.Fatalf("expected status lines on stderr, got:\n%s", stderr)
	}

	b, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if string(b) != stdout {
		t.Fatalf("export file differs from stdout csv")
	}
}

func TestShow_RedactsKeys(t *testing.T) {
	clearEnv(t)
	cfgPath := writeConfig(t, "apollo:\n  api_key: super-secret\n")

	stdout, _, err := execute(t, "--config", cfgPath, "--timeout", "5s", "show")
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if strings.Contains(stdout, "super-secret") {
		t.Fatalf("show leaked the api key:\n%s", stdout)
	}
	if !strings.Contains(stdout, "<redacted>") || !strings.Contains(stdout, "request_timeout: 5s") {
		t.Fatalf("unexpected output:\n%s", stdout)
	}
}

func TestShow_InvalidProvider(t *testing.T) {
	clearEnv(t)

	_, _, err := execute(t, "--config", writeConfig(t, ""), "--provider", "clearbit", "show")
	if !errors.Is(err, config.ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestVersion(t *testing.T) {
	stdout, _, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(stdout, "enricher version "+getVersion()) {
		t.Fatalf("unexpected output: %s", stdout)
	}
}
