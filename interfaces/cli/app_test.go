package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/querykit/pack/probes"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return configPath
}

func newProbeServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/probes/":
			_ = json.NewEncoder(w).Encode(probes.List{
				Probes: []probes.Probe{
					{ID: "probe-1", Brand: "Acme", Status: "active", Frequency: "daily"},
					{ID: "probe-2", Brand: "Acme", Status: "paused", Frequency: "weekly"},
				},
				Total: 2,
			})
		case r.Method == http.MethodPost && r.URL.Path == "/probes/create":
			var req probes.CreateRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			_ = json.NewEncoder(w).Encode(probes.Probe{
				ID:        "probe-9",
				Brand:     req.Brand,
				Keywords:  req.Keywords,
				Frequency: "daily",
				Engines:   req.Engines,
				Status:    "active",
			})
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/execute"):
			_ = json.NewEncoder(w).Encode(probes.Results{
				JobID:           "probe-1",
				Brand:           "Acme",
				DataPoints:      []probes.DataPoint{{Brand: "Acme", Keyword: "crm", Engine: "gpt-4", IsMentioned: true}},
				VisibilityScore: probes.VisibilityScore{Overall: 71.5, MentionRate: 80},
			})
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/results"):
			_ = json.NewEncoder(w).Encode(probes.Results{
				JobID:           "probe-1",
				Brand:           "Acme",
				Timeframe:       r.URL.Query().Get("timeframe"),
				VisibilityScore: probes.VisibilityScore{Overall: 64.2},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestApp_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"version"})
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "querykit version") {
		t.Errorf("version output missing 'querykit version', got: %s", output)
	}
}

func TestApp_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"--help"})
	if err != nil {
		t.Fatalf("help command failed: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "client-side cache") {
		t.Errorf("help output missing description, got: %s", output)
	}
	if !strings.Contains(output, "probes") {
		t.Errorf("help output missing 'probes' command, got: %s", output)
	}
	if !strings.Contains(output, "watch") {
		t.Errorf("help output missing 'watch' command, got: %s", output)
	}
	if !strings.Contains(output, "validate") {
		t.Errorf("help output missing 'validate' command, got: %s", output)
	}
}

func TestApp_Validate(t *testing.T) {
	configPath := writeConfigFile(t, `
name: test-client
version: "1"
transport:
  base_url: http://localhost:8000
  timeout: 5s
invalidation:
  probes.create:
    - probes
`)

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"validate", "-c", configPath})
	if err != nil {
		t.Fatalf("validate command failed: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "valid") {
		t.Errorf("validate output missing 'valid', got: %s", output)
	}
	if !strings.Contains(output, "http://localhost:8000") {
		t.Errorf("validate output missing base URL, got: %s", output)
	}
	if !strings.Contains(output, "probes.create") {
		t.Errorf("validate output missing invalidation rule, got: %s", output)
	}
}

func TestApp_ValidateInvalid(t *testing.T) {
	// base_url is required
	configPath := writeConfigFile(t, `
name: test-client
transport:
  timeout: 5s
`)

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"validate", "-c", configPath})
	if err == nil {
		t.Fatal("validate command should fail for invalid config")
	}
}

func TestApp_ValidateShowSchema(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"validate", "--schema"})
	if err != nil {
		t.Fatalf("validate --schema failed: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "$schema") {
		t.Errorf("schema output missing '$schema', got: %s", output)
	}
	if !strings.Contains(output, "Client Configuration") {
		t.Errorf("schema output missing 'Client Configuration', got: %s", output)
	}
}

func TestApp_Inspect(t *testing.T) {
	configPath := writeConfigFile(t, `
name: test-client
version: "1"
transport:
  base_url: http://localhost:8000
resilience:
  retry:
    enabled: true
    max_attempts: 3
    initial_delay: 100ms
    multiplier: 2.0
persistence:
  enabled: true
  backend: filesystem
  path: /tmp/querykit.json
`)

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"inspect", "-c", configPath})
	if err != nil {
		t.Fatalf("inspect command failed: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "test-client") {
		t.Errorf("inspect output missing 'test-client', got: %s", output)
	}
	if !strings.Contains(output, "http://localhost:8000") {
		t.Errorf("inspect output missing base URL, got: %s", output)
	}
	if !strings.Contains(output, "Max Attempts: 3") {
		t.Errorf("inspect output missing retry settings, got: %s", output)
	}
	if !strings.Contains(output, "filesystem") {
		t.Errorf("inspect output missing persistence backend, got: %s", output)
	}
}

func TestApp_InspectJSON(t *testing.T) {
	configPath := writeConfigFile(t, `
name: test-client
transport:
  base_url: http://localhost:8000
`)

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"inspect", "-c", configPath, "--json"})
	if err != nil {
		t.Fatalf("inspect --json failed: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, `"name": "test-client"`) {
		t.Errorf("inspect JSON output missing name, got: %s", output)
	}
	if !strings.Contains(output, `"base_url": "http://localhost:8000"`) {
		t.Errorf("inspect JSON output missing base_url, got: %s", output)
	}
}

func TestApp_ExportSchema(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"export-schema"})
	if err != nil {
		t.Fatalf("export-schema failed: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "$schema") {
		t.Errorf("export-schema output missing '$schema', got: %s", output)
	}
}

func TestApp_ExportSchemaToFile(t *testing.T) {
	schemaPath := filepath.Join(t.TempDir(), "schema.json")

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"export-schema", "-o", schemaPath})
	if err != nil {
		t.Fatalf("export-schema -o failed: %v", err)
	}

	// Verify file was created
	data, err := os.ReadFile(schemaPath)
	if err != nil {
		t.Fatalf("failed to read schema file: %v", err)
	}

	if !strings.Contains(string(data), "$schema") {
		t.Errorf("schema file missing '$schema'")
	}
}

func TestApp_ProbesList(t *testing.T) {
	server := newProbeServer(t)

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"probes", "list", "--base-url", server.URL})
	if err != nil {
		t.Fatalf("probes list failed: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "2 probe(s)") {
		t.Errorf("list output missing probe count, got: %s", output)
	}
	if !strings.Contains(output, "probe-1") || !strings.Contains(output, "probe-2") {
		t.Errorf("list output missing probe IDs, got: %s", output)
	}
}

func TestApp_ProbesListJSON(t *testing.T) {
	server := newProbeServer(t)

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"probes", "list", "--base-url", server.URL, "--json"})
	if err != nil {
		t.Fatalf("probes list --json failed: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, `"total": 2`) {
		t.Errorf("list JSON output missing total, got: %s", output)
	}
}

func TestApp_ProbesCreate(t *testing.T) {
	server := newProbeServer(t)

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{
		"probes", "create", "--base-url", server.URL,
		"--brand", "Acme", "--keyword", "crm software",
	})
	if err != nil {
		t.Fatalf("probes create failed: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "Probe created") {
		t.Errorf("create output missing confirmation, got: %s", output)
	}
	if !strings.Contains(output, "probe-9") {
		t.Errorf("create output missing probe ID, got: %s", output)
	}
}

func TestApp_ProbesExecute(t *testing.T) {
	server := newProbeServer(t)

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"probes", "execute", "--base-url", server.URL, "probe-1"})
	if err != nil {
		t.Fatalf("probes execute failed: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "Results for probe-1") {
		t.Errorf("execute output missing results, got: %s", output)
	}
	if !strings.Contains(output, "Visibility: 71.5") {
		t.Errorf("execute output missing score, got: %s", output)
	}
}

func TestApp_ProbesResults(t *testing.T) {
	server := newProbeServer(t)

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{
		"probes", "results", "--base-url", server.URL, "probe-1", "--timeframe", "90d",
	})
	if err != nil {
		t.Fatalf("probes results failed: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "Results for probe-1") {
		t.Errorf("results output missing header, got: %s", output)
	}
	if !strings.Contains(output, "Timeframe: 90d") {
		t.Errorf("results output missing timeframe, got: %s", output)
	}
}

func TestApp_ProbesRequiresConnection(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"probes", "list"})
	if err == nil {
		t.Fatal("probes list without connection flags should fail")
	}
	if !strings.Contains(err.Error(), "--config or --base-url") {
		t.Errorf("error should mention connection flags, got: %v", err)
	}
}

func TestApp_Watch(t *testing.T) {
	server := newProbeServer(t)
	configPath := writeConfigFile(t, fmt.Sprintf(`
name: watch-test
transport:
  base_url: %s
  timeout: 2s
`, server.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 700*time.Millisecond)
	defer cancel()

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(ctx, []string{"watch", "-c", configPath, "--interval", "100ms"})
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "probes/list") {
		t.Errorf("watch output missing list updates, got: %s", output)
	}
	if !strings.Contains(output, "2 probe(s)") {
		t.Errorf("watch output missing probe count, got: %s", output)
	}
}
