package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"toolroute/internal/config"
	"toolroute/internal/domain"
	"toolroute/internal/metrics"

	"github.com/spf13/cobra"
)

const testCatalog = `capabilities:
  - serverId: google-maps
    displayName: Google Maps
    category: location
    tools:
      - name: maps_search_places
  - serverId: playwright
    displayName: Playwright
    category: live
    tools:
      - name: browser_navigate
`

func setupCLI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.Catalog.DBPath = filepath.Join(dir, "registry.db")
	cfg.Browser.ProfileDir = filepath.Join(dir, "browser")
	path := filepath.Join(dir, "config.json")
	if err := config.Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	configPath = path
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	t.Cleanup(func() { configPath = "" })
	return dir
}

func run(t *testing.T, cmd *cobra.Command, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("%s %v: %v", cmd.Name(), args, err)
	}
	return out.String()
}

func TestCLI_ImportThenPlan(t *testing.T) {
	dir := setupCLI(t)
	file := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(file, []byte(testCatalog), 0o644); err != nil {
		t.Fatal(err)
	}

	out := run(t, catalogCmd(), "import", file)
	if !strings.Contains(out, "imported 2 of 2") {
		t.Errorf("unexpected import output: %q", out)
	}

	out = run(t, planCmd(), "Find restaurants near Times Square")
	if !strings.Contains(out, `"requiredCategory": "location"`) {
		t.Errorf("plan missing location step: %s", out)
	}
	if !strings.Contains(out, `"serverId": "google-maps"`) {
		t.Errorf("plan missing assigned capability: %s", out)
	}

	out = run(t, catalogCmd(), "list")
	if !strings.Contains(out, "playwright") || !strings.Contains(out, "live_extraction") {
		t.Errorf("unexpected list output: %s", out)
	}
}

func TestCLI_AnswerFromDumpFile(t *testing.T) {
	dir := setupCLI(t)
	dump := filepath.Join(dir, "dump.txt")
	content := "- heading \"Search results\"\n- text: No events found\n- text: Jun 02 2026\n"
	if err := os.WriteFile(dump, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	out := run(t, answerCmd(), "--query", "When is Iration playing?", "--dump", dump)
	if !strings.Contains(out, "couldn't find any upcoming events for Iration") {
		t.Errorf("expected negative reply, got %q", out)
	}
}

func TestReadInput_Stdin(t *testing.T) {
	got, err := readInput(strings.NewReader("- text: hi"), "-")
	if err != nil {
		t.Fatal(err)
	}
	if got != "- text: hi" {
		t.Errorf("got %q", got)
	}
	if _, err := readInput(nil, filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}

func enableMetrics(t *testing.T) {
	t.Helper()
	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Metrics.Enabled = true
	if err := config.Save(configPath, cfg); err != nil {
		t.Fatal(err)
	}
}

func TestCLI_MetricsReflectEarlierPlans(t *testing.T) {
	setupCLI(t)

	run(t, planCmd(), "Find restaurants near Times Square")
	run(t, planCmd(), "Find restaurants near Times Square")

	out := run(t, metricsCmd())
	for _, want := range []string{
		`toolroute_plans_total{mode="single"} 2` + "\n",
		"toolroute_plan_steps_total 2\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in metrics output:\n%s", want, out)
		}
	}
}

func TestServe_PlanMovesServedCounters(t *testing.T) {
	setupCLI(t)
	enableMetrics(t)

	a, err := openApp(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	srv := httptest.NewServer(newRouter(a))
	defer srv.Close()

	before := metrics.PlansSingle.Value()
	resp, err := http.Post(srv.URL+"/v1/plan", "application/json",
		strings.NewReader(`{"query":"Find restaurants near Times Square"}`))
	if err != nil {
		t.Fatal(err)
	}
	var plan domain.WorkflowPlan
	err = json.NewDecoder(resp.Body).Decode(&plan)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || len(plan.Steps) != 1 {
		t.Fatalf("unexpected plan response %d: %+v", resp.StatusCode, plan)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	want := fmt.Sprintf(`toolroute_plans_total{mode="single"} %d`, before+1)
	if !strings.Contains(string(body), want) {
		t.Errorf("expected %q in served metrics:\n%s", want, body)
	}
}

func TestServe_AnswerAndBadRequests(t *testing.T) {
	setupCLI(t)

	a, err := openApp(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	h := newRouter(a)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/answer",
		strings.NewReader(`{"query":"When is Iration playing?","dump":"- text: No events found"}`)))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "couldn't find any upcoming events") {
		t.Errorf("unexpected answer response %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/plan", strings.NewReader("{")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/route", strings.NewReader(`{"text":"  "}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty step, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected metrics to be unmounted when disabled, got %d", rec.Code)
	}
}
