package infra

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{"RUNNER_PORT", "RUNNER_PROJECT_ROOT", "RUNNER_ARTIFACTS_DIR", "RUNNER_AGENT_TIMEOUT_SECONDS", "RUNNER_CORS_ORIGINS", "RUNNER_PROJECT_SCAN_DAYS"} {
		t.Setenv(k, "")
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8423" {
		t.Fatalf("Port mismatch: got %q", cfg.Port)
	}
	if want := filepath.Join(home, "Downloads", "_projects"); cfg.ProjectRoot != want {
		t.Fatalf("ProjectRoot mismatch: got %q want %q", cfg.ProjectRoot, want)
	}
	if want := filepath.Join(home, ".orchestrator", "jobs"); cfg.ArtifactsDir != want {
		t.Fatalf("ArtifactsDir mismatch: got %q want %q", cfg.ArtifactsDir, want)
	}
	if cfg.AgentTimeout != 180*time.Second {
		t.Fatalf("AgentTimeout mismatch: got %s", cfg.AgentTimeout)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("CORSOrigins mismatch: %#v", cfg.CORSOrigins)
	}
	if cfg.Addr() != "0.0.0.0:8423" {
		t.Fatalf("Addr mismatch: %q", cfg.Addr())
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("RUNNER_PORT", "9000")
	t.Setenv("RUNNER_ARTIFACTS_DIR", "~/runs")
	t.Setenv("RUNNER_AGENT_TIMEOUT_SECONDS", "30")
	t.Setenv("RUNNER_CORS_ORIGINS", "http://a.test, http://b.test ")
	t.Setenv("RUNNER_PROJECT_SCAN_DAYS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "9000" || cfg.AgentTimeout != 30*time.Second {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if want := filepath.Join(home, "runs"); cfg.ArtifactsDir != want {
		t.Fatalf("ArtifactsDir mismatch: got %q want %q", cfg.ArtifactsDir, want)
	}
	expected := []string{"http://a.test", "http://b.test"}
	for i, origin := range expected {
		if cfg.CORSOrigins[i] != origin {
			t.Fatalf("CORSOrigins[%d] = %q, want %q", i, cfg.CORSOrigins[i], origin)
		}
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	t.Setenv("RUNNER_PORT", "http")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for non-numeric port")
	}
	t.Setenv("RUNNER_PORT", "")
	t.Setenv("RUNNER_PROJECT_SCAN_DAYS", "400")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for scan window")
	}
}
