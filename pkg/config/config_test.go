package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}
	if cfg.Eigenvector.MaxIterations != 100 {
		t.Errorf("Expected 100 iterations, got %d", cfg.Eigenvector.MaxIterations)
	}
	if cfg.Community.Seed != 1 {
		t.Errorf("Expected seed 1, got %d", cfg.Community.Seed)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
input_dir: /data/in
output_dir: /data/out
workers: 4
boroughs:
  - Camden
  - Islington
community:
  seed: 7
  resolution: 1.2
  max_passes: 10
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.InputDir != "/data/in" || cfg.Workers != 4 {
		t.Errorf("Unexpected config %+v", cfg)
	}
	if len(cfg.Boroughs) != 2 {
		t.Errorf("Expected 2 boroughs, got %v", cfg.Boroughs)
	}
	if cfg.Community.Seed != 7 || cfg.Community.Resolution != 1.2 {
		t.Errorf("Unexpected community config %+v", cfg.Community)
	}
	// Untouched sections keep their defaults.
	if cfg.Eigenvector.Tolerance != 1e-6 {
		t.Errorf("Expected default tolerance, got %g", cfg.Eigenvector.Tolerance)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FLOWPANEL_INPUT_DIR", "/env/in")
	t.Setenv("FLOWPANEL_WORKERS", "8")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.InputDir != "/env/in" {
		t.Errorf("Expected env override, got %s", cfg.InputDir)
	}
	if cfg.Workers != 8 {
		t.Errorf("Expected 8 workers, got %d", cfg.Workers)
	}
}

func TestLoad_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
input_dir: ""
output_dir: /data/out
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected validation error for empty input_dir")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestLoad_BadToleranceRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
input_dir: /data/in
output_dir: /data/out
eigenvector:
  max_iterations: 100
  tolerance: 0
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected validation error for zero tolerance")
	}
}
