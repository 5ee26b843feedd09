package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPipelineConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "convey.yaml")
	content := `
pipeline: checkout-service
repository: registry.example.com/acme/checkout
deploy:
  cluster: prod
  service: checkout
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadPipelineConfig(path)
	if err != nil {
		t.Fatalf("LoadPipelineConfig() error: %v", err)
	}
	if cfg.Pipeline != "checkout-service" {
		t.Errorf("Pipeline = %q, want checkout-service", cfg.Pipeline)
	}
	if len(cfg.Stages) != 3 {
		t.Errorf("expected default stages, got %d", len(cfg.Stages))
	}
}

func TestLoadPipelineConfig_MissingFile(t *testing.T) {
	if _, err := LoadPipelineConfig(filepath.Join(t.TempDir(), "convey.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
