package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/conveyci/convey/types"
	"github.com/conveyci/convey/validate"
)

func TestRunInit_WritesStarterConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "convey.yaml")

	oldCfg := cfgFile
	cfgFile = cfgPath
	defer func() { cfgFile = oldCfg }()

	if err := runInit(nil, nil); err != nil {
		t.Fatalf("runInit() error: %v", err)
	}

	data, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatalf("reading generated config: %v", err)
	}

	// The starter config must pass its own validation.
	errs, err := validate.ValidatePipelineYAML(data)
	if err != nil {
		t.Fatalf("ValidatePipelineYAML: %v", err)
	}
	if len(errs) > 0 {
		t.Fatalf("starter config violates schema: %v", errs)
	}
	cfg, err := types.ParsePipelineConfig(data)
	if err != nil {
		t.Fatalf("parsing starter config: %v", err)
	}
	if r := validate.ValidatePipelineConfig(cfg); !r.IsValid() {
		t.Fatalf("starter config has semantic errors: %v", r.Errors)
	}
}

func TestRunInit_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConveyYAML(t, dir, "pipeline: existing\nrepository: r\n")

	oldCfg := cfgFile
	cfgFile = cfgPath
	defer func() { cfgFile = oldCfg }()

	oldForce := initForce
	initForce = false
	defer func() { initForce = oldForce }()

	if err := runInit(nil, nil); err == nil {
		t.Fatal("expected error when config already exists")
	}

	initForce = true
	if err := runInit(nil, nil); err != nil {
		t.Fatalf("expected --force to overwrite, got: %v", err)
	}
}
