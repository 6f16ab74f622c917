package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stagehand/stagehand/pkg/types"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config fixture: %v", err)
	}
	return path
}

func TestLoadConfigJSON(t *testing.T) {
	path := writeConfig(t, "stagehand.config.json", `{
		"projectName": "demo",
		"version": "2.0.0",
		"maxWorkers": 8,
		"features": {"compression": true}
	}`)

	cfg, err := NewManager().LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.ProjectName != "demo" || cfg.Version != "2.0.0" {
		t.Errorf("identity = %q/%q", cfg.ProjectName, cfg.Version)
	}
	if cfg.MaxWorkers != 8 {
		t.Errorf("MaxWorkers = %d, want 8", cfg.MaxWorkers)
	}
	// Omitted fields are filled from defaults
	if cfg.TimeoutSeconds != 300 {
		t.Errorf("TimeoutSeconds = %d, want default 300", cfg.TimeoutSeconds)
	}
	if cfg.Paths.DistRoot != "dist" {
		t.Errorf("DistRoot = %q, want default dist", cfg.Paths.DistRoot)
	}
	if cfg.Quality.ImageQuality != 85 {
		t.Errorf("ImageQuality = %d, want default 85", cfg.Quality.ImageQuality)
	}
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeConfig(t, "stagehand.config.yaml", `
projectName: demo
version: 1.0.0
paths:
  buildRoot: out/build
timeoutSeconds: 60
`)

	cfg, err := NewManager().LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Paths.BuildRoot != "out/build" {
		t.Errorf("BuildRoot = %q, want out/build", cfg.Paths.BuildRoot)
	}
	if cfg.TimeoutSeconds != 60 {
		t.Errorf("TimeoutSeconds = %d, want 60", cfg.TimeoutSeconds)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := NewManager().LoadConfig(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadConfigUnparsable(t *testing.T) {
	path := writeConfig(t, "bad.json", `not: [valid`)
	if _, err := NewManager().LoadConfig(path); err == nil {
		t.Error("expected error for unparsable config")
	}
}

func TestValidateConfig(t *testing.T) {
	manager := NewManager()

	tests := []struct {
		name    string
		mutate  func(cfg *types.DeploymentConfig)
		wantErr bool
	}{
		{"valid defaults", func(cfg *types.DeploymentConfig) {}, false},
		{"missing project name", func(cfg *types.DeploymentConfig) { cfg.ProjectName = "" }, true},
		{"missing version", func(cfg *types.DeploymentConfig) { cfg.Version = "" }, true},
		{"missing dist root", func(cfg *types.DeploymentConfig) { cfg.Paths.DistRoot = "" }, true},
		{"zero workers", func(cfg *types.DeploymentConfig) { cfg.MaxWorkers = 0 }, true},
		{"negative timeout", func(cfg *types.DeploymentConfig) { cfg.TimeoutSeconds = -1 }, true},
		{"zero memory ceiling", func(cfg *types.DeploymentConfig) { cfg.MemoryCeilingMB = 0 }, true},
		{"compression level too high", func(cfg *types.DeploymentConfig) { cfg.CompressionLevel = 10 }, true},
		{"image quality out of range", func(cfg *types.DeploymentConfig) { cfg.Quality.ImageQuality = 101 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := types.DefaultConfig("demo", "1.0.0")
			tt.mutate(cfg)
			err := manager.ValidateConfig(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
