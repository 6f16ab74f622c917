package validation

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stagehand/stagehand/pkg/logger"
	"github.com/stagehand/stagehand/pkg/resources"
	"github.com/stagehand/stagehand/pkg/types"
)

func testDeps(t *testing.T) (*resources.Monitor, logger.Logger) {
	t.Helper()
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("", "debug", &buf)
	return resources.NewMonitor(log), log
}

func generousConfig(t *testing.T) *types.DeploymentConfig {
	t.Helper()
	cfg := types.DefaultConfig("demo", "1.0.0")
	cfg.Paths.DistRoot = filepath.Join(t.TempDir(), "dist")
	cfg.MemoryCeilingMB = 1 << 20
	cfg.MinDiskSpaceMB = 1
	return cfg
}

func TestGoMinorVersion(t *testing.T) {
	tests := []struct {
		version string
		minor   int
		ok      bool
	}{
		{"go1.21", 21, true},
		{"go1.23.4", 23, true},
		{"go1.9", 9, true},
		{"devel +abc123", 0, false},
		{"go2.0", 0, false},
		{"go1.x", 0, false},
	}

	for _, tt := range tests {
		minor, ok := goMinorVersion(tt.version)
		if minor != tt.minor || ok != tt.ok {
			t.Errorf("goMinorVersion(%q) = (%d, %v), want (%d, %v)",
				tt.version, minor, ok, tt.minor, tt.ok)
		}
	}
}

func TestAddError(t *testing.T) {
	result := &Result{Valid: true}

	result.AddError("check-a", "degraded", LevelWarning)
	if !result.Valid {
		t.Error("warnings must not invalidate the result")
	}

	result.AddError("check-b", "broken", LevelError)
	if result.Valid {
		t.Error("errors must invalidate the result")
	}
	if len(result.Errors) != 2 {
		t.Errorf("error count = %d, want 2", len(result.Errors))
	}
}

func TestEnvironmentValidatorPasses(t *testing.T) {
	monitor, log := testDeps(t)
	cfg := generousConfig(t)

	result := NewEnvironmentValidator(cfg, monitor, log).Validate()
	if !result.Valid {
		t.Errorf("validation failed: %v", result.Errors)
	}
}

func TestEnvironmentValidatorMemoryCeiling(t *testing.T) {
	monitor, log := testDeps(t)
	if monitor.Sample().Unavailable {
		t.Skip("resource sampling unavailable on this host")
	}

	cfg := generousConfig(t)
	// Any real process is resident above 0 MB, but the ceiling floor is
	// 1, so sample against a ceiling the process certainly exceeds
	cfg.MemoryCeilingMB = 1

	result := NewEnvironmentValidator(cfg, monitor, log).Validate()
	if result.Valid {
		t.Error("a 1 MB ceiling should fail validation")
	}
}

func seedDistTree(t *testing.T, dist string, withWatchface, withAssets bool) {
	t.Helper()
	for _, sub := range []string{"web", "mobile", "wearable"} {
		if err := os.MkdirAll(filepath.Join(dist, sub), 0755); err != nil {
			t.Fatal(err)
		}
	}
	if withWatchface {
		if err := os.WriteFile(filepath.Join(dist, "wearable", "watchface.xml"), []byte("<watchface/>"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if withAssets {
		if err := os.MkdirAll(filepath.Join(dist, "assets"), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dist, "assets", "logo.png"), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDeploymentValidatorPasses(t *testing.T) {
	monitor, log := testDeps(t)
	cfg := generousConfig(t)
	seedDistTree(t, cfg.Paths.DistRoot, true, true)

	if !NewDeploymentValidator(cfg, monitor, log).Validate() {
		t.Error("complete dist tree should pass validation")
	}
}

func TestDeploymentValidatorMissingDist(t *testing.T) {
	monitor, log := testDeps(t)
	cfg := generousConfig(t)
	// DistRoot never created

	if NewDeploymentValidator(cfg, monitor, log).Validate() {
		t.Error("missing dist root should fail validation")
	}
}

func TestDeploymentValidatorMissingTargetTree(t *testing.T) {
	monitor, log := testDeps(t)
	cfg := generousConfig(t)
	seedDistTree(t, cfg.Paths.DistRoot, true, true)
	if err := os.RemoveAll(filepath.Join(cfg.Paths.DistRoot, "mobile")); err != nil {
		t.Fatal(err)
	}

	if NewDeploymentValidator(cfg, monitor, log).Validate() {
		t.Error("missing target tree should fail validation")
	}
}

func TestDeploymentValidatorWarningsDoNotFail(t *testing.T) {
	monitor, log := testDeps(t)
	cfg := generousConfig(t)
	// No watchface and no optimized assets: warning-level findings only
	seedDistTree(t, cfg.Paths.DistRoot, false, false)

	if !NewDeploymentValidator(cfg, monitor, log).Validate() {
		t.Error("warning-level findings must not fail validation")
	}
}
