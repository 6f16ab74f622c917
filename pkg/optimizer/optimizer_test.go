package optimizer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stagehand/stagehand/pkg/logger"
	"github.com/stagehand/stagehand/pkg/types"
	"github.com/stagehand/stagehand/pkg/utils"
)

// stubRunner simulates tool presence and invocation without any
// external processes
type stubRunner struct {
	available map[string]bool
	runErr    error
	output    string
	calls     []string
}

func (s *stubRunner) LookPath(tool string) (string, error) {
	if s.available[tool] {
		return "/usr/bin/" + tool, nil
	}
	return "", errors.New("executable file not found in $PATH")
}

func (s *stubRunner) Run(ctx context.Context, name string, args ...string) error {
	s.calls = append(s.calls, name)
	if s.runErr != nil {
		return s.runErr
	}
	if s.output != "" {
		return os.WriteFile(s.output, []byte("optimized"), 0644)
	}
	return nil
}

func testLogger(t *testing.T) logger.Logger {
	t.Helper()
	var buf bytes.Buffer
	return logger.CreateLoggerWithOutput("", "debug", &buf)
}

func writeAsset(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolveCapabilities(t *testing.T) {
	runner := &stubRunner{available: map[string]bool{"convert": true, "terser": true}}
	caps := ResolveCapabilities(runner, testLogger(t))

	tests := []struct {
		kind types.AssetKind
		want types.OptimizeMethod
	}{
		{types.AssetKindImage, types.OptimizeMethodNative},
		{types.AssetKindScript, types.OptimizeMethodNative},
		{types.AssetKindVideo, types.OptimizeMethodFallback},
		{types.AssetKindStylesheet, types.OptimizeMethodFallback},
	}

	for _, tt := range tests {
		if got := caps[tt.kind]; got != tt.want {
			t.Errorf("capability for %s = %s, want %s", tt.kind, got, tt.want)
		}
	}
}

func TestKindFor(t *testing.T) {
	tests := []struct {
		path string
		want types.AssetKind
	}{
		{"logo.png", types.AssetKindImage},
		{"photo.JPEG", types.AssetKindImage},
		{"intro.mp4", types.AssetKindVideo},
		{"clip.webm", types.AssetKindVideo},
		{"main.css", types.AssetKindStylesheet},
		{"app.js", types.AssetKindScript},
		{"module.mjs", types.AssetKindScript},
		{"readme.txt", types.AssetKindOther},
		{"noext", types.AssetKindOther},
	}

	for _, tt := range tests {
		if got := KindFor(tt.path); got != tt.want {
			t.Errorf("KindFor(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestOptimizeFallbackCopy(t *testing.T) {
	cfg := types.DefaultConfig("demo", "1.0.0")
	input := writeAsset(t, "logo.png", "raw-image-bytes")
	output := filepath.Join(t.TempDir(), "out", "logo.png")

	// No tool available for any kind
	runner := &stubRunner{available: map[string]bool{}}
	caps := ResolveCapabilities(runner, testLogger(t))
	opt := New(cfg, caps, runner, testLogger(t))

	outcome := opt.Optimize(context.Background(), input, output, types.AssetKindImage)

	if !outcome.Succeeded {
		t.Fatal("fallback copy should succeed")
	}
	if outcome.Method != types.OptimizeMethodFallback {
		t.Errorf("method = %s, want fallback", outcome.Method)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "raw-image-bytes" {
		t.Errorf("fallback output differs from input: %q", data)
	}
	if len(runner.calls) != 0 {
		t.Errorf("fallback should not invoke any tool, got %v", runner.calls)
	}
}

func TestOptimizeNativeSuccess(t *testing.T) {
	cfg := types.DefaultConfig("demo", "1.0.0")
	input := writeAsset(t, "logo.png", "raw-image-bytes")
	output := filepath.Join(t.TempDir(), "logo.png")

	runner := &stubRunner{available: map[string]bool{"convert": true}, output: output}
	caps := ResolveCapabilities(runner, testLogger(t))
	opt := New(cfg, caps, runner, testLogger(t))

	outcome := opt.Optimize(context.Background(), input, output, types.AssetKindImage)

	if !outcome.Succeeded {
		t.Fatal("native optimization should succeed")
	}
	if outcome.Method != types.OptimizeMethodNative {
		t.Errorf("method = %s, want native", outcome.Method)
	}
	if len(runner.calls) != 1 || runner.calls[0] != "convert" {
		t.Errorf("calls = %v, want [convert]", runner.calls)
	}
}

func TestOptimizeNativeFailure(t *testing.T) {
	cfg := types.DefaultConfig("demo", "1.0.0")
	input := writeAsset(t, "main.css", "body{}")
	output := filepath.Join(t.TempDir(), "main.css")

	runner := &stubRunner{
		available: map[string]bool{"cleancss": true},
		runErr:    errors.New("parse error"),
	}
	caps := ResolveCapabilities(runner, testLogger(t))
	opt := New(cfg, caps, runner, testLogger(t))

	outcome := opt.Optimize(context.Background(), input, output, types.AssetKindStylesheet)

	// Tool present but failing is the one case that is a real failure,
	// never silently degraded to a copy
	if outcome.Succeeded {
		t.Fatal("processing failure must not report success")
	}
	if outcome.Method != types.OptimizeMethodNative {
		t.Errorf("method = %s, want native", outcome.Method)
	}
	if utils.FileExists(output) {
		t.Error("failed optimization must not leave output behind")
	}
}

func TestOptimizeTogglesForceFallback(t *testing.T) {
	input := writeAsset(t, "app.js", "var x=1;")

	runner := &stubRunner{available: map[string]bool{"terser": true, "convert": true}}
	caps := ResolveCapabilities(runner, testLogger(t))

	cfg := types.DefaultConfig("demo", "1.0.0")
	cfg.Features.Minification = false
	opt := New(cfg, caps, runner, testLogger(t))

	output := filepath.Join(t.TempDir(), "app.js")
	outcome := opt.Optimize(context.Background(), input, output, types.AssetKindScript)

	if outcome.Method != types.OptimizeMethodFallback {
		t.Errorf("disabled minification should force fallback, got %s", outcome.Method)
	}
	if !outcome.Succeeded {
		t.Error("fallback copy should succeed")
	}
	if len(runner.calls) != 0 {
		t.Errorf("no tool should run with minification disabled, got %v", runner.calls)
	}
}

func TestOptimizeOtherKindCopies(t *testing.T) {
	cfg := types.DefaultConfig("demo", "1.0.0")
	input := writeAsset(t, "notes.txt", "hello")
	output := filepath.Join(t.TempDir(), "notes.txt")

	runner := &stubRunner{available: map[string]bool{}}
	opt := New(cfg, ResolveCapabilities(runner, testLogger(t)), runner, testLogger(t))

	outcome := opt.Optimize(context.Background(), input, output, types.AssetKindOther)

	if !outcome.Succeeded || outcome.Method != types.OptimizeMethodFallback {
		t.Errorf("outcome = %+v, want successful fallback", outcome)
	}
}
