// Package optimizer performs per-asset optimization with graceful
// degradation when the native tooling is not installed
package optimizer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/stagehand/stagehand/pkg/logger"
	"github.com/stagehand/stagehand/pkg/types"
	"github.com/stagehand/stagehand/pkg/utils"
)

// CommandRunner abstracts external tool lookup and invocation
type CommandRunner interface {
	LookPath(tool string) (string, error)
	Run(ctx context.Context, name string, args ...string) error
}

type execRunner struct{}

// NewExecRunner returns a CommandRunner backed by os/exec
func NewExecRunner() CommandRunner {
	return execRunner{}
}

func (execRunner) LookPath(tool string) (string, error) {
	return exec.LookPath(tool)
}

func (execRunner) Run(ctx context.Context, name string, args ...string) error {
	var output bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w\n%s", name, err, output.String())
	}
	return nil
}

// nativeTools maps each asset kind to its optimization tool
var nativeTools = map[types.AssetKind]string{
	types.AssetKindImage:      "convert",
	types.AssetKindVideo:      "ffmpeg",
	types.AssetKindStylesheet: "cleancss",
	types.AssetKindScript:     "terser",
}

// Capabilities records the method resolved for each asset kind.
// Resolution happens once at startup, not per call.
type Capabilities map[types.AssetKind]types.OptimizeMethod

// ResolveCapabilities probes native tool availability per asset kind
func ResolveCapabilities(runner CommandRunner, log logger.Logger) Capabilities {
	caps := make(Capabilities, len(nativeTools))

	for kind, tool := range nativeTools {
		if _, err := runner.LookPath(tool); err != nil {
			log.Warn(fmt.Sprintf("Optimizer tool %q not found, %s assets will be copied unmodified", tool, kind))
			caps[kind] = types.OptimizeMethodFallback
			continue
		}
		log.Debug(fmt.Sprintf("Optimizer tool %q available for %s assets", tool, kind))
		caps[kind] = types.OptimizeMethodNative
	}

	return caps
}

// KindFor classifies an asset path by extension
func KindFor(path string) types.AssetKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp":
		return types.AssetKindImage
	case ".mp4", ".webm", ".mov", ".avi", ".mkv":
		return types.AssetKindVideo
	case ".css":
		return types.AssetKindStylesheet
	case ".js", ".mjs":
		return types.AssetKindScript
	default:
		return types.AssetKindOther
	}
}

// Optimizer optimizes single assets according to the resolved
// capabilities and the configured feature toggles
type Optimizer struct {
	cfg    *types.DeploymentConfig
	caps   Capabilities
	runner CommandRunner
	logger logger.Logger
}

// New creates an optimizer. The configuration is read-only.
func New(cfg *types.DeploymentConfig, caps Capabilities, runner CommandRunner, log logger.Logger) *Optimizer {
	return &Optimizer{
		cfg:    cfg,
		caps:   caps,
		runner: runner,
		logger: log,
	}
}

// Optimize processes one asset from input to output. Every call resolves
// to exactly one outcome: either the native tool produced the output, or
// the input was copied byte-for-byte. A missing tool is never an error;
// only a genuine processing or copy failure yields succeeded=false.
func (o *Optimizer) Optimize(ctx context.Context, input, output string, kind types.AssetKind) types.OptimizationOutcome {
	outcome := types.OptimizationOutcome{AssetPath: input, Method: o.method(kind)}

	if err := utils.EnsureDirectory(filepath.Dir(output)); err != nil {
		o.logger.Error("Failed to create output directory", logger.WithField("error", err))
		return outcome
	}

	if outcome.Method == types.OptimizeMethodNative {
		if err := o.runNative(ctx, input, output, kind); err != nil {
			// Tool ran but could not produce output. The asset is left
			// unprocessed; this is the one case that fails the phase.
			o.logger.Error("Native optimization failed",
				logger.WithField("asset", input),
				logger.WithField("error", err))
			os.Remove(output)
			return outcome
		}
		if !utils.FileExists(output) {
			o.logger.Error("Optimizer reported success but wrote no output",
				logger.WithField("asset", input))
			return outcome
		}
		outcome.Succeeded = true
		return outcome
	}

	if err := utils.CopyFile(input, output); err != nil {
		o.logger.Error("Fallback copy failed",
			logger.WithField("asset", input),
			logger.WithField("error", err))
		return outcome
	}

	outcome.Succeeded = true
	return outcome
}

// method resolves the processing method for a kind, honoring the
// optimization and minification toggles
func (o *Optimizer) method(kind types.AssetKind) types.OptimizeMethod {
	switch kind {
	case types.AssetKindImage, types.AssetKindVideo:
		if !o.cfg.Features.Optimization {
			return types.OptimizeMethodFallback
		}
	case types.AssetKindStylesheet, types.AssetKindScript:
		if !o.cfg.Features.Minification {
			return types.OptimizeMethodFallback
		}
	default:
		return types.OptimizeMethodFallback
	}

	if method, ok := o.caps[kind]; ok {
		return method
	}
	return types.OptimizeMethodFallback
}

func (o *Optimizer) runNative(ctx context.Context, input, output string, kind types.AssetKind) error {
	switch kind {
	case types.AssetKindImage:
		return o.runner.Run(ctx, nativeTools[kind],
			input, "-quality", strconv.Itoa(o.cfg.Quality.ImageQuality), output)
	case types.AssetKindVideo:
		return o.runner.Run(ctx, nativeTools[kind],
			"-y", "-i", input, "-b:v", o.cfg.Quality.VideoBitrate, output)
	case types.AssetKindStylesheet:
		return o.runner.Run(ctx, nativeTools[kind], "-o", output, input)
	case types.AssetKindScript:
		return o.runner.Run(ctx, nativeTools[kind], input, "--compress", "--mangle", "-o", output)
	default:
		return fmt.Errorf("no native tool for asset kind %s", kind)
	}
}
