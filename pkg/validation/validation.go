// Package validation provides pre-run environment checks and the
// post-build integrity battery
package validation

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/stagehand/stagehand/pkg/logger"
	"github.com/stagehand/stagehand/pkg/resources"
	"github.com/stagehand/stagehand/pkg/types"
	"github.com/stagehand/stagehand/pkg/utils"
)

// Level represents check severity
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// minGoMinor is the runtime version floor (go1.21)
const minGoMinor = 21

// CheckError represents a failed or degraded check
type CheckError struct {
	Check   string
	Message string
	Level   Level
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Level, e.Check, e.Message)
}

// Result contains validation results
type Result struct {
	Valid  bool
	Errors []CheckError
}

// AddError adds an error to the validation result
func (r *Result) AddError(check, message string, level Level) {
	r.Errors = append(r.Errors, CheckError{
		Check:   check,
		Message: message,
		Level:   level,
	})
	if level == LevelError {
		r.Valid = false
	}
}

// EnvironmentValidator runs the fatal pre-phase checks. Any failure
// aborts the deployment before a single phase starts.
type EnvironmentValidator struct {
	cfg     *types.DeploymentConfig
	monitor *resources.Monitor
	logger  logger.Logger
}

// NewEnvironmentValidator creates an environment validator
func NewEnvironmentValidator(cfg *types.DeploymentConfig, monitor *resources.Monitor, log logger.Logger) *EnvironmentValidator {
	return &EnvironmentValidator{
		cfg:     cfg,
		monitor: monitor,
		logger:  log,
	}
}

// Validate checks runtime version, free disk space and the memory
// ceiling. A breach is reported once here; it is not re-checked
// mid-phase.
func (v *EnvironmentValidator) Validate() *Result {
	result := &Result{Valid: true}

	v.validateRuntime(result)
	v.validateDiskSpace(result)
	v.validateMemoryCeiling(result)

	return result
}

func (v *EnvironmentValidator) validateRuntime(result *Result) {
	minor, ok := goMinorVersion(runtime.Version())
	if !ok {
		// Development builds report versions like "devel +abc123"
		result.AddError("runtime", fmt.Sprintf("unrecognized runtime version %q", runtime.Version()), LevelWarning)
		return
	}
	if minor < minGoMinor {
		result.AddError("runtime",
			fmt.Sprintf("runtime %s is older than the go1.%d floor", runtime.Version(), minGoMinor),
			LevelError)
	}
}

func (v *EnvironmentValidator) validateDiskSpace(result *Result) {
	freeMB, err := v.monitor.DiskFreeMB(".")
	if err != nil {
		result.AddError("disk", fmt.Sprintf("failed to read disk usage: %v", err), LevelError)
		return
	}
	if freeMB < float64(v.cfg.MinDiskSpaceMB) {
		result.AddError("disk",
			fmt.Sprintf("%.0f MB free, need at least %d MB", freeMB, v.cfg.MinDiskSpaceMB),
			LevelError)
	}
}

func (v *EnvironmentValidator) validateMemoryCeiling(result *Result) {
	sample := v.monitor.Sample()
	if sample.Unavailable {
		result.AddError("memory", "resource sampling unavailable on this host", LevelWarning)
		return
	}
	if !v.monitor.WithinLimit(sample, v.cfg.MemoryCeilingMB) {
		result.AddError("memory",
			fmt.Sprintf("resident memory %.1f MB already exceeds the %d MB ceiling",
				sample.ResidentMB, v.cfg.MemoryCeilingMB),
			LevelError)
	}
}

// goMinorVersion parses "go1.23.4" into its minor number
func goMinorVersion(version string) (int, bool) {
	if !strings.HasPrefix(version, "go1.") {
		return 0, false
	}
	rest := strings.TrimPrefix(version, "go1.")
	if idx := strings.IndexByte(rest, '.'); idx >= 0 {
		rest = rest[:idx]
	}
	minor, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return minor, true
}

// deployCheck is one entry in the post-build battery
type deployCheck struct {
	name  string
	level Level
	fn    func() (bool, error)
}

// DeploymentValidator runs the fixed, ordered post-build battery
type DeploymentValidator struct {
	cfg     *types.DeploymentConfig
	monitor *resources.Monitor
	logger  logger.Logger
}

// NewDeploymentValidator creates a post-build validator
func NewDeploymentValidator(cfg *types.DeploymentConfig, monitor *resources.Monitor, log logger.Logger) *DeploymentValidator {
	return &DeploymentValidator{
		cfg:     cfg,
		monitor: monitor,
		logger:  log,
	}
}

// Validate runs every check in order and reduces them to pass/fail.
// A check returning an unexpected error fails the run (fail-closed),
// as does a clean false on an error-level check; warning-level checks
// are logged and never fail the run.
func (v *DeploymentValidator) Validate() bool {
	passed := true

	for _, check := range v.checks() {
		ok, err := check.fn()
		if err != nil {
			v.logger.Error(fmt.Sprintf("Validation check %q errored", check.name),
				logger.WithField("error", err))
			passed = false
			continue
		}
		if ok {
			v.logger.Debug(fmt.Sprintf("Validation check %q passed", check.name))
			continue
		}
		if check.level == LevelError {
			v.logger.Error(fmt.Sprintf("Validation check %q failed", check.name))
			passed = false
		} else {
			v.logger.Warn(fmt.Sprintf("Validation check %q reported a degraded result", check.name))
		}
	}

	return passed
}

func (v *DeploymentValidator) checks() []deployCheck {
	dist := v.cfg.Paths.DistRoot

	return []deployCheck{
		{
			name:  "dist-root-exists",
			level: LevelError,
			fn: func() (bool, error) {
				return utils.DirectoryExists(dist), nil
			},
		},
		{
			name:  "target-trees-exist",
			level: LevelError,
			fn: func() (bool, error) {
				for _, sub := range []string{"web", "mobile", "wearable"} {
					if !utils.DirectoryExists(filepath.Join(dist, sub)) {
						return false, nil
					}
				}
				return true, nil
			},
		},
		{
			name:  "optimized-assets-present",
			level: LevelWarning,
			fn: func() (bool, error) {
				assetDir := filepath.Join(dist, "assets")
				if !utils.DirectoryExists(assetDir) {
					return false, nil
				}
				empty, err := utils.IsDirEmpty(assetDir)
				if err != nil {
					return false, err
				}
				return !empty, nil
			},
		},
		{
			name:  "memory-ceiling-respected",
			level: LevelError,
			fn: func() (bool, error) {
				sample := v.monitor.Sample()
				if sample.Unavailable {
					return true, nil
				}
				return v.monitor.WithinLimit(sample, v.cfg.MemoryCeilingMB), nil
			},
		},
		{
			name:  "wearable-files-present",
			level: LevelWarning,
			fn: func() (bool, error) {
				return utils.FileExists(filepath.Join(dist, "wearable", "watchface.xml")), nil
			},
		},
	}
}
