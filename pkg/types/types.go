// Package types provides core types and configuration for Stagehand
package types

import (
	"time"
)

// DeployState represents the orchestrator lifecycle state
type DeployState string

const (
	DeployStateNotStarted DeployState = "not-started"
	DeployStateValidating DeployState = "validating"
	DeployStateRunning    DeployState = "running"
	DeployStateReducing   DeployState = "reducing"
	DeployStateSucceeded  DeployState = "succeeded"
	DeployStateFailed     DeployState = "failed"
)

// AssetKind classifies an asset for optimization
type AssetKind string

const (
	AssetKindImage      AssetKind = "image"
	AssetKindVideo      AssetKind = "video"
	AssetKindStylesheet AssetKind = "stylesheet"
	AssetKindScript     AssetKind = "script"
	AssetKindOther      AssetKind = "other"
)

// OptimizeMethod records how an asset was processed
type OptimizeMethod string

const (
	OptimizeMethodNative   OptimizeMethod = "native"
	OptimizeMethodFallback OptimizeMethod = "fallback-copy"
)

// LogLevel represents logging verbosity levels
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// FeatureToggles holds the boolean deployment features
type FeatureToggles struct {
	Optimization bool `json:"optimization" yaml:"optimization"`
	Minification bool `json:"minification" yaml:"minification"`
	Compression  bool `json:"compression" yaml:"compression"`
	Caching      bool `json:"caching" yaml:"caching"`
}

// PathConfig holds the directory roots used by a deployment
type PathConfig struct {
	BuildRoot  string `json:"buildRoot" yaml:"buildRoot"`
	DistRoot   string `json:"distRoot" yaml:"distRoot"`
	AssetsRoot string `json:"assetsRoot" yaml:"assetsRoot"`
	TempRoot   string `json:"tempRoot" yaml:"tempRoot"`
}

// QualityConfig holds optimizer quality/bitrate parameters
type QualityConfig struct {
	ImageQuality int    `json:"imageQuality" yaml:"imageQuality"`
	VideoBitrate string `json:"videoBitrate" yaml:"videoBitrate"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	File  string   `json:"file,omitempty" yaml:"file,omitempty"`
	Level LogLevel `json:"level,omitempty" yaml:"level,omitempty"`
}

// DeploymentConfig is the immutable configuration for a deployment run.
// It is constructed once at startup and shared read-only by every
// component; nothing mutates it after creation.
type DeploymentConfig struct {
	ProjectName string `json:"projectName" yaml:"projectName"`
	Version     string `json:"version" yaml:"version"`

	Paths   PathConfig    `json:"paths" yaml:"paths"`
	Quality QualityConfig `json:"quality" yaml:"quality"`

	MemoryCeilingMB  int `json:"memoryCeilingMb" yaml:"memoryCeilingMb"`
	MaxWorkers       int `json:"maxWorkers" yaml:"maxWorkers"`
	TimeoutSeconds   int `json:"timeoutSeconds" yaml:"timeoutSeconds"`
	CompressionLevel int `json:"compressionLevel" yaml:"compressionLevel"`
	MinDiskSpaceMB   int `json:"minDiskSpaceMb" yaml:"minDiskSpaceMb"`

	Features FeatureToggles `json:"features" yaml:"features"`

	Logging *LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// Timeout returns the deployment-wide timeout as a duration
func (c *DeploymentConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ResourceSample is a point-in-time snapshot of process and system
// memory. Samples are always taken fresh; a stale sample is never
// reused across decision points.
type ResourceSample struct {
	ResidentMB        float64   `json:"residentMb"`
	VirtualMB         float64   `json:"virtualMb"`
	PercentOfSystem   float64   `json:"percentOfSystem"`
	SystemAvailableMB float64   `json:"systemAvailableMb"`
	Unavailable       bool      `json:"unavailable,omitempty"`
	Taken             time.Time `json:"taken"`
}

// PhaseResult is the final outcome of one build phase. It is produced
// exactly once per phase per run and never mutated afterwards.
type PhaseResult struct {
	Phase     string        `json:"phase"`
	Succeeded bool          `json:"succeeded"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// OptimizationOutcome records how a single asset was processed. It is
// used for logging and telemetry only, never for control flow.
type OptimizationOutcome struct {
	AssetPath string         `json:"assetPath"`
	Method    OptimizeMethod `json:"method"`
	Succeeded bool           `json:"succeeded"`
}

// PackageManifestEntry describes one entry destined for the archive.
// Exactly one of SourcePath or Content is set.
type PackageManifestEntry struct {
	ArchivePath string
	SourcePath  string
	Content     []byte
}

// DeploymentSummary aggregates the result of a full deployment run
type DeploymentSummary struct {
	ID          string        `json:"id"`
	State       DeployState   `json:"state"`
	Phases      []PhaseResult `json:"phases"`
	StartedAt   time.Time     `json:"startedAt"`
	Duration    time.Duration `json:"duration"`
	ArchivePath string        `json:"archivePath,omitempty"`
	FailureHint string        `json:"failureHint,omitempty"`
}

// Succeeded reports whether the run reached the succeeded state
func (s *DeploymentSummary) Succeeded() bool {
	return s.State == DeployStateSucceeded
}

// DefaultConfig returns a deployment configuration with safe defaults
func DefaultConfig(projectName, version string) *DeploymentConfig {
	return &DeploymentConfig{
		ProjectName: projectName,
		Version:     version,
		Paths: PathConfig{
			BuildRoot:  "build",
			DistRoot:   "dist",
			AssetsRoot: "assets",
			TempRoot:   "tmp",
		},
		Quality: QualityConfig{
			ImageQuality: 85,
			VideoBitrate: "2M",
		},
		MemoryCeilingMB:  512,
		MaxWorkers:       4,
		TimeoutSeconds:   300,
		CompressionLevel: 6,
		MinDiskSpaceMB:   200,
		Features: FeatureToggles{
			Optimization: true,
			Minification: true,
			Compression:  true,
			Caching:      true,
		},
	}
}
