// Package config handles deployment configuration loading and management
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/stagehand/stagehand/pkg/types"
	"gopkg.in/yaml.v3"
)

// Manager handles configuration operations
type Manager struct{}

// NewManager creates a new configuration manager
func NewManager() *Manager {
	return &Manager{}
}

// LoadConfig loads a deployment configuration from a JSON or YAML file
func (m *Manager) LoadConfig(path string) (*types.DeploymentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg types.DeploymentConfig

	// Try JSON first
	if err := json.Unmarshal(data, &cfg); err == nil {
		return m.finalize(&cfg)
	}

	if err := yaml.Unmarshal(data, &cfg); err == nil {
		return m.finalize(&cfg)
	}

	return nil, fmt.Errorf("failed to parse config as JSON or YAML")
}

// ValidateConfig validates a deployment configuration
func (m *Manager) ValidateConfig(cfg *types.DeploymentConfig) error {
	if cfg.ProjectName == "" {
		return fmt.Errorf("projectName is required")
	}
	if cfg.Version == "" {
		return fmt.Errorf("version is required")
	}
	if cfg.Paths.BuildRoot == "" || cfg.Paths.DistRoot == "" || cfg.Paths.AssetsRoot == "" {
		return fmt.Errorf("buildRoot, distRoot and assetsRoot paths are required")
	}
	if cfg.MaxWorkers <= 0 {
		return fmt.Errorf("maxWorkers must be positive, got %d", cfg.MaxWorkers)
	}
	if cfg.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeoutSeconds must be positive, got %d", cfg.TimeoutSeconds)
	}
	if cfg.MemoryCeilingMB <= 0 {
		return fmt.Errorf("memoryCeilingMb must be positive, got %d", cfg.MemoryCeilingMB)
	}
	if cfg.CompressionLevel < 0 || cfg.CompressionLevel > 9 {
		return fmt.Errorf("compressionLevel must be between 0 and 9, got %d", cfg.CompressionLevel)
	}
	if cfg.Quality.ImageQuality < 1 || cfg.Quality.ImageQuality > 100 {
		return fmt.Errorf("imageQuality must be between 1 and 100, got %d", cfg.Quality.ImageQuality)
	}
	return nil
}

// GetDefaultConfig returns a default configuration for a project
func (m *Manager) GetDefaultConfig(projectName, version string) *types.DeploymentConfig {
	return types.DefaultConfig(projectName, version)
}

// finalize fills omitted fields with defaults and validates the result
func (m *Manager) finalize(cfg *types.DeploymentConfig) (*types.DeploymentConfig, error) {
	defaults := types.DefaultConfig(cfg.ProjectName, cfg.Version)

	if cfg.Paths.BuildRoot == "" {
		cfg.Paths.BuildRoot = defaults.Paths.BuildRoot
	}
	if cfg.Paths.DistRoot == "" {
		cfg.Paths.DistRoot = defaults.Paths.DistRoot
	}
	if cfg.Paths.AssetsRoot == "" {
		cfg.Paths.AssetsRoot = defaults.Paths.AssetsRoot
	}
	if cfg.Paths.TempRoot == "" {
		cfg.Paths.TempRoot = defaults.Paths.TempRoot
	}
	if cfg.Quality.ImageQuality == 0 {
		cfg.Quality.ImageQuality = defaults.Quality.ImageQuality
	}
	if cfg.Quality.VideoBitrate == "" {
		cfg.Quality.VideoBitrate = defaults.Quality.VideoBitrate
	}
	if cfg.MemoryCeilingMB == 0 {
		cfg.MemoryCeilingMB = defaults.MemoryCeilingMB
	}
	if cfg.MaxWorkers == 0 {
		cfg.MaxWorkers = defaults.MaxWorkers
	}
	if cfg.TimeoutSeconds == 0 {
		cfg.TimeoutSeconds = defaults.TimeoutSeconds
	}
	if cfg.CompressionLevel == 0 {
		cfg.CompressionLevel = defaults.CompressionLevel
	}
	if cfg.MinDiskSpaceMB == 0 {
		cfg.MinDiskSpaceMB = defaults.MinDiskSpaceMB
	}

	if err := m.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
