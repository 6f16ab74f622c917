// Package state persists deployment run records
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stagehand/stagehand/pkg/types"
	"github.com/stagehand/stagehand/pkg/utils"
)

const stateDirName = ".stagehand"

const lastRunFile = "last-run.json"

// Manager reads and writes run records under the project root
type Manager struct {
	projectRoot string
}

// NewManager creates a state manager rooted at projectRoot
func NewManager(projectRoot string) *Manager {
	return &Manager{projectRoot: projectRoot}
}

// StateDir returns the state directory path
func (m *Manager) StateDir() string {
	return filepath.Join(m.projectRoot, stateDirName)
}

// SaveRun persists the summary of a completed run. The write is atomic
// so a crashed process never leaves a torn record behind.
func (m *Manager) SaveRun(summary *types.DeploymentSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run record: %w", err)
	}

	return utils.WriteFile(filepath.Join(m.StateDir(), lastRunFile), data)
}

// LastRun loads the most recent run record, or nil when none exists
func (m *Manager) LastRun() (*types.DeploymentSummary, error) {
	data, err := os.ReadFile(filepath.Join(m.StateDir(), lastRunFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read run record: %w", err)
	}

	var summary types.DeploymentSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to decode run record: %w", err)
	}
	return &summary, nil
}

// Cleanup removes the state directory
func (m *Manager) Cleanup() error {
	return os.RemoveAll(m.StateDir())
}
