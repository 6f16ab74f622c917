// Package notifier provides desktop notifications for deployment runs
package notifier

import (
	"fmt"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/stagehand/stagehand/pkg/logger"
)

// DeployNotifier sends desktop notifications about deployment outcomes
type DeployNotifier struct {
	enabled bool
	logger  logger.Logger
}

// New creates a deployment notifier
func New(enabled bool, log logger.Logger) *DeployNotifier {
	return &DeployNotifier{
		enabled: enabled,
		logger:  log,
	}
}

// NotifyDeployStart notifies that a deployment has started
func (n *DeployNotifier) NotifyDeployStart(project string) {
	if !n.enabled {
		return
	}
	n.send("🎬 Stagehand", fmt.Sprintf("Deploying %s...", project))
}

// NotifyDeploySuccess notifies that a deployment succeeded
func (n *DeployNotifier) NotifyDeploySuccess(project string, duration time.Duration, archive string) {
	if !n.enabled {
		return
	}
	n.send("✅ Deployment Succeeded",
		fmt.Sprintf("%s packaged in %s: %s", project, formatDuration(duration), archive))
}

// NotifyDeployFailure notifies that a deployment failed
func (n *DeployNotifier) NotifyDeployFailure(project string, hint string) {
	if !n.enabled {
		return
	}
	n.send("❌ Deployment Failed", fmt.Sprintf("%s: %s", project, hint))
}

func (n *DeployNotifier) send(title, message string) {
	if err := beeep.Notify(title, message, ""); err != nil {
		n.logger.Debug("Failed to send notification", logger.WithField("error", err))
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
