package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/stagehand/stagehand/internal/engine"
	"github.com/stagehand/stagehand/pkg/logger"
	"github.com/stagehand/stagehand/pkg/notifier"
	"github.com/stagehand/stagehand/pkg/optimizer"
	"github.com/stagehand/stagehand/pkg/packaging"
	"github.com/stagehand/stagehand/pkg/process"
	"github.com/stagehand/stagehand/pkg/resources"
	"github.com/stagehand/stagehand/pkg/state"
	"github.com/stagehand/stagehand/pkg/types"
	"github.com/stagehand/stagehand/pkg/validation"
	"github.com/stagehand/stagehand/pkg/watcher"
)

func newDeployCmd() *cobra.Command {
	var watch bool
	var notify bool

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Run all build phases and assemble the package",
		Long: `Run the web, mobile, wearable and asset-optimization phases
concurrently, validate the result and assemble the deployment archive.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(watch, notify)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "redeploy when source trees change")
	cmd.Flags().BoolVar(&notify, "notify", true, "send desktop notifications")

	return cmd
}

// pipeline bundles everything one deployment run needs
type pipeline struct {
	cfg       *types.DeploymentConfig
	logger    logger.Logger
	monitor   *resources.Monitor
	orch      *engine.Orchestrator
	validator *validation.DeploymentValidator
	assembler *packaging.Assembler
	notifier  *notifier.DeployNotifier
	state     *state.Manager
}

func newPipeline(notify bool) (*pipeline, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log := newLogger(cfg)
	monitor := resources.NewMonitor(log)

	runner := optimizer.NewExecRunner()
	caps := optimizer.ResolveCapabilities(runner, log)
	opt := optimizer.New(cfg, caps, runner, log)

	return &pipeline{
		cfg:       cfg,
		logger:    log,
		monitor:   monitor,
		orch:      engine.New(cfg, log, engine.Dependencies{Monitor: monitor, Optimizer: opt}),
		validator: validation.NewDeploymentValidator(cfg, monitor, log),
		assembler: packaging.NewAssembler(cfg, log),
		notifier:  notifier.New(notify, log),
		state:     state.NewManager(projectRoot),
	}, nil
}

// run executes one full deployment: phases, post-build validation and
// package assembly. It returns the persisted summary.
func (p *pipeline) run(ctx context.Context) *types.DeploymentSummary {
	p.notifier.NotifyDeployStart(p.cfg.ProjectName)

	summary := p.orch.Deploy(ctx)

	if summary.Succeeded() && !p.validator.Validate() {
		p.orch.Fail(summary, "post-build validation failed")
	}

	if summary.Succeeded() {
		archive, err := p.assembler.Assemble(summary)
		if err != nil {
			p.orch.Fail(summary, fmt.Sprintf("packaging failed: %v", err))
		} else {
			summary.ArchivePath = archive
		}
	}

	if err := p.state.SaveRun(summary); err != nil {
		p.logger.Warn("Failed to persist run record", logger.WithField("error", err))
	}

	if summary.Succeeded() {
		p.notifier.NotifyDeploySuccess(p.cfg.ProjectName, summary.Duration, summary.ArchivePath)
	} else {
		p.notifier.NotifyDeployFailure(p.cfg.ProjectName, summary.FailureHint)
	}

	return summary
}

func runDeploy(watch, notify bool) error {
	p, err := newPipeline(notify)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	summary := p.run(ctx)
	if !watch {
		if !summary.Succeeded() {
			return fmt.Errorf("deployment failed: %s", summary.FailureHint)
		}
		return nil
	}

	return p.watchLoop(ctx, cancel)
}

// watchLoop redeploys whenever the build or asset trees settle after a
// change. Failures are reported and watching continues.
func (p *pipeline) watchLoop(ctx context.Context, cancel context.CancelFunc) error {
	w, err := watcher.New(p.logger, 500*time.Millisecond)
	if err != nil {
		return err
	}
	w.SetExclusions([]string{
		filepath.Base(p.cfg.Paths.DistRoot),
		filepath.Base(p.cfg.Paths.TempRoot),
		".stagehand",
		".git",
		"node_modules",
	})

	manager := process.NewManager(p.logger)
	manager.RegisterShutdownHandler(func() {
		w.Close()
		cancel()
	})
	manager.Start(ctx)

	roots := []string{p.cfg.Paths.BuildRoot, p.cfg.Paths.AssetsRoot}
	err = w.Watch(roots, func(changed []string) {
		p.logger.Info(fmt.Sprintf("Change detected (%d files), redeploying", len(changed)))
		summary := p.run(ctx)
		if !summary.Succeeded() {
			p.logger.Error("Redeploy failed", logger.WithField("hint", summary.FailureHint))
		}
	})
	if err != nil {
		return err
	}

	p.logger.Info("Watching for changes, press Ctrl+C to stop")
	<-ctx.Done()
	manager.Stop()
	return nil
}
