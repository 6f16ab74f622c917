// Package engine provides the deployment orchestration core: it runs
// the fixed set of build phases concurrently, bounds the run with a
// deployment-wide timeout and reduces the phase results to a single
// verdict.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stagehand/stagehand/pkg/logger"
	"github.com/stagehand/stagehand/pkg/optimizer"
	"github.com/stagehand/stagehand/pkg/phases"
	"github.com/stagehand/stagehand/pkg/resources"
	"github.com/stagehand/stagehand/pkg/types"
	"github.com/stagehand/stagehand/pkg/validation"
)

// ErrTimeout is returned when phases do not report before the
// deployment-wide deadline
var ErrTimeout = errors.New("deployment timed out")

// Dependencies contains the injectable collaborators of the orchestrator
type Dependencies struct {
	Monitor   *resources.Monitor
	Optimizer *optimizer.Optimizer

	// Phases overrides the default phase set; used by tests
	Phases []phases.Phase
}

// Orchestrator drives a deployment run through its state machine:
// NotStarted -> Validating -> Running -> Reducing -> Succeeded|Failed.
type Orchestrator struct {
	cfg       *types.DeploymentConfig
	logger    logger.Logger
	monitor   *resources.Monitor
	optimizer *optimizer.Optimizer
	runner    *phases.Runner
	phases    []phases.Phase

	state types.DeployState
	mu    sync.RWMutex
}

// New creates an orchestrator. The configuration is shared read-only
// with every phase; no synchronization is needed for it.
func New(cfg *types.DeploymentConfig, log logger.Logger, deps Dependencies) *Orchestrator {
	if deps.Monitor == nil {
		panic("Monitor dependency is required")
	}

	o := &Orchestrator{
		cfg:       cfg,
		logger:    log,
		monitor:   deps.Monitor,
		optimizer: deps.Optimizer,
		runner:    phases.NewRunner(log),
		state:     types.DeployStateNotStarted,
	}

	if deps.Phases != nil {
		o.phases = deps.Phases
	} else {
		if deps.Optimizer == nil {
			panic("Optimizer dependency is required for the default phase set")
		}
		o.phases = o.defaultPhases()
	}

	return o
}

// State returns the current lifecycle state
func (o *Orchestrator) State() types.DeployState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

func (o *Orchestrator) setState(state types.DeployState) {
	o.mu.Lock()
	o.state = state
	o.mu.Unlock()
}

// Deploy executes one full deployment run and returns its summary. The
// entire run is bounded by a single before/after memory accounting.
func (o *Orchestrator) Deploy(ctx context.Context) *types.DeploymentSummary {
	summary := &types.DeploymentSummary{
		ID:        uuid.NewString(),
		State:     types.DeployStateNotStarted,
		StartedAt: time.Now(),
	}

	// The exit sample must be taken even when the run fails, so the
	// deploy body reports failure through the summary, not a panic.
	_ = o.monitor.MonitoredSection("deployment", func() error {
		return o.deploy(ctx, summary)
	})

	summary.Duration = time.Since(summary.StartedAt)
	return summary
}

func (o *Orchestrator) deploy(ctx context.Context, summary *types.DeploymentSummary) error {
	o.setState(types.DeployStateValidating)
	summary.State = types.DeployStateValidating

	if err := o.validateEnvironment(); err != nil {
		o.fail(summary, err.Error())
		o.monitor.Reclaim()
		return err
	}

	o.setState(types.DeployStateRunning)
	summary.State = types.DeployStateRunning
	o.logger.Info(fmt.Sprintf("Running %d build phases", len(o.phases)),
		logger.WithField("max_workers", o.cfg.MaxWorkers),
		logger.WithField("timeout", o.cfg.Timeout()))

	runCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeout())
	defer cancel()

	results := make(chan types.PhaseResult, len(o.phases))

	group, _ := NewSafeGroup(context.Background(), o.logger)
	group.SetLimit(o.cfg.MaxWorkers)

	for _, phase := range o.phases {
		phase := phase
		group.Go(func() error {
			// The runner converts every failure into a result, so the
			// group never short-circuits sibling phases.
			results <- o.runner.Run(runCtx, phase)
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		if err := group.Wait(); err != nil {
			o.logger.Error("Phase pool reported an error", logger.WithField("error", err))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-runCtx.Done():
		// The deadline elapsed. Cancellation is advisory: phases see
		// runCtx and may stop cooperatively, but nothing is killed and
		// outstanding work is simply no longer awaited.
		summary.Phases = drainResults(results)
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			err := fmt.Errorf("%w after %s", ErrTimeout, o.cfg.Timeout())
			o.fail(summary, err.Error())
			o.monitor.Reclaim()
			return err
		}
		err := fmt.Errorf("deployment cancelled: %w", runCtx.Err())
		o.fail(summary, err.Error())
		o.monitor.Reclaim()
		return err
	}

	o.setState(types.DeployStateReducing)
	summary.State = types.DeployStateReducing
	summary.Phases = drainResults(results)

	if err := reduce(summary.Phases, len(o.phases)); err != nil {
		o.fail(summary, err.Error())
		o.monitor.Reclaim()
		return err
	}

	// Reclamation runs after every reduction so post-build validation
	// and packaging start from reclaimed memory.
	o.monitor.Reclaim()

	o.setState(types.DeployStateSucceeded)
	summary.State = types.DeployStateSucceeded
	o.logger.Success("All build phases completed")
	return nil
}

// validateEnvironment runs the fatal pre-phase checks
func (o *Orchestrator) validateEnvironment() error {
	result := validation.NewEnvironmentValidator(o.cfg, o.monitor, o.logger).Validate()

	for _, checkErr := range result.Errors {
		if checkErr.Level == validation.LevelError {
			o.logger.Error(checkErr.Error())
		} else {
			o.logger.Warn(checkErr.Error())
		}
	}

	if !result.Valid {
		return fmt.Errorf("environment validation failed")
	}
	return nil
}

// Fail marks a completed run as failed after the fact, keeping the
// orchestrator state and the summary in step. Callers use it when
// post-build validation or packaging rejects an otherwise successful
// run.
func (o *Orchestrator) Fail(summary *types.DeploymentSummary, hint string) {
	o.fail(summary, hint)
}

func (o *Orchestrator) fail(summary *types.DeploymentSummary, hint string) {
	o.setState(types.DeployStateFailed)
	summary.State = types.DeployStateFailed
	summary.FailureHint = hint
}

// reduce combines the collected phase results into one verdict: the run
// succeeds iff every expected phase reported success
func reduce(collected []types.PhaseResult, expected int) error {
	for _, result := range collected {
		if !result.Succeeded {
			return fmt.Errorf("phase %s failed: %s", result.Phase, result.Error)
		}
	}
	if len(collected) < expected {
		return fmt.Errorf("only %d of %d phases reported", len(collected), expected)
	}
	return nil
}

// drainResults collects the results available right now without
// blocking on phases that are still running
func drainResults(results chan types.PhaseResult) []types.PhaseResult {
	collected := make([]types.PhaseResult, 0, len(results))
	for {
		select {
		case result := <-results:
			collected = append(collected, result)
		default:
			return collected
		}
	}
}
