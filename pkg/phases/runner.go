// Package phases wraps build phases as isolated units of work
package phases

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/stagehand/stagehand/pkg/logger"
	"github.com/stagehand/stagehand/pkg/types"
)

// Phase is one independent unit of build work
type Phase struct {
	Name string
	Run  func(ctx context.Context) error
}

// Runner executes phases and converts any failure, including panics,
// into a PhaseResult so sibling phases keep running
type Runner struct {
	logger logger.Logger
}

// NewRunner creates a phase runner
func NewRunner(log logger.Logger) *Runner {
	return &Runner{logger: log}
}

// Run executes a single phase to completion and produces its result.
// The result is final: no retries, no mutation.
func (r *Runner) Run(ctx context.Context, phase Phase) (result types.PhaseResult) {
	log := r.logger.WithPhase(phase.Name)
	start := time.Now()

	result = types.PhaseResult{Phase: phase.Name}

	defer func() {
		if rec := recover(); rec != nil {
			result.Succeeded = false
			result.Error = fmt.Sprintf("phase panic: %v", rec)
			result.Duration = time.Since(start)
			log.Error("Phase panicked",
				logger.WithField("panic", rec),
				logger.WithField("stack_trace", string(debug.Stack())))
		}
	}()

	log.Info("Phase started")

	err := phase.Run(ctx)
	result.Duration = time.Since(start)

	if err != nil {
		result.Succeeded = false
		result.Error = err.Error()
		log.Error("Phase failed",
			logger.WithField("duration", result.Duration.Round(time.Millisecond)),
			logger.WithField("error", err))
		return result
	}

	result.Succeeded = true
	log.Success(fmt.Sprintf("Phase completed in %s", result.Duration.Round(time.Millisecond)))
	return result
}
