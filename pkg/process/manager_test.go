package process

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stagehand/stagehand/pkg/logger"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	var buf bytes.Buffer
	return NewManager(logger.CreateLoggerWithOutput("", "debug", &buf))
}

func TestShutdownHandlersRunInReverseOrder(t *testing.T) {
	manager := newTestManager(t)

	var order []int
	manager.RegisterShutdownHandler(func() { order = append(order, 1) })
	manager.RegisterShutdownHandler(func() { order = append(order, 2) })
	manager.RegisterShutdownHandler(func() { order = append(order, 3) })

	ctx, cancel := context.WithCancel(context.Background())
	manager.Start(ctx)
	cancel()
	manager.Stop()

	if len(order) != 3 || order[0] != 3 || order[1] != 2 || order[2] != 1 {
		t.Errorf("handler order = %v, want [3 2 1]", order)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	manager := newTestManager(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager.Start(ctx)
	manager.Start(ctx)

	if !manager.IsRunning() {
		t.Error("manager should be running after Start")
	}

	cancel()
	manager.Stop()

	// Give the signal goroutine a moment to unwind
	time.Sleep(10 * time.Millisecond)
	if manager.IsRunning() {
		t.Error("manager should not be running after Stop")
	}
}
