package health

import (
	"context"
	"testing"
	"time"

	"github.com/arborly/paperqueue/internal/testhelpers"
	"github.com/stretchr/testify/assert"
)

func TestTracker_AllAliveInitially(t *testing.T) {
	tr := NewTracker(3)
	alive, total := tr.Stats()
	assert.Equal(t, 3, alive)
	assert.Equal(t, 3, total)
	assert.True(t, tr.Ready())
}

func TestTracker_ExitedDecrementsAlive(t *testing.T) {
	tr := NewTracker(2)
	tr.Exited()
	alive, total := tr.Stats()
	assert.Equal(t, 1, alive)
	assert.Equal(t, 2, total)
	assert.True(t, tr.Ready())

	tr.Exited()
	assert.False(t, tr.Ready())
}

func TestMonitor_StartStopsOnCancel(t *testing.T) {
	tr := NewTracker(1)
	mon := NewMonitor(&MonitorConfig{
		CheckInterval: 5 * time.Millisecond,
		Logger:        testhelpers.NewTestLogger(),
	}, tr)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		mon.Start(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop after cancel")
	}
}
