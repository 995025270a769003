package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/escalation-engine/internal/domain"
)

func TestMonitorTickFlagsBreaches(t *testing.T) {
	store, clock := newTestStore(false)
	monitor := NewSLAMonitor(store, time.Minute, zap.NewNop())
	ticket := store.CreateTicket(TicketCreateInput{Reason: "help", Priority: domain.TicketPriorityUrgent})

	monitor.Tick()
	assert.Equal(t, int64(0), store.BreachCount())

	clock.advance(10 * time.Minute)
	monitor.Tick()
	assert.Equal(t, int64(1), store.BreachCount())

	current := store.GetTicket(ticket.ID)
	assert.True(t, current.SLA.ResponseBreached)
	assert.False(t, current.SLA.ResolutionBreached)

	// Repeated ticks stay idempotent until the next deadline passes.
	monitor.Tick()
	assert.Equal(t, int64(1), store.BreachCount())

	clock.advance(25 * time.Minute)
	monitor.Tick()
	assert.Equal(t, int64(2), store.BreachCount())
}

func TestMonitorTickLeavesHealthyTicketsAlone(t *testing.T) {
	store, clock := newTestStore(false)
	monitor := NewSLAMonitor(store, time.Minute, zap.NewNop())
	ticket := store.CreateTicket(TicketCreateInput{Reason: "help", Priority: domain.TicketPriorityLow})

	clock.advance(30 * time.Minute)
	monitor.Tick()

	current := store.GetTicket(ticket.ID)
	require.NotNil(t, current)
	assert.False(t, current.SLA.Breached())
	assert.Equal(t, domain.TicketStatusOpen, current.Status)
}

func TestMonitorStartStop(t *testing.T) {
	store, _ := newTestStore(false)
	monitor := NewSLAMonitor(store, 10*time.Millisecond, zap.NewNop())

	monitor.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	monitor.Stop()

	// Stop must be safe to call twice.
	monitor.Stop()
}

func TestMonitorDefaultsInterval(t *testing.T) {
	store, _ := newTestStore(false)
	monitor := NewSLAMonitor(store, 0, zap.NewNop())
	assert.Equal(t, 60*time.Second, monitor.interval)
}
