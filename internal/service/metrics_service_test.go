package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/escalation-engine/internal/domain"
)

func TestGetStatsWindowsByCreationTime(t *testing.T) {
	store, clock := newTestStore(false)
	metrics := NewMetricsService(store)
	metrics.now = clock.now

	store.CreateTicket(TicketCreateInput{Reason: "old", Priority: domain.TicketPriorityLow})
	clock.advance(48 * time.Hour)
	store.CreateTicket(TicketCreateInput{Reason: "recent", Priority: domain.TicketPriorityHigh})

	day := metrics.GetStats(StatsPeriodDay)
	assert.Equal(t, 1, day.Total)
	assert.Equal(t, 1, day.ByPriority[domain.TicketPriorityHigh])

	week := metrics.GetStats(StatsPeriodWeek)
	assert.Equal(t, 2, week.Total)
}

func TestGetStatsAggregatesAverages(t *testing.T) {
	store, clock := newTestStore(false)
	metrics := NewMetricsService(store)
	metrics.now = clock.now

	fast := store.CreateTicket(TicketCreateInput{Reason: "fast"})
	clock.advance(2 * time.Minute)
	require.NotNil(t, store.RecordFirstResponse(fast.ID, ""))
	clock.advance(8 * time.Minute)
	require.NotNil(t, store.ResolveTicket(fast.ID, "done", ""))

	slow := store.CreateTicket(TicketCreateInput{Reason: "slow"})
	clock.advance(6 * time.Minute)
	require.NotNil(t, store.RecordFirstResponse(slow.ID, ""))

	stats := metrics.GetStats(StatsPeriodDay)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.RespondedInWindow)
	assert.Equal(t, 1, stats.ResolvedInWindow)
	// Responses took 2m and 6m, resolutions 10m.
	assert.InDelta(t, (4 * time.Minute).Seconds(), stats.AvgResponseSec, 0.001)
	assert.InDelta(t, (10 * time.Minute).Seconds(), stats.AvgResolutionSec, 0.001)
	assert.Equal(t, 1, stats.ByStatus[domain.TicketStatusResolved])
	assert.Equal(t, 1, stats.ByStatus[domain.TicketStatusInProgress])
}

func TestGetStatsCountsBreaches(t *testing.T) {
	store, clock := newTestStore(false)
	metrics := NewMetricsService(store)
	metrics.now = clock.now

	store.CreateTicket(TicketCreateInput{Reason: "late", Priority: domain.TicketPriorityUrgent})
	store.CreateTicket(TicketCreateInput{Reason: "fine", Priority: domain.TicketPriorityLow})

	clock.advance(10 * time.Minute)
	require.NotEmpty(t, store.ScanBreaches())

	stats := metrics.GetStats(StatsPeriodDay)
	assert.Equal(t, 1, stats.Breached)
}

func TestStatsPeriodWindows(t *testing.T) {
	assert.Equal(t, time.Hour, StatsPeriodHour.Window())
	assert.Equal(t, 24*time.Hour, StatsPeriodDay.Window())
	assert.Equal(t, 7*24*time.Hour, StatsPeriodWeek.Window())
	assert.Equal(t, 30*24*time.Hour, StatsPeriodMonth.Window())
	assert.Equal(t, 24*time.Hour, StatsPeriod("fortnight").Window())
}
