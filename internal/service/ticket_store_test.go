package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/escalation-engine/internal/config"
	"github.com/spec-kit/escalation-engine/internal/domain"
	"github.com/spec-kit/escalation-engine/internal/observability"
)

func testSLAConfig() config.SLAConfig {
	return config.SLAConfig{
		Targets: map[domain.TicketPriority]config.SLATarget{
			domain.TicketPriorityUrgent: {ResponseMinutes: 5, ResolutionMinutes: 30},
			domain.TicketPriorityHigh:   {ResponseMinutes: 15, ResolutionMinutes: 60},
			domain.TicketPriorityMedium: {ResponseMinutes: 30, ResolutionMinutes: 120},
			domain.TicketPriorityLow:    {ResponseMinutes: 60, ResolutionMinutes: 240},
		},
	}
}

// testClock lets tests move the store's notion of now forward.
type testClock struct {
	current time.Time
}

func (c *testClock) now() time.Time { return c.current }

func (c *testClock) advance(d time.Duration) { c.current = c.current.Add(d) }

func newTestStore(autoAssign bool) (*TicketStore, *testClock) {
	clock := &testClock{current: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	store := NewTicketStore(testSLAConfig(), config.AssignmentConfig{AutoAssign: autoAssign, DefaultMaxLoad: 5}, TicketStoreDependencies{
		Logger:  zap.NewNop(),
		Metrics: observability.NewMetrics(),
	})
	store.now = clock.now
	return store, clock
}

func TestCreateTicketComputesDeadlinesFromPriority(t *testing.T) {
	store, clock := newTestStore(false)

	cases := map[domain.TicketPriority]struct {
		response   time.Duration
		resolution time.Duration
	}{
		domain.TicketPriorityUrgent: {5 * time.Minute, 30 * time.Minute},
		domain.TicketPriorityHigh:   {15 * time.Minute, 60 * time.Minute},
		domain.TicketPriorityMedium: {30 * time.Minute, 120 * time.Minute},
		domain.TicketPriorityLow:    {60 * time.Minute, 240 * time.Minute},
	}
	for priority, expected := range cases {
		ticket := store.CreateTicket(TicketCreateInput{Reason: "help", Priority: priority})
		require.NotNil(t, ticket)
		assert.Equal(t, clock.current.Add(expected.response), ticket.SLA.ResponseDeadline, priority)
		assert.Equal(t, clock.current.Add(expected.resolution), ticket.SLA.ResolutionDeadline, priority)
		assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	}
}

func TestCreateTicketInvalidPriorityFallsBackToMedium(t *testing.T) {
	store, _ := newTestStore(false)

	ticket := store.CreateTicket(TicketCreateInput{Reason: "help", Priority: "bananas"})
	require.NotNil(t, ticket)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
}

func TestCreateTicketRecordsHistory(t *testing.T) {
	store, _ := newTestStore(false)

	ticket := store.CreateTicket(TicketCreateInput{Reason: "help", Actor: "rule:test"})
	require.Len(t, ticket.History, 1)
	assert.Equal(t, "created", ticket.History[0].Action)
	assert.Equal(t, "rule:test", ticket.History[0].Actor)
}

func TestCreateTicketAutoAssignsBestFit(t *testing.T) {
	store, _ := newTestStore(true)
	agent := store.RegisterAgent(AgentCreateInput{Name: "Casey", MaxLoad: 3})

	ticket := store.CreateTicket(TicketCreateInput{Reason: "help"})
	require.NotNil(t, ticket.AssignedTo)
	assert.Equal(t, agent.ID, *ticket.AssignedTo)
	assert.Equal(t, domain.TicketStatusAssigned, ticket.Status)
	assert.Equal(t, 1, store.GetAgent(agent.ID).CurrentLoad)
}

func TestAssignTicketUnknownReturnsNil(t *testing.T) {
	store, _ := newTestStore(false)
	ticket := store.CreateTicket(TicketCreateInput{Reason: "help"})

	assert.Nil(t, store.AssignTicket("missing", "missing", ""))
	assert.Nil(t, store.AssignTicket(ticket.ID, "missing", ""))
}

func TestAssignTicketReassignMovesLoad(t *testing.T) {
	store, _ := newTestStore(false)
	first := store.RegisterAgent(AgentCreateInput{Name: "A"})
	second := store.RegisterAgent(AgentCreateInput{Name: "B"})
	ticket := store.CreateTicket(TicketCreateInput{Reason: "help"})

	require.NotNil(t, store.AssignTicket(ticket.ID, first.ID, ""))
	require.NotNil(t, store.AssignTicket(ticket.ID, second.ID, ""))

	assert.Equal(t, 0, store.GetAgent(first.ID).CurrentLoad)
	assert.Equal(t, 1, store.GetAgent(second.ID).CurrentLoad)
}

func TestAssignResolvedTicketReturnsNil(t *testing.T) {
	store, _ := newTestStore(false)
	agent := store.RegisterAgent(AgentCreateInput{Name: "A"})
	ticket := store.CreateTicket(TicketCreateInput{Reason: "help"})
	require.NotNil(t, store.ResolveTicket(ticket.ID, "done", ""))

	assert.Nil(t, store.AssignTicket(ticket.ID, agent.ID, ""))
}

func TestRecordFirstResponseIdempotent(t *testing.T) {
	store, clock := newTestStore(false)
	ticket := store.CreateTicket(TicketCreateInput{Reason: "help"})

	clock.advance(10 * time.Minute)
	first := store.RecordFirstResponse(ticket.ID, "")
	require.NotNil(t, first)
	assert.Equal(t, domain.TicketStatusInProgress, first.Status)
	require.NotNil(t, first.SLA.ResponseTime)
	assert.Equal(t, 10*time.Minute, *first.SLA.ResponseTime)

	clock.advance(time.Hour)
	second := store.RecordFirstResponse(ticket.ID, "")
	require.NotNil(t, second)
	assert.Equal(t, *first.FirstResponseAt, *second.FirstResponseAt)
	assert.Equal(t, 10*time.Minute, *second.SLA.ResponseTime)
	assert.Len(t, second.History, len(first.History))
}

func TestRecordFirstResponseLateFlagsBreachOnce(t *testing.T) {
	store, clock := newTestStore(false)
	ticket := store.CreateTicket(TicketCreateInput{Reason: "help", Priority: domain.TicketPriorityUrgent})

	clock.advance(10 * time.Minute)
	late := store.RecordFirstResponse(ticket.ID, "")
	require.NotNil(t, late)
	assert.True(t, late.SLA.ResponseBreached)
	assert.Equal(t, int64(1), store.BreachCount())

	// A subsequent scan must not count the same breach again.
	assert.Empty(t, store.ScanBreaches())
	assert.Equal(t, int64(1), store.BreachCount())
}

func TestResolveTicketReleasesAgentAndRecordsStats(t *testing.T) {
	store, clock := newTestStore(false)
	agent := store.RegisterAgent(AgentCreateInput{Name: "A"})
	ticket := store.CreateTicket(TicketCreateInput{Reason: "help"})
	require.NotNil(t, store.AssignTicket(ticket.ID, agent.ID, ""))

	clock.advance(20 * time.Minute)
	resolved := store.ResolveTicket(ticket.ID, "rebooted it", agent.ID)
	require.NotNil(t, resolved)
	assert.Equal(t, domain.TicketStatusResolved, resolved.Status)
	require.NotNil(t, resolved.SLA.ResolutionTime)
	assert.Equal(t, 20*time.Minute, *resolved.SLA.ResolutionTime)

	updated := store.GetAgent(agent.ID)
	assert.Equal(t, 0, updated.CurrentLoad)
	assert.Equal(t, 1, updated.Stats.TicketsHandled)
	assert.InDelta(t, (20 * time.Minute).Seconds(), updated.Stats.AvgResolutionSec, 0.001)
}

func TestResolveUnassignedTicketAllowed(t *testing.T) {
	store, _ := newTestStore(false)
	ticket := store.CreateTicket(TicketCreateInput{Reason: "help"})

	resolved := store.ResolveTicket(ticket.ID, "self-served", "")
	require.NotNil(t, resolved)
	assert.Equal(t, domain.TicketStatusResolved, resolved.Status)
}

func TestCloseTicketFeedsSatisfaction(t *testing.T) {
	store, _ := newTestStore(false)
	agent := store.RegisterAgent(AgentCreateInput{Name: "A"})
	ticket := store.CreateTicket(TicketCreateInput{Reason: "help"})
	require.NotNil(t, store.AssignTicket(ticket.ID, agent.ID, ""))
	require.NotNil(t, store.ResolveTicket(ticket.ID, "done", agent.ID))

	score := 0.9
	closed := store.CloseTicket(ticket.ID, &score)
	require.NotNil(t, closed)
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)

	updated := store.GetAgent(agent.ID)
	require.NotNil(t, updated.Stats.SatisfactionScore)
	assert.InDelta(t, 0.9, *updated.Stats.SatisfactionScore, 0.001)
}

func TestCloseRequiresResolvedTicket(t *testing.T) {
	store, _ := newTestStore(false)
	ticket := store.CreateTicket(TicketCreateInput{Reason: "help"})

	assert.Nil(t, store.CloseTicket(ticket.ID, nil))
	require.NotNil(t, store.ResolveTicket(ticket.ID, "done", ""))
	assert.NotNil(t, store.CloseTicket(ticket.ID, nil))
}

func TestRecordFirstResponseOnResolvedReturnsNil(t *testing.T) {
	store, _ := newTestStore(false)
	ticket := store.CreateTicket(TicketCreateInput{Reason: "help"})
	require.NotNil(t, store.ResolveTicket(ticket.ID, "done", ""))

	assert.Nil(t, store.RecordFirstResponse(ticket.ID, ""))
}

func TestReopenPreservesDeadlinesAndBreachFlags(t *testing.T) {
	store, clock := newTestStore(false)
	ticket := store.CreateTicket(TicketCreateInput{Reason: "help", Priority: domain.TicketPriorityUrgent})

	clock.advance(40 * time.Minute)
	resolved := store.ResolveTicket(ticket.ID, "done", "")
	require.NotNil(t, resolved)
	assert.True(t, resolved.SLA.ResolutionBreached)
	countAfterResolve := store.BreachCount()

	reopened := store.ReopenTicket(ticket.ID, "customer replied")
	require.NotNil(t, reopened)
	assert.Equal(t, domain.TicketStatusOpen, reopened.Status)
	assert.Nil(t, reopened.ResolvedAt)
	assert.Empty(t, reopened.Resolution)
	assert.Nil(t, reopened.SLA.ResolutionTime)
	assert.Equal(t, resolved.SLA.ResponseDeadline, reopened.SLA.ResponseDeadline)
	assert.Equal(t, resolved.SLA.ResolutionDeadline, reopened.SLA.ResolutionDeadline)
	assert.True(t, reopened.SLA.ResolutionBreached)

	// Scan after reopen: the ticket never got a first response, so the scan
	// flags that breach now. The preserved resolution flag is not recounted.
	events := store.ScanBreaches()
	require.Len(t, events, 1)
	assert.Equal(t, "response", events[0].Type)
	assert.Equal(t, countAfterResolve+1, store.BreachCount())

	assert.Empty(t, store.ScanBreaches())
	assert.Equal(t, countAfterResolve+1, store.BreachCount())
}

func TestReopenOpenTicketReturnsNil(t *testing.T) {
	store, _ := newTestStore(false)
	ticket := store.CreateTicket(TicketCreateInput{Reason: "help"})

	assert.Nil(t, store.ReopenTicket(ticket.ID, "nope"))
}

func TestListTicketsOrdering(t *testing.T) {
	store, clock := newTestStore(false)
	low := store.CreateTicket(TicketCreateInput{Reason: "a", Priority: domain.TicketPriorityLow})
	clock.advance(time.Minute)
	urgentOld := store.CreateTicket(TicketCreateInput{Reason: "b", Priority: domain.TicketPriorityUrgent})
	clock.advance(time.Minute)
	urgentNew := store.CreateTicket(TicketCreateInput{Reason: "c", Priority: domain.TicketPriorityUrgent})

	listed := store.ListTickets(TicketFilter{})
	require.Len(t, listed, 3)
	assert.Equal(t, urgentNew.ID, listed[0].ID)
	assert.Equal(t, urgentOld.ID, listed[1].ID)
	assert.Equal(t, low.ID, listed[2].ID)
}

func TestListTicketsFilters(t *testing.T) {
	store, clock := newTestStore(false)
	agent := store.RegisterAgent(AgentCreateInput{Name: "A"})
	assigned := store.CreateTicket(TicketCreateInput{Reason: "a"})
	require.NotNil(t, store.AssignTicket(assigned.ID, agent.ID, ""))
	breachedTicket := store.CreateTicket(TicketCreateInput{Reason: "b", Priority: domain.TicketPriorityUrgent})
	store.CreateTicket(TicketCreateInput{Reason: "c", Priority: domain.TicketPriorityLow})

	clock.advance(10 * time.Minute)
	require.NotEmpty(t, store.ScanBreaches())

	status := domain.TicketStatusAssigned
	byStatus := store.ListTickets(TicketFilter{Status: &status})
	require.Len(t, byStatus, 1)
	assert.Equal(t, assigned.ID, byStatus[0].ID)

	byAgent := store.ListTickets(TicketFilter{AssignedTo: &agent.ID})
	require.Len(t, byAgent, 1)
	assert.Equal(t, assigned.ID, byAgent[0].ID)

	breached := true
	byBreach := store.ListTickets(TicketFilter{Breached: &breached})
	require.Len(t, byBreach, 1)
	assert.Equal(t, breachedTicket.ID, byBreach[0].ID)
}

func TestScanBreachesFlagsOnceAndRecordsHistory(t *testing.T) {
	store, clock := newTestStore(false)
	ticket := store.CreateTicket(TicketCreateInput{Reason: "help", Priority: domain.TicketPriorityUrgent})

	clock.advance(10 * time.Minute)
	events := store.ScanBreaches()
	require.Len(t, events, 1)
	assert.Equal(t, "response", events[0].Type)
	assert.Equal(t, ticket.ID, events[0].TicketID)
	assert.Equal(t, int64(1), store.BreachCount())

	// Second scan past the resolution deadline flags only the new breach.
	clock.advance(25 * time.Minute)
	events = store.ScanBreaches()
	require.Len(t, events, 1)
	assert.Equal(t, "resolution", events[0].Type)
	assert.Equal(t, int64(2), store.BreachCount())

	assert.Empty(t, store.ScanBreaches())
	assert.Equal(t, int64(2), store.BreachCount())

	current := store.GetTicket(ticket.ID)
	var breachEntries int
	for _, entry := range current.History {
		if entry.Action == "sla_breach" {
			breachEntries++
		}
	}
	assert.Equal(t, 2, breachEntries)
}

func TestScanBreachesSkipsRespondedAndResolved(t *testing.T) {
	store, clock := newTestStore(false)
	responded := store.CreateTicket(TicketCreateInput{Reason: "a", Priority: domain.TicketPriorityUrgent})
	require.NotNil(t, store.RecordFirstResponse(responded.ID, ""))
	resolved := store.CreateTicket(TicketCreateInput{Reason: "b", Priority: domain.TicketPriorityUrgent})
	require.NotNil(t, store.ResolveTicket(resolved.ID, "done", ""))

	clock.advance(10 * time.Minute)
	events := store.ScanBreaches()
	// Only the responded ticket can still breach, and only on resolution.
	require.Empty(t, events)
}

func TestScanBreachesReconcilesLoadCounters(t *testing.T) {
	store, _ := newTestStore(false)
	agent := store.RegisterAgent(AgentCreateInput{Name: "A"})
	ticket := store.CreateTicket(TicketCreateInput{Reason: "help"})
	require.NotNil(t, store.AssignTicket(ticket.ID, agent.ID, ""))

	// Force drift, then let the scan repair it.
	store.mu.Lock()
	store.registry.agents[agent.ID].CurrentLoad = 3
	store.mu.Unlock()

	store.ScanBreaches()
	assert.Equal(t, 1, store.GetAgent(agent.ID).CurrentLoad)
}

func TestSetPriorityKeepsDeadlines(t *testing.T) {
	store, _ := newTestStore(false)
	ticket := store.CreateTicket(TicketCreateInput{Reason: "help", Priority: domain.TicketPriorityLow})

	updated := store.SetPriority(ticket.ID, domain.TicketPriorityUrgent, "operator")
	require.NotNil(t, updated)
	assert.Equal(t, domain.TicketPriorityUrgent, updated.Priority)
	assert.Equal(t, ticket.SLA.ResponseDeadline, updated.SLA.ResponseDeadline)
	assert.Equal(t, ticket.SLA.ResolutionDeadline, updated.SLA.ResolutionDeadline)

	assert.Nil(t, store.SetPriority(ticket.ID, "bananas", "operator"))
}

func TestAddTagsDeduplicates(t *testing.T) {
	store, _ := newTestStore(false)
	ticket := store.CreateTicket(TicketCreateInput{Reason: "help", Tags: []string{"vip"}})

	updated := store.AddTags(ticket.ID, []string{"vip", "billing"}, "operator")
	require.NotNil(t, updated)
	assert.Equal(t, []string{"vip", "billing"}, updated.Tags)
}

func TestRestoreRebuildsLoadCounters(t *testing.T) {
	store, _ := newTestStore(false)
	agent := store.RegisterAgent(AgentCreateInput{Name: "A"})
	ticket := store.CreateTicket(TicketCreateInput{Reason: "help"})
	require.NotNil(t, store.AssignTicket(ticket.ID, agent.ID, ""))
	tickets, agents := store.Snapshot()

	fresh, _ := newTestStore(false)
	fresh.Restore(tickets, agents)

	restored := fresh.GetAgent(agent.ID)
	require.NotNil(t, restored)
	assert.Equal(t, 1, restored.CurrentLoad)
	require.NotNil(t, fresh.GetTicket(ticket.ID))
}

func TestGetTicketReturnsCopy(t *testing.T) {
	store, _ := newTestStore(false)
	ticket := store.CreateTicket(TicketCreateInput{Reason: "help", Tags: []string{"vip"}})

	copy1 := store.GetTicket(ticket.ID)
	copy1.Tags[0] = "mutated"
	copy1.Reason = "mutated"

	copy2 := store.GetTicket(ticket.ID)
	assert.Equal(t, "vip", copy2.Tags[0])
	assert.Equal(t, "help", copy2.Reason)
}
