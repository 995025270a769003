package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriorityRankOrdersUrgentFirst(t *testing.T) {
	assert.Equal(t, 0, TicketPriorityUrgent.Rank())
	assert.Equal(t, 1, TicketPriorityHigh.Rank())
	assert.Equal(t, 2, TicketPriorityMedium.Rank())
	assert.Equal(t, 3, TicketPriorityLow.Rank())
	assert.Equal(t, 4, TicketPriority("bananas").Rank())
}

func TestPriorityValid(t *testing.T) {
	assert.True(t, TicketPriorityUrgent.Valid())
	assert.True(t, TicketPriorityLow.Valid())
	assert.False(t, TicketPriority("").Valid())
	assert.False(t, TicketPriority("critical").Valid())
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(TicketStatusOpen, TicketStatusAssigned))
	assert.True(t, CanTransition(TicketStatusOpen, TicketStatusResolved))
	assert.True(t, CanTransition(TicketStatusAssigned, TicketStatusInProgress))
	assert.True(t, CanTransition(TicketStatusResolved, TicketStatusClosed))
	assert.True(t, CanTransition(TicketStatusResolved, TicketStatusOpen))
	assert.True(t, CanTransition(TicketStatusClosed, TicketStatusOpen))

	assert.False(t, CanTransition(TicketStatusOpen, TicketStatusClosed))
	assert.False(t, CanTransition(TicketStatusResolved, TicketStatusInProgress))
	assert.False(t, CanTransition(TicketStatusClosed, TicketStatusResolved))
	assert.False(t, CanTransition(TicketStatusInProgress, TicketStatusAssigned))
}

func TestSLARecordBreached(t *testing.T) {
	assert.False(t, SLARecord{}.Breached())
	assert.True(t, SLARecord{ResponseBreached: true}.Breached())
	assert.True(t, SLARecord{ResolutionBreached: true}.Breached())
}

func TestActiveForAgent(t *testing.T) {
	assert.False(t, (&Ticket{Status: TicketStatusOpen}).ActiveForAgent())
	assert.True(t, (&Ticket{Status: TicketStatusAssigned}).ActiveForAgent())
	assert.True(t, (&Ticket{Status: TicketStatusInProgress}).ActiveForAgent())
	assert.False(t, (&Ticket{Status: TicketStatusResolved}).ActiveForAgent())
	assert.False(t, (&Ticket{Status: TicketStatusClosed}).ActiveForAgent())
}
