package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/escalation-engine/internal/domain"
)

func TestBestFitPrefersLowerLoad(t *testing.T) {
	registry := NewAgentRegistry()
	idle := registry.register(AgentCreateInput{Name: "idle", MaxLoad: 5}, 5)
	busy := registry.register(AgentCreateInput{Name: "busy", MaxLoad: 5}, 5)
	busy.CurrentLoad = 3

	winner := registry.bestFit("")
	require.NotNil(t, winner)
	assert.Equal(t, idle.ID, winner.ID)
}

func TestBestFitSkillOutweighsModerateLoad(t *testing.T) {
	registry := NewAgentRegistry()
	registry.register(AgentCreateInput{Name: "generalist", MaxLoad: 5}, 5)
	specialist := registry.register(AgentCreateInput{Name: "specialist", Skills: []string{"billing"}, MaxLoad: 5}, 5)
	specialist.CurrentLoad = 2

	// Specialist: 30 headroom + 30 skill; generalist: 50 headroom. Skill wins.
	winner := registry.bestFit("billing")
	require.NotNil(t, winner)
	assert.Equal(t, specialist.ID, winner.ID)
}

func TestBestFitTieKeepsEarlierRegistration(t *testing.T) {
	registry := NewAgentRegistry()
	first := registry.register(AgentCreateInput{Name: "first", MaxLoad: 5}, 5)
	registry.register(AgentCreateInput{Name: "second", MaxLoad: 5}, 5)

	winner := registry.bestFit("")
	require.NotNil(t, winner)
	assert.Equal(t, first.ID, winner.ID)
}

func TestBestFitSkipsUnavailableAndSaturated(t *testing.T) {
	registry := NewAgentRegistry()
	offline := registry.register(AgentCreateInput{Name: "offline", MaxLoad: 5}, 5)
	offline.Status = domain.AgentStatusOffline
	saturated := registry.register(AgentCreateInput{Name: "saturated", MaxLoad: 2}, 5)
	saturated.CurrentLoad = 2

	assert.Nil(t, registry.bestFit(""))

	free := registry.register(AgentCreateInput{Name: "free", MaxLoad: 5}, 5)
	winner := registry.bestFit("")
	require.NotNil(t, winner)
	assert.Equal(t, free.ID, winner.ID)
}

func TestBestFitSatisfactionBreaksTies(t *testing.T) {
	registry := NewAgentRegistry()
	registry.register(AgentCreateInput{Name: "unrated", MaxLoad: 5}, 5)
	rated := registry.register(AgentCreateInput{Name: "rated", MaxLoad: 5}, 5)
	score := 0.95
	rated.Stats.SatisfactionScore = &score

	winner := registry.bestFit("")
	require.NotNil(t, winner)
	assert.Equal(t, rated.ID, winner.ID)
}

func TestRegisterAppliesDefaultMaxLoad(t *testing.T) {
	registry := NewAgentRegistry()
	agent := registry.register(AgentCreateInput{Name: "A"}, 7)
	assert.Equal(t, 7, agent.MaxLoad)
	assert.Equal(t, domain.AgentStatusAvailable, agent.Status)
}

func TestRecordReleaseNeverGoesNegative(t *testing.T) {
	registry := NewAgentRegistry()
	agent := registry.register(AgentCreateInput{Name: "A", MaxLoad: 5}, 5)

	registry.recordRelease(agent.ID)
	assert.Equal(t, 0, agent.CurrentLoad)
}

func TestRunningAverages(t *testing.T) {
	registry := NewAgentRegistry()
	agent := registry.register(AgentCreateInput{Name: "A", MaxLoad: 5}, 5)

	registry.recordResponseTime(agent.ID, 60)
	registry.recordResponseTime(agent.ID, 120)
	assert.InDelta(t, 90, agent.Stats.AvgResponseSec, 0.001)
	assert.Equal(t, 2, agent.Stats.Responses)

	registry.recordResolution(agent.ID, 600)
	registry.recordResolution(agent.ID, 1200)
	assert.InDelta(t, 900, agent.Stats.AvgResolutionSec, 0.001)

	registry.recordSatisfaction(agent.ID, 1.0)
	registry.recordSatisfaction(agent.ID, 0.5)
	require.NotNil(t, agent.Stats.SatisfactionScore)
	assert.InDelta(t, 0.75, *agent.Stats.SatisfactionScore, 0.001)
}

func TestSatisfactionDefaultsToNeutral(t *testing.T) {
	agent := domain.Agent{}
	assert.InDelta(t, 0.5, agent.Satisfaction(), 0.001)
}
