package service

import (
	"time"

	"github.com/spec-kit/escalation-engine/internal/domain"
)

// StatsPeriod selects the trailing window for aggregation.
type StatsPeriod string

const (
	StatsPeriodHour  StatsPeriod = "hour"
	StatsPeriodDay   StatsPeriod = "day"
	StatsPeriodWeek  StatsPeriod = "week"
	StatsPeriodMonth StatsPeriod = "month"
)

// Window returns the period's duration. Unknown periods fall back to a day.
func (p StatsPeriod) Window() time.Duration {
	switch p {
	case StatsPeriodHour:
		return time.Hour
	case StatsPeriodDay:
		return 24 * time.Hour
	case StatsPeriodWeek:
		return 7 * 24 * time.Hour
	case StatsPeriodMonth:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// TicketStats aggregates windowed figures over the ticket table.
type TicketStats struct {
	Period            StatsPeriod                   `json:"period"`
	Total             int                           `json:"total"`
	ByStatus          map[domain.TicketStatus]int   `json:"by_status"`
	ByPriority        map[domain.TicketPriority]int `json:"by_priority"`
	Breached          int                           `json:"breached"`
	AvgResponseSec    float64                       `json:"avg_response_seconds"`
	AvgResolutionSec  float64                       `json:"avg_resolution_seconds"`
	ResolvedInWindow  int                           `json:"resolved_in_window"`
	RespondedInWindow int                           `json:"responded_in_window"`
}

// MetricsService is a read-only observer over the ticket store. Averages are
// recomputed per call over the window, which stays cheap at the engine's
// bounded ticket volumes.
type MetricsService struct {
	store *TicketStore
	now   func() time.Time
}

// NewMetricsService constructs the aggregator.
func NewMetricsService(store *TicketStore) *MetricsService {
	return &MetricsService{store: store, now: time.Now}
}

// GetStats aggregates over tickets created within the trailing window.
func (m *MetricsService) GetStats(period StatsPeriod) TicketStats {
	cutoff := m.now().Add(-period.Window())
	stats := TicketStats{
		Period:     period,
		ByStatus:   make(map[domain.TicketStatus]int),
		ByPriority: make(map[domain.TicketPriority]int),
	}

	var responseTotal, resolutionTotal float64
	for _, ticket := range m.store.ListTickets(TicketFilter{}) {
		if ticket.CreatedAt.Before(cutoff) {
			continue
		}
		stats.Total++
		stats.ByStatus[ticket.Status]++
		stats.ByPriority[ticket.Priority]++
		if ticket.SLA.Breached() {
			stats.Breached++
		}
		if ticket.SLA.ResponseTime != nil {
			stats.RespondedInWindow++
			responseTotal += ticket.SLA.ResponseTime.Seconds()
		}
		if ticket.Status == domain.TicketStatusResolved || ticket.Status == domain.TicketStatusClosed {
			if ticket.SLA.ResolutionTime != nil {
				stats.ResolvedInWindow++
				resolutionTotal += ticket.SLA.ResolutionTime.Seconds()
			}
		}
	}
	if stats.RespondedInWindow > 0 {
		stats.AvgResponseSec = responseTotal / float64(stats.RespondedInWindow)
	}
	if stats.ResolvedInWindow > 0 {
		stats.AvgResolutionSec = resolutionTotal / float64(stats.ResolvedInWindow)
	}
	return stats
}
