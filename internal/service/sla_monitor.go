package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SLAMonitor drives breach detection on a fixed cadence. Each tick runs one
// scan-and-flag pass under the store's lock, then dispatches notifications
// for newly flagged breaches outside it. The monitor never takes corrective
// action: no reassignment, no priority changes.
type SLAMonitor struct {
	store    *TicketStore
	interval time.Duration
	logger   *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewSLAMonitor constructs the monitor.
func NewSLAMonitor(store *TicketStore, interval time.Duration, logger *zap.Logger) *SLAMonitor {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &SLAMonitor{
		store:    store,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start launches the periodic scan. Call Stop to cancel it.
func (m *SLAMonitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	go m.run(ctx)
}

func (m *SLAMonitor) run(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("sla monitor started", zap.Duration("interval", m.interval))
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("sla monitor stopped")
			return
		case <-ticker.C:
			m.Tick()
		}
	}
}

// Tick performs one scan pass. Exposed so operators and tests can force a
// scan without waiting out the interval.
func (m *SLAMonitor) Tick() {
	events := m.store.ScanBreaches()
	for _, event := range events {
		m.logger.Warn("sla breach detected",
			zap.String("ticket_id", event.TicketID),
			zap.String("type", event.Type),
			zap.String("priority", string(event.Priority)))
		m.store.DispatchBreach(event)
	}
}

// Stop cancels the loop and waits for the current pass to finish.
func (m *SLAMonitor) Stop() {
	m.once.Do(func() {
		if m.cancel != nil {
			m.cancel()
			<-m.done
		}
	})
}
