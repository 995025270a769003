package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/escalation-engine/internal/observability"
)

// Event names carried in the notification envelope.
const (
	EventNewTicket      = "new_ticket"
	EventTicketAssigned = "ticket_assigned"
	EventTicketResolved = "ticket_resolved"
	EventTicketClosed   = "ticket_closed"
	EventTicketReopened = "ticket_reopened"
	EventSLABreach      = "sla_breach"
	EventRuleTriggered  = "rule_triggered"
	// EventAll subscribes an endpoint to every event.
	EventAll = "all"
)

// Envelope is the wire format delivered to registered endpoints.
type Envelope struct {
	Event     string         `json:"event"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data"`
	Timestamp int64          `json:"timestamp"`
}

// Endpoint is a registered webhook receiver with its event subscriptions.
type Endpoint struct {
	ID     string   `json:"id"`
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

func (e Endpoint) wants(event string) bool {
	for _, sub := range e.Events {
		if sub == event || sub == EventAll {
			return true
		}
	}
	return false
}

// Notifier fans events out to registered webhook endpoints. Delivery is
// best-effort and at-most-once: each dispatch runs detached under its own
// deadline, failures are logged and never surface to the caller.
type Notifier struct {
	mu        sync.RWMutex
	endpoints []Endpoint

	client  *http.Client
	timeout time.Duration
	logger  *zap.Logger
	metrics *observability.Metrics

	wg     sync.WaitGroup
	closed chan struct{}
	once   sync.Once
}

// NewNotifier constructs a dispatcher with the given per-delivery timeout.
func NewNotifier(timeout time.Duration, logger *zap.Logger, metrics *observability.Metrics) *Notifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Notifier{
		client:  &http.Client{},
		timeout: timeout,
		logger:  logger,
		metrics: metrics,
		closed:  make(chan struct{}),
	}
}

// Register adds a webhook endpoint. An empty event list subscribes to all.
func (n *Notifier) Register(url string, events []string) Endpoint {
	if len(events) == 0 {
		events = []string{EventAll}
	}
	endpoint := Endpoint{ID: uuid.NewString(), URL: url, Events: events}
	n.mu.Lock()
	n.endpoints = append(n.endpoints, endpoint)
	n.mu.Unlock()
	return endpoint
}

// Endpoints returns the registered receivers.
func (n *Notifier) Endpoints() []Endpoint {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]Endpoint{}, n.endpoints...)
}

// Dispatch fans the event out to all subscribed endpoints. It returns
// immediately; delivery happens on detached goroutines tracked for shutdown.
// A nil notifier drops everything, which keeps callers free of guards.
func (n *Notifier) Dispatch(event, message string, data map[string]any) {
	if n == nil {
		return
	}
	select {
	case <-n.closed:
		return
	default:
	}

	envelope := Envelope{
		Event:     event,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		n.logger.Error("marshal notification", zap.String("event", event), zap.Error(err))
		return
	}

	n.mu.RLock()
	targets := make([]Endpoint, 0, len(n.endpoints))
	for _, endpoint := range n.endpoints {
		if endpoint.wants(event) {
			targets = append(targets, endpoint)
		}
	}
	n.mu.RUnlock()

	for _, target := range targets {
		n.wg.Add(1)
		go n.deliver(target, event, body)
	}
}

func (n *Notifier) deliver(target Endpoint, event string, body []byte) {
	defer n.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, bytes.NewReader(body))
	if err != nil {
		n.fail(target, event, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.fail(target, event, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.Error("notification rejected",
			zap.String("event", event),
			zap.String("url", target.URL),
			zap.Int("status", resp.StatusCode))
		n.metrics.RecordNotifyDispatch(true)
		return
	}
	n.metrics.RecordNotifyDispatch(false)
}

func (n *Notifier) fail(target Endpoint, event string, err error) {
	n.logger.Error("notification delivery failed",
		zap.String("event", event),
		zap.String("url", target.URL),
		zap.Error(err))
	n.metrics.RecordNotifyDispatch(true)
}

// Close stops accepting dispatches and waits up to grace for in-flight
// deliveries to drain.
func (n *Notifier) Close(grace time.Duration) {
	if n == nil {
		return
	}
	n.once.Do(func() { close(n.closed) })

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		n.logger.Warn("notification drain timed out", zap.Duration("grace", grace))
	}
}
