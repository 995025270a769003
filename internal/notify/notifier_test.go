package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/escalation-engine/internal/observability"
)

type capture struct {
	mu        sync.Mutex
	envelopes []Envelope
}

func (c *capture) handler(w http.ResponseWriter, r *http.Request) {
	var env Envelope
	_ = json.NewDecoder(r.Body).Decode(&env)
	c.mu.Lock()
	c.envelopes = append(c.envelopes, env)
	c.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (c *capture) received() []Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Envelope{}, c.envelopes...)
}

func TestDispatchDeliversEnvelope(t *testing.T) {
	received := &capture{}
	server := httptest.NewServer(http.HandlerFunc(received.handler))
	defer server.Close()

	notifier := NewNotifier(time.Second, zap.NewNop(), observability.NewMetrics())
	notifier.Register(server.URL, []string{EventSLABreach})

	notifier.Dispatch(EventSLABreach, "deadline passed", map[string]any{"ticket_id": "t-1"})
	notifier.Close(time.Second)

	envelopes := received.received()
	require.Len(t, envelopes, 1)
	assert.Equal(t, EventSLABreach, envelopes[0].Event)
	assert.Equal(t, "deadline passed", envelopes[0].Message)
	assert.Equal(t, "t-1", envelopes[0].Data["ticket_id"])
	assert.NotZero(t, envelopes[0].Timestamp)
}

func TestDispatchFiltersBySubscription(t *testing.T) {
	received := &capture{}
	server := httptest.NewServer(http.HandlerFunc(received.handler))
	defer server.Close()

	notifier := NewNotifier(time.Second, zap.NewNop(), observability.NewMetrics())
	notifier.Register(server.URL, []string{EventSLABreach})

	notifier.Dispatch(EventNewTicket, "ignored", nil)
	notifier.Dispatch(EventSLABreach, "delivered", nil)
	notifier.Close(time.Second)

	envelopes := received.received()
	require.Len(t, envelopes, 1)
	assert.Equal(t, EventSLABreach, envelopes[0].Event)
}

func TestRegisterEmptyEventsSubscribesAll(t *testing.T) {
	received := &capture{}
	server := httptest.NewServer(http.HandlerFunc(received.handler))
	defer server.Close()

	notifier := NewNotifier(time.Second, zap.NewNop(), observability.NewMetrics())
	endpoint := notifier.Register(server.URL, nil)
	assert.Equal(t, []string{EventAll}, endpoint.Events)

	notifier.Dispatch(EventNewTicket, "a", nil)
	notifier.Dispatch(EventTicketClosed, "b", nil)
	notifier.Close(time.Second)

	assert.Len(t, received.received(), 2)
}

func TestDispatchFailureDoesNotSurface(t *testing.T) {
	metrics := observability.NewMetrics()
	notifier := NewNotifier(200*time.Millisecond, zap.NewNop(), metrics)
	notifier.Register("http://127.0.0.1:1/unreachable", []string{EventAll})

	notifier.Dispatch(EventNewTicket, "lost", nil)
	notifier.Close(time.Second)

	counters := metrics.Snapshot()
	assert.Equal(t, int64(1), counters["notify_failures"])
}

func TestDispatchCountsRejectedResponses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	metrics := observability.NewMetrics()
	notifier := NewNotifier(time.Second, zap.NewNop(), metrics)
	notifier.Register(server.URL, []string{EventAll})

	notifier.Dispatch(EventNewTicket, "rejected", nil)
	notifier.Close(time.Second)

	counters := metrics.Snapshot()
	assert.Equal(t, int64(1), counters["notify_dispatched"])
	assert.Equal(t, int64(1), counters["notify_failures"])
}

func TestDispatchAfterCloseIsDropped(t *testing.T) {
	received := &capture{}
	server := httptest.NewServer(http.HandlerFunc(received.handler))
	defer server.Close()

	notifier := NewNotifier(time.Second, zap.NewNop(), observability.NewMetrics())
	notifier.Register(server.URL, []string{EventAll})
	notifier.Close(time.Second)

	notifier.Dispatch(EventNewTicket, "too late", nil)
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, received.received())
}

func TestNilNotifierIsSafe(t *testing.T) {
	var notifier *Notifier
	notifier.Dispatch(EventNewTicket, "dropped", nil)
	notifier.Close(time.Second)
}
