// Package events implements the Event Subscription Bus (C7): a
// subscriptionId -> (executionId, filter, sink) map with fire-and-forget,
// bounded-buffered delivery so a slow subscriber never back-pressures the
// Execution Engine. Grounded on the teacher's pkg/resilience circuit
// breaker state-change callback pattern, generalized to many independent
// buffered consumers instead of one synchronous callback.
package events

import (
	"sync"

	"github.com/google/uuid"

	"github.com/rubentxu/hodei-pipelines/internal/domain"
	"github.com/rubentxu/hodei-pipelines/internal/logging"
)

// DefaultBufferSize is the per-subscriber queue depth applied when a
// Subscription does not specify one.
const DefaultBufferSize = 64

// Sink receives delivered events/logs for one subscription. Deliver
// methods run on the bus's own pump goroutine and must not block for long.
type Sink interface {
	DeliverEvent(domain.ExecutionEvent)
	DeliverLog(domain.ExecutionLog)
}

type subscriber struct {
	sub      domain.Subscription
	sink     Sink
	eventBuf *boundedBuffer[domain.ExecutionEvent]
	logBuf   *boundedBuffer[domain.ExecutionLog]
}

// Bus is the Event Subscription Bus.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]*subscriber
	log  *logging.Logger
}

// New constructs an empty Bus.
func New(log *logging.Logger) *Bus {
	return &Bus{
		subs: make(map[string]*subscriber),
		log:  log.WithComponent("event-bus"),
	}
}

// Subscribe registers sink for sub's execution id and event-type filter,
// returning a fresh subscription id.
func (b *Bus) Subscribe(sub domain.Subscription, sink Sink) string {
	size := sub.Buffer
	if size <= 0 {
		size = DefaultBufferSize
	}
	policy := DropOldest
	if sub.Policy == domain.DropNewest {
		policy = DropNewest
	}

	id := uuid.NewString()
	sub.ID = id
	s := &subscriber{
		sub:      sub,
		sink:     sink,
		eventBuf: newBoundedBuffer[domain.ExecutionEvent](size, policy),
		logBuf:   newBoundedBuffer[domain.ExecutionLog](size, policy),
	}

	b.mu.Lock()
	b.subs[id] = s
	b.mu.Unlock()

	go s.pumpEvents()
	go s.pumpLogs()

	return id
}

func (s *subscriber) pumpEvents() {
	for {
		ev, ok := s.eventBuf.pop()
		if !ok {
			return
		}
		s.sink.DeliverEvent(ev)
	}
}

func (s *subscriber) pumpLogs() {
	for {
		lg, ok := s.logBuf.pop()
		if !ok {
			return
		}
		s.sink.DeliverLog(lg)
	}
}

// Unsubscribe removes one subscription by id.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	s, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()

	if ok {
		s.eventBuf.close()
		s.logBuf.close()
	}
}

// NotifyEvent fans ev out to every subscription matching execID and the
// event's type filter. Fire-and-forget: always returns immediately.
func (b *Bus) NotifyEvent(execID string, ev domain.ExecutionEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		if s.sub.ExecutionID != execID || !s.sub.Matches(ev.Type) {
			continue
		}
		s.eventBuf.push(ev)
	}
}

// NotifyLog fans log out to every subscription matching execID.
func (b *Bus) NotifyLog(execID string, log domain.ExecutionLog) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		if s.sub.ExecutionID != execID {
			continue
		}
		s.logBuf.push(log)
	}
}

// CleanupExecution removes every subscription registered for execID.
func (b *Bus) CleanupExecution(execID string) {
	b.mu.Lock()
	var drop []*subscriber
	for id, s := range b.subs {
		if s.sub.ExecutionID == execID {
			drop = append(drop, s)
			delete(b.subs, id)
		}
	}
	b.mu.Unlock()

	for _, s := range drop {
		s.eventBuf.close()
		s.logBuf.close()
	}
}
