// Package statemachine implements the Execution State Machine (C5):
// a legal-transition-gated state holder with multi-subscriber fan-out,
// grounded on the teacher's CircuitBreaker
// (pkg/resilience/circuit_breaker.go) — mutex-guarded state plus
// stateChangedTime plus an onStateChange callback — generalized from
// three circuit states to the execution lifecycle's six, and from a
// single callback to broadcast fan-out.
package statemachine

import (
	"sync"
	"time"

	"github.com/rubentxu/hodei-pipelines/internal/domain"
)

// State is one point in an execution's lifecycle.
type State string

const (
	Created   State = "CREATED"
	Assigned  State = "ASSIGNED"
	Started   State = "STARTED"
	Completed State = "COMPLETED"
	Failed    State = "FAILED"
	Cancelled State = "CANCELLED"
)

// IsTerminal reports whether state is a sink state.
func (s State) IsTerminal() bool {
	switch s {
	case Completed, Failed, Cancelled:
		return true
	default:
		return false
	}
}

// legal holds the transition table: CREATED->ASSIGNED->STARTED->{COMPLETED|FAILED},
// and any non-terminal state may transition to CANCELLED.
var legal = map[State]map[State]bool{
	Created:  {Assigned: true, Cancelled: true},
	Assigned: {Started: true, Completed: true, Failed: true, Cancelled: true},
	Started:  {Completed: true, Failed: true, Cancelled: true},
}

// JobStatus maps a State onto domain.JobStatus.
func (s State) JobStatus() domain.JobStatus {
	switch s {
	case Assigned, Started:
		return domain.JobRunning
	case Completed:
		return domain.JobCompleted
	case Failed:
		return domain.JobFailed
	case Cancelled:
		return domain.JobCancelled
	default:
		return domain.JobQueued
	}
}

// Transition is one state change delivered to subscribers.
type Transition struct {
	State     State
	MessageID string
	Metadata  map[string]interface{}
	At        time.Time
}

// StateMachine is one execution's lifecycle tracker.
type StateMachine struct {
	mu          sync.RWMutex
	state       State
	changedAt   time.Time
	pendingAcks map[string]State
	subs        []chan Transition
}

// New constructs a StateMachine in the CREATED state.
func New() *StateMachine {
	return &StateMachine{
		state:       Created,
		changedAt:   time.Now(),
		pendingAcks: make(map[string]State),
	}
}

// TransitionTo attempts the transition, returning false without side
// effects if illegal. If requiresAck is set, messageID is
// recorded as a pending acknowledgement the Engine may later clear.
func (sm *StateMachine) TransitionTo(state State, messageID string, requiresAck bool, metadata map[string]interface{}) bool {
	sm.mu.Lock()
	if sm.state.IsTerminal() {
		sm.mu.Unlock()
		return false
	}
	if !legal[sm.state][state] {
		sm.mu.Unlock()
		return false
	}
	sm.state = state
	sm.changedAt = time.Now()
	if requiresAck && messageID != "" {
		sm.pendingAcks[messageID] = state
	}
	subs := append([]chan Transition(nil), sm.subs...)
	sm.mu.Unlock()

	tr := Transition{State: state, MessageID: messageID, Metadata: metadata, At: time.Now()}
	for _, ch := range subs {
		select {
		case ch <- tr:
		default:
			// a slow subscriber must never block a transition; it misses this event.
		}
	}
	return true
}

// Current returns the current state.
func (sm *StateMachine) Current() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.state
}

// JobStatus maps the current state onto domain.JobStatus.
func (sm *StateMachine) JobStatus() domain.JobStatus {
	return sm.Current().JobStatus()
}

// Subscribe returns a channel receiving every subsequent transition.
// Multi-subscriber fan-out is preferred over single-subscriber collapsing;
// each subscriber gets its own buffered channel so a slow
// reader drops events rather than stalling the machine.
func (sm *StateMachine) Subscribe() <-chan Transition {
	ch := make(chan Transition, 16)
	sm.mu.Lock()
	sm.subs = append(sm.subs, ch)
	sm.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscription registered via Subscribe.
func (sm *StateMachine) Unsubscribe(ch <-chan Transition) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for i, c := range sm.subs {
		if c == ch {
			sm.subs = append(sm.subs[:i], sm.subs[i+1:]...)
			close(c)
			return
		}
	}
}

// ClearAck removes a pending acknowledgement, returning whether it was
// present. The state machine never times out acks itself; that is the
// Engine's responsibility.
func (sm *StateMachine) ClearAck(messageID string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if _, ok := sm.pendingAcks[messageID]; !ok {
		return false
	}
	delete(sm.pendingAcks, messageID)
	return true
}

// PendingAcks returns a snapshot of outstanding message ids awaiting ack.
func (sm *StateMachine) PendingAcks() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	ids := make([]string, 0, len(sm.pendingAcks))
	for id := range sm.pendingAcks {
		ids = append(ids, id)
	}
	return ids
}
