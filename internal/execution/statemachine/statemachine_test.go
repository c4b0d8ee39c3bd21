package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubentxu/hodei-pipelines/internal/domain"
)

func TestLegalTransitionPath(t *testing.T) {
	sm := New()
	assert.Equal(t, Created, sm.Current())

	assert.True(t, sm.TransitionTo(Assigned, "msg-1", true, nil))
	assert.Equal(t, Assigned, sm.Current())
	assert.Equal(t, domain.JobRunning, sm.JobStatus())

	assert.True(t, sm.TransitionTo(Started, "", false, nil))
	assert.Equal(t, Started, sm.Current())

	assert.True(t, sm.TransitionTo(Completed, "", false, nil))
	assert.Equal(t, Completed, sm.Current())
	assert.Equal(t, domain.JobCompleted, sm.JobStatus())
}

func TestIllegalTransitionIsNoOp(t *testing.T) {
	sm := New()
	require.True(t, sm.TransitionTo(Assigned, "", false, nil))

	ok := sm.TransitionTo(Completed, "", false, nil)
	assert.False(t, ok, "ASSIGNED->COMPLETED skips STARTED and is illegal")
	assert.Equal(t, Assigned, sm.Current(), "state must be unchanged on an illegal transition")
}

func TestTerminalStatesAreSinks(t *testing.T) {
	sm := New()
	require.True(t, sm.TransitionTo(Cancelled, "", false, nil))

	assert.False(t, sm.TransitionTo(Assigned, "", false, nil))
	assert.False(t, sm.TransitionTo(Started, "", false, nil))
	assert.Equal(t, Cancelled, sm.Current())
}

func TestCancelFromAnyNonTerminalState(t *testing.T) {
	for _, start := range []State{Created, Assigned, Started} {
		sm := New()
		switch start {
		case Assigned:
			require.True(t, sm.TransitionTo(Assigned, "", false, nil))
		case Started:
			require.True(t, sm.TransitionTo(Assigned, "", false, nil))
			require.True(t, sm.TransitionTo(Started, "", false, nil))
		}
		assert.True(t, sm.TransitionTo(Cancelled, "", false, nil), "cancel must be legal from %s", start)
	}
}

func TestPendingAckLifecycle(t *testing.T) {
	sm := New()
	require.True(t, sm.TransitionTo(Assigned, "corr-1", true, nil))
	assert.Equal(t, []string{"corr-1"}, sm.PendingAcks())

	assert.True(t, sm.ClearAck("corr-1"))
	assert.Empty(t, sm.PendingAcks())
	assert.False(t, sm.ClearAck("corr-1"), "clearing twice reports absence")
}

func TestSubscribeReceivesTransitions(t *testing.T) {
	sm := New()
	ch := sm.Subscribe()

	require.True(t, sm.TransitionTo(Assigned, "", false, nil))
	tr := <-ch
	assert.Equal(t, Assigned, tr.State)

	sm.Unsubscribe(ch)
	_, open := <-ch
	assert.False(t, open)
}

func TestMultiSubscriberFanOut(t *testing.T) {
	sm := New()
	a := sm.Subscribe()
	b := sm.Subscribe()

	require.True(t, sm.TransitionTo(Assigned, "", false, nil))

	ta := <-a
	tb := <-b
	assert.Equal(t, Assigned, ta.State)
	assert.Equal(t, Assigned, tb.State)
}
