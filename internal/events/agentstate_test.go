package events

import "testing"

func TestAgentStateIsTerminal(t *testing.T) {
	cases := []struct {
		state AgentState
		want  bool
	}{
		{AgentStateLoading, false},
		{AgentStateRunning, false},
		{AgentStateAwaitingUserInput, false},
		{AgentStateFinished, true},
		{AgentStateStopped, true},
		{AgentStateError, true},
		{AgentStateRejected, true},
	}
	for _, c := range cases {
		if got := c.state.IsTerminal(); got != c.want {
			t.Errorf("%s.IsTerminal() = %v, want %v", c.state, got, c.want)
		}
	}
}

func TestAgentStateCanTransitionTo(t *testing.T) {
	if !AgentStateRunning.CanTransitionTo(AgentStateAwaitingUserInput) {
		t.Error("a non-terminal state should be able to move to any other state")
	}
	if !AgentStateFinished.CanTransitionTo(AgentStateRunning) {
		t.Error("a terminal state should be resumable back to RUNNING")
	}
	if !AgentStateFinished.CanTransitionTo(AgentStateLoading) {
		t.Error("a terminal state should accept a restart to LOADING")
	}
	if AgentStateFinished.CanTransitionTo(AgentStateAwaitingUserInput) {
		t.Error("a terminal state should not accept arbitrary transitions")
	}
	if !AgentStateFinished.CanTransitionTo(AgentStateFinished) {
		t.Error("a state should always be able to transition to itself")
	}
}
