package events

// AgentState is one of the finite set of states the Controller's state
// machine can occupy.
type AgentState string

const (
	AgentStateLoading                  AgentState = "LOADING"
	AgentStateInit                      AgentState = "INIT"
	AgentStateRunning                   AgentState = "RUNNING"
	AgentStateAwaitingUserInput         AgentState = "AWAITING_USER_INPUT"
	AgentStateAwaitingUserConfirmation AgentState = "AWAITING_USER_CONFIRMATION"
	AgentStateUserConfirmed             AgentState = "USER_CONFIRMED"
	AgentStateUserRejected              AgentState = "USER_REJECTED"
	AgentStateFinished                  AgentState = "FINISHED"
	AgentStateStopped                   AgentState = "STOPPED"
	AgentStateError                     AgentState = "ERROR"
	AgentStatePaused                    AgentState = "PAUSED"
	AgentStateRejected                  AgentState = "REJECTED"
)

// terminal states end the Controller's loop for the session.
var terminalStates = map[AgentState]bool{
	AgentStateFinished: true,
	AgentStateStopped:  true,
	AgentStateError:    true,
	AgentStateRejected: true,
}

// IsTerminal reports whether this state ends the controller loop.
func (s AgentState) IsTerminal() bool {
	return terminalStates[s]
}

// legalTransitions enumerates the edges the Controller will accept from
// set_agent_state_to / ChangeAgentStateAction. Absent a stricter domain
// rule, any non-terminal state may move to any other state; terminal
// states only accept a transition back to RUNNING (resume) or to
// LOADING (full restart), matching the teacher's executor resume flow.
func (s AgentState) CanTransitionTo(target AgentState) bool {
	if s == target {
		return true
	}
	if !s.IsTerminal() {
		return true
	}
	return target == AgentStateRunning || target == AgentStateLoading
}
