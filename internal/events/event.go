// Package events implements the durable, ordered, multi-subscriber event
// stream that coordinates the agent, the controller, and the runtime.
package events

import (
	"encoding/json"
	"time"
)

// Source identifies who originated an event.
type Source string

const (
	SourceUser        Source = "USER"
	SourceAgent       Source = "AGENT"
	SourceEnvironment Source = "ENVIRONMENT"
)

// Type distinguishes the two halves of the event model.
type Type string

const (
	TypeAction      Type = "action"
	TypeObservation Type = "observation"
)

// Kind tags the concrete variant carried in an event's payload.
type Kind string

const (
	KindMessage           Kind = "Message"
	KindCmdRun            Kind = "CmdRun"
	KindFileRead          Kind = "FileRead"
	KindFileEdit          Kind = "FileEdit"
	KindIPythonRunCell    Kind = "IPythonRunCell"
	KindBrowseURL         Kind = "BrowseURL"
	KindBrowseInteractive Kind = "BrowseInteractive"
	KindAgentDelegate     Kind = "AgentDelegate"
	KindAgentFinish       Kind = "AgentFinish"
	KindAgentThink        Kind = "AgentThink"
	KindChangeAgentState  Kind = "ChangeAgentState"
	KindCondensation      Kind = "Condensation"
	KindMCPCallTool       Kind = "MCPCallTool"
	KindRecall            Kind = "Recall"

	KindCmdOutput            Kind = "CmdOutput"
	KindError                Kind = "Error"
	KindAgentStateChanged    Kind = "AgentStateChanged"
	KindAgentDelegateResult  Kind = "AgentDelegateObservation"
	KindMCPObservation       Kind = "MCPObservation"
	KindUserRejected         Kind = "UserRejected"
	KindBrowserOutput        Kind = "BrowserOutput"
)

// ToolCallMetadata links an event back to the LLM call that produced it.
type ToolCallMetadata struct {
	ToolCallID           string          `json:"tool_call_id"`
	FunctionName         string          `json:"function_name"`
	ModelResponse        json.RawMessage `json:"model_response,omitempty"`
	TotalCallsInResponse int             `json:"total_calls_in_response,omitempty"`
}

// Event is the envelope every Action and Observation is wrapped in before
// it is appended to the stream. Fields are set by the stream on append;
// callers construct only Action/Observation payloads.
type Event struct {
	ID               int64             `json:"id"`
	Timestamp        time.Time         `json:"timestamp"`
	Source           Source            `json:"source"`
	Cause            *int64            `json:"cause,omitempty"`
	Type             Type              `json:"type"`
	Kind             Kind              `json:"kind"`
	Payload          json.RawMessage   `json:"payload"`
	ToolCallMetadata *ToolCallMetadata `json:"tool_call_metadata,omitempty"`
	ResponseID       *string           `json:"response_id,omitempty"`

	action      Action
	observation Observation
}

// Action returns the decoded action payload, or nil if this event is an
// Observation.
func (e *Event) Action() Action {
	return e.action
}

// Observation returns the decoded observation payload, or nil if this
// event is an Action.
func (e *Event) Observation() Observation {
	return e.observation
}

// IsAction reports whether this event carries an Action payload.
func (e *Event) IsAction() bool {
	return e.Type == TypeAction
}

// IsObservation reports whether this event carries an Observation payload.
func (e *Event) IsObservation() bool {
	return e.Type == TypeObservation
}

// NewActionEvent wraps an Action in an Event envelope ready for append.
// id, timestamp, and source are assigned by the stream.
func NewActionEvent(source Source, action Action) *Event {
	return &Event{
		Source: source,
		Type:   TypeAction,
		Kind:   action.ActionKind(),
		action: action,
	}
}

// NewObservationEvent wraps an Observation in an Event envelope, setting
// Cause to the id of the action it responds to.
func NewObservationEvent(source Source, cause int64, obs Observation) *Event {
	c := cause
	return &Event{
		Source:      source,
		Cause:       &c,
		Type:        TypeObservation,
		Kind:        obs.ObservationKind(),
		observation: obs,
	}
}
