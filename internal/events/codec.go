package events

import (
	"encoding/json"
	"fmt"
)

// actionFactories and observationFactories back the Kind-tag dispatch
// used by MarshalJSON/UnmarshalJSON, mirroring the teacher's practice
// (internal/events) of keying typed payload decoding off a string tag
// rather than reflection over registered Go types.
var actionFactories = map[Kind]func() Action{
	KindMessage:           func() Action { return &MessageAction{} },
	KindCmdRun:            func() Action { return &CmdRunAction{} },
	KindFileRead:          func() Action { return &FileReadAction{} },
	KindFileEdit:          func() Action { return &FileEditAction{} },
	KindIPythonRunCell:    func() Action { return &IPythonRunCellAction{} },
	KindBrowseURL:         func() Action { return &BrowseURLAction{} },
	KindBrowseInteractive: func() Action { return &BrowseInteractiveAction{} },
	KindAgentDelegate:     func() Action { return &AgentDelegateAction{} },
	KindAgentFinish:       func() Action { return &AgentFinishAction{} },
	KindAgentThink:        func() Action { return &AgentThinkAction{} },
	KindChangeAgentState:  func() Action { return &ChangeAgentStateAction{} },
	KindCondensation:      func() Action { return &CondensationAction{} },
	KindMCPCallTool:       func() Action { return &MCPCallToolAction{} },
	KindRecall:            func() Action { return &RecallAction{} },
}

var observationFactories = map[Kind]func() Observation{
	KindCmdOutput:           func() Observation { return &CmdOutputObservation{} },
	KindFileRead:            func() Observation { return &FileReadObservation{} },
	KindFileEdit:            func() Observation { return &FileEditObservation{} },
	KindError:               func() Observation { return &ErrorObservation{} },
	KindAgentStateChanged:   func() Observation { return &AgentStateChangedObservation{} },
	KindAgentDelegateResult: func() Observation { return &AgentDelegateObservation{} },
	KindMCPObservation:      func() Observation { return &MCPObservation{} },
	KindUserRejected:        func() Observation { return &UserRejectedObservation{} },
	KindCondensation:        func() Observation { return &CondensationObservation{} },
	KindBrowserOutput:       func() Observation { return &BrowserOutputObservation{} },
}

// MarshalJSON serializes the event envelope with its payload encoded
// under "payload", matching the stable shape documented in SPEC_FULL.md
// §6.
func (e *Event) MarshalJSON() ([]byte, error) {
	type alias Event
	payload := e.Payload
	if payload == nil {
		var v any
		switch e.Type {
		case TypeAction:
			v = e.action
		case TypeObservation:
			v = e.observation
		}
		if v != nil {
			encoded, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("events: marshal payload for kind %s: %w", e.Kind, err)
			}
			payload = encoded
		}
	}
	return json.Marshal(&struct {
		*alias
		Payload json.RawMessage `json:"payload"`
	}{alias: (*alias)(e), Payload: payload})
}

// UnmarshalJSON decodes the envelope and, using the Type/Kind tags,
// decodes Payload into the concrete Action or Observation variant.
func (e *Event) UnmarshalJSON(data []byte) error {
	type alias Event
	aux := &struct{ *alias }{alias: (*alias)(e)}
	if err := json.Unmarshal(data, aux); err != nil {
		return fmt.Errorf("events: unmarshal envelope: %w", err)
	}
	switch e.Type {
	case TypeAction:
		factory, ok := actionFactories[e.Kind]
		if !ok {
			return fmt.Errorf("events: unknown action kind %q", e.Kind)
		}
		action := factory()
		if len(e.Payload) > 0 {
			if err := json.Unmarshal(e.Payload, action); err != nil {
				return fmt.Errorf("events: unmarshal action payload for kind %s: %w", e.Kind, err)
			}
		}
		e.action = action
	case TypeObservation:
		factory, ok := observationFactories[e.Kind]
		if !ok {
			return fmt.Errorf("events: unknown observation kind %q", e.Kind)
		}
		obs := factory()
		if len(e.Payload) > 0 {
			if err := json.Unmarshal(e.Payload, obs); err != nil {
				return fmt.Errorf("events: unmarshal observation payload for kind %s: %w", e.Kind, err)
			}
		}
		e.observation = obs
	default:
		return fmt.Errorf("events: unknown event type %q", e.Type)
	}
	return nil
}

// Filter is a predicate applied by EventStream.GetEvents before an event
// is yielded to the caller, mirroring the teacher's EventFilter idiom in
// spirit (a composable predicate over the envelope) but over the
// Action/Observation event model rather than telemetry AgentEvents.
type Filter func(*Event) bool

// And composes filters with logical AND; a nil filter matches everything.
func And(filters ...Filter) Filter {
	return func(e *Event) bool {
		for _, f := range filters {
			if f != nil && !f(e) {
				return false
			}
		}
		return true
	}
}

// WithSource returns a Filter matching events from the given source.
func WithSource(source Source) Filter {
	return func(e *Event) bool { return e.Source == source }
}

// WithKind returns a Filter matching events of the given kind.
func WithKind(kind Kind) Filter {
	return func(e *Event) bool { return e.Kind == kind }
}
