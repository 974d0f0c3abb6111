package events

// Observation is implemented by every observation payload variant.
type Observation interface {
	ObservationKind() Kind
}

// CmdOutputMetadata carries the framing data the Bash Session extracts
// from the shell's prompt marker (see internal/bash).
type CmdOutputMetadata struct {
	ExitCode    int    `json:"exit_code"`
	WorkingDir  string `json:"working_dir,omitempty"`
	Username    string `json:"username,omitempty"`
	Hostname    string `json:"hostname,omitempty"`
	Interpreter string `json:"interpreter,omitempty"`
	Prefix      string `json:"prefix,omitempty"`
	Suffix      string `json:"suffix,omitempty"`
}

// CmdOutputObservation is the result of a CmdRunAction.
type CmdOutputObservation struct {
	Content  string            `json:"content"`
	Metadata CmdOutputMetadata `json:"metadata"`
}

func (CmdOutputObservation) ObservationKind() Kind { return KindCmdOutput }

// FileReadObservation is the result of a FileReadAction.
type FileReadObservation struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (FileReadObservation) ObservationKind() Kind { return KindFileRead }

// FileEditObservation is the result of a FileEditAction.
type FileEditObservation struct {
	Path    string `json:"path"`
	Diff    string `json:"diff,omitempty"`
	Content string `json:"content,omitempty"`
}

func (FileEditObservation) ObservationKind() Kind { return KindFileEdit }

// ErrorObservation reports a non-fatal-to-the-stream failure. ErrorID
// classifies the failure for programmatic handling (see internal/controller
// error taxonomy); it is empty for ad hoc errors.
type ErrorObservation struct {
	Content string `json:"content"`
	ErrorID string `json:"error_id,omitempty"`
}

func (ErrorObservation) ObservationKind() Kind { return KindError }

// AgentStateChangedObservation reports a completed state transition.
type AgentStateChangedObservation struct {
	AgentState AgentState `json:"agent_state"`
	Reason     string     `json:"reason,omitempty"`
}

func (AgentStateChangedObservation) ObservationKind() Kind { return KindAgentStateChanged }

// AgentDelegateObservation carries a finished delegate's outputs back to
// the parent Controller.
type AgentDelegateObservation struct {
	Outputs map[string]any `json:"outputs,omitempty"`
	Content string         `json:"content,omitempty"`
}

func (AgentDelegateObservation) ObservationKind() Kind { return KindAgentDelegateResult }

// MCPObservation is the result of an MCPCallToolAction.
type MCPObservation struct {
	Content   string         `json:"content"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

func (MCPObservation) ObservationKind() Kind { return KindMCPObservation }

// UserRejectedObservation is emitted when the user rejects a runnable
// action proposed under confirmation mode.
type UserRejectedObservation struct {
	Content string `json:"content"`
}

func (UserRejectedObservation) ObservationKind() Kind { return KindUserRejected }

// CondensationObservation is the result of a CondensationAction.
type CondensationObservation struct {
	Content string `json:"content"`
}

func (CondensationObservation) ObservationKind() Kind { return KindCondensation }

// BrowserOutputObservation is the result of a browse action.
type BrowserOutputObservation struct {
	URL     string `json:"url"`
	Content string `json:"content"`
	Error   bool   `json:"error,omitempty"`
}

func (BrowserOutputObservation) ObservationKind() Kind { return KindBrowserOutput }
