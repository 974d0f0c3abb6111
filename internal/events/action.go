package events

// Action is implemented by every action payload variant. Runnable reports
// whether the runtime must execute it; not every action produces a side
// effect (AgentThink, for instance, is never runnable).
type Action interface {
	ActionKind() Kind
	Runnable() bool
}

// MessageAction carries a chat message, from either the user or the agent.
type MessageAction struct {
	Content          string  `json:"content"`
	Thought          string  `json:"thought,omitempty"`
	ReasoningContent *string `json:"reasoning_content,omitempty"`
}

func (MessageAction) ActionKind() Kind { return KindMessage }
func (MessageAction) Runnable() bool   { return false }

// FileEditSource distinguishes the file-editing style used by FileRead.
type FileEditSource string

const (
	FileEditSourceDefault FileEditSource = "default"
	FileEditSourceOHACI   FileEditSource = "OH_ACI"
)

// CmdRunAction requests execution of a shell command, or delivery of
// input to an already-running interactive command when IsInput is true.
type CmdRunAction struct {
	Command      string  `json:"command"`
	IsInput      bool    `json:"is_input"`
	HardTimeout  *int    `json:"hard_timeout,omitempty"`
	Thought      string  `json:"thought,omitempty"`
	ResetSession bool    `json:"reset_session,omitempty"`
}

func (CmdRunAction) ActionKind() Kind { return KindCmdRun }
func (CmdRunAction) Runnable() bool   { return true }

// ViewRange is an inclusive [start, end] line range, 1-indexed; end of -1
// means "to the end of the file".
type ViewRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// FileReadAction requests the content of a file (optionally a sub-range).
type FileReadAction struct {
	Path      string         `json:"path"`
	ViewRange *ViewRange     `json:"view_range,omitempty"`
	Source    FileEditSource `json:"source,omitempty"`
	Thought   string         `json:"thought,omitempty"`
}

func (FileReadAction) ActionKind() Kind { return KindFileRead }
func (FileReadAction) Runnable() bool   { return true }

// FileEditAction requests a file be written or patched. Either Content is
// set (full overwrite) or Command/OldStr/NewStr/InsertLine/FileText carry
// an ACI-style structured edit.
type FileEditAction struct {
	Path       string  `json:"path"`
	Content    *string `json:"content,omitempty"`
	Command    string  `json:"command,omitempty"`
	OldStr     string  `json:"old_str,omitempty"`
	NewStr     string  `json:"new_str,omitempty"`
	InsertLine *int    `json:"insert_line,omitempty"`
	FileText   string  `json:"file_text,omitempty"`
	Thought    string  `json:"thought,omitempty"`
}

func (FileEditAction) ActionKind() Kind { return KindFileEdit }
func (FileEditAction) Runnable() bool   { return true }

// IPythonRunCellAction requests execution of a Jupyter-style code cell.
type IPythonRunCellAction struct {
	Code    string `json:"code"`
	Thought string `json:"thought,omitempty"`
}

func (IPythonRunCellAction) ActionKind() Kind { return KindIPythonRunCell }
func (IPythonRunCellAction) Runnable() bool   { return true }

// BrowseURLAction requests a page be fetched.
type BrowseURLAction struct {
	URL     string `json:"url"`
	Thought string `json:"thought,omitempty"`
}

func (BrowseURLAction) ActionKind() Kind { return KindBrowseURL }
func (BrowseURLAction) Runnable() bool   { return true }

// BrowseInteractiveAction requests a scripted browser interaction.
type BrowseInteractiveAction struct {
	BrowserActions string `json:"browser_actions"`
	Thought        string `json:"thought,omitempty"`
}

func (BrowseInteractiveAction) ActionKind() Kind { return KindBrowseInteractive }
func (BrowseInteractiveAction) Runnable() bool   { return true }

// AgentDelegateAction hands a sub-task off to a named sub-agent, which the
// Controller runs as a child Controller (see internal/controller).
type AgentDelegateAction struct {
	Agent         string         `json:"agent"`
	Inputs        map[string]any `json:"inputs,omitempty"`
	IterationDelta *int          `json:"iteration_delta,omitempty"`
	Thought       string         `json:"thought,omitempty"`
}

func (AgentDelegateAction) ActionKind() Kind { return KindAgentDelegate }
func (AgentDelegateAction) Runnable() bool   { return false }

// AgentFinishAction ends the conversation with a final thought.
type AgentFinishAction struct {
	FinalThought   string `json:"final_thought"`
	TaskCompleted  *bool  `json:"task_completed,omitempty"`
}

func (AgentFinishAction) ActionKind() Kind { return KindAgentFinish }
func (AgentFinishAction) Runnable() bool   { return false }

// AgentThinkAction records agent reasoning with no side effect.
type AgentThinkAction struct {
	Thought string `json:"thought"`
}

func (AgentThinkAction) ActionKind() Kind { return KindAgentThink }
func (AgentThinkAction) Runnable() bool   { return false }

// ChangeAgentStateAction requests a state-machine transition.
type ChangeAgentStateAction struct {
	AgentState AgentState `json:"agent_state"`
	Thought    string     `json:"thought,omitempty"`
}

func (ChangeAgentStateAction) ActionKind() Kind { return KindChangeAgentState }
func (ChangeAgentStateAction) Runnable() bool   { return false }

// CondensationAction requests history condensation (summarization).
type CondensationAction struct {
	ForgottenEventIDs []int64 `json:"forgotten_event_ids,omitempty"`
	Summary           string  `json:"summary,omitempty"`
}

func (CondensationAction) ActionKind() Kind { return KindCondensation }
func (CondensationAction) Runnable() bool   { return false }

// MCPCallToolAction invokes a tool exposed by a Model Context Protocol
// server.
type MCPCallToolAction struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Thought   string         `json:"thought,omitempty"`
}

func (MCPCallToolAction) ActionKind() Kind { return KindMCPCallTool }
func (MCPCallToolAction) Runnable() bool   { return true }

// RecallAction requests memory recall (e.g. a microagent knowledge lookup).
type RecallAction struct {
	Query      string `json:"query"`
	RecallType string `json:"recall_type,omitempty"`
}

func (RecallAction) ActionKind() Kind { return KindRecall }
func (RecallAction) Runnable() bool   { return false }
