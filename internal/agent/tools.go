package agent

import (
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/agentcore/agentcore/internal/events"
)

// toolSpec pairs a tool's wire name and description with the Kind it
// decodes into. The JSON field names below match the Action structs'
// own json tags in internal/events/action.go exactly, so a tool_use
// block's Input can be unmarshaled directly into the target struct with
// no intermediate translation layer.
type toolSpec struct {
	name        string
	description string
	kind        events.Kind
	schema      map[string]any
}

// toolSpecs enumerates every runnable (and delegate/finish) action kind
// this agent exposes to the model as a callable tool, grounded on the
// Action variants of internal/events/action.go.
var toolSpecs = []toolSpec{
	{
		name:        "execute_bash",
		description: "Run a shell command in the working directory's persistent session. Set is_input to deliver text to an already-running interactive command.",
		kind:        events.KindCmdRun,
		schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"command":       map[string]any{"type": "string", "description": "The shell command to run, or input to deliver if is_input is true."},
				"is_input":      map[string]any{"type": "boolean", "description": "Deliver command as stdin to the currently running process instead of starting a new one."},
				"hard_timeout":  map[string]any{"type": "integer", "description": "Override the session's default hard timeout, in seconds."},
				"thought":       map[string]any{"type": "string", "description": "Brief reasoning for this command."},
				"reset_session": map[string]any{"type": "boolean", "description": "Close and reinitialize the shell session before running command."},
			},
			"required": []string{"command"},
		},
	},
	{
		name:        "read_file",
		description: "Read a file's contents, optionally restricted to a line range.",
		kind:        events.KindFileRead,
		schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path":    map[string]any{"type": "string"},
				"thought": map[string]any{"type": "string"},
				"view_range": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"start": map[string]any{"type": "integer"},
						"end":   map[string]any{"type": "integer", "description": "-1 means to the end of the file."},
					},
				},
			},
			"required": []string{"path"},
		},
	},
	{
		name:        "edit_file",
		description: "Write or patch a file. Set content for a full overwrite, or old_str/new_str for a targeted replacement.",
		kind:        events.KindFileEdit,
		schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path":        map[string]any{"type": "string"},
				"content":     map[string]any{"type": "string", "description": "Full replacement content."},
				"command":     map[string]any{"type": "string", "description": "ACI-style edit command, e.g. str_replace or insert."},
				"old_str":     map[string]any{"type": "string"},
				"new_str":     map[string]any{"type": "string"},
				"insert_line": map[string]any{"type": "integer"},
				"file_text":   map[string]any{"type": "string"},
				"thought":     map[string]any{"type": "string"},
			},
			"required": []string{"path"},
		},
	},
	{
		name:        "browse_url",
		description: "Fetch a URL and return its rendered content.",
		kind:        events.KindBrowseURL,
		schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"url": map[string]any{"type": "string"}, "thought": map[string]any{"type": "string"}},
			"required":   []string{"url"},
		},
	},
	{
		name:        "browse_interactive",
		description: "Drive a scripted browser interaction (click, type, navigate).",
		kind:        events.KindBrowseInteractive,
		schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"browser_actions": map[string]any{"type": "string"}, "thought": map[string]any{"type": "string"}},
			"required":   []string{"browser_actions"},
		},
	},
	{
		name:        "delegate_to_agent",
		description: "Hand off the remainder of a sub-task to a named sub-agent, running as a child session.",
		kind:        events.KindAgentDelegate,
		schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"agent":           map[string]any{"type": "string"},
				"inputs":          map[string]any{"type": "object"},
				"iteration_delta": map[string]any{"type": "integer"},
				"thought":         map[string]any{"type": "string"},
			},
			"required": []string{"agent"},
		},
	},
	{
		name:        "finish",
		description: "End the task with a final summary of what was accomplished.",
		kind:        events.KindAgentFinish,
		schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"final_thought":  map[string]any{"type": "string"},
				"task_completed": map[string]any{"type": "boolean"},
			},
			"required": []string{"final_thought"},
		},
	},
	{
		name:        "call_mcp_tool",
		description: "Invoke a tool exposed by a connected Model Context Protocol server.",
		kind:        events.KindMCPCallTool,
		schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":      map[string]any{"type": "string"},
				"arguments": map[string]any{"type": "object"},
				"thought":   map[string]any{"type": "string"},
			},
			"required": []string{"name"},
		},
	},
}

var (
	kindToToolName = func() map[events.Kind]string {
		m := make(map[events.Kind]string, len(toolSpecs))
		for _, t := range toolSpecs {
			m[t.kind] = t.name
		}
		return m
	}()

	toolNameToKind = func() map[string]events.Kind {
		m := make(map[string]events.Kind, len(toolSpecs))
		for _, t := range toolSpecs {
			m[t.name] = t.kind
		}
		return m
	}()
)

// buildToolParams renders toolSpecs into the SDK's tool-union param list,
// following the goadesign-goa-ai Anthropic client's
// ToolUnionParamOfTool(schema, name) + Description pattern.
func buildToolParams() []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(toolSpecs))
	for _, t := range toolSpecs {
		u := anthropic.ToolUnionParamOfTool(anthropic.ToolInputSchemaParam{ExtraFields: t.schema}, t.name)
		if u.OfTool != nil {
			u.OfTool.Description = anthropic.String(t.description)
		}
		out = append(out, u)
	}
	return out
}

// decodeToolUse converts one tool_use content block into its Action,
// by unmarshaling the raw input directly into the Kind's Go struct.
func decodeToolUse(name string, input json.RawMessage) (events.Action, error) {
	kind, ok := toolNameToKind[name]
	if !ok {
		return nil, fmt.Errorf("agent: model called unknown tool %q", name)
	}

	switch kind {
	case events.KindCmdRun:
		var a events.CmdRunAction
		if err := json.Unmarshal(input, &a); err != nil {
			return nil, fmt.Errorf("agent: decode execute_bash input: %w", err)
		}
		return &a, nil
	case events.KindFileRead:
		var a events.FileReadAction
		if err := json.Unmarshal(input, &a); err != nil {
			return nil, fmt.Errorf("agent: decode read_file input: %w", err)
		}
		return &a, nil
	case events.KindFileEdit:
		var a events.FileEditAction
		if err := json.Unmarshal(input, &a); err != nil {
			return nil, fmt.Errorf("agent: decode edit_file input: %w", err)
		}
		return &a, nil
	case events.KindBrowseURL:
		var a events.BrowseURLAction
		if err := json.Unmarshal(input, &a); err != nil {
			return nil, fmt.Errorf("agent: decode browse_url input: %w", err)
		}
		return &a, nil
	case events.KindBrowseInteractive:
		var a events.BrowseInteractiveAction
		if err := json.Unmarshal(input, &a); err != nil {
			return nil, fmt.Errorf("agent: decode browse_interactive input: %w", err)
		}
		return &a, nil
	case events.KindAgentDelegate:
		var a events.AgentDelegateAction
		if err := json.Unmarshal(input, &a); err != nil {
			return nil, fmt.Errorf("agent: decode delegate_to_agent input: %w", err)
		}
		return &a, nil
	case events.KindAgentFinish:
		var a events.AgentFinishAction
		if err := json.Unmarshal(input, &a); err != nil {
			return nil, fmt.Errorf("agent: decode finish input: %w", err)
		}
		return &a, nil
	case events.KindMCPCallTool:
		var a events.MCPCallToolAction
		if err := json.Unmarshal(input, &a); err != nil {
			return nil, fmt.Errorf("agent: decode call_mcp_tool input: %w", err)
		}
		return &a, nil
	default:
		return nil, fmt.Errorf("agent: tool %q maps to unhandled kind %s", name, kind)
	}
}

// toolUseID deterministically derives a tool_use block id from the
// appended event's stream id, so conversation reconstruction never needs
// to persist anthropic-specific call ids anywhere in the Event model.
func toolUseID(eventID int64) string {
	return fmt.Sprintf("evt_%d", eventID)
}
