package agent

import (
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/agentcore/agentcore/internal/events"
	"github.com/agentcore/agentcore/internal/state"
)

// pendingBlock is one content block destined for the next flushed message,
// tagged with the role it belongs under.
type pendingBlock struct {
	role  string // "user" or "assistant"
	block anthropic.ContentBlockParamUnion
}

// buildMessages renders a session's condensed View into the message list
// the SDK expects, grouping consecutive same-role blocks into one message
// the way a real multi-tool-call turn naturally does (Anthropic rejects
// back-to-back messages of the same role). Pure plumbing events
// (ChangeAgentState actions and their AgentStateChanged observations) are
// never shown to the model; they carry no task-relevant content.
func buildMessages(view state.View) ([]anthropic.MessageParam, error) {
	var pending []pendingBlock

	for _, ev := range view.Events {
		switch {
		case ev.IsAction():
			block, role, skip, err := actionBlock(ev)
			if err != nil {
				return nil, err
			}
			if skip {
				continue
			}
			pending = append(pending, pendingBlock{role: role, block: block})

		case ev.IsObservation():
			block, role, skip, err := observationBlock(ev)
			if err != nil {
				return nil, err
			}
			if skip {
				continue
			}
			pending = append(pending, pendingBlock{role: role, block: block})
		}
	}

	return flush(pending), nil
}

// actionBlock renders one action event into a content block, or reports
// skip=true for plumbing events the model never needs to see.
func actionBlock(ev *events.Event) (block anthropic.ContentBlockParamUnion, role string, skip bool, err error) {
	switch ev.Kind {
	case events.KindChangeAgentState:
		return block, "", true, nil

	case events.KindMessage:
		msg, ok := ev.Action().(*events.MessageAction)
		if !ok {
			return block, "", true, nil
		}
		if ev.Source == events.SourceUser {
			return anthropic.NewTextBlock(msg.Content), "user", false, nil
		}
		return anthropic.NewTextBlock(msg.Content), "assistant", false, nil

	case events.KindAgentThink:
		think, ok := ev.Action().(*events.AgentThinkAction)
		if !ok {
			return block, "", true, nil
		}
		return anthropic.NewTextBlock("Thought: " + think.Thought), "assistant", false, nil

	default:
		toolName, ok := kindToToolName[ev.Kind]
		if !ok {
			return block, "", true, nil
		}
		input, err := actionInput(ev.Action())
		if err != nil {
			return block, "", false, err
		}
		return anthropic.NewToolUseBlock(toolUseID(ev.ID), input, toolName), "assistant", false, nil
	}
}

// observationBlock renders one observation event into a content block.
// Observations that answer a tool call become tool_result blocks;
// cause-less observations (synthetic loop-detection / global errors)
// become plain user-role text so the model still sees the feedback.
func observationBlock(ev *events.Event) (block anthropic.ContentBlockParamUnion, role string, skip bool, err error) {
	if ev.Kind == events.KindAgentStateChanged {
		return block, "", true, nil
	}

	content, isErr := observationText(ev.Observation())

	if ev.Cause == nil {
		return anthropic.NewTextBlock(content), "user", false, nil
	}
	return anthropic.NewToolResultBlock(toolUseID(*ev.Cause), content, isErr), "user", false, nil
}

// actionInput converts an Action struct into the map anthropic's
// NewToolUseBlock expects, by round-tripping through its own json tags
// (the same tags the tool schemas in tools.go were written against).
func actionInput(a events.Action) (map[string]any, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("agent: encode %s action as tool input: %w", a.ActionKind(), err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("agent: decode %s action as tool input: %w", a.ActionKind(), err)
	}
	return m, nil
}

// observationText renders an Observation as the text content of its
// tool_result, and reports whether it represents a tool error.
func observationText(obs events.Observation) (string, bool) {
	switch o := obs.(type) {
	case *events.CmdOutputObservation:
		return o.Content, o.Metadata.ExitCode != 0
	case *events.FileReadObservation:
		return o.Content, false
	case *events.FileEditObservation:
		if o.Diff != "" {
			return o.Diff, false
		}
		return o.Content, false
	case *events.BrowserOutputObservation:
		return o.Content, o.Error
	case *events.MCPObservation:
		return o.Content, false
	case *events.AgentDelegateObservation:
		if o.Content != "" {
			return o.Content, false
		}
		data, _ := json.Marshal(o.Outputs)
		return string(data), false
	case *events.ErrorObservation:
		return o.Content, true
	case *events.UserRejectedObservation:
		return o.Content, true
	case *events.CondensationObservation:
		return o.Content, false
	default:
		data, _ := json.Marshal(obs)
		return string(data), false
	}
}

// flush collapses consecutive same-role pendingBlocks into MessageParams.
func flush(pending []pendingBlock) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	var buf []anthropic.ContentBlockParamUnion
	var bufRole string

	emit := func() {
		if len(buf) == 0 {
			return
		}
		if bufRole == "user" {
			out = append(out, anthropic.NewUserMessage(buf...))
		} else {
			out = append(out, anthropic.NewAssistantMessage(buf...))
		}
		buf = nil
	}

	for _, p := range pending {
		if bufRole != "" && bufRole != p.role {
			emit()
		}
		bufRole = p.role
		buf = append(buf, p.block)
	}
	emit()
	return out
}
