package agent

import (
	"encoding/json"
	"testing"

	"github.com/agentcore/agentcore/internal/events"
)

func TestDecodeToolUseUnknownToolErrors(t *testing.T) {
	if _, err := decodeToolUse("not_a_real_tool", json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected decodeToolUse to reject an unrecognized tool name")
	}
}

func TestDecodeToolUseExecuteBash(t *testing.T) {
	input := json.RawMessage(`{"command":"ls -la","is_input":false}`)
	action, err := decodeToolUse("execute_bash", input)
	if err != nil {
		t.Fatalf("decodeToolUse: %v", err)
	}
	cmd, ok := action.(*events.CmdRunAction)
	if !ok {
		t.Fatalf("decodeToolUse returned %T, want *events.CmdRunAction", action)
	}
	if cmd.Command != "ls -la" {
		t.Errorf("Command = %q, want %q", cmd.Command, "ls -la")
	}
	if cmd.ActionKind() != events.KindCmdRun {
		t.Errorf("ActionKind() = %v, want KindCmdRun", cmd.ActionKind())
	}
}

func TestDecodeToolUseReadFileWithViewRange(t *testing.T) {
	input := json.RawMessage(`{"path":"f.go","view_range":{"start":1,"end":10}}`)
	action, err := decodeToolUse("read_file", input)
	if err != nil {
		t.Fatalf("decodeToolUse: %v", err)
	}
	read, ok := action.(*events.FileReadAction)
	if !ok {
		t.Fatalf("decodeToolUse returned %T, want *events.FileReadAction", action)
	}
	if read.Path != "f.go" {
		t.Errorf("Path = %q, want %q", read.Path, "f.go")
	}
	if read.ViewRange == nil || read.ViewRange.Start != 1 || read.ViewRange.End != 10 {
		t.Errorf("ViewRange = %+v, want {1 10}", read.ViewRange)
	}
}

func TestDecodeToolUseEditFile(t *testing.T) {
	input := json.RawMessage(`{"path":"f.go","command":"str_replace","old_str":"a","new_str":"b"}`)
	action, err := decodeToolUse("edit_file", input)
	if err != nil {
		t.Fatalf("decodeToolUse: %v", err)
	}
	edit, ok := action.(*events.FileEditAction)
	if !ok {
		t.Fatalf("decodeToolUse returned %T, want *events.FileEditAction", action)
	}
	if edit.OldStr != "a" || edit.NewStr != "b" {
		t.Errorf("OldStr/NewStr = %q/%q, want a/b", edit.OldStr, edit.NewStr)
	}
}

func TestDecodeToolUseFinish(t *testing.T) {
	input := json.RawMessage(`{"final_thought":"done","task_completed":true}`)
	action, err := decodeToolUse("finish", input)
	if err != nil {
		t.Fatalf("decodeToolUse: %v", err)
	}
	if action.ActionKind() != events.KindAgentFinish {
		t.Errorf("ActionKind() = %v, want KindAgentFinish", action.ActionKind())
	}
}

func TestDecodeToolUseMalformedInputErrors(t *testing.T) {
	if _, err := decodeToolUse("execute_bash", json.RawMessage(`{not-json`)); err == nil {
		t.Fatal("expected decodeToolUse to surface a JSON decode error")
	}
}

func TestBuildToolParamsCoversEveryToolSpec(t *testing.T) {
	params := buildToolParams()
	if len(params) != len(toolSpecs) {
		t.Fatalf("buildToolParams returned %d params, want %d", len(params), len(toolSpecs))
	}
}

func TestKindToToolNameAndBackAreConsistent(t *testing.T) {
	for _, spec := range toolSpecs {
		name, ok := kindToToolName[spec.kind]
		if !ok || name != spec.name {
			t.Errorf("kindToToolName[%v] = %q, want %q", spec.kind, name, spec.name)
		}
		kind, ok := toolNameToKind[spec.name]
		if !ok || kind != spec.kind {
			t.Errorf("toolNameToKind[%q] = %v, want %v", spec.name, kind, spec.kind)
		}
	}
}

func TestToolUseIDIsDeterministicPerEvent(t *testing.T) {
	if toolUseID(5) != toolUseID(5) {
		t.Error("toolUseID must be deterministic for the same event id")
	}
	if toolUseID(5) == toolUseID(6) {
		t.Error("toolUseID must differ across distinct event ids")
	}
}
