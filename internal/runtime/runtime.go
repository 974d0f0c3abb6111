// Package runtime implements the Runtime contract: a subscriber that
// executes every runnable Action appended to an Event Stream and emits
// exactly one matching Observation in response. The only concrete
// adapter provided here, Local, executes actions inside an isolated
// sandbox working directory (see sandbox.go).
package runtime

import (
	"context"

	"github.com/agentcore/agentcore/internal/events"
)

// StatusCallback is invoked as the Runtime's connection status changes.
// Assignable per the consumed Runtime contract (SPEC_FULL.md §6b).
type StatusCallback func(status string)

// Runtime is the narrow contract a Controller's Agent actions are
// dispatched through. Exactly two responsibilities: connect, and react to
// every runnable Action the stream it was given carries.
type Runtime interface {
	// Connect acquires whatever resources the adapter needs (a sandbox
	// working directory, a bash session) and subscribes to the Event
	// Stream. Must be called exactly once before any action is dispatched.
	Connect(ctx context.Context) error

	// SetStatusCallback registers a callback invoked on connection status
	// transitions. Optional; a nil callback is a no-op.
	SetStatusCallback(cb StatusCallback)

	// Close unsubscribes from the stream and releases adapter resources
	// (including, for Local, the sandbox worktree and bash session).
	Close() error
}

// statusCallbackHolder centralizes the "assignable, nilable callback"
// bookkeeping shared by every Runtime implementation.
type statusCallbackHolder struct {
	cb StatusCallback
}

func (h *statusCallbackHolder) SetStatusCallback(cb StatusCallback) {
	h.cb = cb
}

func (h *statusCallbackHolder) notify(status string) {
	if h.cb != nil {
		h.cb(status)
	}
}

// runnableKinds lists every events.Kind the Runtime itself dispatches.
// AgentDelegate, AgentFinish, ChangeAgentState, Recall, and the other
// Runnable()==false kinds are handled elsewhere (Controller, Memory) and
// never reach dispatch.
var runnableKinds = map[events.Kind]bool{
	events.KindCmdRun:            true,
	events.KindFileRead:          true,
	events.KindFileEdit:          true,
	events.KindIPythonRunCell:    true,
	events.KindBrowseURL:         true,
	events.KindBrowseInteractive: true,
	events.KindMCPCallTool:       true,
}
