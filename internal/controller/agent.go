package controller

import (
	"github.com/agentcore/agentcore/internal/events"
	"github.com/agentcore/agentcore/internal/state"
)

// Agent is the narrow plugging point the Controller drives. A concrete
// implementation (internal/agent) wraps an LLM client; the Controller
// never talks to the LLM directly.
type Agent interface {
	// Step proposes one or more Actions given the current State. An
	// empty, error-free result is treated by the Controller as a fatal
	// "agent produced nothing" condition (SPEC_FULL.md §4.4 step 4).
	Step(s *state.State) ([]Produced, error)

	// GetSystemMessage returns the agent's system prompt, if any, to be
	// emitted as the first Message event in a fresh session's history.
	GetSystemMessage() (string, bool)

	// Reset clears any agent-internal conversation state (e.g. tool-call
	// bookkeeping) between sessions.
	Reset()
}

// Produced pairs an Action with the optional reasoning content the LLM
// response carried alongside it (SPEC_FULL.md §3: "Reasoning content is
// carried on the first produced Action and is null on the rest").
type Produced struct {
	Action           events.Action
	ReasoningContent *string
}
