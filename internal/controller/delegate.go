package controller

import (
	"log"

	"github.com/agentcore/agentcore/internal/events"
)

// DelegateFactory resolves a named sub-agent into an Agent implementation.
// The CLI/session-wiring layer registers concrete agents under names used
// by AgentDelegateAction.Agent; the Controller never constructs agents
// itself.
type DelegateFactory func(name string) (Agent, error)

// SetDelegateFactory installs the factory used to resolve AgentDelegate
// actions. Must be called before any AgentDelegateAction reaches the
// controller; a nil factory causes delegation to fail with an
// ErrorObservation, matching the "runtime failures are not fatal" taxonomy
// entry in SPEC_FULL.md §7.
func (c *Controller) SetDelegateFactory(f DelegateFactory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delegateFactory = f
}

// startDelegate implements SPEC_FULL.md §4.4 Delegation: it constructs a
// child Controller for the named sub-agent, shares the parent's metrics
// and budget flag by reference, pauses the parent, and wires a terminal
// callback that folds the child's iteration count back into the parent's
// and appends an AgentDelegateObservation.
func (c *Controller) startDelegate(actionEvent *events.Event, action *events.AgentDelegateAction) {
	c.mu.Lock()
	factory := c.delegateFactory
	parentBefore := c.state.IterationFlag.CurrentValue
	c.mu.Unlock()

	if factory == nil {
		c.emitDelegateFailure(actionEvent, "no delegate factory registered for agent "+action.Agent)
		return
	}

	childAgent, err := factory(action.Agent)
	if err != nil {
		c.emitDelegateFailure(actionEvent, "resolve delegate agent "+action.Agent+": "+err.Error())
		return
	}

	increase := c.cfg.IterationIncrease
	if action.IterationDelta != nil {
		increase = *action.IterationDelta
	}

	childCfg := Config{
		SessionID:                   c.cfg.SessionID + "/" + action.Agent,
		IterationMax:                increase,
		IterationIncrease:           increase,
		BudgetMax:                   0, // child shares the parent's BudgetFlag object directly, not a new one
		ConfirmationMode:            c.cfg.ConfirmationMode,
		HeadlessMode:                c.cfg.HeadlessMode,
		SubscriberID:                c.cfg.SubscriberID + ".delegate." + action.Agent,
		CircuitBreakerMaxTotalCalls: c.cfg.CircuitBreakerMaxTotalCalls,
		CircuitBreakerMaxSameKind:   c.cfg.CircuitBreakerMaxSameKind,
	}

	child, err := New(childAgent, c.stream, c.state.Metrics, childCfg)
	if err != nil {
		c.emitDelegateFailure(actionEvent, "start delegate controller: "+err.Error())
		return
	}

	// Aliasing, not copy: the child shares the parent's BudgetFlag object
	// (SPEC_FULL.md §3 "Delegates inherit the parent's flag object").
	child.state.BudgetFlag = c.state.BudgetFlag
	child.state.Inputs = action.Inputs
	child.state.DelegateLevel = c.state.DelegateLevel + 1
	child.parent = c
	child.onTerminal = func(finished *Controller) {
		c.finishDelegate(actionEvent, finished, parentBefore)
	}

	delegateActionID := actionEvent.ID
	c.mu.Lock()
	c.delegate = child
	c.delegateActionID = &delegateActionID
	c.mu.Unlock()

	if err := child.SetAgentStateTo(events.AgentStateRunning); err != nil {
		log.Printf("controller %s: failed to start delegate %s: %v", c.cfg.SubscriberID, action.Agent, err)
	}
}

// finishDelegate runs when the child transitions to FINISHED, REJECTED, or
// ERROR. It folds the child's iteration count into the parent's
// (parent_before + 1 + child.current_value), appends the
// AgentDelegateObservation, closes the child, and resumes the parent.
func (c *Controller) finishDelegate(actionEvent *events.Event, child *Controller, parentBefore int) {
	outputs := child.state.Outputs
	if outputs == nil {
		outputs = map[string]any{}
	}

	c.mu.Lock()
	c.state.IterationFlag.CurrentValue = parentBefore + 1 + child.state.IterationFlag.CurrentValue
	c.delegate = nil
	c.delegateActionID = nil
	c.mu.Unlock()

	obs := events.NewObservationEvent(events.SourceEnvironment, actionEvent.ID, &events.AgentDelegateObservation{Outputs: outputs})
	if _, err := c.stream.AddEvent(obs, events.SourceEnvironment); err != nil {
		log.Printf("controller %s: failed to emit AgentDelegateObservation: %v", c.cfg.SubscriberID, err)
	}

	child.Close()

	c.mu.Lock()
	stillRunning := c.state.AgentState == events.AgentStateRunning
	c.mu.Unlock()
	if stillRunning {
		c.maybeStep()
	}
}

// emitDelegateFailure surfaces a delegation setup failure as a non-fatal
// ErrorObservation so the agent can self-correct, per SPEC_FULL.md §7's
// "runtime failures ... not fatal; the loop continues".
func (c *Controller) emitDelegateFailure(actionEvent *events.Event, message string) {
	obs := events.NewObservationEvent(events.SourceEnvironment, actionEvent.ID, &events.ErrorObservation{Content: message})
	if _, err := c.stream.AddEvent(obs, events.SourceEnvironment); err != nil {
		log.Printf("controller %s: failed to emit delegate-failure observation: %v", c.cfg.SubscriberID, err)
	}
	c.mu.Lock()
	c.delegate = nil
	c.delegateActionID = nil
	c.mu.Unlock()
	c.maybeStep()
}
