// Package controller implements the Agent Controller state machine: the
// step loop, delegation, confirmation mode, and error handling described
// in SPEC_FULL.md §4.4.
package controller

import (
	"fmt"
	"log"
	"sync"

	"github.com/agentcore/agentcore/internal/events"
	"github.com/agentcore/agentcore/internal/metrics"
	"github.com/agentcore/agentcore/internal/state"
)

// Config bundles the construction-time parameters to New.
type Config struct {
	SessionID         string
	IterationMax      int
	IterationIncrease int
	BudgetMax         float64 // 0 disables the budget flag
	BudgetIncrease    float64
	ConfirmationMode  bool
	HeadlessMode      bool
	InitialState      *state.State // non-nil to resume
	SubscriberID      string       // defaults to SessionID; distinct for delegates

	CircuitBreakerMaxTotalCalls int
	CircuitBreakerMaxSameKind   int
}

// Controller advances a single Agent through the event stream's actions
// and observations, subject to the iteration/budget control flags.
type Controller struct {
	cfg    Config
	agent  Agent
	stream *events.Stream
	state  *state.State

	mu               sync.Mutex
	pendingAction    *events.Event
	delegate         *Controller
	delegateActionID *int64 // the delegate action event this controller itself authored, while c.delegate != nil
	parent           *Controller
	breaker          *circuitBreaker
	delegateFactory  DelegateFactory

	eventsCh chan *events.Event
	closeCh  chan struct{}
	doneCh   chan struct{}

	// onTerminal is invoked exactly once when this controller's agent
	// state reaches a terminal value. The parent uses it to finish
	// delegation bookkeeping (see delegate.go); a root controller's
	// caller uses it to learn the session ended.
	onTerminal func(*Controller)
}

// New constructs a Controller, subscribes it to stream, seeds its control
// flags (or adopts them from cfg.InitialState on resume), and emits the
// agent's system message if one exists and history is empty.
func New(agent Agent, stream *events.Stream, m *metrics.Metrics, cfg Config) (*Controller, error) {
	if cfg.SubscriberID == "" {
		cfg.SubscriberID = cfg.SessionID
	}
	if cfg.CircuitBreakerMaxTotalCalls == 0 {
		cfg.CircuitBreakerMaxTotalCalls = 1000
	}
	if cfg.CircuitBreakerMaxSameKind == 0 {
		cfg.CircuitBreakerMaxSameKind = 100
	}

	var st *state.State
	if cfg.InitialState != nil {
		st = cfg.InitialState
	} else {
		st = state.New(cfg.SessionID, cfg.IterationMax, cfg.IterationIncrease, cfg.BudgetMax, cfg.BudgetIncrease, m)
	}

	c := &Controller{
		cfg:      cfg,
		agent:    agent,
		stream:   stream,
		state:    st,
		breaker:  newCircuitBreaker(cfg.CircuitBreakerMaxTotalCalls, cfg.CircuitBreakerMaxSameKind),
		eventsCh: make(chan *events.Event, 256),
		closeCh:  make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	stream.Subscribe(events.SubscriberController, cfg.SubscriberID, func(ev *events.Event) {
		select {
		case c.eventsCh <- ev:
		case <-c.closeCh:
		}
	})

	if msg, ok := agent.GetSystemMessage(); ok && len(st.History) == 0 {
		if _, err := stream.AddEvent(events.NewActionEvent(events.SourceAgent, &events.MessageAction{Content: msg}), events.SourceAgent); err != nil {
			return nil, fmt.Errorf("controller: emit system message: %w", err)
		}
	}

	st.AgentState = events.AgentStateInit
	go c.loop()
	return c, nil
}

// State returns the controller's State. Callers must not mutate it
// outside the controller's own goroutine except via the exposed methods.
func (c *Controller) State() *state.State {
	return c.state
}

// Close unsubscribes from the stream and stops the controller's goroutine.
func (c *Controller) Close() {
	c.stream.Unsubscribe(events.SubscriberController, c.cfg.SubscriberID)
	select {
	case <-c.closeCh:
	default:
		close(c.closeCh)
	}
	<-c.doneCh
}

// SetAgentStateTo writes a ChangeAgentStateAction and returns once it has
// been appended; the transition itself is applied asynchronously by the
// controller's event loop when the action comes back through the stream.
func (c *Controller) SetAgentStateTo(target events.AgentState) error {
	_, err := c.stream.AddEvent(events.NewActionEvent(events.SourceUser, &events.ChangeAgentStateAction{AgentState: target}), events.SourceUser)
	if err != nil {
		return fmt.Errorf("controller: set agent state to %s: %w", target, err)
	}
	return nil
}

// loop is the controller's single driver goroutine: it processes
// incoming events sequentially and, whenever the state is RUNNING with no
// pending action, attempts one step.
func (c *Controller) loop() {
	defer close(c.doneCh)
	for {
		select {
		case ev := <-c.eventsCh:
			c.onEvent(ev)
			c.maybeStep()
		case <-c.closeCh:
			return
		}
	}
}

// onEvent is the sole entry point for events arriving from the stream
// (SPEC_FULL.md §4.4).
func (c *Controller) onEvent(ev *events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.delegate != nil {
		// A delegate shares this controller's events.Stream (delegate.go's
		// New(childAgent, c.stream, ...)), so every event the child
		// produces also fans out here. Those events belong to the child,
		// which processes its own copy through its own subscription; the
		// only event on the stream that is genuinely this controller's own
		// while delegating is the AgentDelegateAction that started the
		// delegation. Everything else is ignored until finishDelegate
		// (driven by the child's onTerminal callback) clears c.delegate
		// and resumes this controller.
		if c.delegateActionID != nil && ev.ID == *c.delegateActionID {
			c.state.AppendHistory(ev)
		}
		return
	}

	switch {
	case ev.IsAction() && ev.Kind == events.KindMessage && ev.Source == events.SourceUser:
		if c.state.AgentState != events.AgentStateRunning {
			c.state.AgentState = events.AgentStateRunning
		}
		c.state.AppendHistory(ev)

	case ev.Kind == events.KindChangeAgentState:
		c.applyStateChangeLocked(ev)

	case ev.IsAction() && ev.Action().Runnable() && ev.Source == events.SourceAgent:
		c.state.AppendHistory(ev)
		if c.cfg.ConfirmationMode && c.pendingAction == nil {
			c.state.AgentState = events.AgentStateAwaitingUserConfirmation
		}
		c.pendingAction = ev

	case ev.IsObservation():
		c.state.AppendHistory(ev)
		if ev.Cause != nil && c.pendingAction != nil && *ev.Cause == c.pendingAction.ID {
			c.pendingAction = nil
		}
		if ev.Kind == events.KindAgentStateChanged {
			if obs, ok := ev.Observation().(*events.AgentStateChangedObservation); ok && obs.AgentState.IsTerminal() {
				c.finishLocked(obs.AgentState)
			}
		}

	default:
		c.state.AppendHistory(ev)
	}
}

// applyStateChangeLocked handles a ChangeAgentStateAction, including the
// USER_CONFIRMED/USER_REJECTED translation from confirmation mode.
func (c *Controller) applyStateChangeLocked(ev *events.Event) {
	action, ok := ev.Action().(*events.ChangeAgentStateAction)
	if !ok {
		return
	}
	target := action.AgentState
	if !c.state.AgentState.CanTransitionTo(target) {
		log.Printf("controller %s: rejected illegal transition %s -> %s", c.cfg.SubscriberID, c.state.AgentState, target)
		return
	}
	c.state.AppendHistory(ev)

	switch target {
	case events.AgentStateUserConfirmed:
		c.state.AgentState = events.AgentStateRunning
	case events.AgentStateUserRejected:
		if c.pendingAction != nil {
			obs := events.NewObservationEvent(events.SourceEnvironment, c.pendingAction.ID, &events.UserRejectedObservation{Content: "action rejected by user"})
			if _, err := c.stream.AddEvent(obs, events.SourceEnvironment); err != nil {
				log.Printf("controller %s: failed to emit UserRejected observation: %v", c.cfg.SubscriberID, err)
			}
			c.pendingAction = nil
		}
		c.state.AgentState = events.AgentStateRunning
	default:
		c.state.AgentState = target
		if target.IsTerminal() {
			c.finishLocked(target)
		}
	}

	stateObs := events.NewObservationEvent(events.SourceEnvironment, ev.ID, &events.AgentStateChangedObservation{AgentState: c.state.AgentState})
	if _, err := c.stream.AddEvent(stateObs, events.SourceEnvironment); err != nil {
		log.Printf("controller %s: failed to emit AgentStateChanged observation: %v", c.cfg.SubscriberID, err)
	}
}

func (c *Controller) finishLocked(target events.AgentState) {
	c.state.AgentState = target
	if c.onTerminal != nil {
		onTerminal := c.onTerminal
		c.onTerminal = nil
		go onTerminal(c)
	}
}

// maybeStep runs exactly one step of the agent loop if the controller is
// RUNNING, has no pending action, and is not itself mid-delegation.
func (c *Controller) maybeStep() {
	c.mu.Lock()
	runnable := c.state.AgentState == events.AgentStateRunning && c.pendingAction == nil && c.delegate == nil
	c.mu.Unlock()
	if !runnable {
		return
	}
	c.step()
}

// step implements SPEC_FULL.md §4.4's step loop.
func (c *Controller) step() {
	if err := c.state.IterationFlag.Step(); err != nil {
		c.fail(fmt.Errorf("%w: %v", ErrIterationLimit, err), "reached maximum iteration")
		return
	}
	if c.state.BudgetFlag != nil {
		if err := c.state.BudgetFlag.Step(); err != nil {
			c.fail(fmt.Errorf("%w: %v", ErrBudgetLimit, err), "reached maximum budget")
			return
		}
	}

	produced, err := c.agent.Step(c.state)
	if err != nil {
		c.fail(err, "agent step failed")
		return
	}
	if len(produced) == 0 {
		c.fail(ErrNoActions, "agent produced no actions")
		return
	}

	for _, p := range produced {
		action := p.Action
		if action.Runnable() {
			if tripped, reason := c.breaker.Observe(action.ActionKind()); tripped {
				errEv := events.NewObservationEvent(events.SourceEnvironment, 0, &events.ErrorObservation{Content: reason, ErrorID: "loop_detected"})
				if _, err := c.stream.AddEvent(errEv, events.SourceEnvironment); err != nil {
					log.Printf("controller %s: failed to emit loop-detection observation: %v", c.cfg.SubscriberID, err)
				}
				c.breaker.Reset()
				return
			}
		}

		switch action.ActionKind() {
		case events.KindAgentFinish:
			finish := action.(*events.AgentFinishAction)
			ev := events.NewActionEvent(events.SourceAgent, finish)
			if _, err := c.stream.AddEvent(ev, events.SourceAgent); err != nil {
				c.fail(fmt.Errorf("%w: %v", ErrPersistence, err), "failed to persist finish action")
				return
			}
			c.mu.Lock()
			c.state.Outputs["final_thought"] = finish.FinalThought
			if finish.TaskCompleted != nil {
				c.state.Outputs["task_completed"] = *finish.TaskCompleted
			}
			c.mu.Unlock()
			if err := c.SetAgentStateTo(events.AgentStateFinished); err != nil {
				log.Printf("controller %s: failed to transition to FINISHED: %v", c.cfg.SubscriberID, err)
			}
			return

		case events.KindAgentDelegate:
			delegate := action.(*events.AgentDelegateAction)
			ev := events.NewActionEvent(events.SourceAgent, delegate)
			if _, err := c.stream.AddEvent(ev, events.SourceAgent); err != nil {
				c.fail(fmt.Errorf("%w: %v", ErrPersistence, err), "failed to persist delegate action")
				return
			}
			c.startDelegate(ev, delegate)
			return

		default:
			ev := events.NewActionEvent(events.SourceAgent, action)
			if _, err := c.stream.AddEvent(ev, events.SourceAgent); err != nil {
				c.fail(fmt.Errorf("%w: %v", ErrPersistence, err), "failed to persist action")
				return
			}
		}
	}
}

// fail records the error, appends an ErrorObservation, and transitions to
// ERROR, per the propagation policy in SPEC_FULL.md §7.
func (c *Controller) fail(err error, message string) {
	c.mu.Lock()
	c.state.LastError = err.Error()
	c.mu.Unlock()

	errEv := events.NewObservationEvent(events.SourceEnvironment, 0, &events.ErrorObservation{Content: message})
	if _, addErr := c.stream.AddEvent(errEv, events.SourceEnvironment); addErr != nil {
		log.Printf("controller %s: failed to persist ErrorObservation for %q: %v", c.cfg.SubscriberID, message, addErr)
	}
	if setErr := c.SetAgentStateTo(events.AgentStateError); setErr != nil {
		log.Printf("controller %s: failed to transition to ERROR: %v", c.cfg.SubscriberID, setErr)
	}
}
