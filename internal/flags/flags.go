// Package flags implements the iteration and budget control flags that
// bound an agent Controller's step loop, grounded on
// original_source/openhands/controller/state/control_flags.py and on the
// teacher's own limit/threshold idiom in internal/cost/budget.go.
package flags

import "fmt"

// LimitReachedError is raised by Step when a flag is already at its
// limit. The Controller (internal/controller) catches it and transitions
// to the ERROR agent state.
type LimitReachedError struct {
	Message string
}

func (e *LimitReachedError) Error() string { return e.Message }

// Iteration enforces a ceiling on the number of Controller steps taken
// in a session. current_value is incremented by Step; reaching
// max_value raises LimitReachedError instead of incrementing further.
type Iteration struct {
	CurrentValue         int
	MaxValue             int
	LimitIncreaseAmount  int

	hitLimit bool
}

// NewIteration returns an Iteration flag starting at 0/max.
func NewIteration(max, increaseAmount int) *Iteration {
	return &Iteration{MaxValue: max, LimitIncreaseAmount: increaseAmount}
}

// ReachedLimit reports (and latches) whether CurrentValue has reached
// MaxValue.
func (f *Iteration) ReachedLimit() bool {
	f.hitLimit = f.CurrentValue >= f.MaxValue
	return f.hitLimit
}

// Step advances CurrentValue by one, or returns LimitReachedError if the
// flag is already at its limit.
func (f *Iteration) Step() error {
	if f.ReachedLimit() {
		return &LimitReachedError{Message: fmt.Sprintf(
			"Agent reached maximum iteration. Current iteration: %d, max iteration: %d",
			f.CurrentValue, f.MaxValue)}
	}
	f.CurrentValue++
	return nil
}

// IncreaseLimit raises MaxValue by LimitIncreaseAmount and clears the
// latched hit-limit flag, only when the flag is latched at the limit,
// and only in non-headless mode.
// In headless mode this is a no-op: an unattended run must not silently
// extend its own iteration ceiling.
func (f *Iteration) IncreaseLimit(headless bool) {
	if headless || !f.hitLimit {
		return
	}
	f.MaxValue += f.LimitIncreaseAmount
	f.hitLimit = false
}

// Budget enforces a ceiling on accumulated cost. Unlike Iteration,
// CurrentValue is never incremented by Step: cost accrues externally
// (via metrics.Metrics) and is synced into CurrentValue by the caller
// before each Step.
type Budget struct {
	CurrentValue        float64
	MaxValue            float64
	LimitIncreaseAmount float64

	hitLimit bool
}

// NewBudget returns a Budget flag starting at 0/max.
func NewBudget(max, increaseAmount float64) *Budget {
	return &Budget{MaxValue: max, LimitIncreaseAmount: increaseAmount}
}

// ReachedLimit reports (and latches) whether CurrentValue has reached
// MaxValue.
func (f *Budget) ReachedLimit() bool {
	f.hitLimit = f.CurrentValue >= f.MaxValue
	return f.hitLimit
}

// Step checks the limit and raises LimitReachedError if exceeded; it
// never mutates CurrentValue.
func (f *Budget) Step() error {
	if f.ReachedLimit() {
		return &LimitReachedError{Message: fmt.Sprintf(
			"Agent reached maximum budget for conversation. Current budget: %.2f, max budget: %.2f",
			f.CurrentValue, f.MaxValue)}
	}
	return nil
}

// IncreaseLimit raises MaxValue to CurrentValue + LimitIncreaseAmount
// when the flag is latched at its limit. Unlike Iteration, headless
// mode does not suppress this: a budget ceiling is always user-extendable
// since it was never the agent's own choice to approach it.
func (f *Budget) IncreaseLimit(headless bool) {
	if !f.hitLimit {
		return
	}
	f.MaxValue = f.CurrentValue + f.LimitIncreaseAmount
	f.hitLimit = false
}
