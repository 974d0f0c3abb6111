package controller

import "errors"

// Sentinel errors for the taxonomy in SPEC_FULL.md §7. Quota and
// persistence errors are fatal to the session; tool-validation, runtime,
// and loop-detection errors re-enter the step loop.
var (
	ErrIterationLimit = errors.New("controller: reached maximum iteration")
	ErrBudgetLimit    = errors.New("controller: reached maximum budget")
	ErrPersistence    = errors.New("controller: event stream persistence failed")
	ErrNoActions      = errors.New("controller: agent produced no actions")
)
