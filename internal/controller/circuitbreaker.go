package controller

import "github.com/agentcore/agentcore/internal/events"

// circuitBreaker tracks tool-call repetition to catch an agent stuck in a
// loop, grounded on the counters in the teacher's
// internal/executor/agent.go (maxTotalToolCalls, maxSameToolCalls). A trip
// synthesizes an ErrorObservation rather than terminating the session: it
// is a self-correction nudge, not a quota error (SPEC_FULL.md §3a, §7).
type circuitBreaker struct {
	maxTotalCalls int
	maxSameKind   int

	totalCalls int
	sameKind   map[events.Kind]int
	lastKind   events.Kind
}

func newCircuitBreaker(maxTotalCalls, maxSameKind int) *circuitBreaker {
	return &circuitBreaker{
		maxTotalCalls: maxTotalCalls,
		maxSameKind:   maxSameKind,
		sameKind:      make(map[events.Kind]int),
	}
}

// Observe records one runnable action and reports whether the breaker has
// tripped.
func (c *circuitBreaker) Observe(kind events.Kind) (tripped bool, reason string) {
	c.totalCalls++
	if c.totalCalls > c.maxTotalCalls {
		return true, "possible loop detected: exceeded total tool call limit"
	}
	if kind == c.lastKind {
		c.sameKind[kind]++
	} else {
		c.sameKind[kind] = 1
		c.lastKind = kind
	}
	if c.sameKind[kind] > c.maxSameKind {
		return true, "possible loop detected: same tool called repeatedly without variation"
	}
	return false, ""
}

// Reset clears the breaker's counters. The controller calls it right
// after every trip, so the agent starts afresh once the synthesized
// ErrorObservation is on the stream.
func (c *circuitBreaker) Reset() {
	c.totalCalls = 0
	c.sameKind = make(map[events.Kind]int)
	c.lastKind = ""
}
