// Package metrics implements thread-safe cost and token accounting shared
// by a Controller and all of its delegates.
package metrics

import (
	"sync"
	"time"
)

// Cost records a single priced LLM call.
type Cost struct {
	Model     string    `json:"model"`
	Cost      float64   `json:"cost"`
	Timestamp time.Time `json:"timestamp"`
}

// TokenUsage records the token accounting for a single completion call.
type TokenUsage struct {
	Model              string    `json:"model"`
	PromptTokens       int       `json:"prompt_tokens"`
	CompletionTokens   int       `json:"completion_tokens"`
	CacheReadTokens    int       `json:"cache_read_tokens"`
	CacheWriteTokens   int       `json:"cache_write_tokens"`
	ContextWindow      int       `json:"context_window"`
	Timestamp          time.Time `json:"timestamp"`
}

// ResponseLatency records the round-trip time of a single completion call.
type ResponseLatency struct {
	Model      string        `json:"model"`
	Latency    time.Duration `json:"latency"`
	ResponseID string        `json:"response_id"`
}

// update is a closure processed by the single queue-consumer goroutine,
// the Go analogue of the teacher's mutex-guarded Tracker in
// internal/cost/budget.go, here using a serialized work queue per
// SPEC_FULL.md §5 instead of a bare mutex so concurrent LLM clients never
// block on each other's accounting writes.
type update func(*snapshot)

// snapshot is the mutable state owned exclusively by the queue consumer.
type snapshot struct {
	accumulatedCost float64
	costs           []Cost
	tokenUsages     []TokenUsage
	latencies       []ResponseLatency

	accumulatedPromptTokens     int
	accumulatedCompletionTokens int
	accumulatedCacheReadTokens  int
	accumulatedCacheWriteTokens int
}

// Metrics accumulates cost and token usage across a conversation. A
// Metrics instance is shared by reference between a parent Controller
// and all of its delegates (SPEC_FULL.md §4.4 Delegation), so every
// mutation is routed through a single consumer goroutine to stay safe
// under concurrent access from multiple LLM call sites.
type Metrics struct {
	modelName string

	mu       sync.Mutex // guards queue/state swap, not the snapshot itself
	state    *snapshot
	updates  chan update
	closeCh  chan struct{}
	closedCh chan struct{}
}

// New returns a Metrics accumulator and starts its consumer goroutine.
func New(modelName string) *Metrics {
	if modelName == "" {
		modelName = "default"
	}
	m := &Metrics{
		modelName: modelName,
		state:     &snapshot{},
		updates:   make(chan update, 64),
		closeCh:   make(chan struct{}),
		closedCh:  make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *Metrics) run() {
	defer close(m.closedCh)
	for {
		select {
		case u := <-m.updates:
			u(m.state)
		case <-m.closeCh:
			// Drain any already-queued updates before exiting so a
			// Close racing with a final AddCost never loses data.
			for {
				select {
				case u := <-m.updates:
					u(m.state)
				default:
					return
				}
			}
		}
	}
}

// Close stops the consumer goroutine. Further calls become no-ops.
func (m *Metrics) Close() {
	select {
	case <-m.closeCh:
	default:
		close(m.closeCh)
	}
	<-m.closedCh
}

func (m *Metrics) enqueue(u update) {
	m.updates <- u
}

// AddCost accumulates a priced call. value must be non-negative.
func (m *Metrics) AddCost(value float64) {
	if value < 0 {
		value = 0
	}
	done := make(chan struct{})
	m.enqueue(func(s *snapshot) {
		s.accumulatedCost += value
		s.costs = append(s.costs, Cost{Model: m.modelName, Cost: value, Timestamp: time.Now()})
		close(done)
	})
	<-done
}

// AddTokenUsage accumulates token counts for one completion call.
func (m *Metrics) AddTokenUsage(prompt, completion, cacheRead, cacheWrite, contextWindow int) {
	done := make(chan struct{})
	m.enqueue(func(s *snapshot) {
		s.accumulatedPromptTokens += prompt
		s.accumulatedCompletionTokens += completion
		s.accumulatedCacheReadTokens += cacheRead
		s.accumulatedCacheWriteTokens += cacheWrite
		s.tokenUsages = append(s.tokenUsages, TokenUsage{
			Model: m.modelName, PromptTokens: prompt, CompletionTokens: completion,
			CacheReadTokens: cacheRead, CacheWriteTokens: cacheWrite,
			ContextWindow: contextWindow, Timestamp: time.Now(),
		})
		close(done)
	})
	<-done
}

// AddResponseLatency records the round-trip time of a completion call.
func (m *Metrics) AddResponseLatency(latency time.Duration, responseID string) {
	if latency < 0 {
		latency = 0
	}
	done := make(chan struct{})
	m.enqueue(func(s *snapshot) {
		s.latencies = append(s.latencies, ResponseLatency{Model: m.modelName, Latency: latency, ResponseID: responseID})
		close(done)
	})
	<-done
}

// AccumulatedCost returns the current total cost. Monotonic
// non-decreasing for the lifetime of the Metrics instance, per
// SPEC_FULL.md §8 invariants.
func (m *Metrics) AccumulatedCost() float64 {
	result := make(chan float64, 1)
	m.enqueue(func(s *snapshot) { result <- s.accumulatedCost })
	return <-result
}

// Snapshot is a point-in-time deep copy of the accumulated metrics,
// safe to read without further synchronization.
type Snapshot struct {
	AccumulatedCost             float64
	Costs                       []Cost
	TokenUsages                 []TokenUsage
	ResponseLatencies           []ResponseLatency
	AccumulatedPromptTokens     int
	AccumulatedCompletionTokens int
	AccumulatedCacheReadTokens  int
	AccumulatedCacheWriteTokens int
}

// Get returns a deep-copied snapshot of the current metrics.
func (m *Metrics) Get() Snapshot {
	result := make(chan Snapshot, 1)
	m.enqueue(func(s *snapshot) {
		result <- Snapshot{
			AccumulatedCost:             s.accumulatedCost,
			Costs:                       append([]Cost(nil), s.costs...),
			TokenUsages:                 append([]TokenUsage(nil), s.tokenUsages...),
			ResponseLatencies:           append([]ResponseLatency(nil), s.latencies...),
			AccumulatedPromptTokens:     s.accumulatedPromptTokens,
			AccumulatedCompletionTokens: s.accumulatedCompletionTokens,
			AccumulatedCacheReadTokens:  s.accumulatedCacheReadTokens,
			AccumulatedCacheWriteTokens: s.accumulatedCacheWriteTokens,
		}
	})
	return <-result
}

// Merge folds other's accumulated values into m. Used when a delegate
// does NOT share the parent's Metrics by reference (e.g. evaluation
// harnesses that want isolated delegate accounting); the default
// delegation path shares the same *Metrics instance instead, per
// SPEC_FULL.md §4.4.
func (m *Metrics) Merge(other *Metrics) {
	snap := other.Get()
	done := make(chan struct{})
	m.enqueue(func(s *snapshot) {
		s.accumulatedCost += snap.AccumulatedCost
		s.costs = append(s.costs, snap.Costs...)
		s.tokenUsages = append(s.tokenUsages, snap.TokenUsages...)
		s.latencies = append(s.latencies, snap.ResponseLatencies...)
		s.accumulatedPromptTokens += snap.AccumulatedPromptTokens
		s.accumulatedCompletionTokens += snap.AccumulatedCompletionTokens
		s.accumulatedCacheReadTokens += snap.AccumulatedCacheReadTokens
		s.accumulatedCacheWriteTokens += snap.AccumulatedCacheWriteTokens
		close(done)
	})
	<-done
}

// Reset clears all accumulated metrics.
func (m *Metrics) Reset() {
	done := make(chan struct{})
	m.enqueue(func(s *snapshot) {
		*s = snapshot{}
		close(done)
	})
	<-done
}
