// Package state implements the per-Controller State record: history
// range, control flags, agent state, delegation payload, and the
// serialization/migration rules that let a session survive a pause and
// resume.
package state

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"

	"github.com/agentcore/agentcore/internal/events"
	"github.com/agentcore/agentcore/internal/flags"
	"github.com/agentcore/agentcore/internal/metrics"
)

// State holds everything a Controller needs beyond the event stream
// itself. It is created on session start, mutated only by its owning
// Controller, serialized on pause/shutdown, and restored on resume.
type State struct {
	SessionID string

	// History is the ordered slice of events in [StartID, EndID] scoped
	// to this session. It is never serialized directly: on restore it is
	// always rebuilt from the Event Stream (SPEC_FULL.md §4.3).
	History []*events.Event
	StartID int64
	EndID   int64

	IterationFlag *flags.Iteration
	BudgetFlag    *flags.Budget // optional; nil if no budget ceiling configured

	AgentState  events.AgentState
	ResumeState events.AgentState // observed agent_state at save time; only meaningful post-restore

	// Metrics is shared by reference with delegate States
	// (SPEC_FULL.md §4.4 Delegation).
	Metrics *metrics.Metrics

	Inputs  map[string]any
	Outputs map[string]any

	DelegateLevel int
	LastError     string
	ExtraData     map[string]any

	// traffic_control_state is a deprecated field from older snapshot
	// formats. It is never populated on a fresh State and, per
	// SPEC_FULL.md §4.3's resolved Open Question, is dropped on restore,
	// never re-emitted, and reconstructed as NORMAL.
	trafficControlState string

	viewCache        View
	viewCacheLen     int
	viewCachePrimed  bool
}

// New returns a fresh State in LOADING, with flags seeded from
// iterationMax/iterationIncrease and, if budgetMax > 0, a Budget flag.
func New(sessionID string, iterationMax, iterationIncrease int, budgetMax, budgetIncrease float64, m *metrics.Metrics) *State {
	s := &State{
		SessionID:            sessionID,
		StartID:              0,
		EndID:                -1,
		IterationFlag:        flags.NewIteration(iterationMax, iterationIncrease),
		AgentState:           events.AgentStateLoading,
		trafficControlState:  "NORMAL",
		Metrics:              m,
		Inputs:               map[string]any{},
		Outputs:              map[string]any{},
		ExtraData:            map[string]any{},
	}
	if budgetMax > 0 {
		s.BudgetFlag = flags.NewBudget(budgetMax, budgetIncrease)
	}
	return s
}

// View returns the condensed projection over History, recomputing it only
// when len(History) has changed since the last computation (cheap
// checksum, SPEC_FULL.md §4.3).
func (s *State) View() View {
	if !s.viewCachePrimed || len(s.History) != s.viewCacheLen {
		s.viewCache = FromEvents(s.History)
		s.viewCacheLen = len(s.History)
		s.viewCachePrimed = true
	}
	return s.viewCache
}

// AppendHistory adds ev to History and advances EndID. Mutating History
// through this method is what invalidates the view cache (via the
// length check in View()).
func (s *State) AppendHistory(ev *events.Event) {
	s.History = append(s.History, ev)
	s.EndID = ev.ID
}

// snapshot is the on-disk representation written by Save and read by
// Load. It intentionally omits History and any view-cache field.
// Deprecated fields from older formats are decoded, if present, purely
// to drive migration in Load; they are never part of a value produced by
// Save.
type snapshot struct {
	SessionID     string
	StartID       int64
	EndID         int64
	IterationFlag flags.Iteration
	HasBudget     bool
	BudgetFlag    flags.Budget
	AgentState    events.AgentState
	ResumeState   events.AgentState
	Inputs        json.RawMessage
	Outputs       json.RawMessage
	DelegateLevel int
	LastError     string
	ExtraData     json.RawMessage

	// Deprecated fields, pre-IterationControlFlag-refactor formats.
	// Present only when decoding a legacy snapshot; Save never writes
	// them (SPEC_FULL.md §4.3 migration rule).
	Iteration          *int     `json:",omitempty"`
	LocalIteration     *int     `json:",omitempty"`
	MaxIterations      *int     `json:",omitempty"`
	TrafficControlState *string `json:",omitempty"`
	LocalMetrics       json.RawMessage `json:",omitempty"`
	Delegates          json.RawMessage `json:",omitempty"`
}

// Marshal encodes the State's non-history fields to JSON, for the
// state.json mirror written alongside state.gob. History and view-cache
// fields are never included.
func (s *State) Marshal() ([]byte, error) {
	snap, err := s.toSnapshot()
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(&snap)
	if err != nil {
		return nil, fmt.Errorf("state: marshal snapshot: %w", err)
	}
	return data, nil
}

// MarshalGob encodes the same snapshot Marshal does, via encoding/gob
// instead of JSON, for the binary state.gob written alongside the JSON
// mirror (SPEC_FULL.md §4.3). gob requires no struct tags and round-trips
// the snapshot's json.RawMessage fields as plain byte slices.
func (s *State) MarshalGob() ([]byte, error) {
	snap, err := s.toSnapshot()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&snap); err != nil {
		return nil, fmt.Errorf("state: gob-encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// toSnapshot builds the on-disk snapshot shared by Marshal and MarshalGob.
func (s *State) toSnapshot() (snapshot, error) {
	inputs, err := json.Marshal(s.Inputs)
	if err != nil {
		return snapshot{}, fmt.Errorf("state: marshal inputs: %w", err)
	}
	outputs, err := json.Marshal(s.Outputs)
	if err != nil {
		return snapshot{}, fmt.Errorf("state: marshal outputs: %w", err)
	}
	extra, err := json.Marshal(s.ExtraData)
	if err != nil {
		return snapshot{}, fmt.Errorf("state: marshal extra_data: %w", err)
	}

	snap := snapshot{
		SessionID:     s.SessionID,
		StartID:       s.StartID,
		EndID:         s.EndID,
		IterationFlag: *s.IterationFlag,
		AgentState:    s.AgentState,
		ResumeState:   s.ResumeState,
		Inputs:        inputs,
		Outputs:       outputs,
		DelegateLevel: s.DelegateLevel,
		LastError:     s.LastError,
		ExtraData:     extra,
	}
	if s.BudgetFlag != nil {
		snap.HasBudget = true
		snap.BudgetFlag = *s.BudgetFlag
	}
	return snap, nil
}

// Unmarshal decodes data into a new State (History is left empty; the
// caller rebuilds it from the Event Stream). Deprecated fields from
// legacy snapshots are migrated: `iteration` -> IterationFlag.CurrentValue,
// `max_iterations` -> IterationFlag.MaxValue, and the restored agent_state
// is captured into ResumeState while AgentState begins fresh at LOADING.
// traffic_control_state is read and discarded; the fresh State always
// reconstructs it as NORMAL and never re-emits it on a subsequent Save.
func Unmarshal(data []byte, m *metrics.Metrics) (*State, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("state: unmarshal snapshot: %w", err)
	}
	return stateFromSnapshot(snap, m)
}

// UnmarshalGob decodes a state.gob payload written by MarshalGob. Read
// failures (corrupt or truncated gob data, or a stream pre-dating the
// binary snapshot) are the caller's cue to migrate from the JSON mirror
// via Unmarshal instead (SPEC_FULL.md §4.3's "best-effort, migrated on
// read").
func UnmarshalGob(data []byte, m *metrics.Metrics) (*State, error) {
	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("state: gob-decode snapshot: %w", err)
	}
	return stateFromSnapshot(snap, m)
}

func stateFromSnapshot(snap snapshot, m *metrics.Metrics) (*State, error) {
	s := &State{
		SessionID:           snap.SessionID,
		StartID:             snap.StartID,
		EndID:                snap.EndID,
		IterationFlag:        &snap.IterationFlag,
		AgentState:           events.AgentStateLoading,
		ResumeState:          snap.AgentState,
		Metrics:              m,
		DelegateLevel:        snap.DelegateLevel,
		LastError:            snap.LastError,
		trafficControlState:  "NORMAL",
	}
	if snap.HasBudget {
		s.BudgetFlag = &snap.BudgetFlag
	}
	if len(snap.Inputs) > 0 {
		if err := json.Unmarshal(snap.Inputs, &s.Inputs); err != nil {
			return nil, fmt.Errorf("state: unmarshal inputs: %w", err)
		}
	} else {
		s.Inputs = map[string]any{}
	}
	if len(snap.Outputs) > 0 {
		if err := json.Unmarshal(snap.Outputs, &s.Outputs); err != nil {
			return nil, fmt.Errorf("state: unmarshal outputs: %w", err)
		}
	} else {
		s.Outputs = map[string]any{}
	}
	if len(snap.ExtraData) > 0 {
		if err := json.Unmarshal(snap.ExtraData, &s.ExtraData); err != nil {
			return nil, fmt.Errorf("state: unmarshal extra_data: %w", err)
		}
	} else {
		s.ExtraData = map[string]any{}
	}

	// Legacy migration: older snapshots stored a bare iteration/max_iterations
	// pair instead of an IterationFlag.
	if snap.Iteration != nil {
		s.IterationFlag.CurrentValue = *snap.Iteration
	} else if snap.LocalIteration != nil {
		s.IterationFlag.CurrentValue = *snap.LocalIteration
	}
	if snap.MaxIterations != nil {
		s.IterationFlag.MaxValue = *snap.MaxIterations
	}
	// snap.TrafficControlState, snap.LocalMetrics, and snap.Delegates are
	// intentionally never consulted: they are dropped on restore.

	return s, nil
}

// TrafficControlState always reads NORMAL, per the resolved Open Question
// in SPEC_FULL.md §4.3: the deprecated field is reconstructed, not
// restored.
func (s *State) TrafficControlState() string {
	return s.trafficControlState
}
