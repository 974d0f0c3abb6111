package state

import "github.com/agentcore/agentcore/internal/events"

// View is a condensed projection over a session's history: the raw event
// list with any events named by a Condensation action's ForgottenEventIDs
// removed. No marker is inserted in their place; the Condensation action
// event itself, which carries the summary, stays in the view. Two View
// computations over equal history slices are equal (SPEC_FULL.md §8,
// "view is deterministic in history").
type View struct {
	Events []*events.Event
}

// FromEvents builds a View from a session's full history.
func FromEvents(history []*events.Event) View {
	forgotten := make(map[int64]bool)
	var summaries []string
	for _, ev := range history {
		if ev.Kind != events.KindCondensation || !ev.IsAction() {
			continue
		}
		cond, ok := ev.Action().(*events.CondensationAction)
		if !ok {
			continue
		}
		for _, id := range cond.ForgottenEventIDs {
			forgotten[id] = true
		}
		if cond.Summary != "" {
			summaries = append(summaries, cond.Summary)
		}
	}

	out := make([]*events.Event, 0, len(history))
	for _, ev := range history {
		if forgotten[ev.ID] {
			continue
		}
		out = append(out, ev)
	}
	return View{Events: out}
}
