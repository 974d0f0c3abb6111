package events

import (
	"sync"
	"testing"
	"time"

	"github.com/agentcore/agentcore/internal/filestore"
	"github.com/agentcore/agentcore/internal/metrics"
)

func newTestStream(t *testing.T) *Stream {
	t.Helper()
	store, err := filestore.NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	m := metrics.New("test-model")
	t.Cleanup(m.Close)
	stream, err := NewStream("sid", store, m)
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	return stream
}

func TestAddEventAssignsSequentialIDs(t *testing.T) {
	s := newTestStream(t)
	for i := 0; i < 5; i++ {
		ev, err := s.AddEvent(NewActionEvent(SourceUser, &MessageAction{Content: "hi"}), SourceUser)
		if err != nil {
			t.Fatalf("AddEvent: %v", err)
		}
		if ev.ID != int64(i) {
			t.Fatalf("AddEvent #%d got id %d, want %d", i, ev.ID, i)
		}
	}
	if s.GetLatestEventID() != 4 {
		t.Fatalf("GetLatestEventID = %d, want 4", s.GetLatestEventID())
	}
}

func TestAddEventSetsTimestampAndSource(t *testing.T) {
	s := newTestStream(t)
	before := time.Now().UTC()
	ev, err := s.AddEvent(NewActionEvent(SourceAgent, &MessageAction{Content: "hi"}), SourceAgent)
	if err != nil {
		t.Fatalf("AddEvent: %v", err)
	}
	if ev.Source != SourceAgent {
		t.Errorf("Source = %s, want AGENT", ev.Source)
	}
	if ev.Timestamp.Before(before) {
		t.Errorf("Timestamp %v predates the call", ev.Timestamp)
	}
}

func TestGetEventNotFound(t *testing.T) {
	s := newTestStream(t)
	if _, err := s.GetEvent(42); err != ErrNotFound {
		t.Fatalf("GetEvent(unknown) err = %v, want ErrNotFound", err)
	}
}

func TestGetLatestEventIDEmptyStream(t *testing.T) {
	s := newTestStream(t)
	if got := s.GetLatestEventID(); got != -1 {
		t.Fatalf("GetLatestEventID on empty stream = %d, want -1", got)
	}
}

func TestGetEventsOrderAndFilter(t *testing.T) {
	s := newTestStream(t)
	for i := 0; i < 4; i++ {
		if _, err := s.AddEvent(NewActionEvent(SourceUser, &MessageAction{Content: "m"}), SourceUser); err != nil {
			t.Fatalf("AddEvent: %v", err)
		}
	}

	all, err := s.GetEvents(0, -1, false, nil)
	if err != nil {
		t.Fatalf("GetEvents: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("len(all) = %d, want 4", len(all))
	}
	for i, ev := range all {
		if ev.ID != int64(i) {
			t.Fatalf("GetEvents order broken at index %d: id %d", i, ev.ID)
		}
	}

	reversed, err := s.GetEvents(0, -1, true, nil)
	if err != nil {
		t.Fatalf("GetEvents reverse: %v", err)
	}
	if reversed[0].ID != 3 || reversed[len(reversed)-1].ID != 0 {
		t.Fatalf("GetEvents reverse order wrong: got ids %d..%d", reversed[0].ID, reversed[len(reversed)-1].ID)
	}

	evenOnly, err := s.GetEvents(0, -1, false, func(ev *Event) bool { return ev.ID%2 == 0 })
	if err != nil {
		t.Fatalf("GetEvents filtered: %v", err)
	}
	if len(evenOnly) != 2 {
		t.Fatalf("len(evenOnly) = %d, want 2", len(evenOnly))
	}
}

// TestSubscriberOrderPreserved exercises SPEC_FULL.md §8: "For any
// subscriber s and any two events e1, e2 with e1.id < e2.id, s receives
// e1 before e2."
func TestSubscriberOrderPreserved(t *testing.T) {
	s := newTestStream(t)

	var mu sync.Mutex
	var seen []int64
	done := make(chan struct{})

	s.Subscribe(SubscriberController, "c1", func(ev *Event) {
		mu.Lock()
		seen = append(seen, ev.ID)
		if len(seen) == 20 {
			close(done)
		}
		mu.Unlock()
	})

	for i := 0; i < 20; i++ {
		if _, err := s.AddEvent(NewActionEvent(SourceUser, &MessageAction{Content: "m"}), SourceUser); err != nil {
			t.Fatalf("AddEvent: %v", err)
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for all 20 events to be delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, id := range seen {
		if id != int64(i) {
			t.Fatalf("delivery order broken at position %d: got id %d, want %d", i, id, i)
		}
	}
}

// TestSubscriberPanicIsolated ensures a panicking callback doesn't break
// delivery to other subscribers or future events (SPEC_FULL.md §4.1/§7:
// "A callback failure is logged but must not break delivery").
func TestSubscriberPanicIsolated(t *testing.T) {
	s := newTestStream(t)

	s.Subscribe(SubscriberRuntime, "panicky", func(ev *Event) {
		panic("boom")
	})

	var mu sync.Mutex
	var count int
	done := make(chan struct{})
	s.Subscribe(SubscriberController, "healthy", func(ev *Event) {
		mu.Lock()
		count++
		if count == 3 {
			close(done)
		}
		mu.Unlock()
	})

	for i := 0; i < 3; i++ {
		if _, err := s.AddEvent(NewActionEvent(SourceUser, &MessageAction{Content: "m"}), SourceUser); err != nil {
			t.Fatalf("AddEvent: %v", err)
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("panicking subscriber broke delivery to the healthy one")
	}
}

func TestSubscribeReplacesSameKey(t *testing.T) {
	s := newTestStream(t)

	var mu sync.Mutex
	var firstCalls, secondCalls int

	s.Subscribe(SubscriberMemory, "m1", func(ev *Event) {
		mu.Lock()
		firstCalls++
		mu.Unlock()
	})
	done := make(chan struct{})
	s.Subscribe(SubscriberMemory, "m1", func(ev *Event) {
		mu.Lock()
		secondCalls++
		if secondCalls == 1 {
			close(done)
		}
		mu.Unlock()
	})

	if _, err := s.AddEvent(NewActionEvent(SourceUser, &MessageAction{Content: "m"}), SourceUser); err != nil {
		t.Fatalf("AddEvent: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("replacement subscriber never received the event")
	}

	mu.Lock()
	defer mu.Unlock()
	if firstCalls != 0 {
		t.Errorf("original subscription still active after replacement: firstCalls=%d", firstCalls)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	s := newTestStream(t)

	var mu sync.Mutex
	var calls int
	s.Subscribe(SubscriberAudit, "a1", func(ev *Event) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	s.Unsubscribe(SubscriberAudit, "a1")

	if _, err := s.AddEvent(NewActionEvent(SourceUser, &MessageAction{Content: "m"}), SourceUser); err != nil {
		t.Fatalf("AddEvent: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if calls != 0 {
		t.Errorf("unsubscribed callback still invoked: calls=%d", calls)
	}
}

// TestConcurrentAddEventDistinctIDs simulates concurrent appenders and
// asserts that the n assigned ids are pairwise distinct
// (SPEC_FULL.md §8: "Appending the same Event twice is impossible").
func TestConcurrentAddEventDistinctIDs(t *testing.T) {
	s := newTestStream(t)

	const n = 50
	ids := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ev, err := s.AddEvent(NewActionEvent(SourceUser, &MessageAction{Content: "m"}), SourceUser)
			if err != nil {
				t.Errorf("AddEvent: %v", err)
				return
			}
			ids[i] = ev.ID
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool, n)
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %d assigned under concurrent AddEvent", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Fatalf("expected %d distinct ids, got %d", n, len(seen))
	}
}

func TestEventPersistsAcrossNewStream(t *testing.T) {
	store, err := filestore.NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	m := metrics.New("test-model")
	defer m.Close()

	s1, err := NewStream("sid", store, m)
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	if _, err := s1.AddEvent(NewActionEvent(SourceUser, &MessageAction{Content: "persisted"}), SourceUser); err != nil {
		t.Fatalf("AddEvent: %v", err)
	}

	s2, err := NewStream("sid", store, m)
	if err != nil {
		t.Fatalf("NewStream (reopen): %v", err)
	}
	if s2.GetLatestEventID() != 0 {
		t.Fatalf("reopened stream's GetLatestEventID = %d, want 0", s2.GetLatestEventID())
	}
	ev, err := s2.GetEvent(0)
	if err != nil {
		t.Fatalf("GetEvent after reopen: %v", err)
	}
	msg, ok := ev.Action().(*MessageAction)
	if !ok || msg.Content != "persisted" {
		t.Fatalf("reopened event payload wrong: %+v", ev)
	}
}
