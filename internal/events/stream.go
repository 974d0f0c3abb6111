package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/agentcore/agentcore/internal/filestore"
	"github.com/agentcore/agentcore/internal/metrics"
)

// ErrNotFound is returned by GetEvent when id has not been assigned.
var ErrNotFound = errors.New("events: not found")

// ErrPersist wraps a FileStore failure during AddEvent.
var ErrPersist = errors.New("events: persist failed")

// SubscriberKind identifies a class of subscriber for the (kind, id) key
// used by Subscribe/Unsubscribe.
type SubscriberKind string

const (
	SubscriberController SubscriberKind = "controller"
	SubscriberRuntime    SubscriberKind = "runtime"
	SubscriberMemory     SubscriberKind = "memory"

	// SubscriberAudit, SubscriberBroker and SubscriberExporter identify
	// the optional telemetry subscribers in internal/telemetry: a
	// structured audit log, a message-broker republisher, and a metrics
	// exporter. They observe the stream the same way any subscriber
	// does; nothing in this package depends on them existing.
	SubscriberAudit    SubscriberKind = "audit"
	SubscriberBroker   SubscriberKind = "broker"
	SubscriberExporter SubscriberKind = "exporter"
)

// Callback is invoked for every event appended after subscription.
// Delivery to a single subscriber is always in append order and never
// concurrent with itself (SPEC_FULL.md §5).
type Callback func(*Event)

type subscriberKey struct {
	kind SubscriberKind
	id   string
}

type subscriber struct {
	callback Callback
	queue    chan *Event
	done     chan struct{}
}

// Stream is the durable, ordered, multi-subscriber event log scoped to a
// single session. It is the sole coordination medium between the
// Controller, the Runtime, and Memory.
type Stream struct {
	sessionID string
	store     filestore.FileStore
	metrics   *metrics.Metrics

	mu       sync.Mutex // guards nextID and subscribers; id assignment happens under this lock
	nextID   int64
	subs     map[subscriberKey]*subscriber
}

// NewStream constructs a Stream over store, scoped to sessionID, and
// reconstructs nextID by scanning the persisted event range.
func NewStream(sessionID string, store filestore.FileStore, m *metrics.Metrics) (*Stream, error) {
	s := &Stream{
		sessionID: sessionID,
		store:     store,
		metrics:   m,
		subs:      make(map[subscriberKey]*subscriber),
	}
	latest, err := s.scanLatestID()
	if err != nil {
		return nil, err
	}
	s.nextID = latest + 1
	return s, nil
}

func (s *Stream) eventPath(id int64) string {
	return fmt.Sprintf("sessions/%s/events/%020d.json", s.sessionID, id)
}

func (s *Stream) scanLatestID() (int64, error) {
	paths, err := s.store.List(fmt.Sprintf("sessions/%s/events/", s.sessionID))
	if err != nil {
		return -1, fmt.Errorf("events: scan existing events: %w", err)
	}
	if len(paths) == 0 {
		return -1, nil
	}
	sort.Strings(paths)
	last := paths[len(paths)-1]
	ev, err := s.loadPath(last)
	if err != nil {
		return -1, err
	}
	return ev.ID, nil
}

func (s *Stream) loadPath(path string) (*Event, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("events: read %s: %w", path, err)
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("events: decode %s: %w", path, err)
	}
	return &ev, nil
}

// AddEvent assigns the next id and timestamp, sets source, persists the
// event, then fans it out to subscribers. Returns after persistence
// succeeds. A persistence failure aborts without notifying subscribers.
func (s *Stream) AddEvent(ev *Event, source Source) (*Event, error) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	ev.ID = id
	ev.Timestamp = time.Now().UTC()
	ev.Source = source

	data, err := json.Marshal(ev)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("events: encode event %d: %w", id, err)
	}
	if err := s.store.Write(s.eventPath(id), data); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: event %d: %v", ErrPersist, id, err)
	}

	subsSnapshot := make([]*subscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		subsSnapshot = append(subsSnapshot, sub)
	}
	s.mu.Unlock()

	for _, sub := range subsSnapshot {
		select {
		case sub.queue <- ev:
		case <-sub.done:
		}
	}
	return ev, nil
}

// GetEvent loads a single event by id.
func (s *Stream) GetEvent(id int64) (*Event, error) {
	return s.loadPath(s.eventPath(id))
}

// GetLatestEventID returns the largest assigned id, or -1 if none.
func (s *Stream) GetLatestEventID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextID - 1
}

// GetEvents returns events in [startID, endID] (either bound optional via
// -1) in id order, or reverse order if reverse is true, filtered by
// filter (nil matches everything).
func (s *Stream) GetEvents(startID, endID int64, reverse bool, filter Filter) ([]*Event, error) {
	if startID < 0 {
		startID = 0
	}
	latest := s.GetLatestEventID()
	if endID < 0 || endID > latest {
		endID = latest
	}
	var out []*Event
	for id := startID; id <= endID; id++ {
		ev, err := s.GetEvent(id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		if filter == nil || filter(ev) {
			out = append(out, ev)
		}
	}
	if reverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

// Subscribe registers callback under (kind, id), invoked for every future
// event in append order. A second subscription with the same key
// replaces the first.
func (s *Stream) Subscribe(kind SubscriberKind, id string, callback Callback) {
	key := subscriberKey{kind: kind, id: id}

	s.mu.Lock()
	if old, ok := s.subs[key]; ok {
		close(old.done)
	}
	sub := &subscriber{
		callback: callback,
		queue:    make(chan *Event, 256),
		done:     make(chan struct{}),
	}
	s.subs[key] = sub
	s.mu.Unlock()

	go s.deliverLoop(sub)
}

// deliverLoop invokes the callback sequentially for one subscriber,
// isolating a panic or error so it never breaks delivery to others.
func (s *Stream) deliverLoop(sub *subscriber) {
	for {
		select {
		case ev := <-sub.queue:
			s.safeInvoke(sub.callback, ev)
		case <-sub.done:
			return
		}
	}
}

func (s *Stream) safeInvoke(cb Callback, ev *Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("events: subscriber callback panicked on event %d: %v", ev.ID, r)
		}
	}()
	cb(ev)
}

// Unsubscribe removes the subscription under (kind, id), if any.
func (s *Stream) Unsubscribe(kind SubscriberKind, id string) {
	key := subscriberKey{kind: kind, id: id}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.subs[key]; ok {
		close(sub.done)
		delete(s.subs, key)
	}
}

// GetMetrics returns the current merged metrics snapshot. May be a zero
// Snapshot if no Metrics instance is attached.
func (s *Stream) GetMetrics() metrics.Snapshot {
	if s.metrics == nil {
		return metrics.Snapshot{}
	}
	return s.metrics.Get()
}
