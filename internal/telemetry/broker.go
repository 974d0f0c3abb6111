package telemetry

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/agentcore/agentcore/internal/events"
)

// BrokerPublisher republishes every appended Event Stream event onto a
// NATS subject so external observers (a dashboard, another session, an
// SSE bridge) can follow a session without reading its FileStore.
// Grounded on the teacher pack's nats.go usage in
// fyrsmithlabs-contextd/pkg/mcp/sse.go, adapted from progress-channel
// fan-out to straight event republishing: subject is
// "sessions.<id>.events" rather than "operations.<owner>.<op>.*".
type BrokerPublisher struct {
	conn      *nats.Conn
	sessionID string
	subject   string
}

// NewBrokerPublisher connects to url and returns a publisher for
// sessionID. Connection failures are returned immediately rather than
// deferred, since a broker that never connects should disable itself
// rather than silently drop every publish.
func NewBrokerPublisher(url string, sessionID string) (*BrokerPublisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("telemetry: connect to nats at %s: %w", url, err)
	}
	return &BrokerPublisher{
		conn:      conn,
		sessionID: sessionID,
		subject:   fmt.Sprintf("sessions.%s.events", sessionID),
	}, nil
}

// Attach subscribes the publisher to stream; every event appended from
// this point forward is republished to the session's NATS subject.
func (b *BrokerPublisher) Attach(stream *events.Stream) {
	stream.Subscribe(events.SubscriberBroker, b.sessionID, b.publish)
}

// Detach unsubscribes from stream.
func (b *BrokerPublisher) Detach(stream *events.Stream) {
	stream.Unsubscribe(events.SubscriberBroker, b.sessionID)
}

func (b *BrokerPublisher) publish(e *events.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	// Best-effort: a session must not fail because no one is listening
	// on the broker subject.
	_ = b.conn.Publish(b.subject, data)
}

// Close drains and closes the NATS connection.
func (b *BrokerPublisher) Close() {
	_ = b.conn.Drain()
}
