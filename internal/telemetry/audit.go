// Package telemetry holds the optional, off-by-default observability
// subscribers for an Event Stream session: a structured audit log, a
// message-broker republisher, and a Prometheus exporter. None of these
// are required for a session to run; each attaches to a Stream the same
// way any other subscriber does.
package telemetry

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/agentcore/agentcore/internal/events"
)

// AuditLogger writes every appended Action/Observation to a structured
// JSON log, independent of the per-event JSON files the FileStore writes
// and independent of the human-facing color status lines the CLI prints.
// Grounded on the teacher pack's go.uber.org/zap usage in
// fyrsmithlabs-contextd/internal/logging, trimmed to a single JSON core
// since this domain has no OTEL export or sampling config to carry.
type AuditLogger struct {
	logger    *zap.Logger
	sessionID string
}

// NewAuditLogger opens (creating if necessary) a JSON audit log at path.
func NewAuditLogger(path string, sessionID string) (*AuditLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("telemetry: build audit logger: %w", err)
	}
	return &AuditLogger{logger: logger, sessionID: sessionID}, nil
}

// Attach subscribes the audit logger to stream, logging every event from
// this point forward. It does not replay history.
func (a *AuditLogger) Attach(stream *events.Stream) {
	stream.Subscribe(events.SubscriberAudit, a.sessionID, a.record)
}

// Detach unsubscribes from stream. Callers should also call Close once
// no further events will arrive.
func (a *AuditLogger) Detach(stream *events.Stream) {
	stream.Unsubscribe(events.SubscriberAudit, a.sessionID)
}

func (a *AuditLogger) record(e *events.Event) {
	fields := []zap.Field{
		zap.String("session_id", a.sessionID),
		zap.Int64("event_id", e.ID),
		zap.String("type", string(e.Type)),
		zap.String("kind", string(e.Kind)),
		zap.String("source", string(e.Source)),
		zap.Time("timestamp", e.Timestamp),
	}
	if e.Cause != nil {
		fields = append(fields, zap.Int64("cause", *e.Cause))
	}
	if e.ToolCallMetadata != nil {
		fields = append(fields, zap.String("tool_call_id", e.ToolCallMetadata.ToolCallID))
	}
	a.logger.Info("event", fields...)
}

// Close flushes the underlying zap core; the log file is not closed.
func (a *AuditLogger) Close() error {
	return a.logger.Sync()
}
