package main

import (
	"testing"

	"github.com/agentcore/agentcore/internal/config"
	"github.com/agentcore/agentcore/internal/controller"
	"github.com/agentcore/agentcore/internal/metrics"
	"github.com/agentcore/agentcore/internal/state"
)

func TestPersistStateWritesMarshaledState(t *testing.T) {
	dir := t.TempDir()
	cfg := config.EventStreamConfig{DataDir: dir, Backend: "disk"}
	m := metrics.New("")
	defer m.Close()

	sc, err := openSession("sess-persist", cfg, m)
	if err != nil {
		t.Fatalf("openSession: %v", err)
	}

	fakeAgent := &noopAgent{}
	ctl, err := controller.New(fakeAgent, sc.stream, m, controller.Config{
		SessionID:    "sess-persist",
		IterationMax: 10,
	})
	if err != nil {
		t.Fatalf("controller.New: %v", err)
	}
	defer ctl.Close()

	if err := persistState(sc, ctl); err != nil {
		t.Fatalf("persistState: %v", err)
	}

	raw, err := sc.store.Read("state.json")
	if err != nil {
		t.Fatalf("expected state.json to have been written: %v", err)
	}
	if len(raw) == 0 {
		t.Error("expected non-empty marshaled state")
	}
}

// noopAgent satisfies controller.Agent without producing any actions,
// enough to exercise controller.New/State/Close in isolation.
type noopAgent struct{}

func (n *noopAgent) Step(s *state.State) ([]controller.Produced, error) {
	return nil, nil
}

func (n *noopAgent) GetSystemMessage() (string, bool) { return "", false }

func (n *noopAgent) Reset() {}
