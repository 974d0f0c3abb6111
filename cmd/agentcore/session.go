package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentcore/agentcore/internal/agent"
	"github.com/agentcore/agentcore/internal/config"
	"github.com/agentcore/agentcore/internal/control"
	"github.com/agentcore/agentcore/internal/controller"
	"github.com/agentcore/agentcore/internal/events"
	"github.com/agentcore/agentcore/internal/filestore"
	"github.com/agentcore/agentcore/internal/metrics"
	"github.com/agentcore/agentcore/internal/state"
	"github.com/agentcore/agentcore/internal/telemetry"
)

// sessionComponents bundles the pieces every subcommand that touches a
// live or persisted session needs: the store backing its Event Stream,
// the stream itself, and the shared cost/token Metrics.
type sessionComponents struct {
	store     filestore.FileStore
	stream    *events.Stream
	metrics   *metrics.Metrics
	streamCfg config.EventStreamConfig
}

// openSession builds the Event Stream backend selected by cfg and opens
// (or creates) sessionID's stream on it.
func openSession(sessionID string, cfg config.EventStreamConfig, m *metrics.Metrics) (*sessionComponents, error) {
	var store filestore.FileStore
	switch cfg.Backend {
	case "sqlite":
		dbPath := filepath.Join(cfg.DataDir, sessionID+".db")
		s, err := filestore.NewSQLiteStore(dbPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		store = s
	default:
		s, err := filestore.NewDiskStore(filepath.Join(cfg.DataDir, sessionID))
		if err != nil {
			return nil, fmt.Errorf("open disk store: %w", err)
		}
		store = s
	}

	stream, err := events.NewStream(sessionID, store, m)
	if err != nil {
		return nil, fmt.Errorf("open event stream: %w", err)
	}

	return &sessionComponents{store: store, stream: stream, metrics: m, streamCfg: cfg}, nil
}

// attachTelemetry wires the optional audit/broker/exporter subscribers
// onto sc.stream according to which EventStreamConfig fields are set.
// Detach funcs are returned in attach order so the caller can defer a
// single teardown loop.
func attachTelemetry(ctx context.Context, sc *sessionComponents, sessionID string) (teardown func(), err error) {
	var closers []func()

	if sc.streamCfg.AuditLogPath != "" {
		audit, aerr := telemetry.NewAuditLogger(sc.streamCfg.AuditLogPath, sessionID)
		if aerr != nil {
			return nil, fmt.Errorf("start audit logger: %w", aerr)
		}
		audit.Attach(sc.stream)
		closers = append(closers, func() {
			audit.Detach(sc.stream)
			_ = audit.Close()
		})
	}

	if sc.streamCfg.NATSURL != "" {
		broker, berr := telemetry.NewBrokerPublisher(sc.streamCfg.NATSURL, sessionID)
		if berr != nil {
			for _, c := range closers {
				c()
			}
			return nil, fmt.Errorf("connect broker publisher: %w", berr)
		}
		broker.Attach(sc.stream)
		closers = append(closers, func() {
			broker.Detach(sc.stream)
			broker.Close()
		})
	}

	if sc.streamCfg.PrometheusAddr != "" {
		exporter := telemetry.NewExporter(sessionID)
		exporter.Attach(sc.stream)
		go func() {
			if err := exporter.Serve(ctx, sc.streamCfg.PrometheusAddr); err != nil {
				fmt.Fprintf(os.Stderr, "telemetry: metrics server stopped: %v\n", err)
			}
		}()
		closers = append(closers, func() {
			exporter.Detach(sc.stream)
		})
	}

	return func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}, nil
}

// newDelegateFactory returns a controller.DelegateFactory that resolves
// every AgentDelegateAction.Agent name against the same default,
// Anthropic-backed agent constructor the root session uses, giving the
// delegate a system prompt naming its role so its responses stay scoped to
// the sub-task it was handed rather than the parent's original goal.
func newDelegateFactory() controller.DelegateFactory {
	return func(name string) (controller.Agent, error) {
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("delegate agent %q: ANTHROPIC_API_KEY not set", name)
		}
		return agent.New(agent.Config{
			APIKey:       apiKey,
			SystemPrompt: fmt.Sprintf("You are %q, a sub-agent delegated a specific task. Stay scoped to the inputs you were handed and call finish once they are satisfied.", name),
		}), nil
	}
}

// loadSavedState reads a session's persisted state, preferring the binary
// state.gob snapshot and falling back to the state.json mirror when no
// gob snapshot exists or it fails to decode (a session saved before
// state.gob was introduced, or a corrupt binary write) — the
// "best-effort, migrated on read" rule in SPEC_FULL.md §6.
func loadSavedState(sc *sessionComponents, sessionID string, m *metrics.Metrics) (*state.State, error) {
	if gobData, err := sc.store.Read("state.gob"); err == nil {
		st, err := state.UnmarshalGob(gobData, m)
		if err == nil {
			return st, nil
		}
		fmt.Fprintf(os.Stderr, "Warning: state.gob unreadable (%v), falling back to state.json\n", err)
	}

	jsonData, err := sc.store.Read("state.json")
	if err != nil {
		return nil, fmt.Errorf("no saved state for session %q: %w", sessionID, err)
	}
	st, err := state.Unmarshal(jsonData, m)
	if err != nil {
		return nil, fmt.Errorf("decode saved state: %w", err)
	}
	return st, nil
}

// startControlChannel opens the Unix-socket control server at socketPath
// and, if that fails (e.g. a container whose socket mount didn't
// propagate), falls back to a file-drop FileWatcher rooted at
// dataDir/<sessionID>.control, which answers commands dropped there as
// *.cmd.json files. 'agentcore pause'/'unpause'/'status' only dial the
// Unix socket, so they cannot reach a session running on the file-drop
// fallback. Returns a stop func to defer.
func startControlChannel(ctx context.Context, socketPath, dataDir, sessionID string, handler func(control.Command) (map[string]interface{}, error)) (stop func(), err error) {
	srv, srvErr := control.NewServer(socketPath, handler)
	if srvErr == nil {
		if startErr := srv.Start(ctx); startErr == nil {
			return func() { srv.Stop() }, nil
		} else {
			srv.Stop()
			srvErr = startErr
		}
	}

	fmt.Fprintf(os.Stderr, "Warning: control socket unavailable (%v), falling back to file-drop control channel\n", srvErr)
	watchDir := filepath.Join(dataDir, sessionID+".control")
	fw, fwErr := control.NewFileWatcher(watchDir, handler)
	if fwErr != nil {
		return nil, fmt.Errorf("start control channel: socket failed (%v), file-watch fallback failed: %w", srvErr, fwErr)
	}
	fw.Start(ctx)
	return fw.Stop, nil
}

// defaultSocketPath mirrors the teacher pack's .vc/executor.sock /
// /tmp/vc-<user>.sock convention, adapted to a session-keyed socket
// under the Event Stream's data directory.
func defaultSocketPath(dataDir, sessionID string) string {
	return filepath.Join(dataDir, sessionID+".sock")
}

// findSessionSocket looks for a control socket for sessionID under
// dataDir, falling back to /tmp/agentcore-<sessionID>.sock (for sessions
// whose data dir isn't known to the caller), grounded on the teacher
// pack's cmd/vc/pause.go findExecutorSocket.
func findSessionSocket(dataDir, sessionID string) (string, error) {
	if dataDir != "" {
		candidate := defaultSocketPath(dataDir, sessionID)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	tmpCandidate := filepath.Join("/tmp", fmt.Sprintf("agentcore-%s.sock", sessionID))
	if _, err := os.Stat(tmpCandidate); err == nil {
		return tmpCandidate, nil
	}
	return "", fmt.Errorf("no running session %q found (no control socket)", sessionID)
}
