package runtime

import (
	"context"
	"fmt"
	"log"

	"github.com/agentcore/agentcore/internal/bash"
	"github.com/agentcore/agentcore/internal/events"
)

// Config configures a Local Runtime.
type Config struct {
	SessionID string

	// WorkDir is the directory actions execute in: either a fresh
	// SandboxHandle.WorktreePath or, for sessions run outside a sandbox,
	// any existing directory.
	WorkDir string

	// Multiplex selects bash.Multiplexed over bash.Subprocess for the
	// command session. See internal/bash for the tradeoff.
	Multiplex bool

	BashConfig bash.Config

	// AllowedPathGlobs, if non-empty, restricts FileRead/FileEdit to paths
	// (relative to WorkDir) matching at least one doublestar pattern.
	AllowedPathGlobs []string
}

// Local is the concrete sandboxed Runtime adapter: it executes runnable
// Actions against WorkDir using a Bash Session for CmdRun, direct
// filesystem operations for FileRead/FileEdit, and an HTTP fetch for
// BrowseURL. Grounded on internal/sandbox/manager.go's lifecycle shape
// (Create/InspectState/Cleanup) narrowed to the Runtime contract's two
// methods, with the Event Stream as the sole point of contact with the
// Controller (SPEC_FULL.md §4.4's "the Runtime dispatches... actions").
type Local struct {
	statusCallbackHolder

	cfg    Config
	stream *events.Stream
	shell  bash.Session

	sandbox *SandboxHandle
}

// NewLocal constructs a Local adapter bound to stream. sandbox is
// optional; when non-nil its WorktreePath overrides cfg.WorkDir and
// Close() additionally cleans it up.
func NewLocal(cfg Config, stream *events.Stream, sandbox *SandboxHandle) *Local {
	if sandbox != nil {
		cfg.WorkDir = sandbox.WorktreePath
	}
	if cfg.BashConfig.WorkDir == "" {
		cfg.BashConfig = bash.DefaultConfig(cfg.WorkDir)
	}

	var shell bash.Session
	if cfg.Multiplex {
		shell = bash.NewMultiplexed(cfg.BashConfig)
	} else {
		shell = bash.NewSubprocess(cfg.BashConfig)
	}

	return &Local{
		cfg:     cfg,
		stream:  stream,
		shell:   shell,
		sandbox: sandbox,
	}
}

// Connect initializes the bash session and subscribes to the stream.
// Every runnable Action appended after this call gets exactly one
// Observation appended back.
func (l *Local) Connect(ctx context.Context) error {
	if err := l.shell.Initialize(ctx); err != nil {
		return fmt.Errorf("runtime: initialize bash session: %w", err)
	}

	l.stream.Subscribe(events.SubscriberRuntime, l.cfg.SessionID, func(ev *events.Event) {
		if !ev.IsAction() || !runnableKinds[ev.Kind] {
			return
		}
		l.dispatch(ctx, ev)
	})

	l.notify("connected")
	return nil
}

// Close unsubscribes, closes the bash session, and (if this Local owns
// one) tears down its sandbox worktree.
func (l *Local) Close() error {
	l.stream.Unsubscribe(events.SubscriberRuntime, l.cfg.SessionID)

	var err error
	if closeErr := l.shell.Close(); closeErr != nil {
		err = fmt.Errorf("runtime: close bash session: %w", closeErr)
	}
	l.notify("closed")
	return err
}

// dispatch runs one runnable Action and appends its Observation. Runtime
// failures (non-zero exit, edit rejection, fetch error) are surfaced as
// typed Observations rather than propagated as stream-level errors, per
// SPEC_FULL.md §7's "not fatal, the loop continues" taxonomy; only a
// failure to append the resulting Observation itself is logged here,
// since there is no further layer to hand that failure to.
func (l *Local) dispatch(ctx context.Context, ev *events.Event) {
	obs, err := l.execute(ctx, ev)
	if err != nil {
		obs = &events.ErrorObservation{Content: err.Error()}
	}

	out := events.NewObservationEvent(events.SourceEnvironment, ev.ID, obs)
	if _, appendErr := l.stream.AddEvent(out, events.SourceEnvironment); appendErr != nil {
		log.Printf("runtime: append observation for event %d: %v", ev.ID, appendErr)
	}
}

func (l *Local) execute(ctx context.Context, ev *events.Event) (events.Observation, error) {
	switch a := ev.Action().(type) {
	case *events.CmdRunAction:
		result, err := l.shell.Execute(ctx, a)
		if err != nil {
			return nil, err
		}
		if result.IsError {
			return &events.ErrorObservation{Content: result.ErrorText}, nil
		}
		return &result.Observation, nil

	case *events.FileReadAction:
		if err := l.checkAllowed(a.Path); err != nil {
			return nil, err
		}
		return readFile(l.cfg.WorkDir, a)

	case *events.FileEditAction:
		if err := l.checkAllowed(a.Path); err != nil {
			return nil, err
		}
		return editFile(l.cfg.WorkDir, a)

	case *events.BrowseURLAction:
		return browseURL(ctx, a)

	case *events.BrowseInteractiveAction:
		return browseInteractive(a), nil

	case *events.MCPCallToolAction:
		return &events.MCPObservation{
			Content:   fmt.Sprintf("no MCP server registered for tool %q", a.Name),
			Name:      a.Name,
			Arguments: a.Arguments,
		}, nil

	case *events.IPythonRunCellAction:
		return &events.ErrorObservation{Content: "ipython_run_cell is not supported by this runtime"}, nil

	default:
		return nil, fmt.Errorf("runtime: no dispatcher for action kind %s", ev.Kind)
	}
}

func (l *Local) checkAllowed(path string) error {
	if len(l.cfg.AllowedPathGlobs) == 0 {
		return nil
	}
	ok, err := matchesAnyGlob(path, l.cfg.AllowedPathGlobs)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("runtime: path %q is not in the allowed set", path)
	}
	return nil
}
