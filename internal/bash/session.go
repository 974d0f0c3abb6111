// Package bash implements the Bash Session component (SPEC_FULL.md §4.5):
// a stateful shell execution surface with long-running process detection,
// soft/hard timeouts, interruption, and recovery from terminal breakage.
//
// Two implementations share the Session contract: Multiplexed (a
// persistent shell process framed by a deterministic prompt marker, for
// interactive programs) and Subprocess (one fresh shell per Execute call,
// simpler, no interactive input). Both are grounded on the teacher's
// os/exec usage throughout internal/executor/agent.go and internal/git/git.go.
package bash

import (
	"context"
	"fmt"
	"time"

	"github.com/agentcore/agentcore/internal/events"
)

// Status classifies how an Execute call concluded.
type Status string

const (
	StatusCompleted  Status = "COMPLETED"
	StatusContinue   Status = "CONTINUE"
	StatusHardTimeout Status = "HARD_TIMEOUT"
	StatusInterrupted Status = "INTERRUPTED"
	StatusError       Status = "ERROR"
)

// Config bundles construction-time parameters shared by both
// implementations. The Open Question on truncation thresholds
// (spec.md §9) is resolved here as a construction parameter, matching the
// teacher's maxOutputLines=10000 constant in internal/executor/agent.go.
type Config struct {
	WorkDir string

	// NoChangeTimeout is how long captured output may go unchanged before
	// an apparently-interactive command returns CONTINUE.
	NoChangeTimeout time.Duration
	// HardTimeout is the default per-command ceiling when the action does
	// not specify one.
	HardTimeout time.Duration

	MaxOutputBytes int
	MaxOutputLines int

	// Username and Hostname are not read by either Session
	// implementation: Subprocess reports the OS user and host name, and
	// Multiplexed reports what the shell's whoami and hostname print.
	Username string
	Hostname string
	// PythonInterpreter is reported verbatim in
	// CmdOutputMetadata.Interpreter; no interpreter lookup is made.
	PythonInterpreter string
}

// DefaultConfig returns sane defaults: a 30s no-change timeout, a 120s
// hard timeout, and the 40KB/10,000-line truncation boundary the teacher
// uses for captured command output.
func DefaultConfig(workDir string) Config {
	return Config{
		WorkDir:         workDir,
		NoChangeTimeout: 30 * time.Second,
		HardTimeout:     120 * time.Second,
		MaxOutputBytes:  40 * 1024,
		MaxOutputLines:  10000,
	}
}

// Result is what Execute returns: either a successful CmdOutputObservation
// or a rejection/error under IsError.
type Result struct {
	Observation events.CmdOutputObservation
	Status      Status
	IsError     bool
	ErrorText   string
}

// Session is the contract both implementations satisfy.
type Session interface {
	// Initialize acquires resources and starts the underlying shell
	// process/terminal. Must be called exactly once before Execute.
	Initialize(ctx context.Context) error

	// Execute runs action.Command (or, if action.IsInput and the
	// implementation supports it, delivers it as stdin to the running
	// command) and returns a Result.
	Execute(ctx context.Context, action *events.CmdRunAction) (*Result, error)

	// Close terminates the shell, kills any running child, and releases
	// OS resources. Idempotent.
	Close() error

	// Cwd returns the working directory last observed in the session.
	Cwd() string
}

var errNotInitialized = fmt.Errorf("bash: session not initialized")
