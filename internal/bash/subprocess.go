package bash

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"sync"
	"time"

	"github.com/agentcore/agentcore/internal/events"
)

// Subprocess is the simpler Session implementation: every Execute call
// spawns a fresh `/bin/sh -c` process. No interactive input is supported;
// a timeout kills the process and returns accumulated stdout/stderr.
// Grounded on os/exec.CommandContext usage throughout
// internal/executor/agent.go and internal/git/git.go.
type Subprocess struct {
	cfg Config

	mu  sync.Mutex
	cwd string
}

var _ Session = (*Subprocess)(nil)

// NewSubprocess constructs a Subprocess session over cfg. WorkDir must
// already exist.
func NewSubprocess(cfg Config) *Subprocess {
	return &Subprocess{cfg: cfg, cwd: cfg.WorkDir}
}

func (s *Subprocess) Initialize(ctx context.Context) error {
	if s.cfg.WorkDir == "" {
		return fmt.Errorf("bash: subprocess requires a WorkDir")
	}
	info, err := os.Stat(s.cfg.WorkDir)
	if err != nil {
		return fmt.Errorf("bash: work dir %s: %w", s.cfg.WorkDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("bash: work dir %s is not a directory", s.cfg.WorkDir)
	}
	return nil
}

func (s *Subprocess) Execute(ctx context.Context, action *events.CmdRunAction) (*Result, error) {
	if action.IsInput {
		return &Result{
			Status:    StatusError,
			IsError:   true,
			ErrorText: "bash: subprocess session does not support interactive input delivery",
		}, nil
	}
	if IsMultipleCommands(action.Command) {
		return &Result{
			Status:    StatusError,
			IsError:   true,
			ErrorText: "bash: command contains more than one top-level command; run them separately",
		}, nil
	}

	timeout := s.cfg.HardTimeout
	if action.HardTimeout != nil {
		timeout = time.Duration(*action.HardTimeout) * time.Second
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	s.mu.Lock()
	cwd := s.cwd
	s.mu.Unlock()

	cmd := exec.CommandContext(runCtx, "/bin/sh", "-c", action.Command)
	cmd.Dir = cwd
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	runErr := cmd.Run()
	content, prefix := s.truncate(combineOutput(out.String(), errBuf.String()))

	if runCtx.Err() == context.DeadlineExceeded {
		return &Result{
			Status: StatusHardTimeout,
			Observation: events.CmdOutputObservation{
				Content: content,
				Metadata: events.CmdOutputMetadata{
					ExitCode:   -1,
					WorkingDir: cwd,
					Prefix:     prefix,
					Suffix:     "command timed out and was terminated; no further interaction is possible in the subprocess session",
				},
			},
		}, nil
	}

	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("bash: run command: %w", runErr)
		}
	}

	if newDir, ok := parseCdTarget(action.Command); ok {
		s.mu.Lock()
		s.cwd = resolveCwd(cwd, newDir)
		s.mu.Unlock()
	}

	return &Result{
		Status: StatusCompleted,
		Observation: events.CmdOutputObservation{
			Content: content,
			Metadata: events.CmdOutputMetadata{
				ExitCode:    exitCode,
				WorkingDir:  cwd,
				Username:    currentUsername(),
				Hostname:    hostname(),
				Interpreter: s.cfg.PythonInterpreter,
				Prefix:      prefix,
			},
		},
	}, nil
}

func (s *Subprocess) Close() error { return nil }

func (s *Subprocess) Cwd() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cwd
}

// truncate applies the configured byte/line truncation boundary,
// returning the (possibly shortened) content and the prefix metadata
// string to report when truncation occurred.
func (s *Subprocess) truncate(content string) (string, string) {
	truncated := false
	if s.cfg.MaxOutputBytes > 0 && len(content) > s.cfg.MaxOutputBytes {
		content = content[len(content)-s.cfg.MaxOutputBytes:]
		truncated = true
	}
	if out, didTrim := truncateLines(content, s.cfg.MaxOutputLines); didTrim {
		content = out
		truncated = true
	}
	if truncated {
		return content, truncationPrefix
	}
	return content, ""
}

func combineOutput(stdout, stderr string) string {
	if stderr == "" {
		return stdout
	}
	if stdout == "" {
		return stderr
	}
	return stdout + stderr
}

func currentUsername() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}
	return u.Username
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return ""
	}
	return h
}
