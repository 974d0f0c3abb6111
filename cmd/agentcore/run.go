package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/agentcore/agentcore/internal/agent"
	"github.com/agentcore/agentcore/internal/bash"
	"github.com/agentcore/agentcore/internal/config"
	"github.com/agentcore/agentcore/internal/control"
	"github.com/agentcore/agentcore/internal/controller"
	"github.com/agentcore/agentcore/internal/events"
	"github.com/agentcore/agentcore/internal/metrics"
	"github.com/agentcore/agentcore/internal/runtime"
)

var runCmd = &cobra.Command{
	Use:   "run <session-id>",
	Short: "Start a new session",
	Long: `Start a new agent session against the current working directory.

The Agent Controller steps an LLM-backed agent against the Event Stream
while a Local Runtime dispatches every runnable action (bash commands,
file edits, URL fetches) against the working directory and appends the
resulting observation back to the stream. A control socket is opened
alongside the stream so 'agentcore pause'/'unpause'/'status' can reach
this session from another terminal.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSession(cmd, args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	runCmd.Flags().String("work-dir", "", "Working directory actions execute in (default: current directory)")
	runCmd.Flags().Bool("multiplex", false, "Use a single multiplexed bash session instead of one subprocess per command")
	runCmd.Flags().Bool("confirm", false, "Require confirmation before runnable actions execute")
	runCmd.Flags().Float64("budget-max", 0, "Cost ceiling in USD; 0 disables the budget flag")
	runCmd.Flags().String("system-prompt", "", "System prompt for the agent")
	runCmd.Flags().Bool("sandbox", false, "Run inside an isolated git worktree instead of the current directory")
	runCmd.Flags().String("sandbox-root", ".agentcore-sandboxes", "Directory worktrees are created under, relative to work-dir")
	runCmd.Flags().String("base-branch", "main", "Branch the sandbox worktree is created from")
	runCmd.Flags().Bool("keep-sandbox", false, "Keep the sandbox worktree and branch after the session ends")
	rootCmd.AddCommand(runCmd)
}

func runSession(cmd *cobra.Command, sessionID string) error {
	workDir, err := cmd.Flags().GetString("work-dir")
	if err != nil {
		return err
	}
	if workDir == "" {
		workDir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
	}

	fileCfg, err := config.FindFileConfig(workDir)
	if err != nil {
		return fmt.Errorf("agentcore.yaml: %w", err)
	}

	streamCfg, err := resolveEventStreamConfig(cmd, fileCfg)
	if err != nil {
		return fmt.Errorf("event stream configuration: %w", err)
	}
	ctrlCfg, err := config.ControllerConfigFromEnv()
	if err != nil {
		return fmt.Errorf("controller configuration: %w", err)
	}
	fileCfg.Controller.ApplyTo(&ctrlCfg)
	if confirm, _ := cmd.Flags().GetBool("confirm"); confirm {
		ctrlCfg.ConfirmationMode = true
	}
	if budgetMax, _ := cmd.Flags().GetFloat64("budget-max"); budgetMax > 0 {
		ctrlCfg.BudgetMax = budgetMax
	}

	multiplex, _ := cmd.Flags().GetBool("multiplex")
	systemPrompt, _ := cmd.Flags().GetString("system-prompt")

	ag, err := agent.NewFromEnv()
	if err != nil {
		return err
	}
	if systemPrompt != "" {
		ag = agent.New(agent.Config{APIKey: os.Getenv("ANTHROPIC_API_KEY"), SystemPrompt: systemPrompt})
	}

	m := metrics.New("")
	defer m.Close()

	sc, err := openSession(sessionID, streamCfg, m)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	teardownTelemetry, err := attachTelemetry(ctx, sc, sessionID)
	if err != nil {
		return err
	}
	defer teardownTelemetry()

	ctl, err := controller.New(ag, sc.stream, m, controller.Config{
		SessionID:         sessionID,
		IterationMax:      ctrlCfg.IterationMax,
		IterationIncrease: ctrlCfg.IterationIncrease,
		BudgetMax:         ctrlCfg.BudgetMax,
		BudgetIncrease:    ctrlCfg.BudgetIncrease,
		ConfirmationMode:  ctrlCfg.ConfirmationMode,
		HeadlessMode:      ctrlCfg.HeadlessMode,
	})
	if err != nil {
		return fmt.Errorf("start controller: %w", err)
	}
	defer ctl.Close()
	ctl.SetDelegateFactory(newDelegateFactory())

	var sandbox *runtime.SandboxHandle
	if useSandbox, _ := cmd.Flags().GetBool("sandbox"); useSandbox {
		sandboxRoot, _ := cmd.Flags().GetString("sandbox-root")
		baseBranch, _ := cmd.Flags().GetString("base-branch")
		sandbox, err = runtime.CreateSandbox(ctx, sessionID, workDir, filepath.Join(workDir, sandboxRoot), baseBranch)
		if err != nil {
			return fmt.Errorf("create sandbox: %w", err)
		}
		keepSandbox, _ := cmd.Flags().GetBool("keep-sandbox")
		defer func() {
			if err := sandbox.Cleanup(context.Background(), keepSandbox); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: sandbox cleanup failed: %v\n", err)
			}
		}()
	}

	effectiveWorkDir := workDir
	if sandbox != nil {
		effectiveWorkDir = sandbox.WorktreePath
	}

	bashCfg, err := config.BashSessionConfigFromEnv()
	if err != nil {
		return fmt.Errorf("bash session configuration: %w", err)
	}
	fileCfg.Bash.ApplyTo(&bashCfg)
	rt := runtime.NewLocal(runtime.Config{
		SessionID: sessionID,
		WorkDir:   workDir,
		Multiplex: multiplex,
		BashConfig: bash.Config{
			WorkDir:         effectiveWorkDir,
			NoChangeTimeout: bashCfg.NoChangeTimeout,
			HardTimeout:     bashCfg.HardTimeout,
			MaxOutputBytes:  bashCfg.MaxOutputBytes,
			MaxOutputLines:  bashCfg.MaxOutputLines,
		},
	}, sc.stream, sandbox)

	green := color.New(color.FgGreen).SprintFunc()
	rt.SetStatusCallback(func(status string) {
		fmt.Printf("%s runtime %s\n", green("→"), status)
	})
	if err := rt.Connect(ctx); err != nil {
		return fmt.Errorf("connect runtime: %w", err)
	}
	defer rt.Close()

	socketPath, _ := cmd.Flags().GetString("socket")
	if socketPath == "" {
		socketPath = defaultSocketPath(streamCfg.DataDir, sessionID)
	}
	stopControl, err := startControlChannel(ctx, socketPath, streamCfg.DataDir, sessionID, func(c control.Command) (map[string]interface{}, error) {
		return handleControlCommand(ctl, c)
	})
	if err != nil {
		return fmt.Errorf("start control channel: %w", err)
	}
	defer stopControl()

	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Printf("\n%s %s\n", cyan("Session started:"), sessionID)
	fmt.Printf("  Work dir: %s\n", workDir)
	fmt.Printf("  Control socket: %s\n", socketPath)
	fmt.Println()

	var rl *readline.Instance
	if ctrlCfg.ConfirmationMode && !ctrlCfg.HeadlessMode {
		rl, err = readline.New("")
		if err != nil {
			return fmt.Errorf("start confirmation prompt: %w", err)
		}
		defer rl.Close()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			fmt.Println("\nShutting down...")
			if err := persistState(sc, ctl); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to persist session state: %v\n", err)
			}
			return nil
		case <-ticker.C:
			st := ctl.State()
			if st.AgentState == events.AgentStateAwaitingUserConfirmation && rl != nil {
				confirmed, err := promptConfirmation(rl, st.History)
				if err != nil {
					fmt.Fprintf(os.Stderr, "\nWarning: confirmation prompt failed: %v\n", err)
					continue
				}
				target := events.AgentStateUserRejected
				if confirmed {
					target = events.AgentStateUserConfirmed
				}
				if err := ctl.SetAgentStateTo(target); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to record confirmation: %v\n", err)
				}
				continue
			}
			if st.AgentState.IsTerminal() {
				fmt.Printf("%s Session finished: %s\n", green("✓"), st.AgentState)
				return persistState(sc, ctl)
			}
		}
	}
}

// promptConfirmation reads a y/n answer from rl, describing the most
// recent runnable action in history (the one the controller is holding
// for confirmation), grounded on the teacher's internal/repl approval
// prompts.
func promptConfirmation(rl *readline.Instance, history []*events.Event) (bool, error) {
	yellow := color.New(color.FgYellow, color.Bold).SprintFunc()
	var pending *events.Event
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].IsAction() && history[i].Action().Runnable() {
			pending = history[i]
			break
		}
	}
	if pending != nil {
		fmt.Printf("\n%s %s\n", yellow("⚠ Confirm action:"), describeAction(pending.Action()))
	} else {
		fmt.Printf("\n%s\n", yellow("⚠ Confirm pending action"))
	}
	rl.SetPrompt("Proceed? [y/N] ")
	line, err := rl.Readline()
	if err != nil {
		if err == readline.ErrInterrupt || err == io.EOF {
			return false, nil
		}
		return false, err
	}
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "y" || line == "yes", nil
}

// describeAction renders a one-line human summary of a runnable action
// for the confirmation prompt.
func describeAction(a events.Action) string {
	switch act := a.(type) {
	case *events.CmdRunAction:
		return fmt.Sprintf("run command: %s", act.Command)
	case *events.FileEditAction:
		return fmt.Sprintf("edit file: %s", act.Path)
	case *events.FileReadAction:
		return fmt.Sprintf("read file: %s", act.Path)
	case *events.BrowseURLAction:
		return fmt.Sprintf("fetch URL: %s", act.URL)
	case *events.IPythonRunCellAction:
		return fmt.Sprintf("run code cell: %s", act.Code)
	case *events.MCPCallToolAction:
		return fmt.Sprintf("call MCP tool: %s", act.Name)
	default:
		return string(a.ActionKind())
	}
}

// persistState writes the binary state.gob snapshot plus a state.json
// mirror for human inspection (SPEC_FULL.md §4.3). The JSON mirror is
// written even if the gob encode fails, so a session is never left
// unresumable by a codec bug in the binary path alone.
func persistState(sc *sessionComponents, ctl *controller.Controller) error {
	st := ctl.State()

	jsonData, err := st.Marshal()
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := sc.store.Write("state.json", jsonData); err != nil {
		return fmt.Errorf("write state.json: %w", err)
	}

	gobData, err := st.MarshalGob()
	if err != nil {
		return fmt.Errorf("gob-encode state: %w", err)
	}
	return sc.store.Write("state.gob", gobData)
}

// findFileConfigFromCwd loads agentcore.yaml relative to the current
// directory, for subcommands that have no --work-dir flag of their own
// (they always operate against the data dir, not the session's work dir).
func findFileConfigFromCwd() (*config.FileConfig, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return config.FindFileConfig(dir)
}

// resolveEventStreamConfig layers, from weakest to strongest: the
// documented defaults, the AGENTCORE_* environment variables, the
// project-local agentcore.yaml file, and finally the --data-dir flag.
func resolveEventStreamConfig(cmd *cobra.Command, fileCfg *config.FileConfig) (config.EventStreamConfig, error) {
	cfg, err := config.EventStreamConfigFromEnv()
	if err != nil {
		return cfg, err
	}
	fileCfg.EventStream.ApplyTo(&cfg)
	if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, cfg.Validate()
}

func handleControlCommand(ctl *controller.Controller, c control.Command) (map[string]interface{}, error) {
	switch c.Type {
	case "pause":
		if err := ctl.SetAgentStateTo(events.AgentStateAwaitingUserInput); err != nil {
			return nil, err
		}
		return map[string]interface{}{"saved_context": true, "interrupted_at": time.Now().Format(time.RFC3339)}, nil
	case "resume":
		if err := ctl.SetAgentStateTo(events.AgentStateRunning); err != nil {
			return nil, err
		}
		return nil, nil
	case "status":
		st := ctl.State()
		return map[string]interface{}{
			"agent_state":      string(st.AgentState),
			"session_id":       st.SessionID,
			"accumulated_cost": st.Metrics.AccumulatedCost(),
		}, nil
	default:
		return nil, fmt.Errorf("unknown command type %q", c.Type)
	}
}
