package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

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

var resumeCmd = &cobra.Command{
	Use:   "resume <session-id>",
	Short: "Resume a previously saved session from disk",
	Long: `Resume a session that was stopped or interrupted, restoring its
control-flag state from the saved state.gob (falling back to state.json
for older sessions) and rebuilding its History from the Event Stream.

Note: this is a cold resume (the process was not running). For a live
session that is merely paused (AWAITING_USER_INPUT), use 'agentcore
unpause' instead - no need to restart the process.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := resumeSession(cmd, args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	resumeCmd.Flags().String("work-dir", "", "Working directory actions execute in (default: current directory)")
	resumeCmd.Flags().Bool("multiplex", false, "Use a single multiplexed bash session instead of one subprocess per command")
	rootCmd.AddCommand(resumeCmd)
}

func resumeSession(cmd *cobra.Command, sessionID string) error {
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
	multiplex, _ := cmd.Flags().GetBool("multiplex")

	ag, err := agent.NewFromEnv()
	if err != nil {
		return err
	}

	m := metrics.New("")
	defer m.Close()

	sc, err := openSession(sessionID, streamCfg, m)
	if err != nil {
		return err
	}

	st, err := loadSavedState(sc, sessionID, m)
	if err != nil {
		return err
	}
	if st.EndID >= st.StartID {
		history, err := sc.stream.GetEvents(st.StartID, st.EndID, false, nil)
		if err != nil {
			return fmt.Errorf("rebuild history: %w", err)
		}
		st.History = history
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	teardownTelemetry, err := attachTelemetry(ctx, sc, sessionID)
	if err != nil {
		return err
	}
	defer teardownTelemetry()

	ctl, err := controller.New(ag, sc.stream, m, controller.Config{
		SessionID:    sessionID,
		InitialState: st,
	})
	if err != nil {
		return fmt.Errorf("resume controller: %w", err)
	}
	defer ctl.Close()
	ctl.SetDelegateFactory(newDelegateFactory())

	if err := ctl.SetAgentStateTo(events.AgentStateRunning); err != nil {
		return fmt.Errorf("resume agent: %w", err)
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
			WorkDir:         workDir,
			NoChangeTimeout: bashCfg.NoChangeTimeout,
			HardTimeout:     bashCfg.HardTimeout,
			MaxOutputBytes:  bashCfg.MaxOutputBytes,
			MaxOutputLines:  bashCfg.MaxOutputLines,
		},
	}, sc.stream, nil)
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

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("%s Resumed session %s at iteration %d\n", green("✓"), sessionID, st.IterationFlag.CurrentValue)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			fmt.Println("\nShutting down...")
			return persistState(sc, ctl)
		case <-ticker.C:
			if ctl.State().AgentState.IsTerminal() {
				fmt.Printf("%s Session finished: %s\n", green("✓"), ctl.State().AgentState)
				return persistState(sc, ctl)
			}
		}
	}
}
