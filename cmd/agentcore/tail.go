package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/agentcore/agentcore/internal/events"
	"github.com/agentcore/agentcore/internal/metrics"
)

var tailCmd = &cobra.Command{
	Use:   "tail <session-id>",
	Short: "Watch a session's event stream",
	Long: `Display recent events appended to a session's Event Stream and,
with --follow, keep polling for new ones.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runTail(cmd, args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	tailCmd.Flags().BoolP("follow", "f", false, "Follow mode - watch for live updates (Ctrl+C to stop)")
	tailCmd.Flags().IntP("limit", "n", 20, "Number of recent events to show initially")
	rootCmd.AddCommand(tailCmd)
}

func runTail(cmd *cobra.Command, sessionID string) error {
	fileCfg, err := findFileConfigFromCwd()
	if err != nil {
		return fmt.Errorf("agentcore.yaml: %w", err)
	}
	streamCfg, err := resolveEventStreamConfig(cmd, fileCfg)
	if err != nil {
		return fmt.Errorf("event stream configuration: %w", err)
	}
	follow, _ := cmd.Flags().GetBool("follow")
	limit, _ := cmd.Flags().GetInt("limit")

	m := metrics.New("")
	defer m.Close()

	sc, err := openSession(sessionID, streamCfg, m)
	if err != nil {
		return err
	}

	latest := sc.stream.GetLatestEventID()
	start := latest - int64(limit) + 1
	if start < 0 {
		start = 0
	}

	initial, err := sc.stream.GetEvents(start, latest, false, nil)
	if err != nil {
		return fmt.Errorf("fetch recent events: %w", err)
	}
	for _, ev := range initial {
		displayEvent(ev)
	}

	if !follow {
		return nil
	}

	cyan := color.New(color.FgCyan).SprintFunc()
	fmt.Printf("\n%s Following live updates (Ctrl+C to stop)...\n\n", cyan("→"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	lastSeen := latest
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			fmt.Println("\nStopped following")
			return nil
		case <-ticker.C:
			cur := sc.stream.GetLatestEventID()
			if cur <= lastSeen {
				continue
			}
			newEvents, err := sc.stream.GetEvents(lastSeen+1, cur, false, nil)
			if err != nil {
				fmt.Fprintf(os.Stderr, "\nError fetching new events: %v\n", err)
				continue
			}
			for _, ev := range newEvents {
				displayEvent(ev)
			}
			lastSeen = cur
		}
	}
}

func displayEvent(ev *events.Event) {
	gray := color.New(color.FgHiBlack).SprintFunc()
	typeColor := color.New(color.FgMagenta).SprintFunc()
	sourceColor := color.New(color.FgGreen).SprintFunc()
	if ev.Type == events.TypeObservation {
		sourceColor = color.New(color.FgCyan).SprintFunc()
	}

	fmt.Printf("%s #%d %s %s (%s)\n",
		gray(ev.Timestamp.Format("15:04:05")),
		ev.ID,
		sourceColor(string(ev.Source)),
		typeColor(string(ev.Kind)),
		ev.Type,
	)
}
