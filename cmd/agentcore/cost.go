package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/agentcore/agentcore/internal/metrics"
)

var costCmd = &cobra.Command{
	Use:   "cost <session-id>",
	Short: "Show a session's accumulated AI cost and token usage",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCost(cmd, args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(costCmd)
}

func runCost(cmd *cobra.Command, sessionID string) error {
	fileCfg, err := findFileConfigFromCwd()
	if err != nil {
		return fmt.Errorf("agentcore.yaml: %w", err)
	}
	streamCfg, err := resolveEventStreamConfig(cmd, fileCfg)
	if err != nil {
		return fmt.Errorf("event stream configuration: %w", err)
	}

	m := metrics.New("")
	defer m.Close()

	sc, err := openSession(sessionID, streamCfg, m)
	if err != nil {
		return err
	}
	snap := sc.stream.GetMetrics()

	var budgetMax float64
	if st, serr := loadSavedState(sc, sessionID, m); serr == nil && st.BudgetFlag != nil {
		budgetMax = st.BudgetFlag.MaxValue
	}

	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Printf("\n%s\n\n", cyan("=== Session Cost ==="))

	fmt.Printf("%s\n", yellow("Budget:"))
	if budgetMax > 0 {
		percent := snap.AccumulatedCost / budgetMax * 100
		fmt.Printf("  Cost:    $%.4f / $%.2f (%.1f%%)\n", snap.AccumulatedCost, budgetMax, percent)
		fmt.Printf("           %s\n", renderCostBar(percent, 40))
	} else {
		fmt.Printf("  Cost:    $%.4f (unlimited)\n", snap.AccumulatedCost)
	}
	fmt.Println()

	fmt.Printf("%s\n", yellow("Token Usage:"))
	fmt.Printf("  Prompt:       %s\n", formatTokenCount(snap.AccumulatedPromptTokens))
	fmt.Printf("  Completion:   %s\n", formatTokenCount(snap.AccumulatedCompletionTokens))
	fmt.Printf("  Cache read:   %s\n", formatTokenCount(snap.AccumulatedCacheReadTokens))
	fmt.Printf("  Cache write:  %s\n", formatTokenCount(snap.AccumulatedCacheWriteTokens))
	fmt.Println()

	if n := len(snap.ResponseLatencies); n > 0 {
		var total float64
		for _, l := range snap.ResponseLatencies {
			total += l.Latency.Seconds()
		}
		fmt.Printf("%s\n", yellow("Latency:"))
		fmt.Printf("  Responses:    %d\n", n)
		fmt.Printf("  Average:      %.2fs\n", total/float64(n))
		fmt.Println()
	}

	return nil
}

func formatTokenCount(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	} else if n < 1_000_000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.2fM", float64(n)/1_000_000)
}

func renderCostBar(percent float64, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := int(percent / 100.0 * float64(width))
	var barColor *color.Color
	switch {
	case percent >= 100:
		barColor = color.New(color.FgRed, color.Bold)
	case percent >= 80:
		barColor = color.New(color.FgYellow)
	default:
		barColor = color.New(color.FgGreen)
	}

	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += barColor.Sprint("█")
		} else {
			bar += color.New(color.FgHiBlack).Sprint("░")
		}
	}
	return fmt.Sprintf("[%s]", bar)
}
