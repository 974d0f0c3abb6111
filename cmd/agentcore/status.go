package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/agentcore/agentcore/internal/control"
)

var statusCmd = &cobra.Command{
	Use:   "status <session-id>",
	Short: "Show a session's live agent state and accumulated cost",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sessionID := args[0]

		socketPath, _ := cmd.Flags().GetString("socket")
		if socketPath == "" {
			dataDir, _ := cmd.Flags().GetString("data-dir")
			var err error
			socketPath, err = findSessionSocket(dataDir, sessionID)
			if err != nil {
				yellow := color.New(color.FgYellow).SprintFunc()
				fmt.Printf("%s No running session found for %s\n", yellow("○"), sessionID)
				fmt.Printf("  Run 'agentcore resume %s' to continue it, if a saved state exists.\n", sessionID)
				return
			}
		}

		client := control.NewClient(socketPath)
		resp, err := client.Status()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to query session status: %v\n", err)
			os.Exit(1)
		}

		if !resp.Success {
			red := color.New(color.FgRed).SprintFunc()
			fmt.Printf("%s Status query failed: %s\n", red("✗"), resp.Message)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		fmt.Printf("\n%s\n\n", cyan("=== Session Status ==="))
		fmt.Printf("%s Session: %s\n", green("●"), sessionID)
		if state, ok := resp.Data["agent_state"].(string); ok {
			fmt.Printf("  Agent state: %s\n", state)
		}
		if cost, ok := resp.Data["accumulated_cost"].(float64); ok {
			fmt.Printf("  Accumulated cost: $%.4f\n", cost)
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
