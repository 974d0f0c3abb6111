package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/agentcore/agentcore/internal/control"
)

var pauseCmd = &cobra.Command{
	Use:   "pause <session-id>",
	Short: "Pause a running session",
	Long: `Pause a running session, moving its agent to
AWAITING_USER_INPUT. The controller keeps running; no further steps are
taken until the session is unpaused or its state.json is saved on
shutdown for a later 'agentcore resume'.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sessionID := args[0]
		reason, _ := cmd.Flags().GetString("reason")

		socketPath, _ := cmd.Flags().GetString("socket")
		if socketPath == "" {
			dataDir, _ := cmd.Flags().GetString("data-dir")
			var err error
			socketPath, err = findSessionSocket(dataDir, sessionID)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				fmt.Fprintf(os.Stderr, "Hint: is the session running? Try 'agentcore status %s'.\n", sessionID)
				os.Exit(1)
			}
		}

		client := control.NewClient(socketPath)
		resp, err := client.Pause(sessionID, reason)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to send pause command: %v\n", err)
			os.Exit(1)
		}

		if !resp.Success {
			red := color.New(color.FgRed).SprintFunc()
			fmt.Printf("%s Pause failed: %s\n", red("✗"), resp.Message)
			if resp.Error != "" {
				fmt.Printf("  Error: %s\n", resp.Error)
			}
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Session paused: %s\n", green("✓"), sessionID)
		fmt.Printf("  %s\n", resp.Message)
		fmt.Printf("\nTo continue: agentcore unpause %s\n", sessionID)
	},
}

func init() {
	pauseCmd.Flags().StringP("reason", "r", "", "Reason for pausing (optional)")
	rootCmd.AddCommand(pauseCmd)
}
