package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/agentcore/agentcore/internal/control"
)

var unpauseCmd = &cobra.Command{
	Use:   "unpause <session-id>",
	Short: "Resume a paused, still-running session",
	Long: `Move a paused session's agent back to RUNNING. Unlike
'agentcore resume', this targets a process that is still alive -
use this whenever the session was paused rather than stopped.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sessionID := args[0]

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
		resp, err := client.Resume(sessionID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to send unpause command: %v\n", err)
			os.Exit(1)
		}

		if !resp.Success {
			red := color.New(color.FgRed).SprintFunc()
			fmt.Printf("%s Unpause failed: %s\n", red("✗"), resp.Message)
			if resp.Error != "" {
				fmt.Printf("  Error: %s\n", resp.Error)
			}
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Session running again: %s\n", green("✓"), sessionID)
	},
}

func init() {
	rootCmd.AddCommand(unpauseCmd)
}
