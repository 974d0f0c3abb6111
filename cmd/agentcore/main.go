// Command agentcore runs and inspects agentcore sessions: an Agent
// Controller looping over an Event Stream, with a Local Runtime executing
// whatever actions the agent produces.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "agentcore",
	Short: "Run and control agentcore sessions",
	Long: `agentcore runs an LLM-backed Agent Controller against a local
working directory, persisting every action and observation to an Event
Stream so a session can be paused, inspected, and resumed.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("data-dir", "", "Event Stream data directory (overrides AGENTCORE_EVENTSTORE_DATA_DIR)")
	rootCmd.PersistentFlags().String("socket", "", "Control socket path (default: <data-dir>/<session-id>.sock)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
