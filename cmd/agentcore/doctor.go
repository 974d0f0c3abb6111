package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/agentcore/agentcore/internal/diagnostics"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the local environment and dependency health",
	Long: `Run health checks to diagnose common environment and dependency
issues: ANTHROPIC_API_KEY presence, the Event Stream data directory's
writability, git repository status, and go.mod dependency freshness
against the Go module proxy.

Exit codes:
  0 - All checks passed
  1 - One or more checks failed (but not critical)
  2 - Critical failures that prevent agentcore from running`,
	Run: func(cmd *cobra.Command, args []string) {
		runDoctor(cmd)
	},
}

func init() {
	doctorCmd.Flags().BoolP("verbose", "v", false, "Show detailed diagnostic information")
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command) {
	verbose, _ := cmd.Flags().GetBool("verbose")

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Printf("Running agentcore health checks...\n\n")

	var failures, warnings, critical []string

	fmt.Printf("%s Environment variables\n", cyan("→"))
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey == "" {
		critical = append(critical, "ANTHROPIC_API_KEY not set")
		fmt.Printf("  %s ANTHROPIC_API_KEY not set\n", red("✗"))
	} else {
		fmt.Printf("  %s ANTHROPIC_API_KEY is set\n", green("✓"))
	}

	fmt.Printf("%s Event Stream data directory\n", cyan("→"))
	dataDir, _ := cmd.Flags().GetString("data-dir")
	if dataDir == "" {
		dataDir = "./sessions"
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		failures = append(failures, fmt.Sprintf("cannot create data dir: %v", err))
		fmt.Printf("  %s Cannot create %s: %v\n", red("✗"), dataDir, err)
	} else {
		probe := filepath.Join(dataDir, ".doctor-probe")
		if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
			failures = append(failures, fmt.Sprintf("data dir not writable: %v", err))
			fmt.Printf("  %s %s is not writable\n", red("✗"), dataDir)
		} else {
			_ = os.Remove(probe)
			fmt.Printf("  %s %s is writable\n", green("✓"), dataDir)
		}
	}

	fmt.Printf("%s Git repository\n", cyan("→"))
	if _, err := os.Stat(".git"); err != nil {
		warnings = append(warnings, "not a git repository")
		fmt.Printf("  %s Not a git repository\n", yellow("⚠"))
	} else {
		fmt.Printf("  %s Git repository detected\n", green("✓"))
		out, err := exec.Command("git", "status", "--porcelain").Output()
		if err == nil && len(out) > 0 {
			lines := strings.Split(strings.TrimSpace(string(out)), "\n")
			fmt.Printf("  %s Uncommitted changes detected (%d files)\n", yellow("⚠"), len(lines))
		} else if err == nil {
			fmt.Printf("  %s Working directory clean\n", green("✓"))
		}
	}

	fmt.Printf("%s Dependency freshness\n", cyan("→"))
	auditor := diagnostics.NewDependencyAuditor()
	if deps, err := auditor.ParseGoMod("go.mod"); err != nil {
		warnings = append(warnings, fmt.Sprintf("cannot parse go.mod: %v", err))
		fmt.Printf("  %s Cannot parse go.mod: %v\n", yellow("⚠"), err)
	} else {
		outdated, skipped := auditor.CheckOutdated(context.Background(), deps)
		if len(outdated) == 0 {
			fmt.Printf("  %s All %d direct dependencies up to date", green("✓"), len(deps))
			if skipped > 0 {
				fmt.Printf(" (%d unreachable, skipped)", skipped)
			}
			fmt.Println()
		} else {
			warnings = append(warnings, fmt.Sprintf("%d dependencies outdated", len(outdated)))
			fmt.Printf("  %s %d dependencies outdated\n", yellow("⚠"), len(outdated))
			for _, o := range outdated {
				fmt.Printf("    %s: %s -> %s\n", o.Package, o.CurrentVersion, o.LatestVersion)
			}
		}
		if verbose && skipped > 0 {
			fmt.Printf("    (%d proxy lookups skipped due to network/lookup errors)\n", skipped)
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("─", 60))
	total := len(critical) + len(failures) + len(warnings)
	if total == 0 {
		fmt.Printf("%s All checks passed.\n", green("✓"))
		os.Exit(0)
	}
	if len(critical) > 0 {
		fmt.Printf("\n%s Critical failures (%d):\n", red("✗"), len(critical))
		for _, f := range critical {
			fmt.Printf("  • %s\n", f)
		}
	}
	if len(failures) > 0 {
		fmt.Printf("\n%s Failures (%d):\n", red("✗"), len(failures))
		for _, f := range failures {
			fmt.Printf("  • %s\n", f)
		}
	}
	if len(warnings) > 0 {
		fmt.Printf("\n%s Warnings (%d):\n", yellow("⚠"), len(warnings))
		for _, w := range warnings {
			fmt.Printf("  • %s\n", w)
		}
	}
	if len(critical) > 0 {
		os.Exit(2)
	}
	os.Exit(1)
}
