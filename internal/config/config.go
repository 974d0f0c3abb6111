// Package config holds per-component Config structs with a documented
// field block (purpose, default, valid range) and a FromEnv()/Default...
// constructor pair, matching the teacher's
// internal/config/event_retention.go idiom.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// BashSessionConfig controls a Bash Session's timeouts and output
// truncation thresholds (SPEC_FULL.md §4.5, §9 resolved Open Question).
type BashSessionConfig struct {
	// NoChangeTimeout is how long captured output may go unchanged
	// before an apparently-interactive command returns CONTINUE.
	// Default: 30s, Range: 1s-5m.
	NoChangeTimeout time.Duration

	// HardTimeout is the default per-command timeout when the action
	// does not specify one. Default: 120s, Range: 1s-30m.
	HardTimeout time.Duration

	// MaxOutputBytes is the truncation threshold; output beyond this has
	// its oldest part dropped, keeping the final bytes. Default: 40000 (~40KB),
	// Range: 1000-10000000, matching the teacher's maxOutputLines
	// constant's order of magnitude.
	MaxOutputBytes int

	// MaxOutputLines is the line-count truncation threshold, applied
	// alongside MaxOutputBytes. Default: 10000, Range: 100-1000000.
	MaxOutputLines int
}

// DefaultBashSessionConfig returns the documented defaults.
func DefaultBashSessionConfig() BashSessionConfig {
	return BashSessionConfig{
		NoChangeTimeout: 30 * time.Second,
		HardTimeout:     120 * time.Second,
		MaxOutputBytes:  40000,
		MaxOutputLines:  10000,
	}
}

// Validate checks the configuration has valid values.
func (c BashSessionConfig) Validate() error {
	if c.NoChangeTimeout < time.Second || c.NoChangeTimeout > 5*time.Minute {
		return fmt.Errorf("no_change_timeout must be between 1s and 5m (got %s)", c.NoChangeTimeout)
	}
	if c.HardTimeout < time.Second || c.HardTimeout > 30*time.Minute {
		return fmt.Errorf("hard_timeout must be between 1s and 30m (got %s)", c.HardTimeout)
	}
	if c.MaxOutputBytes < 1000 || c.MaxOutputBytes > 10000000 {
		return fmt.Errorf("max_output_bytes must be between 1000 and 10000000 (got %d)", c.MaxOutputBytes)
	}
	if c.MaxOutputLines < 100 || c.MaxOutputLines > 1000000 {
		return fmt.Errorf("max_output_lines must be between 100 and 1000000 (got %d)", c.MaxOutputLines)
	}
	return nil
}

// BashSessionConfigFromEnv builds a BashSessionConfig from environment
// variables, falling back to defaults.
//
// Environment variables:
//   - AGENTCORE_BASH_NO_CHANGE_TIMEOUT_SECONDS
//   - AGENTCORE_BASH_HARD_TIMEOUT_SECONDS
//   - AGENTCORE_BASH_MAX_OUTPUT_BYTES
//   - AGENTCORE_BASH_MAX_OUTPUT_LINES
func BashSessionConfigFromEnv() (BashSessionConfig, error) {
	cfg := DefaultBashSessionConfig()

	if err := parseEnvSeconds("AGENTCORE_BASH_NO_CHANGE_TIMEOUT_SECONDS", &cfg.NoChangeTimeout); err != nil {
		return cfg, err
	}
	if err := parseEnvSeconds("AGENTCORE_BASH_HARD_TIMEOUT_SECONDS", &cfg.HardTimeout); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("AGENTCORE_BASH_MAX_OUTPUT_BYTES", &cfg.MaxOutputBytes); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("AGENTCORE_BASH_MAX_OUTPUT_LINES", &cfg.MaxOutputLines); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid bash session configuration from environment: %w", err)
	}
	return cfg, nil
}

// ControllerConfig carries the Agent Controller's iteration/budget
// defaults and headless-mode policy (SPEC_FULL.md §4.4).
type ControllerConfig struct {
	// IterationMax is the initial iteration ceiling. Default: 100,
	// Range: 1-10000.
	IterationMax int

	// IterationIncrease is how much IterationMax grows per
	// IncreaseLimit call. Default: 50, Range: 1-10000.
	IterationIncrease int

	// BudgetMax is the initial cost ceiling in dollars; 0 disables the
	// budget flag entirely. Default: 0, Range: 0 or 0.01-100000.
	BudgetMax float64

	// BudgetIncrease is the amount IncreaseLimit adds on top of the
	// current accumulated cost. Default: 5.0, Range: 0.01-100000.
	BudgetIncrease float64

	// ConfirmationMode requires user approval before a runnable Action
	// executes. Default: false.
	ConfirmationMode bool

	// HeadlessMode disallows interactive iteration-limit extension.
	// Default: false.
	HeadlessMode bool
}

// DefaultControllerConfig returns the documented defaults.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		IterationMax:      100,
		IterationIncrease: 50,
		BudgetMax:         0,
		BudgetIncrease:    5.0,
		ConfirmationMode:  false,
		HeadlessMode:      false,
	}
}

// Validate checks the configuration has valid values.
func (c ControllerConfig) Validate() error {
	if c.IterationMax < 1 || c.IterationMax > 10000 {
		return fmt.Errorf("iteration_max must be between 1 and 10000 (got %d)", c.IterationMax)
	}
	if c.IterationIncrease < 1 || c.IterationIncrease > 10000 {
		return fmt.Errorf("iteration_increase must be between 1 and 10000 (got %d)", c.IterationIncrease)
	}
	if c.BudgetMax != 0 && (c.BudgetMax < 0.01 || c.BudgetMax > 100000) {
		return fmt.Errorf("budget_max must be 0 (disabled) or between 0.01 and 100000 (got %f)", c.BudgetMax)
	}
	if c.BudgetIncrease < 0.01 || c.BudgetIncrease > 100000 {
		return fmt.Errorf("budget_increase must be between 0.01 and 100000 (got %f)", c.BudgetIncrease)
	}
	return nil
}

// ControllerConfigFromEnv builds a ControllerConfig from environment
// variables, falling back to defaults.
//
// Environment variables:
//   - AGENTCORE_ITERATION_MAX
//   - AGENTCORE_ITERATION_INCREASE
//   - AGENTCORE_BUDGET_MAX
//   - AGENTCORE_BUDGET_INCREASE
//   - AGENTCORE_CONFIRMATION_MODE
//   - AGENTCORE_HEADLESS_MODE
func ControllerConfigFromEnv() (ControllerConfig, error) {
	cfg := DefaultControllerConfig()

	if err := parseEnvInt("AGENTCORE_ITERATION_MAX", &cfg.IterationMax); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("AGENTCORE_ITERATION_INCREASE", &cfg.IterationIncrease); err != nil {
		return cfg, err
	}
	if err := parseEnvFloat("AGENTCORE_BUDGET_MAX", &cfg.BudgetMax); err != nil {
		return cfg, err
	}
	if err := parseEnvFloat("AGENTCORE_BUDGET_INCREASE", &cfg.BudgetIncrease); err != nil {
		return cfg, err
	}
	if err := parseEnvBool("AGENTCORE_CONFIRMATION_MODE", &cfg.ConfirmationMode); err != nil {
		return cfg, err
	}
	if err := parseEnvBool("AGENTCORE_HEADLESS_MODE", &cfg.HeadlessMode); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid controller configuration from environment: %w", err)
	}
	return cfg, nil
}

// EventStreamConfig selects the Event Stream's persistence backend and
// optional out-of-process observer transports (SPEC_FULL.md §4.1, §6b).
type EventStreamConfig struct {
	// Backend is "disk" or "sqlite". Default: "disk".
	Backend string

	// DataDir is the root directory for the disk backend and the
	// SQLite database file's parent directory. Default: "./sessions".
	DataDir string

	// NATSURL, when non-empty, enables a telemetry.BrokerPublisher that republishes
	// every appended event to "sessions.<id>.events". Default: "" (off).
	NATSURL string

	// PrometheusAddr, when non-empty, serves a /metrics endpoint on this
	// address. Default: "" (off).
	PrometheusAddr string

	// AuditLogPath, when non-empty, enables a zap-backed structured JSON
	// audit trail of every Action/Observation append, independent of the
	// event JSON files themselves. Default: "" (off).
	AuditLogPath string
}

// DefaultEventStreamConfig returns the documented defaults.
func DefaultEventStreamConfig() EventStreamConfig {
	return EventStreamConfig{
		Backend: "disk",
		DataDir: "./sessions",
	}
}

// Validate checks the configuration has valid values.
func (c EventStreamConfig) Validate() error {
	if c.Backend != "disk" && c.Backend != "sqlite" {
		return fmt.Errorf("backend must be 'disk' or 'sqlite' (got %q)", c.Backend)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	return nil
}

// EventStreamConfigFromEnv builds an EventStreamConfig from environment
// variables, falling back to defaults.
//
// Environment variables:
//   - AGENTCORE_EVENTSTORE_BACKEND
//   - AGENTCORE_EVENTSTORE_DATA_DIR
//   - AGENTCORE_EVENTSTORE_NATS_URL
//   - AGENTCORE_EVENTSTORE_PROMETHEUS_ADDR
//   - AGENTCORE_EVENTSTORE_AUDIT_LOG_PATH
func EventStreamConfigFromEnv() (EventStreamConfig, error) {
	cfg := DefaultEventStreamConfig()

	if err := parseEnvString("AGENTCORE_EVENTSTORE_BACKEND", &cfg.Backend); err != nil {
		return cfg, err
	}
	if err := parseEnvString("AGENTCORE_EVENTSTORE_DATA_DIR", &cfg.DataDir); err != nil {
		return cfg, err
	}
	if err := parseEnvString("AGENTCORE_EVENTSTORE_NATS_URL", &cfg.NATSURL); err != nil {
		return cfg, err
	}
	if err := parseEnvString("AGENTCORE_EVENTSTORE_PROMETHEUS_ADDR", &cfg.PrometheusAddr); err != nil {
		return cfg, err
	}
	if err := parseEnvString("AGENTCORE_EVENTSTORE_AUDIT_LOG_PATH", &cfg.AuditLogPath); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid event stream configuration from environment: %w", err)
	}
	return cfg, nil
}

func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

func parseEnvBool(key string, dest *bool) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

func parseEnvString(key string, dest *string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	*dest = value
	return nil
}

func parseEnvSeconds(key string, dest *time.Duration) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	secs, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = time.Duration(secs) * time.Second
	return nil
}
