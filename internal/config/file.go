package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

func secondsToDuration(secs int) time.Duration {
	return time.Duration(secs) * time.Second
}

// FileConfig mirrors agentcore.yaml: a project-local file whose values
// are applied on top of what the *FromEnv constructors resolved, so a key
// set in the file overrides the environment and command-line flags
// override the file. Grounded on the teacher's
// internal/discovery/config.go ConfigFile/LoadConfigFile/ToConfig shape.
type FileConfig struct {
	Controller  ControllerConfigFile  `yaml:"controller"`
	EventStream EventStreamConfigFile `yaml:"event_stream"`
	Bash        BashConfigFile        `yaml:"bash"`
}

// ControllerConfigFile is the YAML-facing subset of ControllerConfig.
// Zero values mean "use the default/env value", matching the teacher's
// "override only if set" merge semantics.
type ControllerConfigFile struct {
	IterationMax      int     `yaml:"iteration_max"`
	IterationIncrease int     `yaml:"iteration_increase"`
	BudgetMax         float64 `yaml:"budget_max"`
	BudgetIncrease    float64 `yaml:"budget_increase"`
	ConfirmationMode  *bool   `yaml:"confirmation_mode"`
	HeadlessMode      *bool   `yaml:"headless_mode"`
}

// EventStreamConfigFile is the YAML-facing subset of EventStreamConfig.
type EventStreamConfigFile struct {
	Backend        string `yaml:"backend"`
	DataDir        string `yaml:"data_dir"`
	NATSURL        string `yaml:"nats_url"`
	PrometheusAddr string `yaml:"prometheus_addr"`
	AuditLogPath   string `yaml:"audit_log_path"`
}

// BashConfigFile is the YAML-facing subset of BashSessionConfig. Timeouts
// are given in whole seconds to keep the file free of Go duration syntax.
type BashConfigFile struct {
	NoChangeTimeoutSeconds int `yaml:"no_change_timeout_seconds"`
	HardTimeoutSeconds     int `yaml:"hard_timeout_seconds"`
	MaxOutputBytes         int `yaml:"max_output_bytes"`
	MaxOutputLines         int `yaml:"max_output_lines"`
}

// LoadFileConfig reads path (typically "agentcore.yaml" in the working
// directory). A missing file is not an error - it simply means no
// project-local overrides exist.
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &FileConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return &fc, nil
}

// FindFileConfig loads "agentcore.yaml" from dir itself; parent
// directories are not searched.
func FindFileConfig(dir string) (*FileConfig, error) {
	return LoadFileConfig(filepath.Join(dir, "agentcore.yaml"))
}

// ApplyTo overlays any fields set in the file onto cfg, leaving fields the
// file doesn't mention untouched (so values already resolved from env
// vars still stand when the file is silent on a key).
func (fc *ControllerConfigFile) ApplyTo(cfg *ControllerConfig) {
	if fc.IterationMax > 0 {
		cfg.IterationMax = fc.IterationMax
	}
	if fc.IterationIncrease > 0 {
		cfg.IterationIncrease = fc.IterationIncrease
	}
	if fc.BudgetMax > 0 {
		cfg.BudgetMax = fc.BudgetMax
	}
	if fc.BudgetIncrease > 0 {
		cfg.BudgetIncrease = fc.BudgetIncrease
	}
	if fc.ConfirmationMode != nil {
		cfg.ConfirmationMode = *fc.ConfirmationMode
	}
	if fc.HeadlessMode != nil {
		cfg.HeadlessMode = *fc.HeadlessMode
	}
}

// ApplyTo overlays any fields set in the file onto cfg.
func (fc *EventStreamConfigFile) ApplyTo(cfg *EventStreamConfig) {
	if fc.Backend != "" {
		cfg.Backend = fc.Backend
	}
	if fc.DataDir != "" {
		cfg.DataDir = fc.DataDir
	}
	if fc.NATSURL != "" {
		cfg.NATSURL = fc.NATSURL
	}
	if fc.PrometheusAddr != "" {
		cfg.PrometheusAddr = fc.PrometheusAddr
	}
	if fc.AuditLogPath != "" {
		cfg.AuditLogPath = fc.AuditLogPath
	}
}

// ApplyTo overlays any fields set in the file onto cfg.
func (fc *BashConfigFile) ApplyTo(cfg *BashSessionConfig) {
	if fc.NoChangeTimeoutSeconds > 0 {
		cfg.NoChangeTimeout = secondsToDuration(fc.NoChangeTimeoutSeconds)
	}
	if fc.HardTimeoutSeconds > 0 {
		cfg.HardTimeout = secondsToDuration(fc.HardTimeoutSeconds)
	}
	if fc.MaxOutputBytes > 0 {
		cfg.MaxOutputBytes = fc.MaxOutputBytes
	}
	if fc.MaxOutputLines > 0 {
		cfg.MaxOutputLines = fc.MaxOutputLines
	}
}
