// Package config holds engine configuration. Configuration can come from a
// YAML file or environment variables; environment variables override YAML
// values. Every recognized option has a documented default, so callers may
// construct services without loading any configuration at all.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the governance engine.
type Config struct {
	// Batch run defaults applied when a run config omits a value.
	Batch BatchConfig `yaml:"batch"`

	// Semantic-assist defaults for single-table analysis.
	Assist AssistConfig `yaml:"assist"`

	// Gatekeeper policy configuration.
	Gate GateConfig `yaml:"gate"`

	// Batch outcome classification thresholds.
	Outcomes OutcomeThresholds `yaml:"outcomes"`

	// RuleFile optionally points to a YAML rule table overriding the
	// compiled-in patterns.
	RuleFile string `yaml:"rule_file" env:"GOVERNANCE_RULE_FILE" env-default:""`
}

// BatchConfig holds batch run configuration.
type BatchConfig struct {
	// SampleRows is how many rows each table analysis samples.
	SampleRows int `yaml:"sample_rows" env:"BATCH_SAMPLE_ROWS" env-default:"1000"`
	// RuleVersion identifies the rule table version stamped on runs.
	RuleVersion string `yaml:"rule_version" env:"BATCH_RULE_VERSION" env-default:"v1.0"`
	// ModelVersion identifies the suggestion model stamped on runs.
	ModelVersion string `yaml:"model_version" env:"BATCH_MODEL_VERSION" env-default:"sem-base-1"`
	// Concurrency bounds how many tables are analyzed simultaneously.
	Concurrency int `yaml:"concurrency" env:"BATCH_CONCURRENCY" env-default:"3"`
	// Queue names the execution queue recorded on run summaries.
	Queue string `yaml:"queue" env:"BATCH_QUEUE" env-default:"default"`
}

// WithDefaults fills zero-valued fields from the documented defaults.
func (c BatchConfig) WithDefaults() BatchConfig {
	d := DefaultBatchConfig()
	if c.SampleRows <= 0 {
		c.SampleRows = d.SampleRows
	}
	if c.RuleVersion == "" {
		c.RuleVersion = d.RuleVersion
	}
	if c.ModelVersion == "" {
		c.ModelVersion = d.ModelVersion
	}
	if c.Concurrency < 1 {
		c.Concurrency = d.Concurrency
	}
	if c.Queue == "" {
		c.Queue = d.Queue
	}
	return c
}

// DefaultBatchConfig returns the documented batch run defaults.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		SampleRows:   1000,
		RuleVersion:  "v1.0",
		ModelVersion: "sem-base-1",
		Concurrency:  3,
		Queue:        "default",
	}
}

// AssistConfig holds semantic-assist configuration for single-table analysis.
type AssistConfig struct {
	// Template selects the prompt/report template used by suggestion passes.
	Template string `yaml:"template" env:"ASSIST_TEMPLATE" env-default:"standard"`
	// SampleRatio is the fraction of rows sampled, in (0, 1].
	SampleRatio float64 `yaml:"sample_ratio" env:"ASSIST_SAMPLE_RATIO" env-default:"0.1"`
	// MaxRows caps the number of sampled rows.
	MaxRows int `yaml:"max_rows" env:"ASSIST_MAX_ROWS" env-default:"10000"`
	// TTL is how long cached assist results stay valid (duration string).
	TTL string `yaml:"ttl" env:"ASSIST_TTL" env-default:"24h"`
}

// WithDefaults fills zero-valued fields from the documented defaults.
func (c AssistConfig) WithDefaults() AssistConfig {
	d := DefaultAssistConfig()
	if c.Template == "" {
		c.Template = d.Template
	}
	if c.SampleRatio <= 0 || c.SampleRatio > 1 {
		c.SampleRatio = d.SampleRatio
	}
	if c.MaxRows <= 0 {
		c.MaxRows = d.MaxRows
	}
	if c.TTL == "" {
		c.TTL = d.TTL
	}
	return c
}

// TTLDuration parses the TTL string, falling back to the default on error.
func (c AssistConfig) TTLDuration() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// DefaultAssistConfig returns the documented semantic-assist defaults.
func DefaultAssistConfig() AssistConfig {
	return AssistConfig{
		Template:    "standard",
		SampleRatio: 0.1,
		MaxRows:     10000,
		TTL:         "24h",
	}
}

// GateConfig holds the gatekeeper policy inputs that are configuration
// rather than engine logic.
type GateConfig struct {
	// ExcludedTablePatterns lists regexes for table names that must not be
	// promoted (temp/staging/log naming conventions).
	ExcludedTablePatterns []string `yaml:"excluded_table_patterns" env:"GATE_EXCLUDED_TABLE_PATTERNS" env-separator:","`
}

// WithDefaults fills an empty pattern list from the documented defaults.
func (c GateConfig) WithDefaults() GateConfig {
	if len(c.ExcludedTablePatterns) == 0 {
		c.ExcludedTablePatterns = DefaultGateConfig().ExcludedTablePatterns
	}
	return c
}

// DefaultGateConfig returns the default excluded-table naming conventions.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		ExcludedTablePatterns: []string{
			`^tmp_`, `^temp_`, `^stg_`, `^staging_`, `_tmp$`, `_bak$`, `_log$`, `_backup$`,
		},
	}
}

// OutcomeThresholds classify per-table batch outcomes from the final score.
// Score >= Success is a success, >= Partial is a partial success, anything
// below is a failure.
type OutcomeThresholds struct {
	Success float64 `yaml:"success" env:"OUTCOME_SUCCESS_THRESHOLD" env-default:"0.85"`
	Partial float64 `yaml:"partial" env:"OUTCOME_PARTIAL_THRESHOLD" env-default:"0.6"`
}

// WithDefaults fills zero-valued thresholds from the documented defaults.
func (t OutcomeThresholds) WithDefaults() OutcomeThresholds {
	d := DefaultOutcomeThresholds()
	if t.Success <= 0 {
		t.Success = d.Success
	}
	if t.Partial <= 0 {
		t.Partial = d.Partial
	}
	return t
}

// DefaultOutcomeThresholds returns the documented classification thresholds.
func DefaultOutcomeThresholds() OutcomeThresholds {
	return OutcomeThresholds{Success: 0.85, Partial: 0.6}
}

// Default returns a fully-defaulted configuration.
func Default() *Config {
	return &Config{
		Batch:    DefaultBatchConfig(),
		Assist:   DefaultAssistConfig(),
		Gate:     DefaultGateConfig(),
		Outcomes: DefaultOutcomeThresholds(),
	}
}

// Load reads configuration from the given YAML file (if it exists) and the
// environment. A missing file is not an error: environment variables and
// defaults apply on their own.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, cfg); err != nil {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
			return normalize(cfg), nil
		}
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment config: %w", err)
	}
	return normalize(cfg), nil
}

func normalize(cfg *Config) *Config {
	cfg.Batch = cfg.Batch.WithDefaults()
	cfg.Assist = cfg.Assist.WithDefaults()
	cfg.Gate = cfg.Gate.WithDefaults()
	cfg.Outcomes = cfg.Outcomes.WithDefaults()
	return cfg
}
