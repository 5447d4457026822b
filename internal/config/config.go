// Package config provides the configuration schema, loader, and provider
// registry for the Veracall transcript pipeline.
package config

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for Veracall.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
// The zero value plus [ApplyDefaults] yields a working degraded-mode
// configuration with no inference provider.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Inference InferenceConfig `yaml:"inference"`
	QA        QAConfig        `yaml:"qa"`
	Editor    EditorConfig    `yaml:"editor"`
	Suggest   SuggestConfig   `yaml:"suggest"`
	Archive   ArchiveConfig   `yaml:"archive"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level controls verbosity. Default: info.
	Level LogLevel `yaml:"level"`
}

// InferenceConfig configures the external context-inference collaborator.
type InferenceConfig struct {
	// Provider selects and configures the LLM backend. An empty provider
	// name disables inference entirely; the pipeline then runs in
	// context-free mode.
	Provider ProviderEntry `yaml:"provider"`

	// MaxAttempts bounds inference retries. Default: 3.
	MaxAttempts int `yaml:"max_attempts"`

	// BackoffSeconds is the fixed delay between attempts. Default: 2.
	BackoffSeconds float64 `yaml:"backoff_seconds"`

	// TimeoutSeconds is the per-attempt deadline. Default: 30.
	TimeoutSeconds float64 `yaml:"timeout_seconds"`

	// Temperature is the sampling temperature. Default: 0.1.
	Temperature float64 `yaml:"temperature"`
}

// ProviderEntry is the common configuration block for an LLM provider. The
// Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "openai",
	// "anthropic", "ollama").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	// Prefer supplying credentials via environment (VERACALL_API_KEY or the
	// provider's native variable) over writing them into the config file.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o-mini").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by
	// the standard fields above.
	Options map[string]any `yaml:"options"`
}

// QAConfig holds the omission-detection thresholds. Both are inclusive
// boundaries, in seconds.
type QAConfig struct {
	// GapThresholdSeconds flags inter-segment silences. Default: 2.0.
	GapThresholdSeconds float64 `yaml:"gap_threshold_seconds"`

	// LongSegmentThresholdSeconds flags suspiciously long segments.
	// Default: 25.0.
	LongSegmentThresholdSeconds float64 `yaml:"long_segment_threshold_seconds"`
}

// EditorConfig holds the confidence gates for context-derived transforms.
type EditorConfig struct {
	// GlossaryThreshold gates glossary substitution, in [0, 1]. Default: 0.9.
	GlossaryThreshold float64 `yaml:"glossary_threshold"`

	// LanguageThreshold gates language-error correction, in [0, 1].
	// Default: 0.80.
	LanguageThreshold float64 `yaml:"language_threshold"`
}

// SuggestConfig configures the report-only phonetic alias suggester.
type SuggestConfig struct {
	// Enabled toggles suggestion output. Default: true.
	Enabled *bool `yaml:"enabled"`

	// PhoneticThreshold is the minimum Jaro-Winkler score for phonetically
	// matched terms. Default: 0.70.
	PhoneticThreshold float64 `yaml:"phonetic_threshold"`

	// FuzzyThreshold is the minimum Jaro-Winkler score for the pure string
	// similarity fallback. Default: 0.85.
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`

	// MinTokenLength is the minimum token length considered, in runes.
	// Default: 4.
	MinTokenLength int `yaml:"min_token_length"`
}

// SuggestEnabled reports whether suggestion output is on (the default).
func (s SuggestConfig) SuggestEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// ArchiveConfig configures the SQLite run archive.
type ArchiveConfig struct {
	// Path is the SQLite database file for run records. Empty disables
	// archiving.
	Path string `yaml:"path"`
}
