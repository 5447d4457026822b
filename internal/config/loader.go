package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known LLM provider names. Used by [Validate] to
// warn about unrecognised provider names.
var ValidProviderNames = []string{
	"openai", "openai-direct", "anthropic", "gemini", "ollama",
	"deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Unknown YAML fields are rejected. Useful in tests
// where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration with every default applied and no
// inference provider configured.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills unset fields of cfg in place.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LogInfo
	}
	if cfg.Inference.MaxAttempts == 0 {
		cfg.Inference.MaxAttempts = 3
	}
	if cfg.Inference.BackoffSeconds == 0 {
		cfg.Inference.BackoffSeconds = 2
	}
	if cfg.Inference.TimeoutSeconds == 0 {
		cfg.Inference.TimeoutSeconds = 30
	}
	if cfg.Inference.Temperature == 0 {
		cfg.Inference.Temperature = 0.1
	}
	if cfg.QA.GapThresholdSeconds == 0 {
		cfg.QA.GapThresholdSeconds = 2.0
	}
	if cfg.QA.LongSegmentThresholdSeconds == 0 {
		cfg.QA.LongSegmentThresholdSeconds = 25.0
	}
	if cfg.Editor.GlossaryThreshold == 0 {
		cfg.Editor.GlossaryThreshold = 0.9
	}
	if cfg.Editor.LanguageThreshold == 0 {
		cfg.Editor.LanguageThreshold = 0.80
	}
	if cfg.Suggest.PhoneticThreshold == 0 {
		cfg.Suggest.PhoneticThreshold = 0.70
	}
	if cfg.Suggest.FuzzyThreshold == 0 {
		cfg.Suggest.FuzzyThreshold = 0.85
	}
	if cfg.Suggest.MinTokenLength == 0 {
		cfg.Suggest.MinTokenLength = 4
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Logging.Level != "" && !cfg.Logging.Level.IsValid() {
		errs = append(errs, fmt.Errorf("logging.level %q is invalid; valid values: debug, info, warn, error", cfg.Logging.Level))
	}

	if name := cfg.Inference.Provider.Name; name != "" {
		if !slices.Contains(ValidProviderNames, name) {
			slog.Warn("unknown provider name — may be a typo or third-party provider",
				"name", name,
				"known", ValidProviderNames,
			)
		}
		if cfg.Inference.Provider.Model == "" {
			errs = append(errs, fmt.Errorf("inference.provider.model is required when a provider is configured"))
		}
	} else {
		slog.Warn("no inference provider configured; pipeline will run in context-free mode")
	}

	if cfg.Inference.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("inference.max_attempts %d must be >= 1", cfg.Inference.MaxAttempts))
	}
	if cfg.Inference.BackoffSeconds < 0 {
		errs = append(errs, fmt.Errorf("inference.backoff_seconds %.2f must be >= 0", cfg.Inference.BackoffSeconds))
	}
	if cfg.Inference.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("inference.timeout_seconds %.2f must be > 0", cfg.Inference.TimeoutSeconds))
	}

	if cfg.QA.GapThresholdSeconds <= 0 {
		errs = append(errs, fmt.Errorf("qa.gap_threshold_seconds %.2f must be > 0", cfg.QA.GapThresholdSeconds))
	}
	if cfg.QA.LongSegmentThresholdSeconds <= 0 {
		errs = append(errs, fmt.Errorf("qa.long_segment_threshold_seconds %.2f must be > 0", cfg.QA.LongSegmentThresholdSeconds))
	}

	if t := cfg.Editor.GlossaryThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("editor.glossary_threshold %.2f is out of range [0, 1]", t))
	}
	if t := cfg.Editor.LanguageThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("editor.language_threshold %.2f is out of range [0, 1]", t))
	}

	if t := cfg.Suggest.PhoneticThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("suggest.phonetic_threshold %.2f is out of range [0, 1]", t))
	}
	if t := cfg.Suggest.FuzzyThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("suggest.fuzzy_threshold %.2f is out of range [0, 1]", t))
	}
	if cfg.Suggest.MinTokenLength < 1 {
		errs = append(errs, fmt.Errorf("suggest.min_token_length %d must be >= 1", cfg.Suggest.MinTokenLength))
	}

	return errors.Join(errs...)
}
