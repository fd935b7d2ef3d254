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

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":           {"openai", "gemini", "ollama", "anthropic", "mistral", "deepseek", "groq"},
	"transcription": {"revai"},
	"embeddings":    {"openai"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
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

// LoadFromReader decodes a YAML config from r, expands ${VAR} references in
// credential fields, and validates the result. Useful in tests where configs
// are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	expandCredentials(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandCredentials resolves ${VAR} environment references in the fields
// that carry secrets, so API keys and DSN passwords can live in the
// environment (loaded from .env by main) rather than the config file.
func expandCredentials(cfg *Config) {
	for _, entry := range []*ProviderEntry{
		&cfg.Providers.LLM,
		&cfg.Providers.FallbackLLM,
		&cfg.Providers.Transcription,
		&cfg.Providers.Embeddings,
	} {
		entry.APIKey = os.ExpandEnv(entry.APIKey)
	}
	cfg.Records.PostgresDSN = os.ExpandEnv(cfg.Records.PostgresDSN)
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
// Suspicious-but-workable settings are logged as warnings instead.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.MaxUploadMB < 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_mb %d must not be negative", cfg.Server.MaxUploadMB))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("llm", cfg.Providers.FallbackLLM.Name)
	validateProviderName("transcription", cfg.Providers.Transcription.Name)
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)

	// Provider availability warnings
	if cfg.Providers.Transcription.Name == "" {
		slog.Warn("no transcription provider configured; consultation uploads will be rejected")
	}
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("no LLM provider configured; note extraction and the records agent will be unavailable")
	}
	if cfg.Providers.FallbackLLM.Name != "" && cfg.Providers.FallbackLLM.Name == cfg.Providers.LLM.Name &&
		cfg.Providers.FallbackLLM.Model == cfg.Providers.LLM.Model {
		slog.Warn("fallback LLM is identical to the primary; failover will hit the same backend",
			"name", cfg.Providers.LLM.Name, "model", cfg.Providers.LLM.Model)
	}

	// Pipeline
	if cfg.Pipeline.PollIntervalSeconds < 0 {
		errs = append(errs, fmt.Errorf("pipeline.poll_interval_seconds %d must not be negative", cfg.Pipeline.PollIntervalSeconds))
	}
	if cfg.Pipeline.PollTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("pipeline.poll_timeout_seconds %d must not be negative", cfg.Pipeline.PollTimeoutSeconds))
	}
	if cfg.Pipeline.PollIntervalSeconds > 0 && cfg.Pipeline.PollTimeoutSeconds > 0 &&
		cfg.Pipeline.PollIntervalSeconds > cfg.Pipeline.PollTimeoutSeconds {
		slog.Warn("pipeline poll interval exceeds the poll timeout; every job will get exactly one status check",
			"interval_seconds", cfg.Pipeline.PollIntervalSeconds,
			"timeout_seconds", cfg.Pipeline.PollTimeoutSeconds)
	}

	// Records
	if cfg.Records.PostgresDSN == "" {
		slog.Warn("records.postgres_dsn is empty; notes will not be archived and the records agent will be unavailable")
	}
	if cfg.Providers.Embeddings.Name != "" && cfg.Records.EmbeddingDimensions <= 0 {
		slog.Warn("providers.embeddings is configured but records.embedding_dimensions is not set; defaulting to 1536")
	}

	// Agent
	if cfg.Agent.MaxIterations < 0 {
		errs = append(errs, fmt.Errorf("agent.max_iterations %d must not be negative", cfg.Agent.MaxIterations))
	}
	if cfg.Agent.Temperature < 0 || cfg.Agent.Temperature > 2 {
		errs = append(errs, fmt.Errorf("agent.temperature %.2f is out of range [0.0, 2.0]", cfg.Agent.Temperature))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
