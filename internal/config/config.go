// Package config provides configuration loading for doceval.
//
// Configuration is loaded from a YAML file with environment variable
// overrides and sensible defaults. This package covers evaluation paths,
// LLM provider settings, matching, redaction, server, and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the complete doceval configuration.
type Config struct {
	Paths      PathsConfig      `koanf:"paths"`
	Sections   SectionsConfig   `koanf:"sections"`
	LLM        LLMConfig        `koanf:"llm"`
	Evaluation EvaluationConfig `koanf:"evaluation"`
	Matcher    MatcherConfig    `koanf:"matcher"`
	Redaction  RedactionConfig  `koanf:"redaction"`
	Server     ServerConfig     `koanf:"server"`
	NATS       NATSConfig       `koanf:"nats"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
	Logging    LoggingConfig    `koanf:"logging"`
	GitHub     GitHubConfig     `koanf:"github"`
}

// PathsConfig holds the input and output locations of an evaluation run.
type PathsConfig struct {
	QuestionsDir    string `koanf:"questions_dir"`    // YAML question files
	DocsDir         string `koanf:"docs_dir"`         // markdown documents
	OutputDir       string `koanf:"output_dir"`       // CSV reports and run metadata
	PromptsFile     string `koanf:"prompts_file"`     // optional prompt template overrides
	QuestionPattern string `koanf:"question_pattern"` // question file name, {n} = section number
	DocPattern      string `koanf:"doc_pattern"`      // document file name, {n} = section number
}

// SectionsConfig holds the inclusive section number range to evaluate.
type SectionsConfig struct {
	Start int `koanf:"start"`
	End   int `koanf:"end"`
}

// ParseSectionRange parses a "start-end" range string (for example "1-5").
// A bare number selects a single section.
func ParseSectionRange(s string) (SectionsConfig, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SectionsConfig{}, errors.New("empty section range")
	}

	if !strings.Contains(s, "-") {
		n, err := strconv.Atoi(s)
		if err != nil {
			return SectionsConfig{}, fmt.Errorf("invalid section range %q: %w", s, err)
		}
		return SectionsConfig{Start: n, End: n}, nil
	}

	parts := strings.SplitN(s, "-", 2)
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return SectionsConfig{}, fmt.Errorf("invalid section range start %q: %w", parts[0], err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return SectionsConfig{}, fmt.Errorf("invalid section range end %q: %w", parts[1], err)
	}

	return SectionsConfig{Start: start, End: end}, nil
}

// LLMConfig holds LLM provider and retry settings.
type LLMConfig struct {
	Provider          string   `koanf:"provider"` // "anthropic" or "openai"
	Model             string   `koanf:"model"`
	BaseURL           string   `koanf:"base_url"` // OpenAI-compatible endpoint override
	APIKey            Secret   `koanf:"api_key"`
	Temperature       float64  `koanf:"temperature"`
	MaxTokens         int      `koanf:"max_tokens"`
	Timeout           Duration `koanf:"timeout"`
	MaxRetries        int      `koanf:"max_retries"`
	BaseBackoff       Duration `koanf:"base_backoff"`
	RequestsPerMinute float64  `koanf:"requests_per_minute"`
	Burst             int      `koanf:"burst"`
}

// EvaluationConfig holds run-level evaluation settings.
type EvaluationConfig struct {
	MaxWorkers           int  `koanf:"max_workers"`
	GenerateRequirements bool `koanf:"generate_requirements"`
}

// MatcherConfig holds section title matching settings.
type MatcherConfig struct {
	Mode       string           `koanf:"mode"`      // "fuzzy" (default) or "semantic"
	Threshold  float64          `koanf:"threshold"` // minimum similarity for semantic matches
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
}

// EmbeddingsConfig holds the embeddings endpoint used by semantic matching.
type EmbeddingsConfig struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  Secret `koanf:"api_key"`
}

// RedactionConfig holds secret redaction settings for outbound LLM content.
type RedactionConfig struct {
	Enabled       bool   `koanf:"enabled"`
	AllowlistFile string `koanf:"allowlist_file"`
}

// ServerConfig holds dashboard HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ReadTimeout     Duration `koanf:"read_timeout"`
	WriteTimeout    Duration `koanf:"write_timeout"` // zero keeps SSE streams open
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// NATSConfig holds the optional progress event broker connection.
type NATSConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
}

// TelemetryConfig holds OpenTelemetry export configuration.
type TelemetryConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Endpoint      string        `koanf:"endpoint"`
	Protocol      string        `koanf:"protocol"` // "grpc" or "http/protobuf"
	Insecure      bool          `koanf:"insecure"`
	TLSSkipVerify bool          `koanf:"tls_skip_verify"`
	SampleRate    float64       `koanf:"sample_rate"`
	Metrics       MetricsConfig `koanf:"metrics"`
}

// MetricsConfig holds OTLP metric export configuration.
type MetricsConfig struct {
	Enabled        bool     `koanf:"enabled"`
	ExportInterval Duration `koanf:"export_interval"`
}

// LoggingConfig holds zap logger configuration.
type LoggingConfig struct {
	Level      string `koanf:"level"`  // debug, info, warn, error
	Format     string `koanf:"format"` // json or console
	OutputPath string `koanf:"output_path"`
}

// GitHubConfig holds the publisher's GitHub settings.
type GitHubConfig struct {
	Token Secret `koanf:"token"`
	Owner string `koanf:"owner"`
	Repo  string `koanf:"repo"`
}

// Provider names accepted by LLMConfig.Provider.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Default model per provider.
const (
	DefaultAnthropicModel = "claude-3-5-sonnet-20241022"
	DefaultOpenAIModel    = "gpt-4o-mini"
)

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	// Path defaults
	if cfg.Paths.QuestionsDir == "" {
		cfg.Paths.QuestionsDir = "./config"
	}
	if cfg.Paths.DocsDir == "" {
		cfg.Paths.DocsDir = "./examples"
	}
	if cfg.Paths.OutputDir == "" {
		cfg.Paths.OutputDir = "./evaluation_results"
	}
	if cfg.Paths.PromptsFile == "" {
		cfg.Paths.PromptsFile = "./config/prompts.yaml"
	}
	if cfg.Paths.QuestionPattern == "" {
		cfg.Paths.QuestionPattern = "odd{n}.yaml"
	}
	if cfg.Paths.DocPattern == "" {
		cfg.Paths.DocPattern = "ODD_Section_{n}_short.md"
	}

	// Section range defaults
	if cfg.Sections.Start == 0 {
		cfg.Sections.Start = 1
	}
	if cfg.Sections.End == 0 {
		cfg.Sections.End = 6
	}

	// LLM defaults
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = ProviderAnthropic
	}
	if cfg.LLM.Model == "" {
		switch cfg.LLM.Provider {
		case ProviderOpenAI:
			cfg.LLM.Model = DefaultOpenAIModel
		default:
			cfg.LLM.Model = DefaultAnthropicModel
		}
	}
	if !cfg.LLM.APIKey.IsSet() {
		switch cfg.LLM.Provider {
		case ProviderOpenAI:
			cfg.LLM.APIKey = Secret(os.Getenv("OPENAI_API_KEY"))
		default:
			cfg.LLM.APIKey = Secret(os.Getenv("ANTHROPIC_API_KEY"))
		}
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 1024
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = Duration(60 * time.Second)
	}
	if cfg.LLM.MaxRetries == 0 {
		cfg.LLM.MaxRetries = 3
	}
	if cfg.LLM.BaseBackoff == 0 {
		cfg.LLM.BaseBackoff = Duration(1 * time.Second)
	}
	if cfg.LLM.RequestsPerMinute == 0 {
		cfg.LLM.RequestsPerMinute = 50
	}
	if cfg.LLM.Burst == 0 {
		cfg.LLM.Burst = 5
	}

	// Evaluation defaults
	if cfg.Evaluation.MaxWorkers == 0 {
		cfg.Evaluation.MaxWorkers = 4
	}

	// Matcher defaults
	if cfg.Matcher.Mode == "" {
		cfg.Matcher.Mode = "fuzzy"
	}
	if cfg.Matcher.Threshold == 0 {
		cfg.Matcher.Threshold = 0.6
	}

	// Server defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8050
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = Duration(10 * time.Second)
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	// NATS defaults
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://localhost:4222"
	}

	// Telemetry defaults
	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.SampleRate == 0 {
		cfg.Telemetry.SampleRate = 1.0
	}
	if cfg.Telemetry.Metrics.ExportInterval == 0 {
		cfg.Telemetry.Metrics.ExportInterval = Duration(60 * time.Second)
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.OutputPath == "" {
		cfg.Logging.OutputPath = "stderr"
	}
}

// Validate validates the configuration.
//
// Returns an error naming the offending field if any value is out of range.
func (c *Config) Validate() error {
	if c.Sections.Start < 1 {
		return fmt.Errorf("sections.start must be >= 1, got %d", c.Sections.Start)
	}
	if c.Sections.End < c.Sections.Start {
		return fmt.Errorf("sections.end must be >= sections.start, got %d-%d", c.Sections.Start, c.Sections.End)
	}

	if !strings.Contains(c.Paths.QuestionPattern, "{n}") {
		return fmt.Errorf("paths.question_pattern must contain {n}, got %q", c.Paths.QuestionPattern)
	}
	if !strings.Contains(c.Paths.DocPattern, "{n}") {
		return fmt.Errorf("paths.doc_pattern must contain {n}, got %q", c.Paths.DocPattern)
	}

	switch c.LLM.Provider {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		return fmt.Errorf("llm.provider must be %q or %q, got %q", ProviderAnthropic, ProviderOpenAI, c.LLM.Provider)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be in [0, 2], got %v", c.LLM.Temperature)
	}
	if c.LLM.MaxRetries < 1 {
		return fmt.Errorf("llm.max_retries must be >= 1, got %d", c.LLM.MaxRetries)
	}
	if c.LLM.RequestsPerMinute <= 0 {
		return fmt.Errorf("llm.requests_per_minute must be positive, got %v", c.LLM.RequestsPerMinute)
	}

	if c.Evaluation.MaxWorkers < 1 {
		return fmt.Errorf("evaluation.max_workers must be >= 1, got %d", c.Evaluation.MaxWorkers)
	}

	switch c.Matcher.Mode {
	case "fuzzy":
	case "semantic":
		if c.Matcher.Embeddings.BaseURL == "" {
			return errors.New("matcher.embeddings.base_url required for semantic matching")
		}
		if c.Matcher.Embeddings.Model == "" {
			return errors.New("matcher.embeddings.model required for semantic matching")
		}
	default:
		return fmt.Errorf("matcher.mode must be \"fuzzy\" or \"semantic\", got %q", c.Matcher.Mode)
	}
	if c.Matcher.Threshold < 0 || c.Matcher.Threshold > 1 {
		return fmt.Errorf("matcher.threshold must be in [0, 1], got %v", c.Matcher.Threshold)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("server.shutdown_timeout must be positive")
	}

	switch c.Telemetry.Protocol {
	case "grpc", "http/protobuf":
	default:
		return fmt.Errorf("telemetry.protocol must be \"grpc\" or \"http/protobuf\", got %q", c.Telemetry.Protocol)
	}

	return nil
}
