package config

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// TestValidate_Defaults tests that the default configuration is valid.
func TestValidate_Defaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() on defaults = %v, want nil", err)
	}
}

// TestValidate_Errors tests validation failure cases.
func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{
			name:    "section start below one",
			mutate:  func(c *Config) { c.Sections.Start = 0 },
			wantSub: "sections.start",
		},
		{
			name:    "section end before start",
			mutate:  func(c *Config) { c.Sections.Start = 5; c.Sections.End = 2 },
			wantSub: "sections.end",
		},
		{
			name:    "question pattern without placeholder",
			mutate:  func(c *Config) { c.Paths.QuestionPattern = "questions.yaml" },
			wantSub: "paths.question_pattern",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.LLM.Provider = "bedrock" },
			wantSub: "llm.provider",
		},
		{
			name:    "temperature out of range",
			mutate:  func(c *Config) { c.LLM.Temperature = 3.5 },
			wantSub: "llm.temperature",
		},
		{
			name:    "zero retries",
			mutate:  func(c *Config) { c.LLM.MaxRetries = 0 },
			wantSub: "llm.max_retries",
		},
		{
			name:    "negative rate",
			mutate:  func(c *Config) { c.LLM.RequestsPerMinute = -1 },
			wantSub: "llm.requests_per_minute",
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Evaluation.MaxWorkers = 0 },
			wantSub: "evaluation.max_workers",
		},
		{
			name:    "unknown matcher mode",
			mutate:  func(c *Config) { c.Matcher.Mode = "regex" },
			wantSub: "matcher.mode",
		},
		{
			name: "semantic without embeddings",
			mutate: func(c *Config) {
				c.Matcher.Mode = "semantic"
				c.Matcher.Embeddings = EmbeddingsConfig{}
			},
			wantSub: "matcher.embeddings",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantSub: "server port",
		},
		{
			name:    "unknown telemetry protocol",
			mutate:  func(c *Config) { c.Telemetry.Protocol = "udp" },
			wantSub: "telemetry.protocol",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantSub)
			}
		})
	}
}

// TestParseSectionRange tests range string parsing.
func TestParseSectionRange(t *testing.T) {
	tests := []struct {
		in        string
		wantStart int
		wantEnd   int
		wantErr   bool
	}{
		{in: "1-5", wantStart: 1, wantEnd: 5},
		{in: "3", wantStart: 3, wantEnd: 3},
		{in: " 2-6 ", wantStart: 2, wantEnd: 6},
		{in: "", wantErr: true},
		{in: "a-b", wantErr: true},
		{in: "1-", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSectionRange(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseSectionRange(%q) = %v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSectionRange(%q) error = %v", tt.in, err)
			}
			if got.Start != tt.wantStart || got.End != tt.wantEnd {
				t.Errorf("ParseSectionRange(%q) = %d-%d, want %d-%d", tt.in, got.Start, got.End, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

// TestDuration_Marshaling tests Duration text and JSON round-trips.
func TestDuration_Marshaling(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("90s")); err != nil {
		t.Fatalf("UnmarshalText(90s) error = %v", err)
	}
	if d.Duration() != 90*time.Second {
		t.Errorf("Duration() = %v, want 90s", d.Duration())
	}

	text, err := d.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText() error = %v", err)
	}
	if string(text) != "1m30s" {
		t.Errorf("MarshalText() = %q, want 1m30s", text)
	}

	if err := d.UnmarshalText([]byte("-5s")); err == nil {
		t.Error("UnmarshalText(-5s) = nil, want error for negative duration")
	}
}

// TestSecret_Marshaling tests that secrets are redacted in every encoding.
func TestSecret_Marshaling(t *testing.T) {
	s := Secret("hunter2")

	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("json.Marshal error = %v", err)
	}
	if string(b) != `"[REDACTED]"` {
		t.Errorf("json.Marshal = %s, want redacted", b)
	}

	y, err := s.MarshalYAML()
	if err != nil {
		t.Fatalf("MarshalYAML error = %v", err)
	}
	if y != "[REDACTED]" {
		t.Errorf("MarshalYAML = %v, want redacted", y)
	}

	var empty Secret
	if empty.IsSet() {
		t.Error("empty Secret.IsSet() = true, want false")
	}
	if empty.String() != "" {
		t.Errorf("empty Secret.String() = %q, want empty", empty.String())
	}
}
