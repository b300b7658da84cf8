package config

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "DEPRADAR_CONFIG"
	databasePathEnv   = "DATABASE_PATH"
	githubTokenEnv    = "GITHUB_TOKEN"
	llmAPIKeyEnv      = "LLM_API_KEY"
	llmModelEnv       = "LLM_MODEL"
	ollamaEndpointEnv = "OLLAMA_ENDPOINT"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Database DatabaseConfig `yaml:"database"`
	Project  ProjectConfig  `yaml:"project"`
	Sources  SourcesConfig  `yaml:"sources"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Embed    EmbedConfig    `yaml:"embedding"`
	LLM      LLMConfig      `yaml:"llm"`
	Scout    FetchConfig    `yaml:"scout"`
	Analyst  AnalystConfig  `yaml:"analyst"`
	Report   ReportConfig   `yaml:"report"`
	Security SecurityConfig `yaml:"security"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig describes the archive store location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ProjectConfig describes the target project whose relevance is scored.
// Manifest points at a go.mod file; its requirements join the fingerprint
// alongside the manual keywords.
type ProjectConfig struct {
	Narrative string   `yaml:"narrative"`
	Manifest  string   `yaml:"manifest"`
	Keywords  []string `yaml:"keywords"`
}

// SourcesConfig lists where candidate items are discovered. Feeds are
// syndication URLs; Releases are "owner/repo" GitHub identifiers.
type SourcesConfig struct {
	Feeds    []string `yaml:"feeds"`
	Releases []string `yaml:"releases"`
}

// AnalysisConfig tunes the relevance pipeline.
//
// FailClosed flips the fail-open policy: by default a model or storage read
// failure passes candidates through unfiltered; with FailClosed set, the same
// failures drop the batch instead.
type AnalysisConfig struct {
	LookbackHours       int     `yaml:"lookbackHours"`
	SimilarityThreshold float64 `yaml:"similarityThreshold"`
	FailClosed          bool    `yaml:"failClosed"`
}

// Lookback returns the recency window for candidate items.
func (a AnalysisConfig) Lookback() time.Duration {
	return time.Duration(a.LookbackHours) * time.Hour
}

// EmbedConfig describes the embedding service.
type EmbedConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
}

// LLMConfig defines how to contact the chat-completion API used for deep
// analysis.
type LLMConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// FetchConfig carries per-request settings for the source aggregator.
type FetchConfig struct {
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
	UserAgent      string `yaml:"userAgent"`
	GitHubToken    string `yaml:"githubToken"`
}

// Timeout returns the per-request fetch timeout.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// AnalystConfig carries per-item settings for the deep-analysis engine.
type AnalystConfig struct {
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
	UserAgent      string `yaml:"userAgent"`
	Concurrency    int    `yaml:"concurrency"`
}

// Timeout returns the per-item page fetch timeout.
func (a AnalystConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// ReportConfig selects the report format and destination directory.
type ReportConfig struct {
	Format string `yaml:"format"`
	Dir    string `yaml:"dir"`
}

// SecurityConfig lists host substrings exempt from TLS verification.
type SecurityConfig struct {
	SkipTLSVerify []string `yaml:"skipTlsVerify"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}

	if v := os.Getenv(githubTokenEnv); v != "" {
		c.Scout.GitHubToken = v
	}

	if v := os.Getenv(llmAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}

	if v := os.Getenv(llmModelEnv); v != "" {
		c.LLM.Model = v
	}

	if v := os.Getenv(ollamaEndpointEnv); v != "" {
		c.Embed.Endpoint = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Database.Path != "" {
		base.Database = override.Database
	}

	if override.Project.Narrative != "" {
		base.Project.Narrative = override.Project.Narrative
	}
	if override.Project.Manifest != "" {
		base.Project.Manifest = override.Project.Manifest
	}
	if len(override.Project.Keywords) > 0 {
		base.Project.Keywords = override.Project.Keywords
	}

	if len(override.Sources.Feeds) > 0 {
		base.Sources.Feeds = override.Sources.Feeds
	}
	if len(override.Sources.Releases) > 0 {
		base.Sources.Releases = override.Sources.Releases
	}

	if override.Analysis.LookbackHours > 0 {
		base.Analysis.LookbackHours = override.Analysis.LookbackHours
	}
	if override.Analysis.SimilarityThreshold > 0 {
		base.Analysis.SimilarityThreshold = override.Analysis.SimilarityThreshold
	}
	base.Analysis.FailClosed = override.Analysis.FailClosed

	if override.Embed.Endpoint != "" {
		base.Embed.Endpoint = override.Embed.Endpoint
	}
	if override.Embed.Model != "" {
		base.Embed.Model = override.Embed.Model
	}

	if override.LLM.Endpoint != "" {
		base.LLM.Endpoint = override.LLM.Endpoint
	}
	if override.LLM.Model != "" {
		base.LLM.Model = override.LLM.Model
	}
	if override.LLM.APIKey != "" {
		base.LLM.APIKey = override.LLM.APIKey
	}
	if override.LLM.SystemPrompt != "" {
		base.LLM.SystemPrompt = override.LLM.SystemPrompt
	}

	if override.Scout.TimeoutSeconds > 0 {
		base.Scout.TimeoutSeconds = override.Scout.TimeoutSeconds
	}
	if override.Scout.UserAgent != "" {
		base.Scout.UserAgent = override.Scout.UserAgent
	}
	if override.Scout.GitHubToken != "" {
		base.Scout.GitHubToken = override.Scout.GitHubToken
	}

	if override.Analyst.TimeoutSeconds > 0 {
		base.Analyst.TimeoutSeconds = override.Analyst.TimeoutSeconds
	}
	if override.Analyst.UserAgent != "" {
		base.Analyst.UserAgent = override.Analyst.UserAgent
	}
	if override.Analyst.Concurrency > 0 {
		base.Analyst.Concurrency = override.Analyst.Concurrency
	}

	if override.Report.Format != "" {
		base.Report.Format = override.Report.Format
	}
	if override.Report.Dir != "" {
		base.Report.Dir = override.Report.Dir
	}

	if len(override.Security.SkipTLSVerify) > 0 {
		base.Security.SkipTLSVerify = override.Security.SkipTLSVerify
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info"},
		Database: DatabaseConfig{Path: filepath.Join(xdg.DataHome, "depradar", "archive.db")},
		Analysis: AnalysisConfig{
			LookbackHours:       24,
			SimilarityThreshold: 0.30,
		},
		Embed: EmbedConfig{
			Endpoint: "http://localhost:11434",
			Model:    "nomic-embed-text",
		},
		LLM: LLMConfig{
			Endpoint: "https://api.openai.com/v1/chat/completions",
			Model:    "gpt-4o-mini",
		},
		Scout: FetchConfig{
			TimeoutSeconds: 20,
			UserAgent:      "DepradarScout/1.0",
		},
		Analyst: AnalystConfig{
			TimeoutSeconds: 30,
			UserAgent:      "DepradarAnalyst/1.0",
			Concurrency:    5,
		},
		Report: ReportConfig{
			Format: "csv",
			Dir:    filepath.Join(xdg.DataHome, "depradar", "reports"),
		},
	}
}
