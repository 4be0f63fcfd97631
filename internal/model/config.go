package model

import "time"

// Config holds the full runtime configuration
type Config struct {
	Paths  PathsConfig  `yaml:"paths" mapstructure:"paths"`
	HTTP   HTTPConfig   `yaml:"http" mapstructure:"http"`
	Fetch  FetchConfig  `yaml:"fetch" mapstructure:"fetch"`
	Verify VerifyConfig `yaml:"verify" mapstructure:"verify"`
	LLM    LLMConfig    `yaml:"llm" mapstructure:"llm"`
	Output OutputConfig `yaml:"output" mapstructure:"output"`
}

// PathsConfig locates the flat-file dataset
type PathsConfig struct {
	DataDir      string   `yaml:"data_dir" mapstructure:"data_dir"`           // Directory holding tier files
	SourcesDir   string   `yaml:"sources_dir" mapstructure:"sources_dir"`     // Archived article texts
	Jurisdiction string   `yaml:"jurisdiction" mapstructure:"jurisdiction"`   // Reference table JSON
	AuditLog     string   `yaml:"audit_log" mapstructure:"audit_log"`         // JSONL audit trail
	Report       string   `yaml:"report" mapstructure:"report"`               // Verification report JSON
	Checkpoint   string   `yaml:"checkpoint" mapstructure:"checkpoint"`       // Resume state
	TierFiles    []string `yaml:"tier_files" mapstructure:"tier_files"`
}

// HTTPConfig mirrors the fetcher's network knobs
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	InsecureTLS  bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	HTTPProxy    string        `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy" mapstructure:"no_proxy"`
}

// FetchConfig controls the archive download phase
type FetchConfig struct {
	Workers       int           `yaml:"workers" mapstructure:"workers"`
	DomainDelay   time.Duration `yaml:"domain_delay" mapstructure:"domain_delay"` // Min spacing per host
	Force         bool          `yaml:"force" mapstructure:"force"`               // Re-fetch archived sources
	CheckRobots   bool          `yaml:"check_robots" mapstructure:"check_robots"`
	UseWayback    bool          `yaml:"use_wayback" mapstructure:"use_wayback"`
	MinTextLength int           `yaml:"min_text_length" mapstructure:"min_text_length"`
}

// VerifyConfig controls the verification phase
type VerifyConfig struct {
	Workers         int  `yaml:"workers" mapstructure:"workers"`
	LocalOnly       bool `yaml:"local_only" mapstructure:"local_only"`
	DownloadMissing bool `yaml:"download_missing" mapstructure:"download_missing"`
	MaxSources      int  `yaml:"max_sources" mapstructure:"max_sources"` // Cap sources per record
	ScorerRetries   int  `yaml:"scorer_retries" mapstructure:"scorer_retries"`
}

// LLMConfig configures the optional LLM scorer
type LLMConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"`         // From env, never written to disk
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"` // openai-compatible endpoints, e.g. DeepSeek
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"`   // Seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// OutputConfig controls console and file output
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			DataDir:      "data/incidents",
			SourcesDir:   "data/sources",
			Jurisdiction: "data/jurisdictions.json",
			AuditLog:     "data/sources/audit.jsonl",
			Report:       "data/sources/verification_report.json",
			Checkpoint:   "data/sources/checkpoint.json",
			TierFiles: []string{
				"tier1_deaths_in_custody.json",
				"tier2_shootings.json",
				"tier2_less_lethal.json",
				"tier3_incidents.json",
				"tier4_incidents.json",
			},
		},
		HTTP: HTTPConfig{
			Timeout:      20 * time.Second,
			UserAgent:    "Corroborate/0.2 (+https://github.com/civicdata/corroborate)",
			MaxBodyBytes: 2_000_000,
		},
		Fetch: FetchConfig{
			Workers:       8,
			DomainDelay:   time.Second,
			CheckRobots:   true,
			UseWayback:    true,
			MinTextLength: 200,
		},
		Verify: VerifyConfig{
			Workers:       4,
			MaxSources:    5,
			ScorerRetries: 3,
		},
		LLM: LLMConfig{
			Model:     "deepseek-chat",
			BaseURL:   "https://api.deepseek.com/v1",
			Timeout:   60,
			MaxTokens: 2000,
		},
	}
}
