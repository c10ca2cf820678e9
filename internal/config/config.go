package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v2"
)

// Backend names accepted by the orchestrator setting
const (
	BackendAzureDevOps = "azdo"
	BackendGitHub      = "github"
	BackendMarkdown    = "markdown"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "INDIANA_"

// Config represents the resolved run configuration
type Config struct {
	Token        string `yaml:"token"`
	Orchestrator string `yaml:"orchestrator"`
	Organization string `yaml:"organization"`
	Project      string `yaml:"project"`
	File         string `yaml:"file"`
	Output       string `yaml:"output"`

	AzureDevOpsURL string `yaml:"azdo_url"`
	GitHubURL      string `yaml:"github_url"`
	Timeout        int    `yaml:"timeout_seconds"`
	RateLimitWait  int    `yaml:"rate_limit_max_wait_seconds"`
	Verbose        bool   `yaml:"verbose"`
}

// setting binds a config field to its flag and environment variable
type setting struct {
	flag string
	env  string
	set  func(c *Config, v string) error
}

var settings = []setting{
	{"token", "TOKEN", func(c *Config, v string) error { c.Token = v; return nil }},
	{"orchestrator", "ORCHESTRATOR", func(c *Config, v string) error { c.Orchestrator = v; return nil }},
	{"organization", "ORGANIZATION", func(c *Config, v string) error { c.Organization = v; return nil }},
	{"project", "PROJECT", func(c *Config, v string) error { c.Project = v; return nil }},
	{"file", "FILE", func(c *Config, v string) error { c.File = v; return nil }},
	{"output", "OUTPUT", func(c *Config, v string) error { c.Output = v; return nil }},
	{"azdo-url", "AZDO_URL", func(c *Config, v string) error { c.AzureDevOpsURL = v; return nil }},
	{"github-url", "GITHUB_URL", func(c *Config, v string) error { c.GitHubURL = v; return nil }},
	{"timeout", "TIMEOUT", func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("timeout must be a positive number of seconds, got %q", v)
		}
		c.Timeout = n
		return nil
	}},
	{"verbose", "VERBOSE", func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("verbose must be a boolean, got %q", v)
		}
		c.Verbose = b
		return nil
	}},
}

// Default returns a Config with the public service endpoints filled in
func Default() Config {
	return Config{
		AzureDevOpsURL: "https://dev.azure.com",
		GitHubURL:      "https://api.github.com",
		Timeout:        30,
		RateLimitWait:  60,
	}
}

// RegisterFlags declares one flag per setting on fs
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("token", "", "Personal access token ("+EnvPrefix+"TOKEN)")
	fs.String("orchestrator", "", "Backend: azdo, github or markdown ("+EnvPrefix+"ORCHESTRATOR)")
	fs.String("organization", "", "Organization or repository owner ("+EnvPrefix+"ORGANIZATION)")
	fs.String("project", "", "Project or repository name ("+EnvPrefix+"PROJECT)")
	fs.String("file", "", "JSON file containing the work items ("+EnvPrefix+"FILE)")
	fs.String("output", "", "Markdown file to update, markdown backend only ("+EnvPrefix+"OUTPUT)")
	fs.String("azdo-url", "", "Azure DevOps base URL ("+EnvPrefix+"AZDO_URL)")
	fs.String("github-url", "", "GitHub API base URL ("+EnvPrefix+"GITHUB_URL)")
	fs.Int("timeout", 0, "HTTP timeout in seconds ("+EnvPrefix+"TIMEOUT)")
	fs.Bool("verbose", false, "Print every API request ("+EnvPrefix+"VERBOSE)")
}

// Load resolves configuration from an optional YAML file, the environment and
// the flags in fs, in increasing order of precedence.
func Load(configPath string, fs *pflag.FlagSet) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := mergeFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if fs != nil {
		if err := cfg.applyFlags(fs); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func mergeFile(dst *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.UnmarshalStrict(data, dst); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for _, s := range settings {
		if v, ok := lookup(EnvPrefix + s.env); ok && v != "" {
			if err := s.set(c, v); err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, s.env, err)
			}
		}
	}
	return nil
}

func (c *Config) applyFlags(fs *pflag.FlagSet) error {
	for _, s := range settings {
		f := fs.Lookup(s.flag)
		if f == nil || !f.Changed {
			continue
		}
		if err := s.set(c, f.Value.String()); err != nil {
			return fmt.Errorf("--%s: %w", s.flag, err)
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Orchestrator == "" {
		return fmt.Errorf("no orchestrator provided")
	}

	switch c.Orchestrator {
	case BackendAzureDevOps, BackendGitHub:
		if c.Token == "" {
			return fmt.Errorf("no token provided")
		}
		if c.Organization == "" {
			return fmt.Errorf("no organization provided")
		}
		if c.Project == "" {
			return fmt.Errorf("no project provided")
		}
	case BackendMarkdown:
		if c.Output == "" {
			return fmt.Errorf("no output file provided")
		}
	default:
		return fmt.Errorf("unknown orchestrator %q (expected %s, %s or %s)",
			c.Orchestrator, BackendAzureDevOps, BackendGitHub, BackendMarkdown)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	if c.RateLimitWait < 1 {
		return fmt.Errorf("rate_limit_max_wait_seconds must be at least 1")
	}

	return nil
}

// ValidateInput checks the settings only needed when creating work items
func (c *Config) ValidateInput() error {
	if c.File == "" {
		return fmt.Errorf("no file provided")
	}
	return nil
}

// HTTPTimeout returns the transport timeout as a duration
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// RateLimitMaxWait returns the longest the rate-limit guard may sleep before its retry
func (c *Config) RateLimitMaxWait() time.Duration {
	return time.Duration(c.RateLimitWait) * time.Second
}
