package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range settings {
		t.Setenv(EnvPrefix+s.env, "")
	}
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "https://dev.azure.com", cfg.AzureDevOpsURL)
	assert.Equal(t, "https://api.github.com", cfg.GitHubURL)
	assert.Equal(t, 30, cfg.Timeout)
}

func TestLoad_FlagOverridesEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("INDIANA_TOKEN", "env-token")
	t.Setenv("INDIANA_ORCHESTRATOR", "github")
	t.Setenv("INDIANA_ORGANIZATION", "acme")
	t.Setenv("INDIANA_PROJECT", "env-project")
	t.Setenv("INDIANA_FILE", "items.json")

	cfg, err := Load("", newFlags(t, "--project", "flag-project", "--timeout", "5"))

	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Token)
	assert.Equal(t, "flag-project", cfg.Project)
	assert.Equal(t, 5, cfg.Timeout)
	assert.Equal(t, BackendGitHub, cfg.Orchestrator)
}

func TestLoad_FileIsLowestPrecedence(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "indiana.yaml")
	content := "orchestrator: markdown\nfile: from-file.json\noutput: README.md\ntimeout_seconds: 10\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("INDIANA_FILE", "from-env.json")

	cfg, err := Load(path, newFlags(t))

	require.NoError(t, err)
	assert.Equal(t, BackendMarkdown, cfg.Orchestrator)
	assert.Equal(t, "from-env.json", cfg.File)
	assert.Equal(t, "README.md", cfg.Output)
	assert.Equal(t, 10, cfg.Timeout)
}

func TestLoad_UnknownYAMLKey(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "indiana.yaml")
	require.NoError(t, os.WriteFile(path, []byte("orchestrater: github\n"), 0644))

	_, err := Load(path, nil)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestLoad_InvalidTimeout(t *testing.T) {
	clearEnv(t)
	_, err := Load("", newFlags(t, "--timeout", "0"))
	assert.ErrorContains(t, err, "--timeout")

	t.Setenv("INDIANA_TIMEOUT", "soon")
	_, err = Load("", nil)
	assert.ErrorContains(t, err, "INDIANA_TIMEOUT")
}

func TestRegisterFlags_TimeoutIsInt(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)

	assert.Error(t, fs.Parse([]string{"--timeout", "soon"}))

	require.NoError(t, fs.Parse([]string{"--timeout", "12"}))
	n, err := fs.GetInt("timeout")
	require.NoError(t, err)
	assert.Equal(t, 12, n)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.Token = "t"
		cfg.Orchestrator = BackendAzureDevOps
		cfg.Organization = "org"
		cfg.Project = "proj"
		cfg.File = "items.json"
		return cfg
	}

	cfg := valid()
	assert.NoError(t, cfg.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"no orchestrator", func(c *Config) { c.Orchestrator = "" }, "no orchestrator provided"},
		{"unknown orchestrator", func(c *Config) { c.Orchestrator = "jira" }, `unknown orchestrator "jira"`},
		{"no token", func(c *Config) { c.Token = "" }, "no token provided"},
		{"no organization", func(c *Config) { c.Organization = "" }, "no organization provided"},
		{"no project", func(c *Config) { c.Project = "" }, "no project provided"},
		{"markdown without output", func(c *Config) { c.Orchestrator = BackendMarkdown }, "no output file provided"},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "timeout must be positive"},
		{"zero rate limit wait", func(c *Config) { c.RateLimitWait = 0 }, "rate_limit_max_wait_seconds must be at least 1"},
		{"negative rate limit wait", func(c *Config) { c.RateLimitWait = -5 }, "rate_limit_max_wait_seconds must be at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestValidateInput(t *testing.T) {
	cfg := Default()
	assert.EqualError(t, cfg.ValidateInput(), "no file provided")
	cfg.File = "items.json"
	assert.NoError(t, cfg.ValidateInput())
}

func TestValidate_MarkdownNeedsNoToken(t *testing.T) {
	cfg := Default()
	cfg.Orchestrator = BackendMarkdown
	cfg.File = "items.json"
	cfg.Output = "README.md"
	assert.NoError(t, cfg.Validate())
}
