package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GITHUB_BRANCH", "")
	t.Setenv("POLL_INTERVAL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "main", cfg.GitHubBranch)
	assert.Equal(t, 10*time.Second, cfg.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	assert.False(t, cfg.GitHubConfigured())
}

func TestLoadGitHubConfigured(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	t.Setenv("GITHUB_OWNER", "studio")
	t.Setenv("GITHUB_REPO", "site")
	t.Setenv("GITHUB_BRANCH", "content")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.GitHubConfigured())
	assert.Equal(t, "content", cfg.GitHubBranch)
}

func TestGitHubConfiguredNeedsAllThree(t *testing.T) {
	cfg := &Config{GitHubToken: "t", GitHubOwner: "o"}
	assert.False(t, cfg.GitHubConfigured())

	cfg.GitHubRepo = "r"
	assert.True(t, cfg.GitHubConfigured())
}

func TestInvalidDurationFallsBackToDefault(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.PollInterval)
}

func TestValidateRejectsNonPositiveInterval(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "0s")

	_, err := Load()
	assert.Error(t, err)
}
