package main

import (
	"os"
	"path/filepath"
	"testing"
)

// clearTriageEnv neutralizes ambient env vars so tests see only what they set.
func clearTriageEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ISSUETRIAGE_CONFIG", "ISSUETRIAGE_REPO", "GH_TOKEN", "GITHUB_TOKEN",
		"ANALYZER_PROVIDER", "ANALYZER_MODEL", "CLAUDE_BIN",
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "ANALYZE_TIMEOUT_SECONDS",
		"ISSUETRIAGE_SOURCE_DIR", "HISTORY_DB_PATH",
		"SLACK_BOT_TOKEN", "SLACK_CHANNEL_ID",
		"UPLOAD_ENDPOINT", "UPLOAD_ACCESS_KEY", "UPLOAD_SECRET_KEY",
		"UPLOAD_BUCKET", "UPLOAD_REGION",
	} {
		t.Setenv(key, "")
	}
}

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	clearTriageEnv(t)

	cfg := LoadConfig(filepath.Join(t.TempDir(), "nonexistent.yaml"))

	if cfg.Repo != "pytorch/pytorch" {
		t.Errorf("Repo = %q", cfg.Repo)
	}
	if cfg.AnalyzerProvider != "claude-cli" {
		t.Errorf("AnalyzerProvider = %q", cfg.AnalyzerProvider)
	}
	if cfg.ClaudeBin != "claude" {
		t.Errorf("ClaudeBin = %q", cfg.ClaudeBin)
	}
	if cfg.AnalyzeTimeout != 120 {
		t.Errorf("AnalyzeTimeout = %d", cfg.AnalyzeTimeout)
	}
	if cfg.UploadBucket != "triage_reports" {
		t.Errorf("UploadBucket = %q", cfg.UploadBucket)
	}
	if cfg.UploadConfigured() {
		t.Error("UploadConfigured should be false with no endpoint")
	}
	if cfg.SlackConfigured() {
		t.Error("SlackConfigured should be false with no token")
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	clearTriageEnv(t)

	path := writeTestConfig(t, `
repo: example/widgets
github_token: file-token
analyzer_provider: anthropic
anthropic_api_key: sk-test
analyze_timeout_seconds: 45
source_dir: /src/widgets
slack_bot_token: xoxb-test
slack_channel_id: C123
`)

	cfg := LoadConfig(path)

	if cfg.Repo != "example/widgets" {
		t.Errorf("Repo = %q", cfg.Repo)
	}
	if cfg.GitHubToken != "file-token" {
		t.Errorf("GitHubToken = %q", cfg.GitHubToken)
	}
	if cfg.AnalyzerProvider != "anthropic" {
		t.Errorf("AnalyzerProvider = %q", cfg.AnalyzerProvider)
	}
	if cfg.AnalyzeTimeout != 45 {
		t.Errorf("AnalyzeTimeout = %d", cfg.AnalyzeTimeout)
	}
	if cfg.SourceDir != "/src/widgets" {
		t.Errorf("SourceDir = %q", cfg.SourceDir)
	}
	if !cfg.SlackConfigured() {
		t.Error("SlackConfigured should be true")
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	clearTriageEnv(t)

	path := writeTestConfig(t, `
repo: example/widgets
github_token: file-token
`)
	t.Setenv("ISSUETRIAGE_REPO", "other/repo")
	t.Setenv("GH_TOKEN", "env-token")
	t.Setenv("ANALYZE_TIMEOUT_SECONDS", "300")

	cfg := LoadConfig(path)

	if cfg.Repo != "other/repo" {
		t.Errorf("Repo = %q", cfg.Repo)
	}
	if cfg.GitHubToken != "env-token" {
		t.Errorf("GitHubToken = %q", cfg.GitHubToken)
	}
	if cfg.AnalyzeTimeout != 300 {
		t.Errorf("AnalyzeTimeout = %d", cfg.AnalyzeTimeout)
	}
}

func TestLoadConfigGitHubTokenPrecedence(t *testing.T) {
	clearTriageEnv(t)
	t.Setenv("GH_TOKEN", "gh-token")
	t.Setenv("GITHUB_TOKEN", "github-token")

	cfg := LoadConfig(filepath.Join(t.TempDir(), "nonexistent.yaml"))

	if cfg.GitHubToken != "github-token" {
		t.Errorf("GitHubToken = %q, GITHUB_TOKEN should win", cfg.GitHubToken)
	}
}

func TestLoadConfigEnvConfigPath(t *testing.T) {
	clearTriageEnv(t)

	path := writeTestConfig(t, "repo: env/pointed\n")
	t.Setenv("ISSUETRIAGE_CONFIG", path)

	cfg := LoadConfig("")

	if cfg.Repo != "env/pointed" {
		t.Errorf("Repo = %q", cfg.Repo)
	}
}

func TestSplitRepo(t *testing.T) {
	owner, name, err := splitRepo("pytorch/pytorch")
	if err != nil {
		t.Fatal(err)
	}
	if owner != "pytorch" || name != "pytorch" {
		t.Errorf("got %q/%q", owner, name)
	}

	for _, bad := range []string{"", "pytorch", "a/b/c", "/b", "a/"} {
		if _, _, err := splitRepo(bad); err == nil {
			t.Errorf("splitRepo(%q) should fail", bad)
		}
	}
}
