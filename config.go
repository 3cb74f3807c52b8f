package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Repo        string `yaml:"repo"`
	GitHubToken string `yaml:"github_token"`

	AnalyzerProvider string `yaml:"analyzer_provider"` // "claude-cli", "anthropic", or "openai"
	AnalyzerModel    string `yaml:"analyzer_model"`
	ClaudeBin        string `yaml:"claude_bin"`
	AnthropicAPIKey  string `yaml:"anthropic_api_key"`
	OpenAIAPIKey     string `yaml:"openai_api_key"`
	AnalyzeTimeout   int    `yaml:"analyze_timeout_seconds"`

	// Local checkout handed to the deep-triage CLI via --add-dir.
	SourceDir string `yaml:"source_dir"`

	HistoryDBPath string `yaml:"history_db_path"`

	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`

	UploadEndpoint  string `yaml:"upload_endpoint"`
	UploadAccessKey string `yaml:"upload_access_key"`
	UploadSecretKey string `yaml:"upload_secret_key"`
	UploadBucket    string `yaml:"upload_bucket"`
	UploadRegion    string `yaml:"upload_region"`
	UploadUseSSL    bool   `yaml:"upload_use_ssl"`
}

// LoadConfig reads the optional YAML config file, applies env-var overrides,
// then defaults, then validates. Invalid configuration is fatal before any
// processing begins; core logic only ever sees the returned Config.
func LoadConfig(path string) Config {
	var cfg Config

	if path == "" {
		path = "config.yaml"
		if envPath := os.Getenv("ISSUETRIAGE_CONFIG"); envPath != "" {
			path = envPath
		}
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", path, err)
		}
		log.Printf("Loaded config from %s", path)
	}

	// Env vars override YAML values
	envOverride(&cfg.Repo, "ISSUETRIAGE_REPO")
	envOverride(&cfg.GitHubToken, "GH_TOKEN")
	envOverride(&cfg.GitHubToken, "GITHUB_TOKEN") // GITHUB_TOKEN wins over GH_TOKEN
	envOverride(&cfg.AnalyzerProvider, "ANALYZER_PROVIDER")
	envOverride(&cfg.AnalyzerModel, "ANALYZER_MODEL")
	envOverride(&cfg.ClaudeBin, "CLAUDE_BIN")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverrideInt(&cfg.AnalyzeTimeout, "ANALYZE_TIMEOUT_SECONDS")
	envOverride(&cfg.SourceDir, "ISSUETRIAGE_SOURCE_DIR")
	envOverride(&cfg.HistoryDBPath, "HISTORY_DB_PATH")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverride(&cfg.UploadEndpoint, "UPLOAD_ENDPOINT")
	envOverride(&cfg.UploadAccessKey, "UPLOAD_ACCESS_KEY")
	envOverride(&cfg.UploadSecretKey, "UPLOAD_SECRET_KEY")
	envOverride(&cfg.UploadBucket, "UPLOAD_BUCKET")
	envOverride(&cfg.UploadRegion, "UPLOAD_REGION")

	// Defaults
	if cfg.Repo == "" {
		cfg.Repo = "pytorch/pytorch"
	}
	if cfg.AnalyzerProvider == "" {
		cfg.AnalyzerProvider = "claude-cli"
	}
	if cfg.ClaudeBin == "" {
		cfg.ClaudeBin = "claude"
	}
	if cfg.AnalyzeTimeout == 0 {
		cfg.AnalyzeTimeout = 120
	}
	if cfg.UploadBucket == "" {
		cfg.UploadBucket = "triage_reports"
	}

	// Validate
	if _, _, err := splitRepo(cfg.Repo); err != nil {
		log.Fatalf("invalid repo '%s': %v", cfg.Repo, err)
	}
	switch cfg.AnalyzerProvider {
	case "claude-cli":
		// The CLI carries its own credentials.
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			log.Fatalf("anthropic_api_key is required when analyzer_provider=anthropic")
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			log.Fatalf("openai_api_key is required when analyzer_provider=openai")
		}
	default:
		log.Fatalf("analyzer_provider must be 'claude-cli', 'anthropic' or 'openai', got '%s'", cfg.AnalyzerProvider)
	}
	if cfg.AnalyzeTimeout < 1 {
		log.Fatalf("invalid analyze_timeout_seconds '%d': must be >= 1", cfg.AnalyzeTimeout)
	}

	return cfg
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func splitRepo(repo string) (string, string, error) {
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("expected 'owner/name'")
	}
	return parts[0], parts[1], nil
}

func (c Config) UploadConfigured() bool {
	return c.UploadEndpoint != "" && c.UploadAccessKey != "" && c.UploadSecretKey != ""
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackChannelID != ""
}
