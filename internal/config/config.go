package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the YAML configuration.
type Config struct {
	Version     int               `yaml:"version"`
	Global      GlobalConfig      `yaml:"global"`
	Marketplace MarketplaceConfig `yaml:"marketplace"`
	Discord     DiscordConfig     `yaml:"discord"`
}

type GlobalConfig struct {
	DBPath string `yaml:"db_path"`
}

type MarketplaceConfig struct {
	BaseURL             string `yaml:"base_url"`
	Contract            string `yaml:"contract"`
	APIKey              string `yaml:"api_key"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	PageLimit           int    `yaml:"page_limit"`
}

type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

const (
	DefaultBaseURL      = "https://api.opensea.io/api/v1"
	DefaultPollInterval = 10
	DefaultPageLimit    = 50
	DefaultDBPath       = "sweepwatch.db"
)

var envPattern = regexp.MustCompile(`\${([A-Za-z_][A-Za-z0-9_]*)}`)

// Load reads, interpolates env vars, parses YAML, and validates.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}

	if err := loadDotEnv(path); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	interpolated, err := interpolateEnv(string(raw))
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(interpolated), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadDotEnv(configPath string) error {
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return fmt.Errorf("load .env: %w", err)
		}
	}
	return nil
}

func interpolateEnv(input string) (string, error) {
	missing := []string{}
	out := envPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := envPattern.FindStringSubmatch(match)[1]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		missing = append(missing, name)
		return match
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("missing environment variables: %s", strings.Join(dedup(missing), ", "))
	}
	return out, nil
}

func (c *Config) applyDefaults() {
	if c.Global.DBPath == "" {
		c.Global.DBPath = DefaultDBPath
	}
	if c.Marketplace.BaseURL == "" {
		c.Marketplace.BaseURL = DefaultBaseURL
	}
	if c.Marketplace.PollIntervalSeconds == 0 {
		c.Marketplace.PollIntervalSeconds = DefaultPollInterval
	}
	if c.Marketplace.PageLimit == 0 {
		c.Marketplace.PageLimit = DefaultPageLimit
	}
	if c.Marketplace.APIKey == "" {
		c.Marketplace.APIKey = os.Getenv("OPENSEA_API_KEY")
	}
	// The marketplace matches case-insensitively but the query must be lowercase.
	c.Marketplace.Contract = strings.ToLower(c.Marketplace.Contract)
}

// Validate performs small, direct schema checks.
func (c *Config) Validate() error {
	if c.Version == 0 {
		return errors.New("version is required")
	}
	if err := c.Marketplace.Validate(); err != nil {
		return fmt.Errorf("marketplace: %w", err)
	}
	if err := c.Discord.Validate(); err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	return nil
}

func (m *MarketplaceConfig) Validate() error {
	if m.Contract == "" {
		return errors.New("contract is required")
	}
	if !common.IsHexAddress(m.Contract) {
		return fmt.Errorf("contract %q is not a valid address", m.Contract)
	}
	if m.PollIntervalSeconds < 1 {
		return errors.New("poll_interval_seconds must be at least 1")
	}
	if m.PageLimit < 1 || m.PageLimit > 300 {
		return errors.New("page_limit must be between 1 and 300")
	}
	return nil
}

func (d *DiscordConfig) Validate() error {
	if d.BotToken == "" {
		return errors.New("bot_token is required")
	}
	if d.ChannelID == "" {
		return errors.New("channel_id is required")
	}
	return nil
}

func dedup(values []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
