package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	Learning LearningConfig `yaml:"learning"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	// dev/prod, selects the zap encoder
	Mode string `yaml:"mode"`
}

type DatabaseConfig struct {
	// path to the SQLite database file
	Path string `yaml:"path"`
}

// LLMConfig is the default generation backend, used when no
// configuration row has been activated through the API.
type LLMConfig struct {
	Provider    string `yaml:"provider"` // openai/anthropic/ollama/custom
	APIKey      string `yaml:"api_key"`
	APIURL      string `yaml:"api_url"`
	ModelName   string `yaml:"model_name"`
	Temperature int    `yaml:"temperature"` // 0-100
	MaxTokens   int    `yaml:"max_tokens"`
}

type LearningConfig struct {
	Enabled      bool   `yaml:"enabled"`
	ScheduleCron string `yaml:"schedule_cron"`
	DocsURL      string `yaml:"docs_url"`
	TemplatesURL string `yaml:"templates_url"`

	GitHubToken       string `yaml:"github_token"`
	GitHubAPIURL      string `yaml:"github_api_url"`
	GitHubSearchQuery string `yaml:"github_search_query"`
	GitHubMinStars    int    `yaml:"github_min_stars"`

	// courtesy delay between repositories, seconds
	CrawlDelaySeconds int `yaml:"crawl_delay_seconds"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Log.Mode == "" {
		c.Log.Mode = "dev"
	}
	if c.Database.Path == "" {
		c.Database.Path = "flowgen.db"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 70
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 4000
	}
	if c.Learning.ScheduleCron == "" {
		c.Learning.ScheduleCron = "0 0 * * 0" // Sunday midnight
	}
	if c.Learning.DocsURL == "" {
		c.Learning.DocsURL = "https://docs.n8n.io"
	}
	if c.Learning.TemplatesURL == "" {
		c.Learning.TemplatesURL = "https://n8n.io/workflows"
	}
	if c.Learning.GitHubAPIURL == "" {
		c.Learning.GitHubAPIURL = "https://api.github.com"
	}
	if c.Learning.GitHubSearchQuery == "" {
		c.Learning.GitHubSearchQuery = "n8n workflow"
	}
	if c.Learning.GitHubMinStars == 0 {
		c.Learning.GitHubMinStars = 10
	}
	if c.Learning.CrawlDelaySeconds == 0 {
		c.Learning.CrawlDelaySeconds = 1
	}
}
