package gemini

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// Config holds the configuration for the Gemini provider.
type Config struct {
	// BaseURL overrides the API endpoint, mainly for tests and proxies.
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Model     string        `yaml:"model"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Model == "" {
		c.Model = "gemini-2.0-flash"
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 1000
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.APIKey == "" && c.APIKeyEnv != "" {
		c.APIKey = os.Getenv(c.APIKeyEnv)
	}
}

func (c *Config) validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("provider.gemini: base_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("provider.gemini: base_url scheme must be http or https, got %q", u.Scheme)
	}
	if c.APIKey == "" {
		return fmt.Errorf("provider.gemini: one of api_key or api_key_env is required")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("provider.gemini: max_tokens must not be negative")
	}
	return nil
}
