package config

import (
	"fmt"
	"os"
	"time"
)

// Provider family identifiers.
const (
	FamilyOpenAI    = "openai"
	FamilyAnthropic = "anthropic"
)

// ProviderConfig configures one provider family.
type ProviderConfig struct {
	Family            string        `mapstructure:"-"`
	APIKey            string        `mapstructure:"api_key"`
	APIKeyEnv         string        `mapstructure:"api_key_env"` // env var holding the key, if not set directly
	BaseURL           string        `mapstructure:"base_url"`
	BaseURLEnv        string        `mapstructure:"base_url_env"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

// ResolveEnvVars fills APIKey and BaseURL from the referenced environment
// variables. Direct values take precedence.
func (c *ProviderConfig) ResolveEnvVars() {
	if c.APIKeyEnv != "" && c.APIKey == "" {
		c.APIKey = os.Getenv(c.APIKeyEnv)
	}
	if c.BaseURLEnv != "" && c.BaseURL == "" {
		c.BaseURL = os.Getenv(c.BaseURLEnv)
	}
}

// Validate reports whether the family can be initialized. A family with no
// credentials is not an error for the process, only for that family.
func (c *ProviderConfig) Validate() error {
	switch c.Family {
	case FamilyOpenAI, FamilyAnthropic:
	case "":
		return fmt.Errorf("provider config: family is required")
	default:
		return fmt.Errorf("provider %q: unknown family", c.Family)
	}
	if c.APIKey == "" {
		if c.APIKeyEnv != "" {
			return fmt.Errorf("provider %q: api_key is required (set directly or via %s)", c.Family, c.APIKeyEnv)
		}
		return fmt.Errorf("provider %q: api_key is required", c.Family)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("provider %q: requests_per_second must not be negative", c.Family)
	}
	return nil
}

// Clone returns a copy of the configuration.
func (c *ProviderConfig) Clone() *ProviderConfig {
	cp := *c
	return &cp
}
