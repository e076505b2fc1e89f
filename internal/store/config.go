package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ModePaper = "PAPER"
	ModeKite  = "KITE"

	SellModeBracket = "BRACKET"
	SellModeMarket  = "MARKET"
)

type Config struct {
	Mode    string `yaml:"mode"`
	Gateway struct {
		Host           string        `yaml:"host"`
		Port           int           `yaml:"port"`
		ClientIDs      []int         `yaml:"client_ids"`
		MaxRetries     int           `yaml:"max_retries"`
		AttemptTimeout time.Duration `yaml:"attempt_timeout"`
		Backoff        time.Duration `yaml:"backoff"`
		Paper          struct {
			Symbols        []string `yaml:"symbols"`
			StaleClientIDs []int    `yaml:"stale_client_ids"`
		} `yaml:"paper"`
		Kite struct {
			APIKeyEnv      string `yaml:"api_key_env"`
			AccessTokenEnv string `yaml:"access_token_env"`
			Product        string `yaml:"product"`
		} `yaml:"kite"`
	} `yaml:"gateway"`
	Orders struct {
		Exchange    string        `yaml:"exchange"`
		Currency    string        `yaml:"currency"`
		CallTimeout time.Duration `yaml:"call_timeout"`
		MinTick     float64       `yaml:"min_tick"`
		SellMode    string        `yaml:"sell_mode"`
	} `yaml:"orders"`
	Chat struct {
		AllowedChatID string        `yaml:"allowed_chat_id"`
		TokenEnv      string        `yaml:"token_env"`
		APIBase       string        `yaml:"api_base"`
		PollTimeout   time.Duration `yaml:"poll_timeout"`
	} `yaml:"chat"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Journal struct {
		Dir           string `yaml:"dir"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"journal"`
}

func (c *Config) Validate() error {
	if c.Mode != ModePaper && c.Mode != ModeKite {
		return fmt.Errorf("invalid mode '%s': must be 'PAPER' or 'KITE'", c.Mode)
	}
	if c.Gateway.Port <= 0 || c.Gateway.Port > 65535 {
		return fmt.Errorf("gateway.port must be between 1-65535, got %d", c.Gateway.Port)
	}
	if len(c.Gateway.ClientIDs) == 0 {
		return errors.New("gateway.client_ids cannot be empty")
	}
	seen := make(map[int]bool, len(c.Gateway.ClientIDs))
	for _, id := range c.Gateway.ClientIDs {
		if seen[id] {
			return fmt.Errorf("gateway.client_ids contains duplicate id %d", id)
		}
		seen[id] = true
	}
	if c.Gateway.MaxRetries <= 0 {
		return fmt.Errorf("gateway.max_retries must be positive, got %d", c.Gateway.MaxRetries)
	}
	if c.Orders.MinTick < 0 {
		return fmt.Errorf("orders.min_tick must not be negative, got %.4f", c.Orders.MinTick)
	}
	if c.Orders.SellMode != SellModeBracket && c.Orders.SellMode != SellModeMarket {
		return fmt.Errorf("orders.sell_mode must be 'BRACKET' or 'MARKET', got '%s'", c.Orders.SellMode)
	}
	if c.Chat.AllowedChatID == "" {
		return errors.New("chat.allowed_chat_id cannot be empty (set it or TELEGRAM_CHAT_ID)")
	}
	return nil
}

// ApplyDefaults fills every unset field with the paper-trading defaults.
func (c *Config) ApplyDefaults() {
	if c.Mode == "" {
		c.Mode = ModePaper
	}
	c.Mode = strings.ToUpper(c.Mode)
	if c.Gateway.Host == "" {
		c.Gateway.Host = "127.0.0.1"
	}
	if c.Gateway.Port == 0 {
		c.Gateway.Port = 7497
	}
	if len(c.Gateway.ClientIDs) == 0 {
		for id := 1; id <= 10; id++ {
			c.Gateway.ClientIDs = append(c.Gateway.ClientIDs, id)
		}
	}
	if c.Gateway.MaxRetries == 0 {
		c.Gateway.MaxRetries = 3
	}
	if c.Gateway.AttemptTimeout == 0 {
		c.Gateway.AttemptTimeout = 5 * time.Second
	}
	if c.Gateway.Backoff == 0 {
		c.Gateway.Backoff = time.Second
	}
	if c.Gateway.Kite.APIKeyEnv == "" {
		c.Gateway.Kite.APIKeyEnv = "KITE_API_KEY"
	}
	if c.Gateway.Kite.AccessTokenEnv == "" {
		c.Gateway.Kite.AccessTokenEnv = "KITE_ACCESS_TOKEN"
	}
	if c.Gateway.Kite.Product == "" {
		c.Gateway.Kite.Product = "CNC"
	}
	if c.Orders.Exchange == "" {
		if c.Mode == ModeKite {
			c.Orders.Exchange = "NSE"
		} else {
			c.Orders.Exchange = "SMART"
		}
	}
	if c.Orders.Currency == "" {
		if c.Mode == ModeKite {
			c.Orders.Currency = "INR"
		} else {
			c.Orders.Currency = "USD"
		}
	}
	if c.Orders.CallTimeout == 0 {
		c.Orders.CallTimeout = 10 * time.Second
	}
	if c.Orders.SellMode == "" {
		c.Orders.SellMode = SellModeBracket
	}
	c.Orders.SellMode = strings.ToUpper(c.Orders.SellMode)
	if c.Chat.TokenEnv == "" {
		c.Chat.TokenEnv = "TELEGRAM_TOKEN"
	}
	if c.Chat.APIBase == "" {
		c.Chat.APIBase = "https://api.telegram.org"
	}
	if c.Chat.PollTimeout == 0 {
		c.Chat.PollTimeout = 30 * time.Second
	}
}

// LoadConfig reads path, applies defaults and environment overrides, and
// validates the result. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	var c Config

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Chat.AllowedChatID = v
	}
	if v := os.Getenv("RELAY_MODE"); v != "" {
		c.Mode = v
	}

	c.ApplyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}
