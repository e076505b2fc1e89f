package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_CHAT_ID", "42")
	t.Setenv("RELAY_MODE", "")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ModePaper, cfg.Mode)
	assert.Equal(t, "127.0.0.1", cfg.Gateway.Host)
	assert.Equal(t, 7497, cfg.Gateway.Port)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, cfg.Gateway.ClientIDs)
	assert.Equal(t, 3, cfg.Gateway.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Gateway.AttemptTimeout)
	assert.Equal(t, time.Second, cfg.Gateway.Backoff)
	assert.Equal(t, "SMART", cfg.Orders.Exchange)
	assert.Equal(t, "USD", cfg.Orders.Currency)
	assert.Equal(t, SellModeBracket, cfg.Orders.SellMode)
	assert.Equal(t, "42", cfg.Chat.AllowedChatID)
	assert.Equal(t, "TELEGRAM_TOKEN", cfg.Chat.TokenEnv)
	assert.Empty(t, cfg.HTTP.Addr)
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Setenv("TELEGRAM_CHAT_ID", "")
	t.Setenv("RELAY_MODE", "")

	path := writeConfig(t, `
mode: kite
gateway:
  client_ids: [7, 8]
  max_retries: 2
  attempt_timeout: 2s
orders:
  sell_mode: market
  min_tick: 0.05
chat:
  allowed_chat_id: "1001"
http:
  addr: 127.0.0.1:8090
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ModeKite, cfg.Mode)
	assert.Equal(t, []int{7, 8}, cfg.Gateway.ClientIDs)
	assert.Equal(t, 2, cfg.Gateway.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Gateway.AttemptTimeout)
	assert.Equal(t, "NSE", cfg.Orders.Exchange)
	assert.Equal(t, "INR", cfg.Orders.Currency)
	assert.Equal(t, "CNC", cfg.Gateway.Kite.Product)
	assert.Equal(t, SellModeMarket, cfg.Orders.SellMode)
	assert.InDelta(t, 0.05, cfg.Orders.MinTick, 1e-9)
	assert.Equal(t, "1001", cfg.Chat.AllowedChatID)
	assert.Equal(t, "127.0.0.1:8090", cfg.HTTP.Addr)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_CHAT_ID", "555")
	t.Setenv("RELAY_MODE", "kite")

	path := writeConfig(t, "mode: PAPER\nchat:\n  allowed_chat_id: \"1\"\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ModeKite, cfg.Mode)
	assert.Equal(t, "NSE", cfg.Orders.Exchange)
	assert.Equal(t, "555", cfg.Chat.AllowedChatID)
}

func TestLoadConfigParseError(t *testing.T) {
	path := writeConfig(t, "gateway: [unclosed")

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		c.Chat.AllowedChatID = "1"
		c.ApplyDefaults()
		return c
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad mode", func(c *Config) { c.Mode = "LIVE" }, "invalid mode"},
		{"bad port", func(c *Config) { c.Gateway.Port = 70000 }, "gateway.port"},
		{"no client ids", func(c *Config) { c.Gateway.ClientIDs = nil }, "client_ids cannot be empty"},
		{"duplicate client ids", func(c *Config) { c.Gateway.ClientIDs = []int{1, 2, 1} }, "duplicate id 1"},
		{"negative retries", func(c *Config) { c.Gateway.MaxRetries = -1 }, "max_retries"},
		{"negative tick", func(c *Config) { c.Orders.MinTick = -0.01 }, "min_tick"},
		{"bad sell mode", func(c *Config) { c.Orders.SellMode = "LIMIT" }, "sell_mode"},
		{"no chat", func(c *Config) { c.Chat.AllowedChatID = "" }, "allowed_chat_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
