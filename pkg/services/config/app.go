package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const envPrefix = "LAKESPEND"

type AppConfig struct {
	LogLevel   string           `mapstructure:"log_level"`
	Databricks DatabricksConfig `mapstructure:"databricks"`
	MCP        MCPConfig        `mapstructure:"mcp"`
	Agent      AgentConfig      `mapstructure:"agent"`
	Dashboard  DashboardConfig  `mapstructure:"dashboard"`
}

type DatabricksConfig struct {
	// ConfigFile is the .databrickscfg path. Empty means $HOME/.databrickscfg.
	ConfigFile string `mapstructure:"config_file"`
	Profile    string `mapstructure:"profile"`
	// AccountProfile enables budget policies and budgets when set.
	AccountProfile string `mapstructure:"account_profile"`
	// WarehouseID enables table tag writes, policy spend and live dashboard data.
	WarehouseID string `mapstructure:"warehouse_id"`
}

type MCPConfig struct {
	Addr string `mapstructure:"addr"`
	Path string `mapstructure:"path"`
}

type AgentConfig struct {
	Addr         string `mapstructure:"addr"`
	MCPServerURL string `mapstructure:"mcp_server_url"`
	LLMEndpoint  string `mapstructure:"llm_endpoint"`
	MaxTurns     int    `mapstructure:"max_turns"`
}

type DashboardConfig struct {
	Addr string `mapstructure:"addr"`
	// Source is "example" or "live".
	Source   string `mapstructure:"source"`
	Catalog  string `mapstructure:"catalog"`
	Schema   string `mapstructure:"schema"`
	MaxRows  int    `mapstructure:"max_rows"`
	CacheTTL int    `mapstructure:"cache_ttl"`
	RedisURL string `mapstructure:"redis_url"`
	// AgentURL is a full responses URL. When empty the serving endpoint named
	// AgentEndpoint on the workspace host is used.
	AgentURL      string `mapstructure:"agent_url"`
	AgentEndpoint string `mapstructure:"agent_endpoint"`
}

func (d DashboardConfig) CacheDuration() time.Duration {
	return time.Duration(d.CacheTTL) * time.Second
}

func (c *AppConfig) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return level
}

var defaults = map[string]any{
	"log_level":                  "info",
	"databricks.config_file":     "",
	"databricks.profile":         "DEFAULT",
	"databricks.account_profile": "",
	"databricks.warehouse_id":    "",
	"mcp.addr":                   ":8000",
	"mcp.path":                   "/mcp",
	"agent.addr":                 ":8001",
	"agent.mcp_server_url":       "http://localhost:8000/mcp",
	"agent.llm_endpoint":         "databricks-claude-sonnet-4",
	"agent.max_turns":            10,
	"dashboard.addr":             ":8080",
	"dashboard.source":           "example",
	"dashboard.catalog":          "databrickslakespend",
	"dashboard.schema":           "main",
	"dashboard.max_rows":         10000,
	"dashboard.cache_ttl":        300,
	"dashboard.redis_url":        "",
	"dashboard.agent_url":        "",
	"dashboard.agent_endpoint":   "tag-agent",
}

// legacyEnv maps config keys to the environment variables older deployments set.
var legacyEnv = map[string]string{
	"databricks.warehouse_id":  "SQL_WAREHOUSE",
	"agent.mcp_server_url":     "DATABRICKS_MCP_SERVER_URL",
	"dashboard.agent_endpoint": "AGENT_ENDPOINT",
}

// LoadEnv loads .env files into the environment. Missing files are ignored.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// LoadConfig reads the YAML file at path, when given, over the defaults. Environment
// variables prefixed with LAKESPEND_ override both, e.g. LAKESPEND_DASHBOARD_MAX_ROWS.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		name := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, name, legacy); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", legacy, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Databricks.ConfigFile == "" {
		cfg.Databricks.ConfigFile = DefaultDatabricksConfigPath()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.Dashboard.Source {
	case "example", "live":
	default:
		return fmt.Errorf("dashboard.source must be example or live, got %q", c.Dashboard.Source)
	}
	if c.Dashboard.MaxRows <= 0 {
		return fmt.Errorf("dashboard.max_rows must be positive")
	}
	if c.Agent.MaxTurns <= 0 {
		return fmt.Errorf("agent.max_turns must be positive")
	}
	return nil
}
