package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	// When
	cfg, err := LoadConfig("")

	// Then
	require.NoError(t, err)
	assert.Equal(t, "databrickslakespend", cfg.Dashboard.Catalog)
	assert.Equal(t, "main", cfg.Dashboard.Schema)
	assert.Equal(t, 10000, cfg.Dashboard.MaxRows)
	assert.Equal(t, 5*time.Minute, cfg.Dashboard.CacheDuration())
	assert.Equal(t, "tag-agent", cfg.Dashboard.AgentEndpoint)
	assert.Equal(t, "databricks-claude-sonnet-4", cfg.Agent.LLMEndpoint)
	assert.Equal(t, 10, cfg.Agent.MaxTurns)
	assert.Equal(t, "/mcp", cfg.MCP.Path)
	assert.NotEmpty(t, cfg.Databricks.ConfigFile)
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
}

func TestLoadConfig_ValidYAML_PopulatesAllFields(t *testing.T) {
	// Given
	path := filepath.Join(t.TempDir(), "lakespend.yaml")
	content := `log_level: debug
databricks:
  profile: prod
  account_profile: acct
  warehouse_id: wh-1
dashboard:
  source: live
  max_rows: 50
  cache_ttl: 60
  redis_url: redis://localhost:6379/0
agent:
  max_turns: 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	// When
	cfg, err := LoadConfig(path)

	// Then
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Databricks.Profile)
	assert.Equal(t, "acct", cfg.Databricks.AccountProfile)
	assert.Equal(t, "wh-1", cfg.Databricks.WarehouseID)
	assert.Equal(t, "live", cfg.Dashboard.Source)
	assert.Equal(t, 50, cfg.Dashboard.MaxRows)
	assert.Equal(t, time.Minute, cfg.Dashboard.CacheDuration())
	assert.Equal(t, "redis://localhost:6379/0", cfg.Dashboard.RedisURL)
	assert.Equal(t, 4, cfg.Agent.MaxTurns)
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())
	assert.Equal(t, "main", cfg.Dashboard.Schema)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("LAKESPEND_DASHBOARD_CATALOG", "finops")
	t.Setenv("SQL_WAREHOUSE", "legacy-wh")
	t.Setenv("DATABRICKS_MCP_SERVER_URL", "https://mcp.example.com/mcp")
	t.Setenv("AGENT_ENDPOINT", "budget-agent")

	cfg, err := LoadConfig("")

	require.NoError(t, err)
	assert.Equal(t, "finops", cfg.Dashboard.Catalog)
	assert.Equal(t, "legacy-wh", cfg.Databricks.WarehouseID)
	assert.Equal(t, "https://mcp.example.com/mcp", cfg.Agent.MCPServerURL)
	assert.Equal(t, "budget-agent", cfg.Dashboard.AgentEndpoint)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "dashboard: [unclosed"},
		{"unknown source", "dashboard:\n  source: csv\n"},
		{"zero rows", "dashboard:\n  max_rows: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := LoadConfig(path)

			assert.Error(t, err)
		})
	}
}

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LAKESPEND_TEST_VALUE=from-dotenv\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("LAKESPEND_TEST_VALUE") })

	require.NoError(t, LoadEnv(path, filepath.Join(t.TempDir(), "missing.env")))

	assert.Equal(t, "from-dotenv", os.Getenv("LAKESPEND_TEST_VALUE"))
}
