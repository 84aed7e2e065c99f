// Package bootstrap builds the clients and managers shared by the binaries from the
// application config.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"

	"github.com/databricks/databricks-sdk-go"
	dbconfig "github.com/databricks/databricks-sdk-go/config"
	"github.com/de-tools/lakespend/pkg/services/budget"
	"github.com/de-tools/lakespend/pkg/services/config"
	"github.com/de-tools/lakespend/pkg/services/tags"
	"github.com/de-tools/lakespend/pkg/store/client"
	"github.com/de-tools/lakespend/pkg/store/databrickssql"
	"github.com/de-tools/lakespend/pkg/store/databrickssql/properties"
	"github.com/de-tools/lakespend/pkg/store/databrickssql/usage"
	"github.com/rs/zerolog"
)

type Components struct {
	Config          *config.AppConfig
	WorkspaceConfig *dbconfig.Config
	Workspace       *databricks.WorkspaceClient
	// DB is nil when no SQL warehouse is configured.
	DB         *sql.DB
	Tags       tags.Manager
	Budget     budget.Manager
	Connection client.ConnectionChecker
}

// New resolves the workspace profile and, when configured, the account profile and
// the SQL warehouse, then wires the managers on top of them.
func New(ctx context.Context, cfg *config.AppConfig) (*Components, error) {
	logger := zerolog.Ctx(ctx)

	registry, err := config.NewRegistry(cfg.Databricks.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create config registry: %w", err)
	}

	wsCfg, err := registry.GetConfig(ctx, cfg.Databricks.Profile)
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace profile: %w", err)
	}
	ws, err := client.NewWorkspaceClient(wsCfg)
	if err != nil {
		return nil, err
	}

	c := &Components{
		Config:          cfg,
		WorkspaceConfig: wsCfg,
		Workspace:       ws,
	}

	var (
		tables client.TablePropertiesWriter
		spend  usage.Store
	)
	if cfg.Databricks.WarehouseID != "" {
		db, err := openWarehouse(wsCfg, cfg.Databricks.WarehouseID)
		if err != nil {
			return nil, err
		}
		c.DB = db
		tables = properties.NewStore(db)
		spend = usage.NewStore(db)
		logger.Info().Str("warehouse_id", cfg.Databricks.WarehouseID).Msg("sql warehouse configured")
	} else {
		logger.Warn().Msg("no sql warehouse configured, table tag writes and policy spend are disabled")
	}

	var (
		policies client.PolicyStore
		budgets  client.BudgetStore
	)
	if cfg.Databricks.AccountProfile != "" {
		accCfg, err := registry.GetConfig(ctx, cfg.Databricks.AccountProfile)
		if err != nil {
			return nil, fmt.Errorf("failed to load account profile: %w", err)
		}
		acc, err := client.NewAccountClient(accCfg)
		if err != nil {
			return nil, err
		}
		policies = client.NewAccountPolicyStore(acc)
		budgets = client.NewAccountBudgetStore(acc)
		logger.Info().Str("profile", cfg.Databricks.AccountProfile).Msg("account profile configured")
	} else {
		logger.Warn().Msg("no account profile configured, budget policies and budgets are disabled")
	}

	c.Tags = tags.NewManager(client.NewWorkspaceResources(ws, tables))
	c.Budget = budget.NewManager(c.Tags, policies, budgets, spend)
	c.Connection = client.NewWorkspaceConnectionChecker(ws, policies != nil)
	return c, nil
}

func (c *Components) Close() error {
	if c.DB == nil {
		return nil
	}
	if err := c.DB.Close(); err != nil {
		return fmt.Errorf("failed to close sql connection: %w", err)
	}
	return nil
}

func openWarehouse(cfg *dbconfig.Config, warehouseID string) (*sql.DB, error) {
	token, err := BearerToken(cfg)
	if err != nil {
		return nil, err
	}
	return databrickssql.Open(databrickssql.Settings{
		Host:        cfg.Host,
		Token:       token,
		WarehouseID: warehouseID,
	})
}

// BearerToken returns the personal access token of cfg, or the token its
// authenticator puts on a request for OAuth profiles.
func BearerToken(cfg *dbconfig.Config) (string, error) {
	if cfg.Token != "" {
		return cfg.Token, nil
	}
	req, err := http.NewRequest(http.MethodGet, cfg.CanonicalHostName(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build auth check: %w", err)
	}
	if err := cfg.Authenticate(req); err != nil {
		return "", fmt.Errorf("failed to authenticate: %w", err)
	}
	token, ok := strings.CutPrefix(req.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return "", fmt.Errorf("profile does not yield a bearer token")
	}
	return token, nil
}
