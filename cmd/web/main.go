package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	dbconfig "github.com/databricks/databricks-sdk-go/config"
	"github.com/de-tools/lakespend/pkg/agent"
	"github.com/de-tools/lakespend/pkg/bootstrap"
	"github.com/de-tools/lakespend/pkg/server"
	"github.com/de-tools/lakespend/pkg/services/config"
	"github.com/de-tools/lakespend/pkg/services/dashboard"
	"github.com/de-tools/lakespend/pkg/store/cache"
	"github.com/de-tools/lakespend/pkg/store/databrickssql"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	handlers "github.com/de-tools/lakespend/pkg/handlers/dashboard"
	sqldashboard "github.com/de-tools/lakespend/pkg/store/databrickssql/dashboard"
)

const cachePrefix = "lakespend:dashboard:"

var cfgPath string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the lakespend dashboard",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to the lakespend YAML config")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := config.LoadEnv(); err != nil {
		return err
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return err
	}

	logger := zerolog.New(os.Stdout).Level(cfg.Level()).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	var wsCfg *dbconfig.Config
	if cfg.Dashboard.Source == dashboard.SourceLive || cfg.Dashboard.AgentURL == "" {
		registry, err := config.NewRegistry(cfg.Databricks.ConfigFile)
		if err != nil {
			return fmt.Errorf("failed to create config registry: %w", err)
		}
		wsCfg, err = registry.GetConfig(ctx, cfg.Databricks.Profile)
		if err != nil {
			return fmt.Errorf("failed to load workspace profile: %w", err)
		}
	}

	source, closeSource, err := newSource(ctx, cfg, wsCfg)
	if err != nil {
		return err
	}
	defer closeSource()

	chat := newChatClient(cfg.Dashboard, wsCfg)
	handler := handlers.NewHandler(dashboard.NewService(source), chat, cfg.Dashboard.Source)

	logger.Info().
		Str("source", cfg.Dashboard.Source).
		Int("pages", len(dashboard.Pages())).
		Msg("dashboard configured")

	webAPI := server.NewWebAPI(logger, server.Config{Addr: cfg.Dashboard.Addr}, func(r chi.Router) {
		r.Get("/", handler.Overview)
		r.Get("/pages/{page}", handler.Page)
		r.Get("/chat", handler.Chat)
		r.Post("/chat", handler.SendChat)
	})
	return webAPI.Start()
}

func newSource(ctx context.Context, cfg *config.AppConfig, wsCfg *dbconfig.Config) (dashboard.Source, func(), error) {
	logger := zerolog.Ctx(ctx)

	if cfg.Dashboard.Source != dashboard.SourceLive {
		source, err := dashboard.NewExampleSource()
		if err != nil {
			return nil, nil, err
		}
		return source, func() {}, nil
	}

	token, err := bootstrap.BearerToken(wsCfg)
	if err != nil {
		return nil, nil, err
	}
	db, err := databrickssql.Open(databrickssql.Settings{
		Host:        wsCfg.Host,
		Token:       token,
		WarehouseID: cfg.Databricks.WarehouseID,
	})
	if err != nil {
		return nil, nil, err
	}

	closers := []func() error{db.Close}
	datasetCache := cache.NewMemoryCache()
	if cfg.Dashboard.RedisURL != "" {
		client, err := cache.NewRedisClient(cfg.Dashboard.RedisURL)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		closers = append(closers, client.Close)
		datasetCache = cache.NewRedisCache(client, cachePrefix)
		logger.Info().Msg("caching datasets in redis")
	}

	source := dashboard.NewLiveSource(sqldashboard.NewStore(db), datasetCache, dashboard.LiveSettings{
		Catalog:  cfg.Dashboard.Catalog,
		Schema:   cfg.Dashboard.Schema,
		MaxRows:  cfg.Dashboard.MaxRows,
		CacheTTL: cfg.Dashboard.CacheDuration(),
	})
	return source, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Error().Err(err).Msg("failed to release dashboard resources")
			}
		}
	}, nil
}

// newChatClient targets AgentURL directly, or the agent serving endpoint on the
// workspace with Databricks credentials.
func newChatClient(cfg config.DashboardConfig, wsCfg *dbconfig.Config) dashboard.ChatClient {
	if cfg.AgentURL != "" {
		return dashboard.NewChatClient(cfg.AgentURL, http.DefaultClient)
	}
	url := strings.TrimSuffix(wsCfg.CanonicalHostName(), "/") +
		"/serving-endpoints/" + cfg.AgentEndpoint + "/invocations"
	return dashboard.NewChatClient(url, agent.NewHTTPClient(wsCfg))
}
