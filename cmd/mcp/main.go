package main

import (
	"fmt"
	"os"

	"github.com/de-tools/lakespend/pkg/bootstrap"
	"github.com/de-tools/lakespend/pkg/handlers/resources"
	"github.com/de-tools/lakespend/pkg/models/api"
	"github.com/de-tools/lakespend/pkg/server"
	"github.com/de-tools/lakespend/pkg/services/config"
	"github.com/de-tools/lakespend/pkg/tools"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	cfgPath string
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "mcp",
		Short: "Serve the lakespend tag and budget tools over MCP",
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

	components, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize databricks clients: %w", err)
	}
	defer func() {
		if err := components.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to release resources")
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	dispatcher := tools.NewDispatcher(tools.Handlers{
		Tags:       components.Tags,
		Budget:     components.Budget,
		Connection: components.Connection,
		Info:       api.ServerInfo{Name: tools.ServerName, Version: version},
	})
	mcpServer := tools.NewServer(version)
	tools.Register(mcpServer, dispatcher, tools.Options{
		Logger:  logger,
		Metrics: tools.NewMetrics(reg),
	})

	logger.Info().
		Str("path", cfg.MCP.Path).
		Int("tools", len(dispatcher.Descriptors())).
		Msg("registered tools")

	webAPI := server.NewWebAPI(logger, server.Config{Addr: cfg.MCP.Addr}, func(r chi.Router) {
		r.Handle("/metrics", server.MetricsHandler(reg))
		r.Handle(cfg.MCP.Path, tools.NewHTTPHandler(mcpServer))
		r.Route("/api/v1", resources.NewHandler(components.Tags, components.Budget).Routes)
	})
	return webAPI.Start()
}
