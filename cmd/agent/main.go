package main

import (
	"fmt"
	"os"

	"github.com/de-tools/lakespend/pkg/agent"
	"github.com/de-tools/lakespend/pkg/server"
	"github.com/de-tools/lakespend/pkg/services/config"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	agenthandler "github.com/de-tools/lakespend/pkg/handlers/agent"
)

var (
	version = "dev"
	cfgPath string
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "agent",
		Short: "Serve the lakespend governance agent",
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

	registry, err := config.NewRegistry(cfg.Databricks.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to create config registry: %w", err)
	}
	wsCfg, err := registry.GetConfig(ctx, cfg.Databricks.Profile)
	if err != nil {
		return fmt.Errorf("failed to load workspace profile: %w", err)
	}

	model, err := agent.NewModel(wsCfg, cfg.Agent.LLMEndpoint)
	if err != nil {
		return err
	}
	source := agent.NewMCPSource(cfg.Agent.MCPServerURL, agent.NewHTTPClient(wsCfg), version)
	loop := agent.NewLoop(model, source, cfg.Agent.MaxTurns)

	logger.Info().
		Str("llm_endpoint", cfg.Agent.LLMEndpoint).
		Str("mcp_server_url", cfg.Agent.MCPServerURL).
		Msg("agent configured")

	handler := agenthandler.NewHandler(loop)
	webAPI := server.NewWebAPI(logger, server.Config{Addr: cfg.Agent.Addr}, func(r chi.Router) {
		r.Route("/api/v1", func(r chi.Router) {
			r.Post("/responses", handler.CreateResponse)
		})
		// Serving endpoints expose the same contract at /invocations.
		r.Post("/invocations", handler.CreateResponse)
	})
	return webAPI.Start()
}
