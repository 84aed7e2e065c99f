package main

import (
	"context"
	"fmt"
	"os"

	"github.com/de-tools/lakespend/pkg/bootstrap"
	"github.com/de-tools/lakespend/pkg/runtime/terminal"
	"github.com/de-tools/lakespend/pkg/runtime/terminal/commands"
	"github.com/de-tools/lakespend/pkg/services/config"
)

func main() {
	var components *bootstrap.Components

	cli := terminal.NewCLI(terminal.Options{
		Connect: func(ctx context.Context, configPath string) (*commands.Services, error) {
			if err := config.LoadEnv(); err != nil {
				return nil, err
			}
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return nil, err
			}
			components, err = bootstrap.New(ctx, cfg)
			if err != nil {
				return nil, fmt.Errorf("failed to initialize databricks clients: %w", err)
			}
			return &commands.Services{Tags: components.Tags, Budget: components.Budget}, nil
		},
		Output: os.Stdout,
	})

	err := cli.ExecuteContext(context.Background())
	if components != nil {
		_ = components.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
