package terminal

import (
	"context"
	"io"
	"os"

	"github.com/de-tools/lakespend/pkg/runtime/terminal/commands"
	"github.com/de-tools/lakespend/pkg/runtime/terminal/export"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Connector builds the services from the application config at configPath. An
// empty path means defaults and environment only.
type Connector func(ctx context.Context, configPath string) (*commands.Services, error)

// CLI represents the command-line interface
type CLI struct {
	connect  Connector
	reporter *export.Reporter
	logger   zerolog.Logger
	rootCmd  *cobra.Command

	configPath string
	verbose    bool
	services   *commands.Services
}

// Options contain configuration for the CLI
type Options struct {
	Connect Connector
	Output  io.Writer
	// Logs go to stderr by default so stdout stays machine readable.
	Logs io.Writer
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Logs == nil {
		opts.Logs = os.Stderr
	}

	cli := &CLI{
		connect:  opts.Connect,
		reporter: export.NewReporter(opts.Output),
		logger:   zerolog.New(opts.Logs).With().Timestamp().Logger(),
	}

	cli.rootCmd = cli.newRootCmd()
	cli.rootCmd.SetOut(opts.Output)
	return cli
}

func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

func (cli *CLI) ExecuteContext(ctx context.Context) error {
	return cli.rootCmd.ExecuteContext(ctx)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "lakespend",
		Short:             "Databricks tag and budget governance",
		SilenceUsage:      true,
		PersistentPreRunE: cli.attachLogger,
	}

	cmd.PersistentFlags().StringVarP(&cli.configPath, "config", "c", "", "Path to the lakespend YAML config")
	cmd.PersistentFlags().BoolVarP(&cli.verbose, "verbose", "v", false, "Log at debug level")

	cmd.AddCommand(commands.NewTagsCmd(cli.provide, cli.reporter))
	cmd.AddCommand(commands.NewBudgetCmd(cli.provide, cli.reporter))

	return cmd
}

func (cli *CLI) attachLogger(cmd *cobra.Command, _ []string) error {
	level := zerolog.WarnLevel
	if cli.verbose {
		level = zerolog.DebugLevel
	}
	logger := cli.logger.Level(level)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logger.WithContext(ctx))
	return nil
}

func (cli *CLI) provide(cmd *cobra.Command) (*commands.Services, error) {
	if cli.services != nil {
		return cli.services, nil
	}
	services, err := cli.connect(cmd.Context(), cli.configPath)
	if err != nil {
		return nil, err
	}
	cli.services = services
	return services, nil
}
