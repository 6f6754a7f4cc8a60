package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/MrEthical07/apolloAuth/internal/cliconfig"
	"github.com/MrEthical07/apolloAuth/internal/output"
	"github.com/spf13/cobra"
)

// cli carries the state shared by every subcommand of one invocation.
type cli struct {
	cfgFile string
	verbose bool
	quiet   bool
	noColor bool

	cfg     *cliconfig.Config
	logger  *slog.Logger
	printer *output.Printer
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "apollo",
		Short: "Apollo account session CLI",
		Long: `apollo signs in to the Apollo credential API and keeps the session token
between invocations.

Example usage:
  apollo signup --name Ada --email ada@example.com
  apollo login --email ada@example.com
  apollo whoami
  apollo status --check-api
  apollo logout`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default is .apollo.yaml)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().BoolVarP(&c.quiet, "quiet", "q", false, "suppress non-error output")
	root.PersistentFlags().BoolVar(&c.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newLoginCmd(c),
		newSignupCmd(c),
		newLogoutCmd(c),
		newWhoamiCmd(c),
		newStatusCmd(c),
	)
	return root
}

func (c *cli) init(cmd *cobra.Command) error {
	cfg, err := cliconfig.Load(c.cfgFile)
	if err != nil {
		return &output.CLIError{
			Summary:    "Invalid configuration",
			Detail:     err.Error(),
			Suggestion: "Check .apollo.yaml and APOLLO_* environment variables",
			ExitCode:   output.ExitConfigError,
		}
	}
	c.cfg = cfg

	level := slog.LevelWarn
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		level = slog.LevelWarn
	}
	if c.verbose {
		level = slog.LevelDebug
	}
	c.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	useColors := !c.noColor && output.ResolveColors(cfg.Output.Colors)
	c.printer = output.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), useColors, c.quiet)

	c.logger.Debug("configuration loaded",
		"api", cfg.API.BaseURL,
		"slot_backend", cfg.Slot.Backend,
		"cache_backend", cfg.Cache.Backend,
	)
	return nil
}

// run executes one invocation and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	c := &cli{}
	root := newRootCmd(c)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return output.ExitSuccess
	}

	printer := c.printer
	if printer == nil {
		printer = output.NewPrinter(stdout, stderr, false, false)
	}
	var cliErr *output.CLIError
	if errors.As(err, &cliErr) {
		printer.FormatError(cliErr)
		return cliErr.ExitCode
	}
	printer.Error("%s", err.Error())
	if c.cfg == nil {
		fmt.Fprintln(stderr, "Run 'apollo --help' for usage.")
		return output.ExitUsageError
	}
	return output.ExitGeneral
}
