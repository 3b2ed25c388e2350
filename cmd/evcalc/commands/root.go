// Package commands implements the evcalc command line interface.
package commands

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/evsubsidy/internal/app"
	"github.com/JonMunkholm/evsubsidy/internal/config"
	"github.com/JonMunkholm/evsubsidy/internal/core"
)

// Factory builds the App a command runs against.
type Factory func(ctx context.Context, cfg *config.Config, opts ...app.Option) (*app.App, error)

// CLI represents the command line interface for evcalc.
type CLI struct {
	cfg     *config.Config
	factory Factory
	rootCmd *cobra.Command

	once   sync.Once
	app    *app.App
	appErr error
}

// New creates a new CLI for cfg. A nil factory uses app.New.
func New(cfg *config.Config, factory Factory) *CLI {
	if factory == nil {
		factory = app.New
	}

	rootCmd := &cobra.Command{
		Use:           "evcalc",
		Short:         "Look up and calculate Korean EV purchase subsidies",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	rootCmd.PersistentFlags().Bool("json", false, "Print results as JSON")
	rootCmd.PersistentFlags().Bool("no-cache", false, "Skip the dataset cache")

	c := &CLI{
		cfg:     cfg,
		factory: factory,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newCalculateCmd())
	rootCmd.AddCommand(c.newResolveCmd())
	rootCmd.AddCommand(c.newRegionsCmd())
	rootCmd.AddCommand(c.newVehiclesCmd())
	rootCmd.AddCommand(c.newManufacturersCmd())
	rootCmd.AddCommand(c.newStatusCmd())
	rootCmd.AddCommand(c.newCacheCmd())
	rootCmd.AddCommand(c.newBuildCmd())

	return c
}

// Execute runs the root command with the given context and releases the
// App afterwards.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	err := c.rootCmd.Execute()
	if c.app != nil {
		if cerr := c.app.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput directs command output and errors to the given writers. Used for testing.
func (c *CLI) SetOutput(out, errOut io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(errOut)
}

// service builds the App on first use.
func (c *CLI) service(cmd *cobra.Command) (*core.Service, error) {
	c.once.Do(func() {
		var opts []app.Option
		if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
			opts = append(opts, app.WithoutCache())
		}
		c.app, c.appErr = c.factory(cmd.Context(), c.cfg, opts...)
	})
	if c.appErr != nil {
		return nil, fmt.Errorf("initialise: %w", c.appErr)
	}
	return c.app.Service, nil
}
