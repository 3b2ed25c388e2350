// Command evcalc looks up and calculates EV purchase subsidies from the
// command line and builds dataset documents from crawled rows.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/evsubsidy/cmd/evcalc/commands"
	"github.com/JonMunkholm/evsubsidy/internal/config"
	"github.com/JonMunkholm/evsubsidy/internal/core"
	"github.com/JonMunkholm/evsubsidy/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Values already in the environment win over .env for the CLI.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	// Logs go to stderr so stdout stays machine-readable.
	logging.SetupWriter(stderr, cfg.Logging.Level, cfg.Logging.Format)

	cli := commands.New(cfg, nil)
	cli.SetArgs(args)
	cli.SetOutput(stdout, stderr)

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", describe(err))
		if errors.Is(err, context.Canceled) {
			return 130
		}
		return 1
	}
	return 0
}

// describe prefers the user message of known errors and keeps the technical
// text for the rest.
func describe(err error) string {
	if core.IsUserFacing(err) {
		return fmt.Sprintf("%s [%s]", core.FormatUserError(err), err)
	}
	return err.Error()
}
