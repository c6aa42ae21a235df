package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"budgetwise/internal/cli"
	"budgetwise/internal/config"
	"budgetwise/internal/core"
	"budgetwise/internal/storage"
)

var (
	flagVerbose bool
	flagEmail   string
	flagMonth   int
	flagYear    int
)

var rootCmd = &cobra.Command{
	Use:           "budgetctl",
	Short:         "Budgetwise maintenance and reporting",
	Long:          "Run migrations, budget optimizations and monthly exports directly against the configured store.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called from main.
func Execute() {
	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log at the configured level instead of warnings only")
}

// addPeriodFlags registers the user and month selection shared by the
// reporting commands.
func addPeriodFlags(cmd *cobra.Command) {
	now := time.Now().UTC()
	cmd.Flags().StringVarP(&flagEmail, "email", "e", "", "Email of the user")
	cmd.Flags().IntVarP(&flagMonth, "month", "m", int(now.Month()), "Month (1-12)")
	cmd.Flags().IntVarP(&flagYear, "year", "y", now.Year(), "Year")
	_ = cmd.MarkFlagRequired("email")
}

// setup loads the configuration and a logger that writes to stderr so the
// command output stays clean.
func setup() (*config.Config, zerolog.Logger, error) {
	cli.LoadEnvFile()
	cfg, err := cli.LoadConfig()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	logger := cli.SetupLogger(cfg).Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	if !flagVerbose {
		logger = logger.Level(zerolog.WarnLevel)
	}
	return cfg, logger, nil
}

// withStore opens the store, resolves --email and --month/--year and hands
// them to fn.
func withStore(ctx context.Context, fn func(store storage.Store, user core.User, p core.Period, log zerolog.Logger) error) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	p, err := core.NewPeriod(flagYear, flagMonth)
	if err != nil {
		return err
	}

	store, cleanup, err := cli.OpenStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	user, err := store.GetUserByEmail(ctx, core.NormalizeEmail(flagEmail))
	if err != nil {
		return fmt.Errorf("look up %s: %w", flagEmail, err)
	}
	return fn(store, user, p, log)
}
