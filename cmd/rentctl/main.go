package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/punchamoorthee/rentledger/internal/config"
	"github.com/punchamoorthee/rentledger/internal/logging"
	"github.com/punchamoorthee/rentledger/internal/store"
)

func main() {
	logging.Init("rentctl")

	rootCmd := &cobra.Command{
		Use:           "rentctl",
		Short:         "Maintenance commands for the rent ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		SeedCmd(),
		ImportCmd(),
		PeriodsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openStore loads the configuration and opens the configured store.
func openStore(ctx context.Context) (*config.Config, store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s store: %w", cfg.StoreDriver, err)
	}
	return cfg, st, nil
}
