package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/punchamoorthee/rentledger/internal/logging"
)

func main() {
	logging.Init("rentledger-benchmark")

	var opts options
	rootCmd := &cobra.Command{
		Use:          "benchmark",
		Short:        "Concurrent payment load against a running rent ledger API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.duration)
			defer cancel()
			return run(ctx, opts)
		},
	}
	f := rootCmd.Flags()
	f.StringVar(&opts.baseURL, "url", "http://localhost:8080", "API base URL")
	f.IntVar(&opts.workers, "workers", 10, "Number of concurrent workers")
	f.DurationVar(&opts.duration, "duration", 30*time.Second, "Test duration")
	f.StringVar(&opts.workload, "workload", workloadUniform, "Workload: uniform | hotspot | mixed")
	f.StringVar(&opts.out, "out", "", "Also write the results to this file (default results_<workload>.json)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
