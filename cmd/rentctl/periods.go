package main

import (
	"github.com/spf13/cobra"

	"github.com/punchamoorthee/rentledger/internal/logging"
	"github.com/punchamoorthee/rentledger/internal/service"
)

func PeriodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "periods",
		Short: "Create the monthly periods that have come due, once",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			n, err := service.NewPeriodService(st).RollForward(ctx)
			if err != nil {
				return err
			}
			logging.Logger.WithField("created", n).Info("Periods rolled forward")
			return nil
		},
	}
}
