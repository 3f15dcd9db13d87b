package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/punchamoorthee/rentledger/internal/importer"
	"github.com/punchamoorthee/rentledger/internal/logging"
	"github.com/punchamoorthee/rentledger/internal/service"
)

func ImportCmd() *cobra.Command {
	var commit bool
	var mapping map[string]string
	var adminID string

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Validate a client sheet (.csv or .xlsx), and insert it with --commit",
		Long: `Reads the first sheet of FILE, guesses which column holds each client field,
validates every row and prints the result as JSON. Nothing is written unless
--commit is given, in which case the valid rows are inserted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			aliases, err := importer.LoadAliases(cfg.ImportAliasesFile)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			svc := service.NewImportService(st, aliases, cfg.ImportRequireCNI)
			req := service.ImportRequest{
				Filename: filepath.Base(args[0]),
				File:     f,
				Mapping:  mapping,
				AdminID:  adminID,
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if !commit {
				preview, err := svc.Preview(ctx, req)
				if err != nil {
					return err
				}
				return enc.Encode(preview)
			}

			resp, err := svc.Commit(ctx, req)
			if err != nil {
				return err
			}
			logging.Logger.Infof("Imported %d clients, %d rows rejected", resp.Imported, len(resp.Invalid))
			if len(resp.Invalid) > 0 {
				if err := enc.Encode(resp.Invalid); err != nil {
					return err
				}
				return fmt.Errorf("%d rows were not imported", len(resp.Invalid))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&commit, "commit", false, "Insert the valid rows")
	cmd.Flags().StringToStringVarP(&mapping, "map", "m", nil, "Explicit field=header mapping, e.g. -m phone=GSM")
	cmd.Flags().StringVar(&adminID, "admin", "", "Owning admin id for inserted clients")
	return cmd
}
