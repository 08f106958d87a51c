package cmd

import (
	"context"

	"github.com/relloyd/silverpipe/actions"
	c "github.com/relloyd/silverpipe/constants"
	"github.com/spf13/cobra"
)

type upsertOptions struct {
	retailer   string
	file       string
	runID      string
	keyColumns []string
	output     string
}

var upsertOpts upsertOptions

var upsertCmd = &cobra.Command{
	Use:   c.ActionFuncsCommandUpsert,
	Short: "Normalize and upsert a local raw snapshot file",
	Long: `Normalize a local raw snapshot file (.csv, .json or .jsonl) for one retailer and
upsert it into the configured silver store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		s, log, store, release, err := setup(ctx)
		if err != nil {
			return err
		}
		defer release()
		cfg := actions.NewIngestConfig(s, newRunID(upsertOpts.runID))
		cfg.Log = log
		cfg.Store = store
		if len(upsertOpts.keyColumns) > 0 {
			cfg.KeyColumns = upsertOpts.keyColumns
		}
		res, err := actions.RunUpsertFile(ctx, cfg, upsertOpts.retailer, upsertOpts.file)
		if err != nil {
			return err
		}
		return printOutput(cmd.OutOrStdout(), upsertOpts.output, res)
	},
}

func init() {
	rootCmd.AddCommand(upsertCmd)
	upsertCmd.Flags().SortFlags = false
	switches.addFlag(upsertCmd, &upsertOpts.retailer, "retailer", "", true, "")
	switches.addFlag(upsertCmd, &upsertOpts.file, "file", "", true, "")
	switches.addFlag(upsertCmd, &upsertOpts.runID, "run-id", "", false, "")
	switches.addFlag(upsertCmd, &upsertOpts.keyColumns, "key-columns", "", false, "")
	switches.addFlag(upsertCmd, &upsertOpts.output, "output", "yaml", false, "")
}
