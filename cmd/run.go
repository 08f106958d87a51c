package cmd

import (
	"context"

	"github.com/relloyd/silverpipe/actions"
	c "github.com/relloyd/silverpipe/constants"
	"github.com/relloyd/silverpipe/stats"
	"github.com/spf13/cobra"
)

type runOptions struct {
	retailers  []string
	runID      string
	parallel   bool
	keyColumns []string
	output     string
	statsSecs  int
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   c.ActionFuncsCommandRun,
	Short: "Normalize and upsert the latest raw snapshot of each retailer",
	Long: `Read the newest raw snapshot of each retailer from the store, normalize it onto the
silver schema and upsert it into snapshot_date partitions. Each partition gets a
write-once audit copy named by the run id and a merged current view.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		s, log, store, release, err := setup(ctx)
		if err != nil {
			return err
		}
		defer release()
		cfg := actions.NewIngestConfig(s, newRunID(runOpts.runID))
		cfg.Log = log
		cfg.Store = store
		cfg.Retailers = runOpts.retailers
		if cmd.Flags().Changed("parallel") {
			cfg.Parallel = runOpts.parallel
		}
		if len(runOpts.keyColumns) > 0 {
			cfg.KeyColumns = runOpts.keyColumns
		}
		cfg.Stats = stats.NewManager(log, stats.SetStatsDumpFrequency(runOpts.statsSecs))
		cfg.Stats.StartDumping()
		defer cfg.Stats.StopDumping()
		log.Info("starting run ", cfg.RunID)
		results, err := actions.RunIngest(ctx, cfg)
		if perr := printOutput(cmd.OutOrStdout(), runOpts.output, results); perr != nil {
			log.Error(perr)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().SortFlags = false
	switches.addFlag(runCmd, &runOpts.retailers, "retailer", "", false, "")
	switches.addFlag(runCmd, &runOpts.runID, "run-id", "", false, "")
	switches.addFlag(runCmd, &runOpts.parallel, "parallel", "false", false, "")
	switches.addFlag(runCmd, &runOpts.keyColumns, "key-columns", "", false, "")
	switches.addFlag(runCmd, &runOpts.output, "output", "yaml", false, "")
	switches.addFlag(runCmd, &runOpts.statsSecs, "stats", "0", false, "")
}
