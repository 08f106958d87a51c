package cmd

import (
	"context"
	"fmt"

	"github.com/relloyd/silverpipe/actions"
	c "github.com/relloyd/silverpipe/constants"
	"github.com/relloyd/silverpipe/normalize"
	"github.com/spf13/cobra"
)

var pullRunID string

var pullCmd = &cobra.Command{
	Use:       fmt.Sprintf("pull [%v|%v]...", c.RetailerWalmart, c.RetailerEbay),
	Short:     "Fetch items from retailer APIs and write raw snapshots",
	Long:      `Fetch items from retailer APIs and write them as raw snapshots to the store (default: all retailers).`,
	ValidArgs: normalize.Retailers,
	Args:      cobra.OnlyValidArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		s, log, store, release, err := setup(ctx)
		if err != nil {
			return err
		}
		defer release()
		req := &actions.ActionRequest{Settings: s, Log: log, Store: store, RunID: newRunID(pullRunID), Retailers: args}
		out, err := actions.ActionLauncher(ctx, req, c.ActionFuncsCommandPull)
		if err != nil {
			return err
		}
		for _, name := range out.([]string) {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pullCmd)
	switches.addFlag(pullCmd, &pullRunID, "run-id", "", false, "")
}
