package cmd

import (
	"fmt"

	"github.com/relloyd/silverpipe/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or create the config file",
	Long: `Show or create the config file. Settings are read from the config file and may be
overridden by SP_<SECTION>_<KEY> environment variables, e.g. SP_STORE_DSN.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective config with secrets obfuscated",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil && s == nil {
			return err
		}
		out, e := s.Show()
		if e != nil {
			return e
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return err // report validation problems after printing
	},
}

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file of default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		fileName, err := config.ExpandPath(configFile)
		if err != nil {
			return err
		}
		if fileName == "" {
			if fileName, err = config.DefaultPath(); err != nil {
				return err
			}
		}
		if config.Exists(fileName) && !configInitForce {
			return fmt.Errorf("config file %v already exists, use --force to overwrite it", fileName)
		}
		if err := config.Defaults().Save(fileName); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Default config file created: %v\n", fileName)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	switches.addFlag(configInitCmd, &configInitForce, "force", "false", false, "")
}
