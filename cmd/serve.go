package cmd

import (
	"context"
	"net"
	"strconv"

	"github.com/relloyd/silverpipe/actions"
	c "github.com/relloyd/silverpipe/constants"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   c.ActionFuncsCommandServe,
	Short: "Start a web service to launch runs and read partitions over HTTP",
	Long:  `Start a web service to launch runs and read partitions over HTTP`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, log, store, release, err := setup(context.Background())
		if err != nil {
			return err
		}
		defer release()
		if !cmd.Flags().Changed("port") && s.Server.Port != 0 {
			serveConfig.Port = s.Server.Port
		}
		serveConfig.LogLevel = s.Log.Level
		serveConfig.Settings = s
		serveConfig.Store = store
		serveConfig.StackDumpOnPanic = s.Log.PrintStack
		log.Debug("serve config port=", serveConfig.Port)
		return actions.RunWebServer(&serveConfig)
	},
}

var serveConfig = actions.WebServerConfig{
	LogLevel:                  "info",
	Scheme:                    "http",
	Addr:                      net.IP{0, 0, 0, 0},
	Port:                      8080,
	StatsDumpFrequencySeconds: 5,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().SortFlags = false
	serveCmd.Flags().IPVarP(&serveConfig.Addr, "address", "a", net.IP{0, 0, 0, 0}, "Address to listen on")
	switches.addFlag(serveCmd, &serveConfig.Port, "port", strconv.Itoa(serveConfig.Port), false, "")
	switches.addFlag(serveCmd, &serveConfig.StatsDumpFrequencySeconds, "stats", "5", false, "")
}
