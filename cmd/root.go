package cmd

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/relloyd/silverpipe/actions"
	"github.com/relloyd/silverpipe/blob"
	"github.com/relloyd/silverpipe/config"
	"github.com/relloyd/silverpipe/logger"
	"github.com/rs/xid"
	"github.com/spf13/cobra"
)

var (
	// Default values may be set at compile time.
	version          = "0.1.0"
	buildDate        = "2024-03-01T00:00+0000"
	stackDumpOnPanic bool
	configFile       string
	logLevel         string
)

var rootCmd = &cobra.Command{
	Use:   "sp",
	Short: "Silverpipe normalizes retailer snapshots into silver partitions",
	Long: `Silverpipe pulls raw item snapshots from retailer APIs, normalizes them onto one
silver schema and upserts them into date partitions with a write-once audit copy
per run and a merged current view. Start an HTTP server to launch runs remotely.`,
	SilenceUsage: true,
}

func init() {
	cobra.EnableCommandSorting = false
	rootCmd.SetGlobalNormalizationFunc(normalizeFlagName)
	// Global flags.
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config `<file>` (default ~/.silverpipe/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", switches["log-level"].desc)
	rootCmd.PersistentFlags().BoolVar(&stackDumpOnPanic, "print-stack", false, "Print a stack dump if there is a panic")
	_ = rootCmd.PersistentFlags().MarkHidden("print-stack")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if twelveFactorMode { // if we are running based on environment variables...
		if lambdaMode { // if we should handle lambda execution...
			lambda.Start(func(ctx context.Context) error { return execute12FactorMode(ctx, actions.ActionLauncher) })
		} else {
			if err := execute12FactorMode(context.Background(), actions.ActionLauncher); err != nil {
				// execute12FactorMode logs the error.
				os.Exit(1)
			}
		}
	} else { // else we're using CLI args and flags via Cobra...
		if err := rootCmd.Execute(); err != nil {
			// Execute() prints the error.
			os.Exit(1)
		}
	}
}

// loadSettings reads the config file and environment, then applies the global CLI flags.
func loadSettings() (*config.Config, error) {
	s, err := config.Load(configFile, os.LookupEnv)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		s.Log.Level = logLevel
	}
	if stackDumpOnPanic {
		s.Log.PrintStack = true
	}
	return s, s.Validate()
}

// setup loads settings and opens the configured store. Call the returned func to release the store.
func setup(ctx context.Context) (*config.Config, logger.Logger, blob.Store, func(), error) {
	s, err := loadSettings()
	if err != nil {
		return nil, nil, nil, func() {}, err
	}
	log := logger.NewLogger("silverpipe", s.Log.Level, s.Log.PrintStack)
	store, closer, err := actions.OpenStore(ctx, s.Store)
	if err != nil {
		return nil, nil, nil, func() {}, err
	}
	release := func() {
		if err := closer(); err != nil {
			log.Warn("error closing store: ", err)
		}
	}
	return s, log, store, release, nil
}

// newRunID returns runID or a new unique id when it is blank.
func newRunID(runID string) string {
	if runID != "" {
		return runID
	}
	return xid.New().String()
}
