package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/relloyd/silverpipe/actions"
	"github.com/relloyd/silverpipe/config"
	c "github.com/relloyd/silverpipe/constants"
	"github.com/relloyd/silverpipe/helper"
	"github.com/relloyd/silverpipe/logger"
	"github.com/relloyd/silverpipe/stats"
)

// init will be called first due to the lexical order in which these functions are executed.
// This ensures the value of twelveFactorMode is set such that other init() functions that configure
// Cobra can read the environment in place of CLI flags.
func init() {
	setupTwelveFactorMode()
}

// setupTwelveFactorMode will enable or disable 12 factor mode based on environment variable.
func setupTwelveFactorMode() {
	mode := os.Getenv(envVarTwelveFactorMode)
	if mode != "" { // if variable for 12factor mode is set and we should read env vars to determine actions...
		twelveFactorMode = true
		if strings.ToLower(mode) == "lambda" {
			lambdaMode = true
		}
	} else { // else 12factor mode should be off...
		twelveFactorMode = false // explicitly turn off this mode since tests may have turned it on while others require it off.
		lambdaMode = false
	}
}

const (
	envVarTwelveFactorMode = c.EnvVarPrefix + "_" + "12FACTOR_MODE"
	envVarCommand          = c.EnvVarPrefix + "_" + "COMMAND"
	envVarRunID            = c.EnvVarPrefix + "_" + "RUN_ID"
	envVarRetailers        = c.EnvVarPrefix + "_" + "RETAILERS"
	envVarLogLevel         = c.EnvVarPrefix + "_" + "LOG_LEVEL"
	envVarStackDump        = c.EnvVarPrefix + "_" + "STACK_DUMP"
	envVarStoreDSN         = c.EnvVarPrefix + "_" + "STORE_DSN"
	envVarEbaySecret       = c.EnvVarPrefix + "_" + "EBAY_CLIENT_SECRET"
)

var (
	twelveFactorMode bool // true if os env var envVarTwelveFactorMode is set
	lambdaMode       bool // true if envVarTwelveFactorMode is "lambda"
	twelveFactorVars = map[string]string{
		envVarCommand:    "",
		envVarRunID:      "",
		envVarRetailers:  "",
		envVarLogLevel:   "",
		envVarStackDump:  "",
		envVarStoreDSN:   "",
		envVarEbaySecret: "",
	}
	twelveFactorVarsSensitive = map[string]string{ // used to flag some of the above variables as being sensitive.
		envVarStoreDSN:   "",
		envVarEbaySecret: "",
	}
)

// actionLauncher runs a registered action by name, see actions.ActionLauncher.
type actionLauncher func(ctx context.Context, req *actions.ActionRequest, command string) (interface{}, error)

// execute12FactorMode builds the whole request from the environment and launches the action named by SP_COMMAND.
func execute12FactorMode(ctx context.Context, launch actionLauncher) (err error) {
	logLevel := helper.ReadValueFromEnvWithDefault(envVarLogLevel, "warn") // fetch logLevel from env as we want a quieter default here.
	log := logger.NewLogger("silverpipe", logLevel, stackDumpOnPanic || os.Getenv(envVarStackDump) != "")
	log.Info("Silverpipe is running in 12 Factor mode...")
	for k := range twelveFactorVars { // for each env variable that we need...
		// Save it and log it.
		twelveFactorVars[k] = os.Getenv(k)
		if _, sensitive := twelveFactorVarsSensitive[k]; !sensitive {
			log.Debug(k, "=", twelveFactorVars[k])
		} else {
			log.Debug(k, "=", helper.Obfuscate(twelveFactorVars[k]))
		}
	}
	command := twelveFactorVars[envVarCommand]
	if _, ok := actions.ActionFuncs[command]; !ok {
		err = fmt.Errorf("invalid command %q supplied in %v", command, envVarCommand)
		log.Error(err.Error())
		return
	}
	settings, err := config.Load("", os.LookupEnv)
	if err == nil {
		err = settings.Validate()
	}
	if err != nil {
		log.Error("Error: ", err)
		return err
	}
	settings.Log.Level = logLevel
	store, closer, err := actions.OpenStore(ctx, settings.Store)
	if err != nil {
		log.Error("Error: ", err)
		return err
	}
	defer func() {
		if e := closer(); e != nil {
			log.Warn("error closing store: ", e)
		}
	}()
	req := &actions.ActionRequest{
		Settings:  settings,
		Log:       log,
		Store:     store,
		Stats:     stats.NewManager(log, stats.SetStatsDumpFrequency(0)),
		RunID:     newRunID(twelveFactorVars[envVarRunID]),
		Retailers: helper.CsvToStringSliceTrimSpaces(twelveFactorVars[envVarRetailers]),
	}
	out, err := launch(ctx, req, command)
	if err != nil {
		log.Error("Error: ", err)
		return err
	}
	log.Info("run ", req.RunID, " complete: ", fmt.Sprintf("%+v", out))
	return nil
}
