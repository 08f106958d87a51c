package cmd

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/relloyd/silverpipe/constants"
	"github.com/relloyd/silverpipe/helper"
	"github.com/relloyd/silverpipe/normalize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type cliFlag struct {
	name      string // name of flag
	val       string // default value
	shortHand string // single character name for the flag
	desc      string // description of the flag; the long text
}

type cliFlags map[string]cliFlag

var switches = cliFlags{
	"mock": cliFlag{name: "mock", shortHand: "m", desc: "mock switch for testing"},
	"log-level": cliFlag{name: "log-level", shortHand: "l",
		desc: "Log level: \"error | warn | info | debug | trace\" (overrides the config file)"},
	"retailer": cliFlag{name: "retailer", shortHand: "r",
		desc: fmt.Sprintf("Retailer to process, repeat or use a CSV for more than one (default: %v)",
			strings.Join(normalize.Retailers, ","))},
	"run-id": cliFlag{name: "run-id", shortHand: "i",
		desc: "Ingest run id used to name audit copies and stamp lineage (default: a new unique id)"},
	"parallel": cliFlag{name: "parallel", shortHand: "P",
		desc: "Process retailers concurrently"},
	"key-columns": cliFlag{name: "key-columns", shortHand: "k",
		desc: "The CSV list of silver columns that identify one listing in a current view \n" +
			"(default: retailer_id,native_item_id)"},
	"file": cliFlag{name: "file", shortHand: "f",
		desc: "Local raw snapshot file (.csv, .json or .jsonl)"},
	"output": cliFlag{name: "output", shortHand: "o",
		desc: "Print results as \"yaml\" or \"json\""},
	"port": cliFlag{name: "port", shortHand: "p",
		desc: "Port to listen on"},
	"stats": cliFlag{name: "stats", shortHand: "L",
		desc: "Number of seconds between dumping step statistics (use 0 to disable)"},
	"force": cliFlag{name: "force", shortHand: "F",
		desc: "Overwrite an existing config file"},
}

// addFlag adds a flag to cobra.Command c, based on the type of targetVar (which must be a pointer).
// The name of the flag is looked up in map, cliFlags.
// When running in twelveFactorMode, the targetVar is populated using the value of environment variable for the supplied
// name, or if not set then the supplied default value is used.
// The flag is marked as required in Cobra based on the value of required.
// Supply a value for desc2 to append to the existing description found in map cliFlags.
func (f *cliFlags) addFlag(c *cobra.Command, targetVar interface{}, name string, defaultValue string, required bool, desc2 string) {
	v := reflect.ValueOf(targetVar)
	if v.Kind() != reflect.Ptr {
		fmt.Println("error adding flag: targetVar must be a pointer")
		os.Exit(1)
	}
	sw := f.getCliFlag(name, defaultValue, os.LookupEnv)
	desc := sw.desc + desc2
	switch p := targetVar.(type) {
	case *string:
		if twelveFactorMode {
			*p = sw.val
		} else {
			c.Flags().StringVarP(p, sw.name, sw.shortHand, sw.val, desc)
		}
	case *bool:
		b := parseBoolFlag(sw.val)
		if twelveFactorMode {
			*p = b
		} else {
			c.Flags().BoolVarP(p, sw.name, sw.shortHand, b, desc)
		}
	case *int:
		defaultInt, err := strconv.Atoi(sw.val)
		if err != nil {
			fmt.Printf("the value for flag %q must be an integer: %v\n", sw.name, err)
			os.Exit(1)
		}
		if twelveFactorMode {
			*p = defaultInt
		} else {
			c.Flags().IntVarP(p, sw.name, sw.shortHand, defaultInt, desc)
		}
	case *[]string:
		list := helper.CsvToStringSliceTrimSpaces(sw.val)
		if twelveFactorMode {
			*p = list
		} else {
			c.Flags().StringSliceVarP(p, sw.name, sw.shortHand, list, desc)
		}
	default:
		panic("Error: unhandled CLI flag target value type")
	}
	// Optionally mark the flag as mandatory.
	if required && !twelveFactorMode {
		_ = c.MarkFlagRequired(sw.name)
	}
}

// getCliFlag fetches the value of name from the environment, when running in twelveFactorMode.
// If a value cannot be found then use the supplied defaultValue in its place.
func (f *cliFlags) getCliFlag(name string, defaultValue string, lookupEnv func(string) (string, bool)) cliFlag {
	s, ok := (*f)[name]
	if !ok {
		panic(fmt.Sprintf("unregistered CLI flag, %q", name))
	}
	s.val = defaultValue
	if twelveFactorMode {
		if v, ok := lookupEnv(flagNameToEnvVar(name)); ok && v != "" {
			s.val = v
		}
	}
	return s
}

// flagNameToEnvVar will form a sanitised environment variable name using constants.EnvVarPrefix.
func flagNameToEnvVar(name string) string {
	return constants.EnvVarPrefix + "_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

// parseBoolFlag treats any value other than blank, "0" or "false" as true.
func parseBoolFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false", "no":
		return false
	}
	return true
}

// normalizeFlagName lets users type underscores in place of dashes, e.g. --run_id.
func normalizeFlagName(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}
